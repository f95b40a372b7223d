package domain

type City struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"-"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
}

// CityRef is what callers send to point an entry at a city: a previously chosen
// id, free text, or both (an id plus a possibly renamed display form).
type CityRef struct {
	ID   *int64
	Name *string
}
