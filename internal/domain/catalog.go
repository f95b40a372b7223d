package domain

// Kind identifies one catalog entry type.
type Kind string

const (
	KindHotel       Kind = "hotel"
	KindSicTour     Kind = "sic_tour"
	KindSightseeing Kind = "sightseeing"
	KindTransfer    Kind = "transfer"
	KindRestaurant  Kind = "restaurant"
)

// PeriodShape tells which child record a kind owns.
type PeriodShape int

const (
	NoPeriods PeriodShape = iota
	RatePeriods
	MenuPrices
)

var Kinds = []Kind{KindHotel, KindSicTour, KindSightseeing, KindTransfer, KindRestaurant}

func (k Kind) Valid() bool {
	switch k {
	case KindHotel, KindSicTour, KindSightseeing, KindTransfer, KindRestaurant:
		return true
	}
	return false
}

// Label is the human name used in error messages.
func (k Kind) Label() string {
	switch k {
	case KindHotel:
		return "hotel"
	case KindSicTour:
		return "SIC tour"
	case KindSightseeing:
		return "sightseeing fee"
	case KindTransfer:
		return "transfer"
	case KindRestaurant:
		return "restaurant"
	}
	return string(k)
}

func (k Kind) Periods() PeriodShape {
	switch k {
	case KindHotel, KindSicTour:
		return RatePeriods
	case KindRestaurant:
		return MenuPrices
	}
	return NoPeriods
}

// HasCategory and HasPrice report the kind-specific required columns.
func (k Kind) HasCategory() bool { return k == KindHotel }
func (k Kind) HasPrice() bool    { return k == KindSightseeing || k == KindTransfer }

// Entry is a priceable catalog item located in one of the tenant's cities.
// Name holds the kind's name column (hotel name, tour name, place name,
// transfer type or restaurant name).
type Entry struct {
	Kind     Kind     `json:"kind"`
	ID       int64    `json:"id"`
	UserID   int64    `json:"-"`
	CityID   int64    `json:"city_id"`
	CityName string   `json:"city,omitempty"`
	Name     string   `json:"name"`
	Category *string  `json:"category,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}
