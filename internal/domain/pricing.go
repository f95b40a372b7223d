package domain

// RatePeriod is an occupancy-based rate valid between StartDate and EndDate
// (either may be absent). It belongs to a hotel or SIC tour and has no owner
// of its own: access is authorized through the parent entry.
type RatePeriod struct {
	ID               int64    `json:"id"`
	ParentID         int64    `json:"parent_id"`
	StartDate        Date     `json:"start_date"`
	EndDate          Date     `json:"end_date"`
	PPDblRate        *float64 `json:"pp_dbl_rate"`
	SingleSupplement *float64 `json:"single_supplement"`
	Child0to2        *float64 `json:"child_0to2"`
	Child3to5        *float64 `json:"child_3to5"`
	Child6to11       *float64 `json:"child_6to11"`
}

// MenuPrice is a named restaurant menu option with a flat price. Price is a
// pointer so an absent value is distinguishable from zero; it is required on
// write.
type MenuPrice struct {
	ID           int64    `json:"id"`
	RestaurantID int64    `json:"restaurant_id"`
	MenuOption   string   `json:"menu_option"`
	Price        *float64 `json:"price"`
	StartDate    Date     `json:"start_date"`
	EndDate      Date     `json:"end_date"`
}
