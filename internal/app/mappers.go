package app

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"pricing_catalog/internal/domain"
)

/********** alias registries (single source of truth) **********/

// entryAliases lists, per field, the keys legacy exports used for it.
var entryAliases = map[string][]string{
	"city_id":  {"city_id", "cityId", "city.id"},
	"city":     {"city", "cityName", "city_name", "city.name"},
	"category": {"category", "hotel_category", "hotelCategory", "stars"},
	"price":    {"price", "fee", "amount", "entrance_fee", "entranceFee"},
}

var nameAliases = map[domain.Kind][]string{
	domain.KindHotel:       {"hotel_name", "hotelName", "name"},
	domain.KindSicTour:     {"tour_name", "tourName", "name"},
	domain.KindSightseeing: {"place_name", "placeName", "name"},
	domain.KindTransfer:    {"transfer_type", "transferType", "type", "name"},
	domain.KindRestaurant:  {"restaurant_name", "restaurantName", "name"},
}

var periodAliases = map[string][]string{
	"list":              {"pricing", "periods", "rates"},
	"menu":              {"menu", "menu_pricing", "menuPricing", "menuItems", "menu_items"},
	"start_date":        {"start_date", "startDate", "from", "valid_from"},
	"end_date":          {"end_date", "endDate", "to", "valid_to"},
	"pp_dbl_rate":       {"pp_dbl_rate", "ppDblRate", "double_rate", "doubleRate"},
	"single_supplement": {"single_supplement", "singleSupplement", "single"},
	"child_0to2":        {"child_0to2", "child0to2", "child_0_2"},
	"child_3to5":        {"child_3to5", "child3to5", "child_3_5"},
	"child_6to11":       {"child_6to11", "child6to11", "child_6_11"},
	"menu_option":       {"menu_option", "menuOption", "option", "name"},
	"price":             {"price", "amount"},
}

// flatRateKeys and flatMenuKeys mark a row that carries its own rate inline
// instead of a nested list: one legacy row per period.
var (
	flatRateKeys = slices.Concat(
		periodAliases["pp_dbl_rate"], periodAliases["single_supplement"],
		periodAliases["child_0to2"], periodAliases["child_3to5"], periodAliases["child_6to11"],
	)
	flatMenuKeys = []string{"menu_option", "menuOption", "option"}
)

// sectionKinds maps the top-level keys of an export document onto kinds.
var sectionKinds = map[string]domain.Kind{
	"hotels":           domain.KindHotel,
	"sic_tours":        domain.KindSicTour,
	"sicTours":         domain.KindSicTour,
	"tours":            domain.KindSicTour,
	"sightseeing":      domain.KindSightseeing,
	"sightseeing_fees": domain.KindSightseeing,
	"sightseeingFees":  domain.KindSightseeing,
	"transfers":        domain.KindTransfer,
	"restaurants":      domain.KindRestaurant,
	"meals":            domain.KindRestaurant,
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupText returns the value at path as text; numbers are formatted.
func lookupText(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// firstText: first non-empty text among paths.
func firstText(m map[string]any, paths ...string) *string {
	for _, p := range paths {
		if s := lookupText(m, p); s != "" {
			return &s
		}
	}
	return nil
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

func firstDate(m map[string]any, paths ...string) (domain.Date, error) {
	s := firstText(m, paths...)
	if s == nil {
		return domain.Date{}, nil
	}
	return domain.ParseDate(*s)
}

func hasAny(m map[string]any, paths ...string) bool {
	for _, p := range paths {
		if lookupAny(m, p) != nil {
			return true
		}
	}
	return false
}

func firstList(m map[string]any, paths ...string) []map[string]any {
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		out := make([]map[string]any, 0, len(raw))
		for _, it := range raw {
			if obj, ok := it.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out
	}
	return nil
}

/********** legacy row mapper **********/

// LegacyRow is one catalog entry as exported by the pre-city-id system, where
// the city was free text. Prices are either nested under the entry or, in
// older exports, inline with one row per period.
type LegacyRow struct {
	Kind   domain.Kind
	Fields map[string]any
}

// ImportRow is a LegacyRow mapped onto domain types.
type ImportRow struct {
	Entry      domain.Entry
	City       domain.CityRef
	Periods    []domain.RatePeriod
	MenuPrices []domain.MenuPrice
}

// DecodeLegacy reads an export document: an object whose keys name the kind
// ("hotels", "sic_tours", ...) and hold arrays of rows. Unknown sections are
// rejected so a typo cannot silently drop data.
func DecodeLegacy(b []byte) ([]LegacyRow, error) {
	var doc map[string][]map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode legacy export: %w", err)
	}
	var out []LegacyRow
	for _, section := range slices.Sorted(maps.Keys(doc)) {
		kind, ok := sectionKinds[section]
		if !ok {
			return nil, fmt.Errorf("decode legacy export: unknown section %q", section)
		}
		for _, fields := range doc[section] {
			out = append(out, LegacyRow{Kind: kind, Fields: fields})
		}
	}
	return out, nil
}

func mapLegacyRow(r LegacyRow) (ImportRow, error) {
	if !r.Kind.Valid() {
		return ImportRow{}, unknownKind(r.Kind)
	}
	m := r.Fields
	out := ImportRow{
		Entry: domain.Entry{Kind: r.Kind},
		City: domain.CityRef{
			ID:   firstInt64Flexible(m, entryAliases["city_id"]...),
			Name: firstText(m, entryAliases["city"]...),
		},
	}
	if s := firstText(m, nameAliases[r.Kind]...); s != nil {
		out.Entry.Name = *s
	}
	if r.Kind.HasCategory() {
		out.Entry.Category = firstText(m, entryAliases["category"]...)
	}
	if r.Kind.HasPrice() {
		out.Entry.Price = getFloatFlexible(m, entryAliases["price"]...)
	}

	switch r.Kind.Periods() {
	case domain.RatePeriods:
		list := firstList(m, periodAliases["list"]...)
		if list == nil && hasAny(m, flatRateKeys...) {
			list = []map[string]any{m}
		}
		for i, pm := range list {
			p, err := mapRatePeriod(pm)
			if err != nil {
				return ImportRow{}, fmt.Errorf("period %d: %w", i, err)
			}
			out.Periods = append(out.Periods, p)
		}
	case domain.MenuPrices:
		list := firstList(m, periodAliases["menu"]...)
		if list == nil && hasAny(m, flatMenuKeys...) {
			list = []map[string]any{m}
		}
		for i, mm := range list {
			mp, err := mapMenuPrice(mm)
			if err != nil {
				return ImportRow{}, fmt.Errorf("menu item %d: %w", i, err)
			}
			out.MenuPrices = append(out.MenuPrices, mp)
		}
	}
	return out, nil
}

func mapRatePeriod(m map[string]any) (domain.RatePeriod, error) {
	start, err := firstDate(m, periodAliases["start_date"]...)
	if err != nil {
		return domain.RatePeriod{}, err
	}
	end, err := firstDate(m, periodAliases["end_date"]...)
	if err != nil {
		return domain.RatePeriod{}, err
	}
	return domain.RatePeriod{
		StartDate:        start,
		EndDate:          end,
		PPDblRate:        getFloatFlexible(m, periodAliases["pp_dbl_rate"]...),
		SingleSupplement: getFloatFlexible(m, periodAliases["single_supplement"]...),
		Child0to2:        getFloatFlexible(m, periodAliases["child_0to2"]...),
		Child3to5:        getFloatFlexible(m, periodAliases["child_3to5"]...),
		Child6to11:       getFloatFlexible(m, periodAliases["child_6to11"]...),
	}, nil
}

func mapMenuPrice(m map[string]any) (domain.MenuPrice, error) {
	start, err := firstDate(m, periodAliases["start_date"]...)
	if err != nil {
		return domain.MenuPrice{}, err
	}
	end, err := firstDate(m, periodAliases["end_date"]...)
	if err != nil {
		return domain.MenuPrice{}, err
	}
	mp := domain.MenuPrice{
		Price:     getFloatFlexible(m, periodAliases["price"]...),
		StartDate: start,
		EndDate:   end,
	}
	if s := firstText(m, periodAliases["menu_option"]...); s != nil {
		mp.MenuOption = *s
	}
	return mp, nil
}
