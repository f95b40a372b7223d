package sqlstore

import (
	"fmt"

	"pricing_catalog/internal/domain"
)

// -----------------------------------------------------------------------------
// CITIES
// -----------------------------------------------------------------------------

const getCitySQL = `
SELECT id, user_id, name, normalized_name
FROM cities
WHERE id = ? AND user_id = ?
`

const renameCitySQL = `
UPDATE cities
SET name = ?, normalized_name = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND user_id = ?
`

const listCitiesSQL = `
SELECT id, user_id, name, normalized_name
FROM cities
WHERE user_id = ?
ORDER BY name, id
`

// -----------------------------------------------------------------------------
// CATALOG ENTRIES
// -----------------------------------------------------------------------------

// entryTable maps a kind onto its table. extraCol is "category", "price" or "".
type entryTable struct {
	table       string
	nameCol     string
	extraCol    string
	periodTable string
	periodFK    string
}

var entryTables = map[domain.Kind]entryTable{
	domain.KindHotel:       {table: "hotels", nameCol: "hotel_name", extraCol: "category", periodTable: "hotel_pricing", periodFK: "hotel_id"},
	domain.KindSicTour:     {table: "sic_tours", nameCol: "tour_name", periodTable: "sic_tour_pricing", periodFK: "tour_id"},
	domain.KindSightseeing: {table: "sightseeing_fees", nameCol: "place_name", extraCol: "price"},
	domain.KindTransfer:    {table: "transfers", nameCol: "transfer_type", extraCol: "price"},
	domain.KindRestaurant:  {table: "restaurants", nameCol: "restaurant_name", periodTable: "restaurant_menu_pricing", periodFK: "restaurant_id"},
}

// entrySQL holds the statements generated once per kind.
type entrySQL struct {
	insert, update, del, list, listByCity, lock string
}

var entryStatements = buildEntryStatements()

func buildEntryStatements() map[domain.Kind]entrySQL {
	out := make(map[domain.Kind]entrySQL, len(entryTables))
	for kind, t := range entryTables {
		var s entrySQL
		category, price := "NULL", "NULL"
		switch t.extraCol {
		case "category":
			category = "e.category"
		case "price":
			price = "e.price"
		}
		if t.extraCol != "" {
			s.insert = fmt.Sprintf("INSERT INTO %s (user_id, city_id, %s, %s) VALUES (?, ?, ?, ?)", t.table, t.nameCol, t.extraCol)
			s.update = fmt.Sprintf("UPDATE %s SET city_id = ?, %s = ?, %s = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?", t.table, t.nameCol, t.extraCol)
		} else {
			s.insert = fmt.Sprintf("INSERT INTO %s (user_id, city_id, %s) VALUES (?, ?, ?)", t.table, t.nameCol)
			s.update = fmt.Sprintf("UPDATE %s SET city_id = ?, %s = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?", t.table, t.nameCol)
		}
		s.del = fmt.Sprintf("DELETE FROM %s WHERE id = ? AND user_id = ?", t.table)
		s.lock = fmt.Sprintf("SELECT id FROM %s WHERE id = ? AND user_id = ?", t.table)

		sel := fmt.Sprintf(`SELECT e.id, e.user_id, e.city_id, c.name, e.%s, %s, %s
FROM %s e
JOIN cities c ON c.id = e.city_id
WHERE e.user_id = ?`, t.nameCol, category, price, t.table)
		order := fmt.Sprintf("\nORDER BY c.name, e.%s, e.id", t.nameCol)
		s.list = sel + order
		s.listByCity = sel + " AND e.city_id = ?" + order
		out[kind] = s
	}
	return out
}

// -----------------------------------------------------------------------------
// PRICING PERIODS
// -----------------------------------------------------------------------------

type periodSQL struct {
	insert, update, del, list string
}

var periodStatements = buildPeriodStatements()

func buildPeriodStatements() map[domain.Kind]periodSQL {
	out := map[domain.Kind]periodSQL{}
	for kind, t := range entryTables {
		switch kind.Periods() {
		case domain.RatePeriods:
			out[kind] = periodSQL{
				insert: fmt.Sprintf(`INSERT INTO %s
  (%s, start_date, end_date, pp_dbl_rate, single_supplement, child_0to2, child_3to5, child_6to11)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)`, t.periodTable, t.periodFK),
				update: fmt.Sprintf(`UPDATE %s
SET start_date = ?, end_date = ?, pp_dbl_rate = ?, single_supplement = ?,
    child_0to2 = ?, child_3to5 = ?, child_6to11 = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND %s = ?`, t.periodTable, t.periodFK),
				del: fmt.Sprintf("DELETE FROM %s WHERE id = ? AND %s = ?", t.periodTable, t.periodFK),
				list: fmt.Sprintf(`SELECT id, %s, start_date, end_date, pp_dbl_rate, single_supplement, child_0to2, child_3to5, child_6to11
FROM %s
WHERE %s = ?
ORDER BY start_date, id`, t.periodFK, t.periodTable, t.periodFK),
			}
		case domain.MenuPrices:
			out[kind] = periodSQL{
				insert: fmt.Sprintf(`INSERT INTO %s
  (%s, menu_option, price, start_date, end_date)
VALUES
  (?, ?, ?, ?, ?)`, t.periodTable, t.periodFK),
				update: fmt.Sprintf(`UPDATE %s
SET menu_option = ?, price = ?, start_date = ?, end_date = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND %s = ?`, t.periodTable, t.periodFK),
				del: fmt.Sprintf("DELETE FROM %s WHERE id = ? AND %s = ?", t.periodTable, t.periodFK),
				list: fmt.Sprintf(`SELECT id, %s, menu_option, price, start_date, end_date
FROM %s
WHERE %s = ?
ORDER BY menu_option, start_date, id`, t.periodFK, t.periodTable, t.periodFK),
			}
		}
	}
	return out
}
