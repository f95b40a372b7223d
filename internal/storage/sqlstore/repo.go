package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pricing_catalog/internal/adapters/observability"
	"pricing_catalog/internal/domain"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect isolates the statements that differ between MySQL and SQLite.
type Dialect interface {
	Name() string
	// UpsertCity runs the conflict-handling insert and returns the row id,
	// whether it was inserted or already present.
	UpsertCity(ctx context.Context, q Querier, userID int64, name, normalized string) (int64, error)
	// ForUpdate is appended to ownership checks run inside a transaction.
	ForUpdate() string
	IsDuplicate(err error) bool
	TxOptions() *sql.TxOptions
}

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullF64(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

type Repo struct {
	db *sql.DB
	q  Querier
	tx *sql.Tx
	d  Dialect
}

var _ domain.Store = (*Repo)(nil)

func New(db *sql.DB, d Dialect) *Repo { return &Repo{db: db, q: db, d: d} }

func (r *Repo) DB() *sql.DB { return r.db }

func (r *Repo) Tx(ctx context.Context, fn func(domain.Store) error) (err error) {
	if r.tx != nil {
		return fn(r)
	}
	start := time.Now()
	tx, err := r.db.BeginTx(ctx, r.d.TxOptions())
	if err != nil {
		observe("tx_begin", start, err)
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		} else if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit tx: %w", cerr)
		}
		observe("tx", start, err)
	}()
	return fn(&Repo{db: r.db, q: tx, tx: tx, d: r.d})
}

func observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		outcome = "error"
	}
	observability.ObserveStore(op, outcome, time.Since(start))
}

func (r *Repo) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := r.q.ExecContext(ctx, query, args...)
	observe(op, start, err)
	if err != nil && r.d.IsDuplicate(err) {
		return nil, fmt.Errorf("%s: %w: %v", op, domain.ErrDuplicate, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func (r *Repo) query(ctx context.Context, op, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := r.q.QueryContext(ctx, query, args...)
	observe(op, start, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

/********** cities **********/

func (r *Repo) UpsertCity(ctx context.Context, userID int64, name, normalized string) (domain.City, error) {
	start := time.Now()
	id, err := r.d.UpsertCity(ctx, r.q, userID, name, normalized)
	observe("upsert_city", start, err)
	if err != nil {
		return domain.City{}, fmt.Errorf("upsert_city: %w", err)
	}
	return domain.City{ID: id, UserID: userID, Name: name, NormalizedName: normalized}, nil
}

func (r *Repo) GetCity(ctx context.Context, userID, id int64) (domain.City, error) {
	start := time.Now()
	var c domain.City
	err := r.q.QueryRowContext(ctx, getCitySQL, id, userID).Scan(&c.ID, &c.UserID, &c.Name, &c.NormalizedName)
	observe("get_city", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.City{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.City{}, fmt.Errorf("get_city: %w", err)
	}
	return c, nil
}

func (r *Repo) RenameCity(ctx context.Context, userID, id int64, name, normalized string) error {
	res, err := r.exec(ctx, "rename_city", renameCitySQL, name, normalized, id, userID)
	if err != nil {
		return err
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) ListCities(ctx context.Context, userID int64) ([]domain.City, error) {
	rows, err := r.query(ctx, "list_cities", listCitiesSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.City{}
	for rows.Next() {
		var c domain.City
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.NormalizedName); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

/********** catalog entries **********/

func statementsFor(kind domain.Kind) (entryTable, entrySQL, error) {
	t, ok := entryTables[kind]
	if !ok {
		return entryTable{}, entrySQL{}, fmt.Errorf("unknown catalog kind %q", kind)
	}
	return t, entryStatements[kind], nil
}

func entryArgs(t entryTable, e domain.Entry) []any {
	args := []any{e.CityID, e.Name}
	switch t.extraCol {
	case "category":
		args = append(args, valStr(e.Category))
	case "price":
		args = append(args, valF64(e.Price))
	}
	return args
}

func (r *Repo) InsertEntry(ctx context.Context, e domain.Entry) (int64, error) {
	t, s, err := statementsFor(e.Kind)
	if err != nil {
		return 0, err
	}
	args := append([]any{e.UserID}, entryArgs(t, e)...)
	res, err := r.exec(ctx, "insert_"+t.table, s.insert, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) UpdateEntry(ctx context.Context, e domain.Entry) (bool, error) {
	t, s, err := statementsFor(e.Kind)
	if err != nil {
		return false, err
	}
	args := append(entryArgs(t, e), e.ID, e.UserID)
	res, err := r.exec(ctx, "update_"+t.table, s.update, args...)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *Repo) DeleteEntry(ctx context.Context, kind domain.Kind, userID, id int64) (bool, error) {
	t, s, err := statementsFor(kind)
	if err != nil {
		return false, err
	}
	res, err := r.exec(ctx, "delete_"+t.table, s.del, id, userID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *Repo) LockEntry(ctx context.Context, kind domain.Kind, userID, id int64) (bool, error) {
	t, s, err := statementsFor(kind)
	if err != nil {
		return false, err
	}
	q := s.lock
	if r.tx != nil {
		q += r.d.ForUpdate()
	}
	start := time.Now()
	var got int64
	err = r.q.QueryRowContext(ctx, q, id, userID).Scan(&got)
	observe("lock_"+t.table, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock_%s: %w", t.table, err)
	}
	return true, nil
}

func (r *Repo) ListEntries(ctx context.Context, userID int64, kind domain.Kind, cityID *int64) ([]domain.Entry, error) {
	t, s, err := statementsFor(kind)
	if err != nil {
		return nil, err
	}
	var rows *sql.Rows
	if cityID != nil {
		rows, err = r.query(ctx, "list_"+t.table, s.listByCity, userID, *cityID)
	} else {
		rows, err = r.query(ctx, "list_"+t.table, s.list, userID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Entry{}
	for rows.Next() {
		e := domain.Entry{Kind: kind}
		var category sql.NullString
		var price sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.UserID, &e.CityID, &e.CityName, &e.Name, &category, &price); err != nil {
			return nil, err
		}
		if category.Valid {
			c := category.String
			e.Category = &c
		}
		e.Price = nullF64(price)
		out = append(out, e)
	}
	return out, rows.Err()
}

/********** pricing periods **********/

func periodStatementsFor(kind domain.Kind, want domain.PeriodShape) (entryTable, periodSQL, error) {
	if kind.Periods() != want {
		return entryTable{}, periodSQL{}, fmt.Errorf("catalog kind %q has no such pricing records", kind)
	}
	return entryTables[kind], periodStatements[kind], nil
}

func (r *Repo) InsertRatePeriod(ctx context.Context, kind domain.Kind, p domain.RatePeriod) (int64, error) {
	t, s, err := periodStatementsFor(kind, domain.RatePeriods)
	if err != nil {
		return 0, err
	}
	res, err := r.exec(ctx, "insert_"+t.periodTable, s.insert,
		p.ParentID,
		p.StartDate,
		p.EndDate,
		valF64(p.PPDblRate),
		valF64(p.SingleSupplement),
		valF64(p.Child0to2),
		valF64(p.Child3to5),
		valF64(p.Child6to11),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) UpdateRatePeriod(ctx context.Context, kind domain.Kind, p domain.RatePeriod) (bool, error) {
	t, s, err := periodStatementsFor(kind, domain.RatePeriods)
	if err != nil {
		return false, err
	}
	res, err := r.exec(ctx, "update_"+t.periodTable, s.update,
		p.StartDate,
		p.EndDate,
		valF64(p.PPDblRate),
		valF64(p.SingleSupplement),
		valF64(p.Child0to2),
		valF64(p.Child3to5),
		valF64(p.Child6to11),
		p.ID,
		p.ParentID,
	)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *Repo) ListRatePeriods(ctx context.Context, kind domain.Kind, parentID int64) ([]domain.RatePeriod, error) {
	t, s, err := periodStatementsFor(kind, domain.RatePeriods)
	if err != nil {
		return nil, err
	}
	rows, err := r.query(ctx, "list_"+t.periodTable, s.list, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.RatePeriod{}
	for rows.Next() {
		var (
			p                                 domain.RatePeriod
			dbl, single, c0to2, c3to5, c6to11 sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &p.ParentID, &p.StartDate, &p.EndDate, &dbl, &single, &c0to2, &c3to5, &c6to11); err != nil {
			return nil, err
		}
		p.PPDblRate = nullF64(dbl)
		p.SingleSupplement = nullF64(single)
		p.Child0to2 = nullF64(c0to2)
		p.Child3to5 = nullF64(c3to5)
		p.Child6to11 = nullF64(c6to11)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) InsertMenuPrice(ctx context.Context, m domain.MenuPrice) (int64, error) {
	t, s, err := periodStatementsFor(domain.KindRestaurant, domain.MenuPrices)
	if err != nil {
		return 0, err
	}
	res, err := r.exec(ctx, "insert_"+t.periodTable, s.insert, m.RestaurantID, m.MenuOption, valF64(m.Price), m.StartDate, m.EndDate)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) UpdateMenuPrice(ctx context.Context, m domain.MenuPrice) (bool, error) {
	t, s, err := periodStatementsFor(domain.KindRestaurant, domain.MenuPrices)
	if err != nil {
		return false, err
	}
	res, err := r.exec(ctx, "update_"+t.periodTable, s.update, m.MenuOption, valF64(m.Price), m.StartDate, m.EndDate, m.ID, m.RestaurantID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *Repo) ListMenuPrices(ctx context.Context, restaurantID int64) ([]domain.MenuPrice, error) {
	t, s, err := periodStatementsFor(domain.KindRestaurant, domain.MenuPrices)
	if err != nil {
		return nil, err
	}
	rows, err := r.query(ctx, "list_"+t.periodTable, s.list, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.MenuPrice{}
	for rows.Next() {
		var (
			m     domain.MenuPrice
			price sql.NullFloat64
		)
		if err := rows.Scan(&m.ID, &m.RestaurantID, &m.MenuOption, &price, &m.StartDate, &m.EndDate); err != nil {
			return nil, err
		}
		m.Price = nullF64(price)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) DeletePeriod(ctx context.Context, kind domain.Kind, parentID, id int64) (bool, error) {
	if kind.Periods() == domain.NoPeriods {
		return false, fmt.Errorf("catalog kind %q has no pricing records", kind)
	}
	t, s := entryTables[kind], periodStatements[kind]
	res, err := r.exec(ctx, "delete_"+t.periodTable, s.del, id, parentID)
	if err != nil {
		return false, err
	}
	return affected(res)
}
