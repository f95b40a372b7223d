package app_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pricing_catalog/internal/app"
	"pricing_catalog/internal/domain"
	"pricing_catalog/internal/storage/sqlite"
)

// ---- fixtures ----

type fixture struct {
	db      *sql.DB
	store   domain.Store
	cache   *fakeCache
	cities  *app.CityResolver
	catalog *app.CatalogService
	pricing *app.PricingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureAt(t, ":memory:")
}

// newFileFixture uses an on-disk database so several connections contend.
func newFileFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureAt(t, filepath.Join(t.TempDir(), "pricing.db"))
}

func newFixtureAt(t *testing.T, path string) *fixture {
	t.Helper()
	db, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := sqlite.New(db)
	cache := &fakeCache{}
	cities := app.NewCityResolver(st, cache, 10*time.Minute)
	return &fixture{
		db:      db,
		store:   st,
		cache:   cache,
		cities:  cities,
		catalog: app.NewCatalogService(st, cities),
		pricing: app.NewPricingService(st),
	}
}

func (f *fixture) user(t *testing.T, email string) int64 {
	t.Helper()
	res, err := f.db.Exec(`INSERT INTO users (email) VALUES (?)`, email)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func (f *fixture) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(query, args...).Scan(&n))
	return n
}

func (f *fixture) cityCount(t *testing.T, userID int64) int {
	return f.count(t, `SELECT COUNT(*) FROM cities WHERE user_id = ?`, userID)
}

func (f *fixture) hotel(t *testing.T, userID int64, name, city string) domain.Entry {
	t.Helper()
	e, err := f.catalog.Create(context.Background(), userID,
		domain.Entry{Kind: domain.KindHotel, Name: name, Category: ptr("4*")},
		domain.CityRef{Name: ptr(city)})
	require.NoError(t, err)
	return e
}

func (f *fixture) restaurant(t *testing.T, userID int64, name, city string) domain.Entry {
	t.Helper()
	e, err := f.catalog.Create(context.Background(), userID,
		domain.Entry{Kind: domain.KindRestaurant, Name: name},
		domain.CityRef{Name: ptr(city)})
	require.NoError(t, err)
	return e
}

// ---- fakes ----

// fakeCache keeps JSON like the redis adapter so round trips behave the same.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	gets  int
	hits  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}

func ptr[T any](v T) *T { return &v }

func cityKey(userID int64) string { return fmt.Sprintf("cities:%d", userID) }
