package httpserver_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "pricing_catalog/internal/adapters/http_server"
	"pricing_catalog/internal/app"
	"pricing_catalog/internal/domain"
	"pricing_catalog/internal/storage/sqlite"
)

type testAPI struct {
	db *sql.DB
	h  http.Handler
}

func newAPI(t *testing.T, opts ...server.Option) *testAPI {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := sqlite.New(db)
	cities := app.NewCityResolver(st, nil, time.Minute)
	srv := server.New(opts...)
	srv.MountHandlers(&server.Handlers{
		Cities:  cities,
		Catalog: app.NewCatalogService(st, cities),
		Pricing: app.NewPricingService(st),
	})
	return &testAPI{db: db, h: srv.Mux()}
}

func (a *testAPI) user(t *testing.T, email string) int64 {
	t.Helper()
	res, err := a.db.Exec(`INSERT INTO users (email) VALUES (?)`, email)
	require.NoError(t, err)
	id, _ := res.LastInsertId()
	return id
}

func (a *testAPI) do(t *testing.T, user int64, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != 0 {
		req.Header.Set(server.UserHeader, fmt.Sprint(user))
	}
	rr := httptest.NewRecorder()
	a.h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	rr := a.do(t, 0, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestTenantHeaderRequired(t *testing.T) {
	a := newAPI(t)
	for _, hdr := range []string{"", "abc", "-1", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/cities", nil)
		if hdr != "" {
			req.Header.Set(server.UserHeader, hdr)
		}
		rr := httptest.NewRecorder()
		a.h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "header %q", hdr)
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	}
}

func TestCities_EnsureAndList(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@example.com")

	first := decodeBody[domain.City](t, a.do(t, u, http.MethodPost, "/v1/cities", map[string]string{"name": "Istanbul"}))
	again := a.do(t, u, http.MethodPost, "/v1/cities", map[string]string{"name": "  ISTANBUL "})
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, first.ID, decodeBody[domain.City](t, again).ID)

	rr := a.do(t, u, http.MethodPost, "/v1/cities", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = a.do(t, u, http.MethodGet, "/v1/cities", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cs := decodeBody[[]domain.City](t, rr)
	require.Len(t, cs, 1)
	assert.Equal(t, "ISTANBUL", cs[0].Name)

	// conditional GET
	req := httptest.NewRequest(http.MethodGet, "/v1/cities", nil)
	req.Header.Set(server.UserHeader, fmt.Sprint(u))
	req.Header.Set("If-None-Match", rr.Header().Get("ETag"))
	rr2 := httptest.NewRecorder()
	a.h.ServeHTTP(rr2, req)
	assert.Equal(t, http.StatusNotModified, rr2.Code)
}

func TestEntries_CRUDAndErrorMapping(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@example.com")
	other := a.user(t, "b@example.com")

	rr := a.do(t, u, http.MethodPost, "/v1/hotels", map[string]any{"city_name": "Antalya", "name": "Rixos", "category": "5*"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	h := decodeBody[domain.Entry](t, rr)
	assert.Equal(t, domain.KindHotel, h.Kind)
	assert.Equal(t, "Antalya", h.CityName)

	// DTO validation
	rr = a.do(t, u, http.MethodPost, "/v1/hotels", map[string]any{"name": "No city", "category": "3*"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "city_name")

	// service validation
	rr = a.do(t, u, http.MethodPost, "/v1/hotels", map[string]any{"city_name": "Antalya", "name": "No category"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = a.do(t, u, http.MethodPost, "/v1/hotels", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// foreign city id
	rr = a.do(t, other, http.MethodPost, "/v1/transfers", map[string]any{"city_id": h.CityID, "name": "Shuttle", "price": 10})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "selected city not found for this user")

	// update by another tenant
	path := fmt.Sprintf("/v1/hotels/%d", h.ID)
	rr = a.do(t, other, http.MethodPut, path, map[string]any{"city_name": "Antalya", "name": "Mine now", "category": "1*"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = a.do(t, u, http.MethodPut, path, map[string]any{"city_id": h.CityID, "name": "Rixos Downtown", "category": "5*"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = a.do(t, u, http.MethodGet, fmt.Sprintf("/v1/hotels?city_id=%d", h.CityID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[[]domain.Entry](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, "Rixos Downtown", list[0].Name)

	rr = a.do(t, u, http.MethodGet, "/v1/hotels?city_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = a.do(t, u, http.MethodDelete, "/v1/hotels/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = a.do(t, other, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = a.do(t, u, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRatePeriods_HTTP(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@example.com")
	other := a.user(t, "b@example.com")

	tour := decodeBody[domain.Entry](t, a.do(t, u, http.MethodPost, "/v1/sic-tours", map[string]any{"city_name": "Istanbul", "name": "Bosphorus"}))
	base := fmt.Sprintf("/v1/sic-tours/%d/pricing", tour.ID)

	rr := a.do(t, u, http.MethodPost, base, map[string]any{"start_date": "2025-04-01"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "pp_dbl_rate")

	rr = a.do(t, u, http.MethodPost, base, map[string]any{"start_date": "2025-04-01", "end_date": nil, "pp_dbl_rate": 45, "child_0to2": 0})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	p := decodeBody[domain.RatePeriod](t, rr)

	rr = a.do(t, other, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	item := fmt.Sprintf("%s/%d", base, p.ID)
	rr = a.do(t, other, http.MethodPut, item, map[string]any{"pp_dbl_rate": 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = a.do(t, u, http.MethodPut, item, map[string]any{"pp_dbl_rate": 50, "end_date": "2025-10-31"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(t, u, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	ps := decodeBody[[]domain.RatePeriod](t, rr)
	require.Len(t, ps, 1)
	assert.Equal(t, 50.0, *ps[0].PPDblRate)
	assert.True(t, ps[0].StartDate.IsZero()) // replaced wholesale
	assert.Equal(t, "2025-10-31", ps[0].EndDate.String())

	rr = a.do(t, u, http.MethodDelete, item, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = a.do(t, u, http.MethodDelete, item, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMenu_HTTP(t *testing.T) {
	a := newAPI(t)
	u := a.user(t, "a@example.com")

	r := decodeBody[domain.Entry](t, a.do(t, u, http.MethodPost, "/v1/restaurants", map[string]any{"city_name": "Istanbul", "name": "Hamdi"}))
	base := fmt.Sprintf("/v1/restaurants/%d/menu", r.ID)

	rr := a.do(t, u, http.MethodPost, base, map[string]any{"menu_option": "Set A"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = a.do(t, u, http.MethodPost, base, map[string]any{"menu_option": "Set A", "price": 20})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	m := decodeBody[domain.MenuPrice](t, rr)

	rr = a.do(t, u, http.MethodPut, fmt.Sprintf("%s/%d", base, m.ID), map[string]any{"menu_option": "Set A+", "price": 22})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(t, u, http.MethodGet, base, nil)
	ms := decodeBody[[]domain.MenuPrice](t, rr)
	require.Len(t, ms, 1)
	assert.Equal(t, "Set A+", ms[0].MenuOption)

	// menu routes exist only under restaurants
	rr = a.do(t, u, http.MethodGet, "/v1/hotels/1/menu", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// deleting the restaurant takes the menu with it
	rr = a.do(t, u, http.MethodDelete, fmt.Sprintf("/v1/restaurants/%d", r.ID), nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = a.do(t, u, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRateLimit_PerTenant(t *testing.T) {
	a := newAPI(t, server.WithRateLimit(server.NewTenantLimiter(0.001, 2)))
	u1 := a.user(t, "a@example.com")
	u2 := a.user(t, "b@example.com")

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, a.do(t, u1, http.MethodGet, "/v1/cities", nil).Code)
	}
	rr := a.do(t, u1, http.MethodGet, "/v1/cities", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	// other tenants have their own bucket
	assert.Equal(t, http.StatusOK, a.do(t, u2, http.MethodGet, "/v1/cities", nil).Code)
}
