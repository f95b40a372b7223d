package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pricing_catalog/internal/domain"
)

const errCityNotOwned = "selected city not found for this user"

// SanitizeCityName trims name and collapses internal whitespace runs to a
// single space. Case is preserved.
func SanitizeCityName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// NormalizeCityName is the per-tenant deduplication key for a city name.
func NormalizeCityName(name string) (string, error) {
	s := SanitizeCityName(name)
	if s == "" {
		return "", domain.NewValidationError("city_name", "city name is required")
	}
	return strings.ToLower(s), nil
}

// CityResolver maps free-text names and explicit ids onto one canonical city
// per tenant.
type CityResolver struct {
	store    domain.Store
	cache    domain.Cache
	cacheTTL time.Duration
}

// NewCityResolver returns a resolver over s. c may be nil to disable caching
// of city lists.
func NewCityResolver(s domain.Store, c domain.Cache, ttl time.Duration) *CityResolver {
	return &CityResolver{store: s, cache: c, cacheTTL: ttl}
}

// EnsureCity returns the tenant's city for rawName, creating it on first use
// and refreshing its display name when the casing or spacing changed.
func (r *CityResolver) EnsureCity(ctx context.Context, userID int64, rawName string) (domain.City, error) {
	c, err := r.ensure(ctx, r.store, userID, rawName)
	if err == nil {
		r.invalidate(ctx, userID)
	}
	return c, err
}

// ResolveCityID turns a city reference into a city id owned by userID.
func (r *CityResolver) ResolveCityID(ctx context.Context, userID int64, ref domain.CityRef) (int64, error) {
	c, err := r.resolve(ctx, r.store, userID, ref)
	if err != nil {
		return 0, err
	}
	r.invalidate(ctx, userID)
	return c.ID, nil
}

func (r *CityResolver) ListCities(ctx context.Context, userID int64) ([]domain.City, error) {
	key := cacheKey(userID)
	var cached []domain.City
	if r.cache != nil {
		if ok, _ := r.cache.Get(ctx, key, &cached); ok {
			for i := range cached {
				cached[i].UserID = userID
			}
			return cached, nil
		}
	}
	cs, err := r.store.ListCities(ctx, userID)
	if err != nil {
		return nil, storeErr("list_cities", err)
	}
	if r.cache != nil {
		_ = r.cache.Set(ctx, key, cs, int(r.cacheTTL.Seconds()))
	}
	return cs, nil
}

func (r *CityResolver) ensure(ctx context.Context, st domain.CityRepository, userID int64, rawName string) (domain.City, error) {
	name := SanitizeCityName(rawName)
	if name == "" {
		return domain.City{}, domain.NewValidationError("city_name", "city name is required")
	}
	c, err := st.UpsertCity(ctx, userID, name, strings.ToLower(name))
	if err != nil {
		return domain.City{}, storeErr("upsert_city", err)
	}
	return c, nil
}

// resolve does the work of ResolveCityID against st, which may be bound to a
// caller's transaction.
func (r *CityResolver) resolve(ctx context.Context, st domain.CityRepository, userID int64, ref domain.CityRef) (domain.City, error) {
	name := ""
	if ref.Name != nil {
		name = SanitizeCityName(*ref.Name)
	}
	if ref.ID == nil {
		if name == "" {
			return domain.City{}, domain.NewValidationError("city_name", "city name or city id is required")
		}
		return r.ensure(ctx, st, userID, name)
	}

	id := *ref.ID
	c, err := st.GetCity(ctx, userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.City{}, &domain.NotFoundError{Entity: "city", ID: id, Message: errCityNotOwned}
	}
	if err != nil {
		return domain.City{}, storeErr("get_city", err)
	}
	if name == "" {
		return c, nil
	}

	// An explicit id wins: a differing name renames this row in place.
	normalized := strings.ToLower(name)
	if normalized == c.NormalizedName {
		return c, nil
	}
	err = st.RenameCity(ctx, userID, id, name, normalized)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		return domain.City{}, domain.NewValidationError("city_name", fmt.Sprintf("another city is already named %q", name))
	case errors.Is(err, domain.ErrNotFound):
		return domain.City{}, &domain.NotFoundError{Entity: "city", ID: id, Message: errCityNotOwned}
	case err != nil:
		return domain.City{}, storeErr("rename_city", err)
	}
	log.Debug().Int64("user_id", userID).Int64("city_id", id).Str("from", c.Name).Str("to", name).Msg("city renamed")
	c.Name, c.NormalizedName = name, normalized
	return c, nil
}

func (r *CityResolver) invalidate(ctx context.Context, userID int64) {
	if r.cache != nil {
		_ = r.cache.Del(ctx, cacheKey(userID))
	}
}

func cacheKey(userID int64) string { return "cities:" + strconv.FormatInt(userID, 10) }
