package domain

import (
	"context"
	"errors"
)

// ErrDuplicate is returned by a repository when a write hits a unique key.
var ErrDuplicate = errors.New("duplicate key")

type CityRepository interface {
	// UpsertCity inserts (user, normalized) or, if it exists, sets its display
	// name. It is a single atomic statement.
	UpsertCity(ctx context.Context, userID int64, name, normalized string) (City, error)
	// GetCity returns ErrNotFound unless the city exists and belongs to userID.
	GetCity(ctx context.Context, userID, id int64) (City, error)
	RenameCity(ctx context.Context, userID, id int64, name, normalized string) error
	ListCities(ctx context.Context, userID int64) ([]City, error)
}

// CatalogRepository methods returning bool report whether a row matched
// both the primary key and the owner.
type CatalogRepository interface {
	InsertEntry(ctx context.Context, e Entry) (int64, error)
	UpdateEntry(ctx context.Context, e Entry) (bool, error)
	DeleteEntry(ctx context.Context, kind Kind, userID, id int64) (bool, error)
	ListEntries(ctx context.Context, userID int64, kind Kind, cityID *int64) ([]Entry, error)
	// LockEntry checks ownership and, inside a transaction, holds the row
	// until commit.
	LockEntry(ctx context.Context, kind Kind, userID, id int64) (bool, error)
}

// PricingRepository methods are keyed by (period id, parent id) and never
// look at the owner; callers check the parent first.
type PricingRepository interface {
	InsertRatePeriod(ctx context.Context, kind Kind, p RatePeriod) (int64, error)
	UpdateRatePeriod(ctx context.Context, kind Kind, p RatePeriod) (bool, error)
	ListRatePeriods(ctx context.Context, kind Kind, parentID int64) ([]RatePeriod, error)

	InsertMenuPrice(ctx context.Context, m MenuPrice) (int64, error)
	UpdateMenuPrice(ctx context.Context, m MenuPrice) (bool, error)
	ListMenuPrices(ctx context.Context, restaurantID int64) ([]MenuPrice, error)

	DeletePeriod(ctx context.Context, kind Kind, parentID, id int64) (bool, error)
}

type Store interface {
	CityRepository
	CatalogRepository
	PricingRepository

	// Tx runs fn against a Store bound to one transaction. fn's error rolls
	// it back. Calling Tx on a transactional Store reuses the transaction.
	Tx(ctx context.Context, fn func(Store) error) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
