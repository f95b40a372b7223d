package app

import (
	"context"
	"fmt"
	"strings"

	"pricing_catalog/internal/domain"
)

// CatalogService manages the tenant-owned catalog entries of every kind.
type CatalogService struct {
	store  domain.Store
	cities *CityResolver
}

func NewCatalogService(s domain.Store, cities *CityResolver) *CatalogService {
	return &CatalogService{store: s, cities: cities}
}

// bind returns a service whose writes go through st, typically a store bound
// to a caller's transaction.
func (s *CatalogService) bind(st domain.Store) *CatalogService {
	return &CatalogService{store: st, cities: s.cities}
}

func (s *CatalogService) Create(ctx context.Context, userID int64, e domain.Entry, city domain.CityRef) (domain.Entry, error) {
	e, err := prepareEntry(e)
	if err != nil {
		return domain.Entry{}, err
	}
	e.UserID = userID
	op := "create_" + string(e.Kind)

	err = s.store.Tx(ctx, func(st domain.Store) error {
		c, err := s.cities.resolve(ctx, st, userID, city)
		if err != nil {
			return err
		}
		e.CityID, e.CityName = c.ID, c.Name
		id, err := st.InsertEntry(ctx, e)
		if err != nil {
			return storeErr(op, err)
		}
		e.ID = id
		return nil
	})
	s.cities.invalidate(ctx, userID)
	if err != nil {
		return domain.Entry{}, storeErr(op, err)
	}
	return e, nil
}

// Update rewrites the entry identified by e.ID. An entry owned by another
// tenant is reported exactly like a missing one.
func (s *CatalogService) Update(ctx context.Context, userID int64, e domain.Entry, city domain.CityRef) (domain.Entry, error) {
	e, err := prepareEntry(e)
	if err != nil {
		return domain.Entry{}, err
	}
	e.UserID = userID
	op := "update_" + string(e.Kind)

	err = s.store.Tx(ctx, func(st domain.Store) error {
		c, err := s.cities.resolve(ctx, st, userID, city)
		if err != nil {
			return err
		}
		e.CityID, e.CityName = c.ID, c.Name
		ok, err := st.UpdateEntry(ctx, e)
		if err != nil {
			return storeErr(op, err)
		}
		if !ok {
			return domain.NewNotFoundError(e.Kind.Label(), e.ID)
		}
		return nil
	})
	s.cities.invalidate(ctx, userID)
	if err != nil {
		return domain.Entry{}, storeErr(op, err)
	}
	return e, nil
}

// Delete removes the entry; the store cascades to its pricing records.
func (s *CatalogService) Delete(ctx context.Context, userID int64, kind domain.Kind, id int64) error {
	if !kind.Valid() {
		return unknownKind(kind)
	}
	ok, err := s.store.DeleteEntry(ctx, kind, userID, id)
	if err != nil {
		return storeErr("delete_"+string(kind), err)
	}
	if !ok {
		return domain.NewNotFoundError(kind.Label(), id)
	}
	return nil
}

// List returns the tenant's entries of kind, optionally restricted to one city.
func (s *CatalogService) List(ctx context.Context, userID int64, kind domain.Kind, cityID *int64) ([]domain.Entry, error) {
	if !kind.Valid() {
		return nil, unknownKind(kind)
	}
	es, err := s.store.ListEntries(ctx, userID, kind, cityID)
	if err != nil {
		return nil, storeErr("list_"+string(kind), err)
	}
	return es, nil
}

// prepareEntry trims text fields, checks the kind's required columns and drops
// the ones the kind does not store.
func prepareEntry(e domain.Entry) (domain.Entry, error) {
	if !e.Kind.Valid() {
		return e, unknownKind(e.Kind)
	}
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return e, domain.NewValidationError("name", e.Kind.Label()+" name is required")
	}

	if e.Kind.HasCategory() {
		if e.Category == nil || strings.TrimSpace(*e.Category) == "" {
			return e, domain.NewValidationError("category", "category is required")
		}
		c := strings.TrimSpace(*e.Category)
		e.Category = &c
	} else {
		e.Category = nil
	}

	if e.Kind.HasPrice() {
		if e.Price == nil {
			return e, domain.NewValidationError("price", "price is required")
		}
	} else {
		e.Price = nil
	}
	return e, nil
}

func unknownKind(k domain.Kind) error {
	return domain.NewValidationError("kind", fmt.Sprintf("unknown catalog kind %q", k))
}
