package app

import (
	"context"
	"fmt"
	"strings"

	"pricing_catalog/internal/domain"
)

// PricingService manages the dated rate records hanging off hotels, SIC tours
// and restaurants. Records carry no owner; every call first locks the parent
// entry filtered by the caller's user id.
type PricingService struct {
	store domain.Store
}

func NewPricingService(s domain.Store) *PricingService {
	return &PricingService{store: s}
}

func (s *PricingService) bind(st domain.Store) *PricingService {
	return &PricingService{store: st}
}

// withParent runs fn in one transaction after locking parent (kind, id) for
// userID. A missing or foreign parent yields NotFoundError before fn runs.
func (s *PricingService) withParent(ctx context.Context, op string, userID int64, kind domain.Kind, parentID int64, fn func(st domain.Store) error) error {
	err := s.store.Tx(ctx, func(st domain.Store) error {
		ok, err := st.LockEntry(ctx, kind, userID, parentID)
		if err != nil {
			return storeErr("lock_"+string(kind), err)
		}
		if !ok {
			return domain.NewNotFoundError(kind.Label(), parentID)
		}
		return fn(st)
	})
	return storeErr(op, err)
}

func requireShape(kind domain.Kind, want domain.PeriodShape) error {
	if kind.Periods() == want {
		return nil
	}
	switch want {
	case domain.RatePeriods:
		return domain.NewValidationError("kind", fmt.Sprintf("%s entries have no rate periods", kind.Label()))
	default:
		return domain.NewValidationError("kind", fmt.Sprintf("%s entries have no menu prices", kind.Label()))
	}
}

/********** occupancy rate periods (hotel, SIC tour) **********/

func validateRatePeriod(p domain.RatePeriod) error {
	if p.PPDblRate == nil {
		return domain.NewValidationError("pp_dbl_rate", "per person double rate is required")
	}
	return nil
}

func (s *PricingService) AddRatePeriod(ctx context.Context, userID int64, kind domain.Kind, parentID int64, p domain.RatePeriod) (domain.RatePeriod, error) {
	if err := requireShape(kind, domain.RatePeriods); err != nil {
		return domain.RatePeriod{}, err
	}
	if err := validateRatePeriod(p); err != nil {
		return domain.RatePeriod{}, err
	}
	p.ParentID = parentID
	op := "add_" + string(kind) + "_period"
	err := s.withParent(ctx, op, userID, kind, parentID, func(st domain.Store) error {
		id, err := st.InsertRatePeriod(ctx, kind, p)
		if err != nil {
			return storeErr(op, err)
		}
		p.ID = id
		return nil
	})
	if err != nil {
		return domain.RatePeriod{}, err
	}
	return p, nil
}

// UpdateRatePeriod replaces every field of period p.ID under parentID.
func (s *PricingService) UpdateRatePeriod(ctx context.Context, userID int64, kind domain.Kind, parentID int64, p domain.RatePeriod) (domain.RatePeriod, error) {
	if err := requireShape(kind, domain.RatePeriods); err != nil {
		return domain.RatePeriod{}, err
	}
	if err := validateRatePeriod(p); err != nil {
		return domain.RatePeriod{}, err
	}
	p.ParentID = parentID
	op := "update_" + string(kind) + "_period"
	err := s.withParent(ctx, op, userID, kind, parentID, func(st domain.Store) error {
		ok, err := st.UpdateRatePeriod(ctx, kind, p)
		if err != nil {
			return storeErr(op, err)
		}
		if !ok {
			return domain.NewNotFoundError("pricing period", p.ID)
		}
		return nil
	})
	if err != nil {
		return domain.RatePeriod{}, err
	}
	return p, nil
}

func (s *PricingService) DeleteRatePeriod(ctx context.Context, userID int64, kind domain.Kind, parentID, periodID int64) error {
	if err := requireShape(kind, domain.RatePeriods); err != nil {
		return err
	}
	return s.deletePeriod(ctx, userID, kind, parentID, periodID, "pricing period")
}

func (s *PricingService) ListRatePeriods(ctx context.Context, userID int64, kind domain.Kind, parentID int64) ([]domain.RatePeriod, error) {
	if err := requireShape(kind, domain.RatePeriods); err != nil {
		return nil, err
	}
	var out []domain.RatePeriod
	op := "list_" + string(kind) + "_periods"
	err := s.withParent(ctx, op, userID, kind, parentID, func(st domain.Store) error {
		ps, err := st.ListRatePeriods(ctx, kind, parentID)
		out = ps
		return storeErr(op, err)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

/********** restaurant menu prices **********/

func prepareMenuPrice(m domain.MenuPrice) (domain.MenuPrice, error) {
	m.MenuOption = strings.TrimSpace(m.MenuOption)
	if m.MenuOption == "" {
		return m, domain.NewValidationError("menu_option", "menu option is required")
	}
	if m.Price == nil {
		return m, domain.NewValidationError("price", "price is required")
	}
	return m, nil
}

func (s *PricingService) AddMenuPrice(ctx context.Context, userID, restaurantID int64, m domain.MenuPrice) (domain.MenuPrice, error) {
	m, err := prepareMenuPrice(m)
	if err != nil {
		return domain.MenuPrice{}, err
	}
	m.RestaurantID = restaurantID
	const op = "add_menu_price"
	err = s.withParent(ctx, op, userID, domain.KindRestaurant, restaurantID, func(st domain.Store) error {
		id, err := st.InsertMenuPrice(ctx, m)
		if err != nil {
			return storeErr(op, err)
		}
		m.ID = id
		return nil
	})
	if err != nil {
		return domain.MenuPrice{}, err
	}
	return m, nil
}

func (s *PricingService) UpdateMenuPrice(ctx context.Context, userID, restaurantID int64, m domain.MenuPrice) (domain.MenuPrice, error) {
	m, err := prepareMenuPrice(m)
	if err != nil {
		return domain.MenuPrice{}, err
	}
	m.RestaurantID = restaurantID
	const op = "update_menu_price"
	err = s.withParent(ctx, op, userID, domain.KindRestaurant, restaurantID, func(st domain.Store) error {
		ok, err := st.UpdateMenuPrice(ctx, m)
		if err != nil {
			return storeErr(op, err)
		}
		if !ok {
			return domain.NewNotFoundError("menu price", m.ID)
		}
		return nil
	})
	if err != nil {
		return domain.MenuPrice{}, err
	}
	return m, nil
}

func (s *PricingService) DeleteMenuPrice(ctx context.Context, userID, restaurantID, menuID int64) error {
	return s.deletePeriod(ctx, userID, domain.KindRestaurant, restaurantID, menuID, "menu price")
}

func (s *PricingService) ListMenuPrices(ctx context.Context, userID, restaurantID int64) ([]domain.MenuPrice, error) {
	var out []domain.MenuPrice
	const op = "list_menu_prices"
	err := s.withParent(ctx, op, userID, domain.KindRestaurant, restaurantID, func(st domain.Store) error {
		ms, err := st.ListMenuPrices(ctx, restaurantID)
		out = ms
		return storeErr(op, err)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PricingService) deletePeriod(ctx context.Context, userID int64, kind domain.Kind, parentID, id int64, entity string) error {
	op := "delete_" + string(kind) + "_period"
	return s.withParent(ctx, op, userID, kind, parentID, func(st domain.Store) error {
		ok, err := st.DeletePeriod(ctx, kind, parentID, id)
		if err != nil {
			return storeErr(op, err)
		}
		if !ok {
			return domain.NewNotFoundError(entity, id)
		}
		return nil
	})
}
