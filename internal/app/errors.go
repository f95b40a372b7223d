package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"pricing_catalog/internal/adapters/observability"
	"pricing_catalog/internal/domain"
)

// storeErr passes caller-facing errors through untouched and turns anything
// else into a logged, counted StoreError.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStore) {
		return err
	}
	log.Error().Err(err).Str("op", op).Msg("store failure")
	observability.ObserveStoreError(op, err)
	return domain.NewStoreError(op, err)
}
