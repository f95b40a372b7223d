package app

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"pricing_catalog/internal/adapters/observability"
	"pricing_catalog/internal/domain"
)

// ImportReport summarizes one import run. Rows, Imported and Failed count
// source rows; Entries counts the catalog entries they were merged into.
type ImportReport struct {
	Rows       int `json:"rows"`
	Imported   int `json:"imported"`
	Failed     int `json:"failed"`
	Entries    int `json:"entries"`
	Periods    int `json:"periods"`
	MenuPrices int `json:"menu_prices"`
}

// ImportService loads legacy catalog rows for one tenant through the same
// services the API uses, so cities are deduplicated by the resolver.
type ImportService struct {
	catalog *CatalogService
	pricing *PricingService
	workers int64
}

func NewImportService(c *CatalogService, p *PricingService, workers int) *ImportService {
	if workers < 1 {
		workers = 1
	}
	return &ImportService{catalog: c, pricing: p, workers: int64(workers)}
}

// importGroup is one catalog entry to create together with the rates of
// every source row that named it.
type importGroup struct {
	first int // index of the first source row
	rows  int
	row   ImportRow
}

// groupKey identifies an entry by kind, city and sanitized name. Rows sharing
// it are merged into one entry.
func groupKey(r ImportRow) string {
	city := ""
	switch {
	case r.City.ID != nil:
		city = "#" + strconv.FormatInt(*r.City.ID, 10)
	case r.City.Name != nil:
		city, _ = NormalizeCityName(*r.City.Name)
	}
	return string(r.Entry.Kind) + "\x00" + city + "\x00" + SanitizeCityName(r.Entry.Name)
}

// Import maps rows, merges those naming the same entry and imports each
// entry, at most workers at a time. An entry and its rates are written in one
// transaction, so a failure leaves nothing behind. A failing entry is logged
// and counted; it does not stop the others. The returned error is non-nil
// only when ctx ends before every entry was started.
func (s *ImportService) Import(ctx context.Context, userID int64, rows []LegacyRow) (ImportReport, error) {
	rep := ImportReport{Rows: len(rows)}

	var groups []*importGroup
	byKey := map[string]*importGroup{}
	for i, row := range rows {
		r, err := mapLegacyRow(row)
		if err != nil {
			rep.Failed++
			observability.ObserveImport(string(row.Kind), "failed", 1)
			log.Warn().Err(err).Int("row", i).Str("kind", string(row.Kind)).Msg("import row failed")
			continue
		}
		key := groupKey(r)
		if g, ok := byKey[key]; ok {
			g.rows++
			g.row.Periods = append(g.row.Periods, r.Periods...)
			g.row.MenuPrices = append(g.row.MenuPrices, r.MenuPrices...)
			continue
		}
		g := &importGroup{first: i, rows: 1, row: r}
		byKey[key] = g
		groups = append(groups, g)
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(s.workers)
	)
	for _, g := range groups {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return rep, fmt.Errorf("import interrupted at row %d: %w", g.first, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			kind := string(g.row.Entry.Kind)
			err := s.importEntry(ctx, userID, g.row)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Failed += g.rows
				observability.ObserveImport(kind, "failed", g.rows)
				log.Warn().Err(err).Int("row", g.first).Int("rows", g.rows).Str("kind", kind).Msg("import entry failed")
				return
			}
			rep.Imported += g.rows
			rep.Entries++
			rep.Periods += len(g.row.Periods)
			rep.MenuPrices += len(g.row.MenuPrices)
			observability.ObserveImport(kind, "ok", g.rows)
		}()
	}

	wg.Wait()
	return rep, nil
}

// importEntry creates the entry and its rates in one transaction.
func (s *ImportService) importEntry(ctx context.Context, userID int64, r ImportRow) error {
	var e domain.Entry
	err := s.catalog.store.Tx(ctx, func(st domain.Store) error {
		catalog, pricing := s.catalog.bind(st), s.pricing.bind(st)

		var err error
		e, err = catalog.Create(ctx, userID, r.Entry, r.City)
		if err != nil {
			return err
		}
		for i, p := range r.Periods {
			if _, err := pricing.AddRatePeriod(ctx, userID, e.Kind, e.ID, p); err != nil {
				return fmt.Errorf("period %d: %w", i, err)
			}
		}
		for i, m := range r.MenuPrices {
			if _, err := pricing.AddMenuPrice(ctx, userID, e.ID, m); err != nil {
				return fmt.Errorf("menu item %d: %w", i, err)
			}
		}
		return nil
	})
	// Create dropped the cached city list before the commit made it stale
	s.catalog.cities.invalidate(ctx, userID)
	if err != nil {
		return err
	}
	log.Debug().Int64("id", e.ID).Str("kind", string(e.Kind)).Int64("city_id", e.CityID).
		Int("periods", len(r.Periods)).Int("menu_prices", len(r.MenuPrices)).Msg("imported")
	return nil
}

// Summary line for operators.
func (r ImportReport) String() string {
	return fmt.Sprintf("rows=%d imported=%d failed=%d entries=%d periods=%d menu_prices=%d",
		r.Rows, r.Imported, r.Failed, r.Entries, r.Periods, r.MenuPrices)
}
