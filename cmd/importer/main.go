package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"pricing_catalog/internal/adapters/observability"
	redisad "pricing_catalog/internal/adapters/redis"
	"pricing_catalog/internal/app"
	"pricing_catalog/internal/domain"
	"pricing_catalog/internal/shared"
	"pricing_catalog/internal/storage"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 1 when interrupted, 2 when any row failed.
func run() int {
	cfg := shared.Load()

	file := flag.String("file", cfg.ImportFile, "legacy export (JSON) to import")
	user := flag.Int64("user", cfg.ImportUserID, "tenant id that will own the imported rows")
	workers := flag.Int("workers", cfg.ImportWorkers, "rows imported concurrently")
	flag.Parse()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	if *file == "" || *user <= 0 {
		log.Fatal().Msg("both -file (IMPORT_FILE) and -user (IMPORT_USER_ID) are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("file", *file).
		Int64("user_id", *user).
		Int("workers", *workers).
		Str("driver", cfg.StoreDriver).
		Msg("importer starting")

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("read import file")
	}
	rows, err := app.DecodeLegacy(raw)
	if err != nil {
		log.Fatal().Err(err).Msg("decode import file")
	}

	db, repo, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer db.Close()

	// the API caches city lists; drop the tenant's entry when we are done
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, city cache not invalidated")
		} else {
			cache = rc
			defer rc.Close()
		}
	}

	cities := app.NewCityResolver(repo, cache, cfg.CacheTTL)
	imp := app.NewImportService(app.NewCatalogService(repo, cities), app.NewPricingService(repo), *workers)

	rep, err := imp.Import(ctx, *user, rows)
	if err != nil {
		log.Error().Err(err).Str("summary", rep.String()).Msg("import interrupted")
		return 1
	}
	log.Info().
		Int("rows", rep.Rows).
		Int("imported", rep.Imported).
		Int("failed", rep.Failed).
		Int("entries", rep.Entries).
		Int("periods", rep.Periods).
		Int("menu_prices", rep.MenuPrices).
		Msg("import completed")
	if rep.Failed > 0 {
		return 2
	}
	return 0
}
