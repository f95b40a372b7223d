package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "pricing_catalog/internal/adapters/http_server"
	"pricing_catalog/internal/adapters/observability"
	redisad "pricing_catalog/internal/adapters/redis"
	"pricing_catalog/internal/app"
	"pricing_catalog/internal/domain"
	"pricing_catalog/internal/shared"
	"pricing_catalog/internal/storage"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve(cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, repo, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("open store failed")
	}
	defer db.Close()

	// cache is optional; the service works without it
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, city cache disabled")
		} else {
			cache = rc
			defer rc.Close()
		}
	}

	// deps
	cities := app.NewCityResolver(repo, cache, cfg.CacheTTL)
	h := &server.Handlers{
		Cities:  cities,
		Catalog: app.NewCatalogService(repo, cities),
		Pricing: app.NewPricingService(repo),
	}

	// http
	var opts []server.Option
	if cfg.RateLimitRPS > 0 {
		opts = append(opts, server.WithRateLimit(server.NewTenantLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	}
	srv := server.New(opts...)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("driver", cfg.StoreDriver).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
