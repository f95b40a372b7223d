package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Server struct {
	mux     *chi.Mux
	limiter *TenantLimiter
}

type Option func(*Server)

// WithRateLimit throttles /v1 requests per tenant.
func WithRateLimit(l *TenantLimiter) Option {
	return func(s *Server) { s.limiter = l }
}

func New(opts ...Option) *Server {
	m := chi.NewRouter()

	// middlewares go before any routes are added
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(15 * time.Second))
	m.Use(Metrics)
	m.Use(trackUser)
	m.Use(Logger(log.Logger))

	s := &Server{mux: m}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
