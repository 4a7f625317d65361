package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bookwell/booking-core/internal/ratelimit"
)

type RouterConfig struct {
	Service    BookingService
	Limiter    ratelimit.Limiter
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Logger     *zap.Logger
	Env        string
	Version    string
	TrustProxy bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	validate := validator.New(validator.WithRequiredStructEnabled())

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Public booking-page endpoints
	r.Get("/{scheduleID}/availability", availabilityHandler(cfg.Service, cfg.Logger))
	r.Post("/{scheduleID}/book", bookHandler(cfg.Service, cfg.Limiter, validate, cfg.TrustProxy, cfg.Logger))

	// Owner settings endpoints; writes require the schedule's edit token
	r.Get("/{scheduleID}/windows", getWindowsHandler(cfg.Service, cfg.Logger))
	r.Put("/{scheduleID}/windows", putWindowsHandler(cfg.Service, validate, cfg.Logger))

	return r
}
