// Package router assembles the HTTP surface of the availability engine.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/solhealth/availability-engine/internal/availability"
	"github.com/solhealth/availability-engine/internal/booking"
	httpmiddleware "github.com/solhealth/availability-engine/internal/http/middleware"
	"github.com/solhealth/availability-engine/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	AvailabilityHandler *availability.Handler
	BookingHandler      *booking.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// RateLimitPerSecond caps inbound requests per client IP; zero
	// disables the limiter.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimitPerSecond * 2)
		}
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, burst))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.AvailabilityHandler != nil {
		r.Mount("/therapists", cfg.AvailabilityHandler.Routes())
	}
	if cfg.BookingHandler != nil {
		r.Mount("/bookings", cfg.BookingHandler.Routes())
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
