package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/solhealth/availability-engine/internal/api/router"
	"github.com/solhealth/availability-engine/internal/availability"
	"github.com/solhealth/availability-engine/internal/booking"
	appconfig "github.com/solhealth/availability-engine/internal/config"
	"github.com/solhealth/availability-engine/internal/gcal"
	"github.com/solhealth/availability-engine/internal/observability/metrics"
	"github.com/solhealth/availability-engine/internal/policy"
	"github.com/solhealth/availability-engine/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting availability engine API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	homeLoc, err := time.LoadLocation(cfg.HomeTimezone)
	if err != nil {
		logger.Error("invalid home timezone", "timezone", cfg.HomeTimezone, "error", err)
		os.Exit(1)
	}
	hours, err := availability.ParseBusinessHours(cfg.WorkStart, cfg.WorkEnd)
	if err != nil {
		logger.Error("invalid business hours", "error", err)
		os.Exit(1)
	}

	// Therapist profile store.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	resolver := policy.NewResolver(policy.NewPGStore(pool), logger)

	// Google Calendar access.
	creds, err := cfg.CalendarCredentials()
	if err != nil {
		logger.Error("failed to load calendar credentials", "error", err)
		os.Exit(1)
	}
	googleClient, err := gcal.NewGoogleClient(ctx, gcal.GoogleClientConfig{
		CredentialsJSON:      creds,
		ImpersonationSubject: cfg.ImpersonationSubject,
	})
	if err != nil {
		logger.Error("failed to create calendar client", "error", err)
		os.Exit(1)
	}

	// Free/busy cache is optional; availability usually needs to be live.
	var cache gcal.CacheStore
	if cfg.CacheEnabled {
		redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, falling back to in-memory cache", "error", err)
			cache = gcal.NewMemoryCache()
		} else {
			cache = gcal.NewRedisCache(redisClient)
		}
	}

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewAvailabilityMetrics(registry)

	gateway, err := gcal.NewGateway(googleClient, cache, gcal.GatewayConfig{
		InternalDomain:    cfg.InternalCalendarDomain,
		HomeLocation:      homeLoc,
		MaxRetries:        cfg.FreeBusyMaxRetries,
		BackoffBase:       cfg.FreeBusyBackoffBase,
		MinInterval:       cfg.FreeBusyMinInterval,
		RequestTimeout:    cfg.FreeBusyTimeout,
		CacheEnabled:      cfg.CacheEnabled,
		CacheTTL:          cfg.CacheTTL,
		MaxBatchCalendars: cfg.BatchMaxCalendars,
	}, logger, engineMetrics)
	if err != nil {
		logger.Error("failed to create calendar gateway", "error", err)
		os.Exit(1)
	}

	service, err := availability.NewService(gateway, resolver, availability.ServiceConfig{
		HomeLocation:      homeLoc,
		Hours:             hours,
		MaxBatchCalendars: cfg.BatchMaxCalendars,
	}, logger, engineMetrics)
	if err != nil {
		logger.Error("failed to create availability service", "error", err)
		os.Exit(1)
	}

	eventWriter, err := gcal.NewEventWriter(googleClient, cfg.EventWriteTimeout, logger, engineMetrics)
	if err != nil {
		logger.Error("failed to create event writer", "error", err)
		os.Exit(1)
	}
	coordinator, err := booking.NewCoordinator(eventWriter, gateway, logger)
	if err != nil {
		logger.Error("failed to create booking coordinator", "error", err)
		os.Exit(1)
	}

	r := router.New(&router.Config{
		Logger:              logger,
		AvailabilityHandler: availability.NewHandler(service, logger),
		BookingHandler:      booking.NewHandler(coordinator, logger),
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  splitOrigins(cfg.CORSAllowedOrigins),
		RateLimitPerSecond:  cfg.RateLimitPerSecond,
		RateLimitBurst:      cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func splitOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	origins := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
