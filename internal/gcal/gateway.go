package gcal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/solhealth/availability-engine/internal/observability/metrics"
	"github.com/solhealth/availability-engine/pkg/logging"
)

// GatewayConfig tunes retry, caching, and batching behavior. Zero values
// are filled with production defaults by NewGateway.
type GatewayConfig struct {
	// InternalDomain is the workspace domain whose calendars require
	// impersonated credentials, e.g. "solhealth.co".
	InternalDomain string
	// HomeLocation is the timezone all provider timestamps are
	// normalized into.
	HomeLocation *time.Location

	MaxRetries  int
	BackoffBase time.Duration
	MinInterval time.Duration
	// RequestTimeout bounds a single provider round trip, not the whole
	// retry loop.
	RequestTimeout time.Duration

	CacheEnabled bool
	CacheTTL     time.Duration

	// MaxBatchCalendars caps calendar IDs per free/busy request.
	MaxBatchCalendars int
}

// Gateway fronts the free/busy provider with caching, rate limiting, and
// bounded retry. It is the only component that talks to the provider for
// reads; all availability computation consumes its output.
type Gateway struct {
	client  FreeBusyClient
	cache   CacheStore
	limiter *rateLimiter
	logger  *logging.Logger
	metrics *metrics.AvailabilityMetrics
	cfg     GatewayConfig

	sleep func(ctx context.Context, d time.Duration) error
}

// NewGateway wires a gateway over a provider client. cache and m may be
// nil; caching is then disabled and metrics become no-ops.
func NewGateway(client FreeBusyClient, cache CacheStore, cfg GatewayConfig, logger *logging.Logger, m *metrics.AvailabilityMetrics) (*Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("gcal: free/busy client is required")
	}
	if cfg.HomeLocation == nil {
		return nil, fmt.Errorf("gcal: home location is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxBatchCalendars <= 0 {
		cfg.MaxBatchCalendars = 10
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cache == nil {
		cfg.CacheEnabled = false
	}
	return &Gateway{
		client:  client,
		cache:   cache,
		limiter: newRateLimiter(cfg.MinInterval),
		logger:  logger.Component("gcal_gateway"),
		metrics: m,
		cfg:     cfg,
		sleep:   sleepCtx,
	}, nil
}

// FetchBusy returns busy blocks per calendar for [timeMin, timeMax).
// Calendars are split into internal and external batches because internal
// ones are only visible to impersonated credentials. Blocks come back in
// the home timezone.
func (g *Gateway) FetchBusy(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) (map[string][]BusyBlock, error) {
	if len(calendarIDs) == 0 {
		return map[string][]BusyBlock{}, nil
	}
	minStr := timeMin.In(g.cfg.HomeLocation).Format(time.RFC3339)
	maxStr := timeMax.In(g.cfg.HomeLocation).Format(time.RFC3339)

	key := cacheKey(calendarIDs, minStr, maxStr)
	if g.cfg.CacheEnabled {
		cached, hit, err := g.cache.Get(ctx, key)
		if err != nil {
			g.logger.Warn("cache lookup failed, querying provider", "error", err)
		}
		g.metrics.ObserveCacheLookup(hit)
		if hit {
			return cached, nil
		}
	}

	internal, external := g.splitByDomain(calendarIDs)
	result := make(map[string][]BusyBlock, len(calendarIDs))

	for _, chunk := range chunkCalendars(internal, g.cfg.MaxBatchCalendars) {
		busy, err := g.queryWithRetry(ctx, chunk, minStr, maxStr, true)
		if err != nil {
			g.metrics.ObserveFreeBusy("internal", "error")
			return nil, fmt.Errorf("gcal: internal free/busy query failed: %w", err)
		}
		g.metrics.ObserveFreeBusy("internal", "ok")
		mergeBusy(result, busy, g.cfg.HomeLocation)
	}
	for _, chunk := range chunkCalendars(external, g.cfg.MaxBatchCalendars) {
		busy, err := g.queryWithRetry(ctx, chunk, minStr, maxStr, false)
		if err != nil {
			g.metrics.ObserveFreeBusy("external", "error")
			return nil, fmt.Errorf("gcal: external free/busy query failed: %w", err)
		}
		g.metrics.ObserveFreeBusy("external", "ok")
		mergeBusy(result, busy, g.cfg.HomeLocation)
	}

	if g.cfg.CacheEnabled {
		if err := g.cache.Set(ctx, key, result, g.cfg.CacheTTL); err != nil {
			g.logger.Warn("cache write failed", "error", err)
		}
	}
	return result, nil
}

// Invalidate drops cached responses mentioning the calendar. Safe to call
// with caching disabled or a calendar that was never cached.
func (g *Gateway) Invalidate(ctx context.Context, calendarID string) error {
	if g.cache == nil || calendarID == "" {
		return nil
	}
	removed, err := g.cache.InvalidateCalendar(ctx, calendarID)
	if err != nil {
		return fmt.Errorf("gcal: invalidating cache for %s: %w", calendarID, err)
	}
	if removed > 0 {
		g.logger.Info("invalidated cached availability", "calendar_id", calendarID, "entries", removed)
	}
	return nil
}

// queryWithRetry retries only rate limit errors. Backoff doubles per
// attempt starting at BackoffBase.
func (g *Gateway) queryWithRetry(ctx context.Context, calendarIDs []string, timeMin, timeMax string, impersonate bool) (map[string][]BusyBlock, error) {
	var lastErr error
	for attempt := 0; attempt < g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			g.metrics.ObserveFreeBusyRetry()
			delay := g.cfg.BackoffBase * (1 << (attempt - 1))
			g.logger.Warn("free/busy rate limited, backing off",
				"attempt", attempt, "delay", delay.String(), "calendars", len(calendarIDs))
			if err := g.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
		if err := g.limiter.wait(ctx, "freebusy"); err != nil {
			return nil, err
		}
		busy, err := g.query(ctx, calendarIDs, timeMin, timeMax, impersonate)
		if err == nil {
			return busy, nil
		}
		lastErr = err
		if !errors.Is(err, ErrRateLimited) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("gcal: rate limited after %d attempts: %w", g.cfg.MaxRetries, lastErr)
}

func (g *Gateway) query(ctx context.Context, calendarIDs []string, timeMin, timeMax string, impersonate bool) (map[string][]BusyBlock, error) {
	reqCtx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()
	return g.client.Query(reqCtx, calendarIDs, timeMin, timeMax, impersonate)
}

func (g *Gateway) splitByDomain(calendarIDs []string) (internal, external []string) {
	suffix := "@" + strings.ToLower(g.cfg.InternalDomain)
	for _, id := range calendarIDs {
		if g.cfg.InternalDomain != "" && strings.HasSuffix(strings.ToLower(id), suffix) {
			internal = append(internal, id)
		} else {
			external = append(external, id)
		}
	}
	return internal, external
}

func chunkCalendars(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func mergeBusy(dst, src map[string][]BusyBlock, loc *time.Location) {
	for id, blocks := range src {
		normalized := make([]BusyBlock, len(blocks))
		for i, b := range blocks {
			normalized[i] = BusyBlock{Start: b.Start.In(loc), End: b.End.In(loc)}
		}
		dst[id] = normalized
	}
}
