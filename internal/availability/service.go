package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/solhealth/availability-engine/internal/gcal"
	"github.com/solhealth/availability-engine/internal/observability/metrics"
	"github.com/solhealth/availability-engine/internal/policy"
	"github.com/solhealth/availability-engine/pkg/logging"
)

// BusyFetcher is the slice of the calendar gateway the aggregator needs.
type BusyFetcher interface {
	FetchBusy(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) (map[string][]gcal.BusyBlock, error)
	Invalidate(ctx context.Context, calendarID string) error
}

// PolicyResolver resolves booking parameters per therapist.
type PolicyResolver interface {
	Resolve(ctx context.Context, calendarID string, ov policy.Overrides) policy.Policy
}

// ServiceConfig carries the clinic-wide scheduling constants.
type ServiceConfig struct {
	// HomeLocation is the timezone business hours are evaluated in for
	// all callers. Caller timezones affect display only.
	HomeLocation *time.Location
	Hours        BusinessHours

	// MatchingWindowDays is the length of the batch lookahead window,
	// starting tomorrow at local midnight.
	MatchingWindowDays int
	MaxBatchCalendars  int
}

// Service composes policy resolution, gateway fetches, and day builds
// into the day, month, batch, and status operations.
type Service struct {
	gateway  BusyFetcher
	resolver PolicyResolver
	builder  *Builder
	logger   *logging.Logger
	metrics  *metrics.AvailabilityMetrics
	cfg      ServiceConfig

	now func() time.Time
}

// NewService wires the aggregator.
func NewService(gateway BusyFetcher, resolver PolicyResolver, cfg ServiceConfig, logger *logging.Logger, m *metrics.AvailabilityMetrics) (*Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("availability: gateway is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("availability: policy resolver is required")
	}
	if cfg.HomeLocation == nil {
		return nil, fmt.Errorf("availability: home location is required")
	}
	if cfg.MatchingWindowDays <= 0 {
		cfg.MatchingWindowDays = 14
	}
	if cfg.MaxBatchCalendars <= 0 {
		cfg.MaxBatchCalendars = 10
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		gateway:  gateway,
		resolver: resolver,
		builder:  NewBuilder(logger),
		logger:   logger.Component("availability"),
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// MonthRequest asks for one calendar month of availability.
type MonthRequest struct {
	CalendarID string
	Year       int
	Month      time.Month
	Overrides  policy.Overrides
	Hours      *BusinessHours
	Live       bool
	Debug      bool
}

// Month computes availability for every day of a month with a single
// ranged gateway fetch.
func (s *Service) Month(ctx context.Context, req MonthRequest) (*MonthAvailability, error) {
	if req.CalendarID == "" {
		return nil, fmt.Errorf("availability: calendar ID is required")
	}
	if req.Month < time.January || req.Month > time.December {
		return nil, fmt.Errorf("availability: month %d out of range", req.Month)
	}
	started := s.now()

	if req.Live {
		if err := s.gateway.Invalidate(ctx, req.CalendarID); err != nil {
			s.logger.Warn("live-check invalidation failed", "calendar_id", req.CalendarID, "error", err)
		}
	}

	pol := s.resolver.Resolve(ctx, req.CalendarID, req.Overrides)
	hours := s.cfg.Hours
	if req.Hours != nil {
		hours = *req.Hours
	}

	loc := s.cfg.HomeLocation
	monthStart := time.Date(req.Year, req.Month, 1, 0, 0, 0, 0, loc)
	nextMonth := monthStart.AddDate(0, 1, 0)

	busy, err := s.gateway.FetchBusy(ctx, []string{req.CalendarID}, monthStart, nextMonth)
	if err != nil {
		return nil, fmt.Errorf("availability: fetching busy blocks for %s: %w", req.CalendarID, err)
	}

	out := &MonthAvailability{Year: req.Year, Month: req.Month, Policy: pol}
	for day := monthStart; day.Before(nextMonth); day = day.AddDate(0, 0, 1) {
		built := s.builder.BuildDay(day.Year(), day.Month(), day.Day(), pol, hours, busy[req.CalendarID], loc)
		if req.Debug {
			s.logger.Debug("built day availability",
				"calendar_id", req.CalendarID,
				"date", built.Date.Format("2006-01-02"),
				"sessions", len(built.Sessions),
				"free_ratio", built.Summary.FreeRatio)
		}
		out.TotalSessions += len(built.Sessions)
		if built.HasBookableSessions() {
			out.AvailableDays++
		}
		out.Days = append(out.Days, built)
	}

	s.metrics.ObserveBuildLatency("month", s.now().Sub(started).Seconds())
	return out, nil
}

// Months computes n consecutive months starting at (year, month).
func (s *Service) Months(ctx context.Context, req MonthRequest, n int) ([]MonthAvailability, error) {
	if n <= 0 {
		n = 1
	}
	out := make([]MonthAvailability, 0, n)
	year, month := req.Year, req.Month
	for i := 0; i < n; i++ {
		r := req
		r.Year, r.Month = year, month
		m, err := s.Month(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return out, nil
}

// DayRequest asks for a single date.
type DayRequest struct {
	CalendarID string
	Year       int
	Month      time.Month
	Day        int
	Overrides  policy.Overrides
	Hours      *BusinessHours
	Live       bool
}

// Day computes availability for one date.
func (s *Service) Day(ctx context.Context, req DayRequest) (*DayAvailability, error) {
	if req.CalendarID == "" {
		return nil, fmt.Errorf("availability: calendar ID is required")
	}
	started := s.now()

	if req.Live {
		if err := s.gateway.Invalidate(ctx, req.CalendarID); err != nil {
			s.logger.Warn("live-check invalidation failed", "calendar_id", req.CalendarID, "error", err)
		}
	}

	pol := s.resolver.Resolve(ctx, req.CalendarID, req.Overrides)
	hours := s.cfg.Hours
	if req.Hours != nil {
		hours = *req.Hours
	}

	loc := s.cfg.HomeLocation
	dayStart := time.Date(req.Year, req.Month, req.Day, 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	busy, err := s.gateway.FetchBusy(ctx, []string{req.CalendarID}, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("availability: fetching busy blocks for %s: %w", req.CalendarID, err)
	}

	built := s.builder.BuildDay(req.Year, req.Month, req.Day, pol, hours, busy[req.CalendarID], loc)
	s.metrics.ObserveBuildLatency("day", s.now().Sub(started).Seconds())
	return &built, nil
}

// BatchRequest asks for a quick availability scan across several
// therapists over the rolling matching window.
type BatchRequest struct {
	CalendarIDs []string
	Overrides   policy.Overrides
	Live        bool
}

// Batch fetches the matching window for up to MaxBatchCalendars
// therapists in one gateway round-trip, then resolves policy and builds
// days per calendar. A failure for the whole fetch marks every calendar
// unknown rather than failing the call.
func (s *Service) Batch(ctx context.Context, req BatchRequest) (map[string]BatchResult, error) {
	if len(req.CalendarIDs) == 0 {
		return nil, fmt.Errorf("availability: at least one calendar ID is required")
	}
	if len(req.CalendarIDs) > s.cfg.MaxBatchCalendars {
		return nil, fmt.Errorf("availability: batch size %d exceeds limit %d", len(req.CalendarIDs), s.cfg.MaxBatchCalendars)
	}
	started := s.now()

	loc := s.cfg.HomeLocation
	nowLocal := s.now().In(loc)
	windowStart := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	windowEnd := windowStart.AddDate(0, 0, s.cfg.MatchingWindowDays)

	if req.Live {
		for _, id := range req.CalendarIDs {
			if err := s.gateway.Invalidate(ctx, id); err != nil {
				s.logger.Warn("live-check invalidation failed", "calendar_id", id, "error", err)
			}
		}
	}

	results := make(map[string]BatchResult, len(req.CalendarIDs))
	busy, err := s.gateway.FetchBusy(ctx, req.CalendarIDs, windowStart, windowEnd)
	if err != nil {
		s.logger.Error("batch busy fetch failed", "calendars", len(req.CalendarIDs), "error", err)
		for _, id := range req.CalendarIDs {
			results[id] = BatchResult{
				Status:      Status{CalendarID: id, Error: "calendar provider unavailable"},
				WindowStart: windowStart,
				WindowEnd:   windowEnd,
			}
		}
		return results, nil
	}

	for _, id := range req.CalendarIDs {
		pol := s.resolver.Resolve(ctx, id, req.Overrides)
		var totalSessions, availableDays int
		for day := windowStart; day.Before(windowEnd); day = day.AddDate(0, 0, 1) {
			built := s.builder.BuildDay(day.Year(), day.Month(), day.Day(), pol, s.cfg.Hours, busy[id], loc)
			totalSessions += len(built.Sessions)
			if built.HasBookableSessions() {
				availableDays++
			}
		}
		has := totalSessions > 0
		results[id] = BatchResult{
			Status: Status{
				CalendarID:      id,
				HasAvailability: &has,
				TotalSessions:   totalSessions,
				AvailableDays:   availableDays,
				SessionMinutes:  pol.SessionMinutes,
				PaymentType:     string(pol.PaymentType),
			},
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
		}
	}

	s.metrics.ObserveBuildLatency("batch", s.now().Sub(started).Seconds())
	return results, nil
}

// StatusRequest asks whether a therapist has any openings in a month.
type StatusRequest struct {
	CalendarID string
	Year       int
	Month      time.Month
	Overrides  policy.Overrides
	Live       bool
}

// Status reduces a month computation to an existence check. A gateway
// failure yields HasAvailability nil so callers can tell "confirmed
// none" from "couldn't check"; it is never surfaced as an error.
func (s *Service) Status(ctx context.Context, req StatusRequest) *Status {
	pol := s.resolver.Resolve(ctx, req.CalendarID, req.Overrides)
	month, err := s.Month(ctx, MonthRequest{
		CalendarID: req.CalendarID,
		Year:       req.Year,
		Month:      req.Month,
		Overrides:  req.Overrides,
		Live:       req.Live,
	})
	if err != nil {
		s.logger.Error("status check degraded to unknown", "calendar_id", req.CalendarID, "error", err)
		return &Status{
			CalendarID:     req.CalendarID,
			SessionMinutes: pol.SessionMinutes,
			PaymentType:    string(pol.PaymentType),
			Error:          "calendar provider unavailable",
		}
	}
	has := month.TotalSessions > 0
	return &Status{
		CalendarID:      req.CalendarID,
		HasAvailability: &has,
		TotalSessions:   month.TotalSessions,
		AvailableDays:   month.AvailableDays,
		SessionMinutes:  pol.SessionMinutes,
		PaymentType:     string(pol.PaymentType),
	}
}
