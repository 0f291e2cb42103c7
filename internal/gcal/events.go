package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solhealth/availability-engine/internal/observability/metrics"
	"github.com/solhealth/availability-engine/pkg/logging"
)

// EventWriter creates calendar events under a hard deadline. A slow
// provider must not hold up booking confirmation, so a write that exceeds
// the deadline is reported as timed out and the caller proceeds without
// an event rather than failing the booking.
type EventWriter struct {
	client  EventClient
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.AvailabilityMetrics
}

// NewEventWriter builds a writer with the given deadline. A non-positive
// timeout defaults to 10 seconds.
func NewEventWriter(client EventClient, timeout time.Duration, logger *logging.Logger, m *metrics.AvailabilityMetrics) (*EventWriter, error) {
	if client == nil {
		return nil, fmt.Errorf("gcal: event client is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &EventWriter{
		client:  client,
		timeout: timeout,
		logger:  logger.Component("gcal_events"),
		metrics: m,
	}, nil
}

// CreateEvent writes the event, filling a conference request ID when a
// Meet link is wanted. On deadline expiry it returns a degraded result
// with TimedOut set instead of an error.
func (w *EventWriter) CreateEvent(ctx context.Context, req EventRequest) (*EventResult, error) {
	if req.CalendarID == "" {
		return nil, fmt.Errorf("gcal: event calendar ID is required")
	}
	if req.Start.IsZero() || req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("gcal: event start and duration are required")
	}
	if req.CreateMeetLink && req.ConferenceRequestID == "" {
		req.ConferenceRequestID = uuid.NewString()
	}

	writeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	result, err := w.client.InsertEvent(writeCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			w.logger.Warn("event write timed out, proceeding without calendar event",
				"calendar_id", req.CalendarID, "timeout", w.timeout.String())
			w.metrics.ObserveEventWrite("timeout")
			return &EventResult{TimedOut: true}, nil
		}
		w.metrics.ObserveEventWrite("error")
		return nil, fmt.Errorf("gcal: event write failed: %w", err)
	}

	w.metrics.ObserveEventWrite("created")
	w.logger.Info("calendar event created",
		"calendar_id", req.CalendarID, "event_id", result.EventID)
	return result, nil
}
