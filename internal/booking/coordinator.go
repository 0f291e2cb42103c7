// Package booking orchestrates the calendar side of a confirmed booking:
// writing the event and invalidating cached availability so the next
// query reflects the new busy block. Appointment persistence lives
// elsewhere; the coordinator only reports the event outcome.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/solhealth/availability-engine/internal/gcal"
	"github.com/solhealth/availability-engine/pkg/logging"
)

// EventCreator is the slice of the event writer the coordinator needs.
type EventCreator interface {
	CreateEvent(ctx context.Context, req gcal.EventRequest) (*gcal.EventResult, error)
}

// CacheInvalidator drops cached availability for a calendar.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, calendarID string) error
}

// ConfirmRequest describes a booked session whose calendar work remains.
type ConfirmRequest struct {
	CalendarID     string
	ClientName     string
	ClientEmail    string
	Start          time.Time
	SessionMinutes int
	PaymentType    string
	TimezoneName   string
	CreateMeetLink bool
}

// ConfirmResult reports the calendar outcome. EventCreated is false with
// TimedOut true when the provider was too slow and the booking proceeded
// without an event.
type ConfirmResult struct {
	EventID      string `json:"event_id,omitempty"`
	EventLink    string `json:"event_link,omitempty"`
	MeetLink     string `json:"meet_link,omitempty"`
	EventCreated bool   `json:"event_created"`
	TimedOut     bool   `json:"timed_out,omitempty"`
}

// Coordinator sequences event creation and cache invalidation.
type Coordinator struct {
	events EventCreator
	cache  CacheInvalidator
	logger *logging.Logger
}

// NewCoordinator wires a coordinator. cache may be nil when caching is
// disabled.
func NewCoordinator(events EventCreator, cache CacheInvalidator, logger *logging.Logger) (*Coordinator, error) {
	if events == nil {
		return nil, fmt.Errorf("booking: event creator is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Coordinator{events: events, cache: cache, logger: logger.Component("booking")}, nil
}

// ConfirmBooking writes the calendar event and then invalidates cached
// availability for the therapist's calendar. Invalidation happens even
// when the event write timed out: the booking exists regardless, so
// stale availability must not be served.
func (c *Coordinator) ConfirmBooking(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if req.CalendarID == "" {
		return nil, fmt.Errorf("booking: calendar ID is required")
	}
	if req.Start.IsZero() || req.SessionMinutes <= 0 {
		return nil, fmt.Errorf("booking: start and session minutes are required")
	}

	summary := "Therapy Session"
	if req.ClientName != "" {
		summary = fmt.Sprintf("Therapy Session - %s", req.ClientName)
	}
	eventReq := gcal.EventRequest{
		CalendarID:      req.CalendarID,
		Summary:         summary,
		Description:     fmt.Sprintf("Payment type: %s", req.PaymentType),
		Start:           req.Start,
		DurationMinutes: req.SessionMinutes,
		TimezoneName:    req.TimezoneName,
		SendUpdates:     "all",
		CreateMeetLink:  req.CreateMeetLink,
	}
	if req.ClientEmail != "" {
		eventReq.Attendees = []gcal.Attendee{{Email: req.ClientEmail, Name: req.ClientName}}
	}

	eventResult, err := c.events.CreateEvent(ctx, eventReq)
	if err != nil {
		return nil, fmt.Errorf("booking: confirming %s: %w", req.CalendarID, err)
	}

	if c.cache != nil {
		if err := c.cache.Invalidate(ctx, req.CalendarID); err != nil {
			c.logger.Warn("availability cache invalidation failed after booking",
				"calendar_id", req.CalendarID, "error", err)
		}
	}

	result := &ConfirmResult{
		EventID:      eventResult.EventID,
		EventLink:    eventResult.HTMLLink,
		MeetLink:     eventResult.MeetLink,
		EventCreated: eventResult.Created,
		TimedOut:     eventResult.TimedOut,
	}
	c.logger.Info("booking confirmed",
		"calendar_id", req.CalendarID,
		"start", req.Start.Format(time.RFC3339),
		"event_created", result.EventCreated,
		"timed_out", result.TimedOut)
	return result, nil
}
