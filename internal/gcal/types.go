// Package gcal wraps the clinic's Google Calendar access: batched
// free/busy queries with retry and backoff, an optional invalidation-aware
// response cache, per-operation rate limiting, and bounded event writes.
// Everything downstream of this package is pure computation.
package gcal

import (
	"context"
	"time"
)

// BusyBlock is a provider-reported interval during which a calendar is
// unavailable. Blocks are immutable once fetched and always interpreted in
// the calendar owner's home timezone.
type BusyBlock struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FreeBusyClient is the provider boundary for busy/free queries. timeMin
// and timeMax are RFC3339 instants. impersonate selects domain-delegated
// credentials for internal calendars.
type FreeBusyClient interface {
	Query(ctx context.Context, calendarIDs []string, timeMin, timeMax string, impersonate bool) (map[string][]BusyBlock, error)
}

// Attendee identifies a participant on a calendar event.
type Attendee struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// EventRequest describes a calendar event to create after a booking.
type EventRequest struct {
	CalendarID      string
	Summary         string
	Description     string
	Start           time.Time
	DurationMinutes int
	Attendees       []Attendee
	JoinURL         string
	TimezoneName    string
	SendUpdates     string
	CreateMeetLink  bool

	// ConferenceRequestID deduplicates Meet link creation across retries.
	ConferenceRequestID string
}

// EventResult reports the outcome of an event write. TimedOut is set when
// the provider did not answer within the write deadline; the booking then
// proceeds without a calendar event.
type EventResult struct {
	EventID  string `json:"event_id,omitempty"`
	HTMLLink string `json:"html_link,omitempty"`
	MeetLink string `json:"meet_link,omitempty"`
	Created  bool   `json:"created"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// EventClient is the provider boundary for event writes.
type EventClient interface {
	InsertEvent(ctx context.Context, req EventRequest) (*EventResult, error)
}
