// Package availability turns raw busy-block calendar data into discrete
// bookable session windows. It composes the calendar gateway, the policy
// resolver, and pure interval math into day, month, batch, and status
// views, and exposes them over HTTP.
package availability

import (
	"time"

	"github.com/solhealth/availability-engine/internal/interval"
	"github.com/solhealth/availability-engine/internal/policy"
)

// SessionWindow is a bookable interval of exactly the resolved session
// length carved from a free interval.
type SessionWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// HourSlot is one business-hours grid cell with its free fraction.
// IsFree requires the cell to be entirely unblocked.
type HourSlot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	FreeRatio float64   `json:"free_ratio"`
	IsFree    bool      `json:"is_free"`
}

// BusySegment is a busy block clipped to the business-hours window.
type BusySegment struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Seconds float64   `json:"seconds"`
}

// DaySummary aggregates one day's busy/free accounting.
type DaySummary struct {
	FreeRatio float64       `json:"free_ratio"`
	FreeSecs  int           `json:"free_secs"`
	BusySecs  int           `json:"busy_secs"`
	Segments  []BusySegment `json:"segments"`
	DayStart  time.Time     `json:"day_start"`
	DayEnd    time.Time     `json:"day_end"`
}

// DayAvailability is the raw projection for one (calendar, day) pair.
type DayAvailability struct {
	Date          time.Time           `json:"date"`
	FreeIntervals []interval.Interval `json:"free_intervals"`
	Slots         []HourSlot          `json:"slots"`
	Sessions      []SessionWindow     `json:"sessions"`
	Summary       DaySummary          `json:"summary"`
}

// HasBookableSessions reports whether at least one session window fits.
func (d DayAvailability) HasBookableSessions() bool {
	return len(d.Sessions) > 0
}

// MonthAvailability is one calendar month of day projections.
type MonthAvailability struct {
	Year          int               `json:"year"`
	Month         time.Month        `json:"month"`
	Days          []DayAvailability `json:"days"`
	TotalSessions int               `json:"total_sessions"`
	AvailableDays int               `json:"available_days"`
	Policy        policy.Policy     `json:"policy"`
}

// Status is the existence-check reduction of an availability computation.
// HasAvailability is nil when the provider could not be reached, which is
// different from a confirmed false.
type Status struct {
	CalendarID      string `json:"calendar_id"`
	HasAvailability *bool  `json:"has_availability"`
	TotalSessions   int    `json:"total_sessions"`
	AvailableDays   int    `json:"available_days"`
	SessionMinutes  int    `json:"session_minutes"`
	PaymentType     string `json:"payment_type"`
	Error           string `json:"error,omitempty"`
}

// BatchResult is one calendar's status inside a batch response.
type BatchResult struct {
	Status
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}
