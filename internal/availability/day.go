package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/solhealth/availability-engine/internal/gcal"
	"github.com/solhealth/availability-engine/internal/interval"
	"github.com/solhealth/availability-engine/internal/policy"
	"github.com/solhealth/availability-engine/pkg/logging"
)

// BusinessHours is the clinic's bookable window, evaluated in the
// calendar owner's home timezone for every caller.
type BusinessHours struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// ParseBusinessHours parses "HH:MM" start/end clock strings.
func ParseBusinessHours(start, end string) (BusinessHours, error) {
	sh, sm, err := parseClock(start)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("availability: bad work start %q: %w", start, err)
	}
	eh, em, err := parseClock(end)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("availability: bad work end %q: %w", end, err)
	}
	return BusinessHours{StartHour: sh, StartMinute: sm, EndHour: eh, EndMinute: em}, nil
}

func parseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want HH:MM")
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour")
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute")
	}
	return hour, minute, nil
}

// Window realizes the business-hours interval on a concrete local date.
func (b BusinessHours) Window(year int, month time.Month, day int, loc *time.Location) interval.Interval {
	return interval.Interval{
		Start: time.Date(year, month, day, b.StartHour, b.StartMinute, 0, 0, loc),
		End:   time.Date(year, month, day, b.EndHour, b.EndMinute, 0, 0, loc),
	}
}

// Builder computes one day of availability from busy blocks. Pure
// computation; the only side effect is warning logs for malformed blocks.
type Builder struct {
	logger *logging.Logger
}

// NewBuilder creates a day builder.
func NewBuilder(logger *logging.Logger) *Builder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Builder{logger: logger.Component("day_builder")}
}

// BuildDay computes free intervals, hour slots, and session windows for
// one local date. Busy blocks that do not form a positive span are
// skipped so one bad block cannot void the whole day.
func (b *Builder) BuildDay(year int, month time.Month, day int, pol policy.Policy, hours BusinessHours, busy []gcal.BusyBlock, loc *time.Location) DayAvailability {
	window := hours.Window(year, month, day, loc)

	valid := make([]interval.Interval, 0, len(busy))
	for _, block := range busy {
		if block.Start.IsZero() || block.End.IsZero() || !block.End.After(block.Start) {
			b.logger.Warn("skipping malformed busy block",
				"calendar_id", pol.CalendarID,
				"start", block.Start.String(), "end", block.End.String())
			continue
		}
		valid = append(valid, interval.Interval{
			Start: block.Start.In(loc),
			End:   block.End.In(loc),
		})
	}

	free := interval.FreeWithin(window, valid)
	sessions := placeSessions(free, pol)
	segments := busySegments(window, valid)
	slots := buildHourSlots(window, segments)

	workSecs := window.Duration().Seconds()
	var busySecs float64
	for _, seg := range segments {
		busySecs += seg.Seconds
	}
	freeSecs := workSecs - busySecs
	if freeSecs < 0 {
		freeSecs = 0
	}
	var ratio float64
	if workSecs > 0 {
		ratio = freeSecs / workSecs
	}

	return DayAvailability{
		Date:          time.Date(year, month, day, 0, 0, 0, 0, loc),
		FreeIntervals: free,
		Slots:         slots,
		Sessions:      sessions,
		Summary: DaySummary{
			FreeRatio: ratio,
			FreeSecs:  int(freeSecs),
			BusySecs:  int(busySecs),
			Segments:  segments,
			DayStart:  window.Start,
			DayEnd:    window.End,
		},
	}
}

// gridStep picks the placement step. hour_blocks always steps hourly;
// flexible_periods steps at 30 minutes for cash-pay policies only.
func gridStep(pol policy.Policy) time.Duration {
	if pol.BookingGrid == policy.GridFlexiblePeriods && pol.PaymentType == policy.PaymentCashPay {
		return 30 * time.Minute
	}
	return time.Hour
}

// placeSessions carves session windows out of free intervals with the
// two-tier strategy: grid-aligned stepping first, then a single exact-fit
// window at the interval start when alignment produced nothing. Tier 2
// keeps a day with enough free time from reading as fully booked just
// because the free time straddles grid boundaries.
func placeSessions(free []interval.Interval, pol policy.Policy) []SessionWindow {
	session := time.Duration(pol.SessionMinutes) * time.Minute
	step := gridStep(pol)
	sessions := []SessionWindow{}

	for _, iv := range free {
		if iv.Duration() < session {
			continue
		}

		placed := 0
		for cur := alignUp(iv.Start, step); !cur.Add(session).After(iv.End); cur = cur.Add(step) {
			sessions = append(sessions, SessionWindow{Start: cur, End: cur.Add(session)})
			placed++
		}

		if placed == 0 && !iv.Start.Add(session).After(iv.End) {
			sessions = append(sessions, SessionWindow{Start: iv.Start, End: iv.Start.Add(session)})
		}
	}
	return sessions
}

// alignUp rounds t up to the next grid boundary, measured from local
// midnight so hourly steps land on :00 and 30-minute steps on :00/:30.
func alignUp(t time.Time, step time.Duration) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := t.Sub(midnight)
	if rem := offset % step; rem != 0 {
		offset += step - rem
	}
	return midnight.Add(offset)
}

// busySegments clips merged busy intervals to the business window.
func busySegments(window interval.Interval, busy []interval.Interval) []BusySegment {
	merged := interval.Merge(busy)
	segments := []BusySegment{}
	for _, iv := range merged {
		secs := interval.OverlapSeconds(window.Start, window.End, iv.Start, iv.End)
		if secs <= 0 {
			continue
		}
		start := iv.Start
		if start.Before(window.Start) {
			start = window.Start
		}
		end := iv.End
		if end.After(window.End) {
			end = window.End
		}
		segments = append(segments, BusySegment{Start: start, End: end, Seconds: secs})
	}
	return segments
}

// buildHourSlots walks the window in hourly cells and scores each by the
// fraction of the cell not covered by busy segments. A cell counts as
// free only when fully unblocked.
func buildHourSlots(window interval.Interval, segments []BusySegment) []HourSlot {
	slots := []HourSlot{}
	for cur := window.Start; cur.Before(window.End); {
		cellEnd := cur.Add(time.Hour)
		if cellEnd.After(window.End) {
			cellEnd = window.End
		}
		cellSecs := cellEnd.Sub(cur).Seconds()
		var busyIn float64
		for _, seg := range segments {
			busyIn += interval.OverlapSeconds(cur, cellEnd, seg.Start, seg.End)
		}
		ratio := (cellSecs - busyIn) / cellSecs
		if ratio < 0 {
			ratio = 0
		}
		slots = append(slots, HourSlot{
			Start:     cur,
			End:       cellEnd,
			FreeRatio: ratio,
			IsFree:    ratio >= 1.0,
		})
		cur = cellEnd
	}
	return slots
}
