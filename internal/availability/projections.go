package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ViewMode selects the projection window: expanded shows every requested
// month in full, compact shows a rolling window of today plus 15 days.
type ViewMode string

const (
	ModeExpanded ViewMode = "exp"
	ModeCompact  ViewMode = "cmp"
)

const compactWindowDays = 15

// ParseViewMode defaults unknown values to expanded.
func ParseViewMode(s string) ViewMode {
	if strings.ToLower(strings.TrimSpace(s)) == string(ModeCompact) {
		return ModeCompact
	}
	return ModeExpanded
}

// CompactDay is one day in the compact projection: merged busy clock
// ranges plus the free full-hour slots a client can book.
type CompactDay struct {
	Date  string   `json:"date"`
	Dow   string   `json:"dow"`
	Work  string   `json:"work"`
	Busy  []string `json:"busy"`
	Slots []string `json:"slots"`
}

// CompactMeta echoes the parameters the projection was computed with.
type CompactMeta struct {
	Timezone       string `json:"timezone"`
	SessionMinutes int    `json:"session_minutes"`
	PaymentType    string `json:"payment_type"`
	Therapist      string `json:"therapist"`
}

// CompactView is the small JSON projection across months or the rolling
// window.
type CompactView struct {
	Format string       `json:"format"`
	Mode   ViewMode     `json:"mode"`
	Meta   CompactMeta  `json:"meta"`
	Days   []CompactDay `json:"days"`
}

// BuildCompact flattens month projections into per-day merged ranges. In
// compact mode days outside [now, now+15d] are dropped.
func BuildCompact(months []MonthAvailability, mode ViewMode, now time.Time, meta CompactMeta) CompactView {
	view := CompactView{Format: "compact", Mode: mode, Meta: meta, Days: []CompactDay{}}
	windowEnd := now.AddDate(0, 0, compactWindowDays)

	for _, month := range months {
		for _, day := range month.Days {
			if mode == ModeCompact && !withinWindow(day.Date, now, windowEnd) {
				continue
			}
			free, busy := dayClockPairs(day)
			view.Days = append(view.Days, CompactDay{
				Date:  day.Date.Format("2006-01-02"),
				Dow:   day.Date.Format("Mon"),
				Work:  clock(day.Summary.DayStart) + "-" + clock(day.Summary.DayEnd),
				Busy:  mergeClockRanges(busy),
				Slots: formatPairs(free),
			})
		}
	}
	return view
}

// BuildText renders the terminal-friendly one-line-per-day view.
func BuildText(months []MonthAvailability, mode ViewMode, now time.Time, meta CompactMeta) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] tz=%s session=%dm payment=%s mode=%s\n",
		meta.Therapist, meta.Timezone, meta.SessionMinutes, meta.PaymentType, mode)
	windowEnd := now.AddDate(0, 0, compactWindowDays)

	for _, month := range months {
		if mode == ModeExpanded {
			fmt.Fprintf(&b, "\n[%s %d]\n", month.Month.String(), month.Year)
		}
		for _, day := range month.Days {
			if mode == ModeCompact && !withinWindow(day.Date, now, windowEnd) {
				continue
			}
			free, busy := dayClockPairs(day)
			busyStr := strings.Join(mergeClockRanges(busy), ", ")
			if busyStr == "" {
				busyStr = "-"
			}
			slotsStr := strings.Join(formatPairs(free), ", ")
			if slotsStr == "" {
				slotsStr = "-"
			}
			if mode == ModeExpanded {
				fmt.Fprintf(&b, "%02d %s | busy: %s | slots: %s\n",
					day.Date.Day(), day.Date.Format("Mon"), busyStr, slotsStr)
			} else {
				fmt.Fprintf(&b, "%02d %s %d %s | busy: %s | slots: %s\n",
					day.Date.Day(), day.Date.Format("Jan"), day.Date.Year(), day.Date.Format("Mon"), busyStr, slotsStr)
			}
		}
	}
	return b.String()
}

type clockPair struct {
	start string
	end   string
}

// dayClockPairs classifies hour slots: fully free cells become bookable
// slot pairs, anything else contributes to the busy ranges.
func dayClockPairs(day DayAvailability) (free, busy []clockPair) {
	for _, slot := range day.Slots {
		pair := clockPair{start: clock(slot.Start), end: clock(slot.End)}
		if slot.IsFree {
			free = append(free, pair)
		} else {
			busy = append(busy, pair)
		}
	}
	return free, busy
}

// mergeClockRanges coalesces touching/overlapping HH:MM pairs to keep
// output concise.
func mergeClockRanges(pairs []clockPair) []string {
	if len(pairs) == 0 {
		return []string{}
	}
	sorted := make([]clockPair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool {
		return clockMinutes(sorted[i].start) < clockMinutes(sorted[j].start)
	})

	merged := []clockPair{sorted[0]}
	for _, p := range sorted[1:] {
		last := &merged[len(merged)-1]
		if clockMinutes(p.start) <= clockMinutes(last.end) {
			if clockMinutes(p.end) > clockMinutes(last.end) {
				last.end = p.end
			}
		} else {
			merged = append(merged, p)
		}
	}
	return formatPairs(merged)
}

func formatPairs(pairs []clockPair) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.start+"-"+p.end)
	}
	return out
}

func clock(t time.Time) string {
	return t.Format("15:04")
}

func clockMinutes(hhmm string) int {
	if len(hhmm) < 5 {
		return 0
	}
	return int(hhmm[0]-'0')*600 + int(hhmm[1]-'0')*60 + int(hhmm[3]-'0')*10 + int(hhmm[4]-'0')
}

func withinWindow(date, start, end time.Time) bool {
	day := dateOnly(date)
	return !day.Before(dateOnly(start)) && !day.After(dateOnly(end))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
