package availability

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solhealth/availability-engine/internal/gcal"
)

func buildTestMonth(t *testing.T) MonthAvailability {
	t.Helper()
	loc := nyLoc(t)
	builder := NewBuilder(nil)
	busy := []gcal.BusyBlock{
		{Start: time.Date(2026, 3, 10, 14, 0, 0, 0, loc), End: time.Date(2026, 3, 10, 15, 0, 0, 0, loc)},
		{Start: time.Date(2026, 3, 10, 15, 0, 0, 0, loc), End: time.Date(2026, 3, 10, 16, 30, 0, 0, loc)},
	}
	month := MonthAvailability{Year: 2026, Month: time.March}
	for d := 1; d <= 31; d++ {
		day := builder.BuildDay(2026, time.March, d, cashPolicy(), defaultHours(t), busy, loc)
		month.Days = append(month.Days, day)
	}
	return month
}

func TestMergeClockRanges(t *testing.T) {
	got := mergeClockRanges([]clockPair{
		{"15:00", "16:00"},
		{"14:00", "15:00"},
		{"18:00", "19:00"},
		{"16:00", "16:30"},
	})
	assert.Equal(t, []string{"14:00-16:30", "18:00-19:00"}, got)

	assert.Empty(t, mergeClockRanges(nil))
}

func TestBuildCompactMergesBusyRanges(t *testing.T) {
	month := buildTestMonth(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, nyLoc(t))

	view := BuildCompact([]MonthAvailability{month}, ModeExpanded, now, CompactMeta{
		Therapist: "dana@solhealth.co", Timezone: "America/New_York", SessionMinutes: 45, PaymentType: "cash_pay",
	})

	assert.Equal(t, "compact", view.Format)
	require.Len(t, view.Days, 31)

	day10 := view.Days[9]
	assert.Equal(t, "2026-03-10", day10.Date)
	assert.Equal(t, "07:00-22:00", day10.Work)
	// 14:00-15:00 and 15:00-16:30 collapse; the 16:00 cell is partial so
	// busy extends to 17:00 in hour-cell terms.
	assert.Equal(t, []string{"14:00-17:00"}, day10.Busy)
	assert.Contains(t, day10.Slots, "13:00-14:00")
	assert.Contains(t, day10.Slots, "17:00-18:00")
	assert.NotContains(t, day10.Slots, "16:00-17:00")
}

func TestBuildCompactRollingWindow(t *testing.T) {
	month := buildTestMonth(t)
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, nyLoc(t))

	view := BuildCompact([]MonthAvailability{month}, ModeCompact, now, CompactMeta{})
	// March 20 through March 31 survive the today+15 filter.
	require.Len(t, view.Days, 12)
	assert.Equal(t, "2026-03-20", view.Days[0].Date)
	assert.Equal(t, "2026-03-31", view.Days[len(view.Days)-1].Date)
}

func TestBuildTextExpanded(t *testing.T) {
	month := buildTestMonth(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, nyLoc(t))

	text := BuildText([]MonthAvailability{month}, ModeExpanded, now, CompactMeta{
		Therapist: "dana@solhealth.co", Timezone: "America/New_York", SessionMinutes: 45, PaymentType: "cash_pay",
	})

	assert.True(t, strings.HasPrefix(text, "[dana@solhealth.co]"))
	assert.Contains(t, text, "[March 2026]")
	assert.Contains(t, text, "10 Tue | busy: 14:00-17:00")
}

func TestParseViewMode(t *testing.T) {
	assert.Equal(t, ModeCompact, ParseViewMode("cmp"))
	assert.Equal(t, ModeCompact, ParseViewMode(" CMP "))
	assert.Equal(t, ModeExpanded, ParseViewMode("exp"))
	assert.Equal(t, ModeExpanded, ParseViewMode("bogus"))
	assert.Equal(t, ModeExpanded, ParseViewMode(""))
}
