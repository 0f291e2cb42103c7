package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solhealth/availability-engine/internal/gcal"
	"github.com/solhealth/availability-engine/internal/policy"
)

func nyLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func defaultHours(t *testing.T) BusinessHours {
	t.Helper()
	hours, err := ParseBusinessHours("07:00", "22:00")
	require.NoError(t, err)
	return hours
}

func cashPolicy() policy.Policy {
	return policy.Policy{
		CalendarID:     "dana@solhealth.co",
		SessionMinutes: 45,
		PaymentType:    policy.PaymentCashPay,
		BookingGrid:    policy.GridHourBlocks,
	}
}

func sessionStarts(sessions []SessionWindow) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Start.Format("15:04"))
	}
	return out
}

func TestBuildDaySingleBusyBlock(t *testing.T) {
	loc := nyLoc(t)
	busy := []gcal.BusyBlock{{
		Start: time.Date(2026, 3, 10, 14, 0, 0, 0, loc),
		End:   time.Date(2026, 3, 10, 15, 0, 0, 0, loc),
	}}

	day := NewBuilder(nil).BuildDay(2026, time.March, 10, cashPolicy(), defaultHours(t), busy, loc)

	starts := sessionStarts(day.Sessions)
	assert.NotContains(t, starts, "14:00")
	assert.Contains(t, starts, "13:00", "13:00 session ends 13:45, before the block")
	assert.Contains(t, starts, "15:00")
	assert.Contains(t, starts, "21:00")

	require.Len(t, day.FreeIntervals, 2)
	assert.Equal(t, "07:00", day.FreeIntervals[0].Start.Format("15:04"))
	assert.Equal(t, "14:00", day.FreeIntervals[0].End.Format("15:04"))
	assert.Equal(t, "15:00", day.FreeIntervals[1].Start.Format("15:04"))
	assert.Equal(t, "22:00", day.FreeIntervals[1].End.Format("15:04"))
}

func TestBuildDayFullyFreeInsurance(t *testing.T) {
	loc := nyLoc(t)
	pol := policy.Policy{
		CalendarID:     "alex@solhealth.co",
		SessionMinutes: 55,
		PaymentType:    policy.PaymentInsurance,
		BookingGrid:    policy.GridHourBlocks,
	}

	day := NewBuilder(nil).BuildDay(2026, time.March, 10, pol, defaultHours(t), nil, loc)

	// 07:00-22:00 is 900 minutes, hourly grid: 15 windows, all on the hour.
	assert.Len(t, day.Sessions, 15)
	for _, s := range day.Sessions {
		assert.Equal(t, 0, s.Start.Minute())
		assert.Equal(t, 55*time.Minute, s.End.Sub(s.Start))
	}
	assert.Equal(t, 1.0, day.Summary.FreeRatio)
}

func TestBuildDayOvernightBlockSplitsAcrossDays(t *testing.T) {
	loc := nyLoc(t)
	hours, err := ParseBusinessHours("00:00", "23:00")
	require.NoError(t, err)

	// 22:00-02:00 local, expressed in UTC as the provider returns it:
	// both instants fall on March 11 UTC but only one on March 11 local.
	busy := []gcal.BusyBlock{{
		Start: time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC),
	}}
	builder := NewBuilder(nil)

	day1 := builder.BuildDay(2026, time.March, 10, cashPolicy(), hours, busy, loc)
	day2 := builder.BuildDay(2026, time.March, 11, cashPolicy(), hours, busy, loc)

	starts1 := sessionStarts(day1.Sessions)
	assert.NotContains(t, starts1, "22:00", "first local day loses the late evening")
	assert.Contains(t, starts1, "21:00")

	starts2 := sessionStarts(day2.Sessions)
	assert.NotContains(t, starts2, "00:00", "second local day loses the early morning")
	assert.NotContains(t, starts2, "01:00")
	assert.Contains(t, starts2, "02:00")
}

func TestBuildDayTierTwoExactFit(t *testing.T) {
	loc := nyLoc(t)
	// Free gap 13:10-14:05: no hour boundary fits a 45-minute session,
	// so one exact-fit window is placed at the gap's start.
	busy := []gcal.BusyBlock{
		{Start: time.Date(2026, 3, 10, 7, 0, 0, 0, loc), End: time.Date(2026, 3, 10, 13, 10, 0, 0, loc)},
		{Start: time.Date(2026, 3, 10, 14, 5, 0, 0, loc), End: time.Date(2026, 3, 10, 22, 0, 0, 0, loc)},
	}

	day := NewBuilder(nil).BuildDay(2026, time.March, 10, cashPolicy(), defaultHours(t), busy, loc)

	require.Len(t, day.Sessions, 1)
	assert.Equal(t, "13:10", day.Sessions[0].Start.Format("15:04"))
	assert.Equal(t, "13:55", day.Sessions[0].End.Format("15:04"))
}

func TestBuildDayShortGapYieldsNoSessions(t *testing.T) {
	loc := nyLoc(t)
	busy := []gcal.BusyBlock{
		{Start: time.Date(2026, 3, 10, 7, 0, 0, 0, loc), End: time.Date(2026, 3, 10, 13, 0, 0, 0, loc)},
		{Start: time.Date(2026, 3, 10, 13, 30, 0, 0, loc), End: time.Date(2026, 3, 10, 22, 0, 0, 0, loc)},
	}

	day := NewBuilder(nil).BuildDay(2026, time.March, 10, cashPolicy(), defaultHours(t), busy, loc)
	assert.Empty(t, day.Sessions, "30-minute gap cannot hold a 45-minute session")
}

func TestBuildDayFlexiblePeriodsCashPayStepsHalfHourly(t *testing.T) {
	loc := nyLoc(t)
	pol := cashPolicy()
	pol.BookingGrid = policy.GridFlexiblePeriods

	// Free 09:00-11:00 only.
	busy := []gcal.BusyBlock{
		{Start: time.Date(2026, 3, 10, 7, 0, 0, 0, loc), End: time.Date(2026, 3, 10, 9, 0, 0, 0, loc)},
		{Start: time.Date(2026, 3, 10, 11, 0, 0, 0, loc), End: time.Date(2026, 3, 10, 22, 0, 0, 0, loc)},
	}

	day := NewBuilder(nil).BuildDay(2026, time.March, 10, pol, defaultHours(t), busy, loc)
	starts := sessionStarts(day.Sessions)
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, starts)
}

func TestBuildDayFlexiblePeriodsInsuranceStaysHourly(t *testing.T) {
	loc := nyLoc(t)
	pol := policy.Policy{
		CalendarID:     "alex@solhealth.co",
		SessionMinutes: 55,
		PaymentType:    policy.PaymentInsurance,
		BookingGrid:    policy.GridFlexiblePeriods,
	}
	busy := []gcal.BusyBlock{
		{Start: time.Date(2026, 3, 10, 7, 0, 0, 0, loc), End: time.Date(2026, 3, 10, 9, 0, 0, 0, loc)},
		{Start: time.Date(2026, 3, 10, 11, 0, 0, 0, loc), End: time.Date(2026, 3, 10, 22, 0, 0, 0, loc)},
	}

	day := NewBuilder(nil).BuildDay(2026, time.March, 10, pol, defaultHours(t), busy, loc)
	for _, s := range day.Sessions {
		assert.Equal(t, 0, s.Start.Minute(), "insurance never steps sub-hourly")
	}
}

func TestBuildDaySkipsMalformedBlocks(t *testing.T) {
	loc := nyLoc(t)
	busy := []gcal.BusyBlock{
		{Start: time.Date(2026, 3, 10, 14, 0, 0, 0, loc), End: time.Date(2026, 3, 10, 14, 0, 0, 0, loc)},
		{Start: time.Date(2026, 3, 10, 16, 0, 0, 0, loc), End: time.Date(2026, 3, 10, 15, 0, 0, 0, loc)},
		{},
		{Start: time.Date(2026, 3, 10, 10, 0, 0, 0, loc), End: time.Date(2026, 3, 10, 11, 0, 0, 0, loc)},
	}

	day := NewBuilder(nil).BuildDay(2026, time.March, 10, cashPolicy(), defaultHours(t), busy, loc)

	starts := sessionStarts(day.Sessions)
	assert.NotContains(t, starts, "10:00", "the one valid block still applies")
	assert.Contains(t, starts, "14:00", "malformed blocks do not remove availability")
	assert.Contains(t, starts, "15:00")
}

func TestBuildDayHourSlots(t *testing.T) {
	loc := nyLoc(t)
	busy := []gcal.BusyBlock{{
		Start: time.Date(2026, 3, 10, 14, 0, 0, 0, loc),
		End:   time.Date(2026, 3, 10, 14, 30, 0, 0, loc),
	}}

	day := NewBuilder(nil).BuildDay(2026, time.March, 10, cashPolicy(), defaultHours(t), busy, loc)

	require.Len(t, day.Slots, 15)
	for _, slot := range day.Slots {
		switch slot.Start.Hour() {
		case 14:
			assert.InDelta(t, 0.5, slot.FreeRatio, 0.001)
			assert.False(t, slot.IsFree, "partially blocked cells are not bookable")
		default:
			assert.Equal(t, 1.0, slot.FreeRatio)
			assert.True(t, slot.IsFree)
		}
	}
}

func TestParseBusinessHoursRejectsGarbage(t *testing.T) {
	_, err := ParseBusinessHours("7am", "22:00")
	assert.Error(t, err)
	_, err = ParseBusinessHours("07:00", "25:00")
	assert.Error(t, err)
}
