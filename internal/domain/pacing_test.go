package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeSchedule(target, start, end int) Schedule {
	return Schedule{
		AccountID:   "1",
		TargetSteps: target,
		StartHour:   start,
		EndHour:     end,
		Status:      ScheduleActive,
	}
}

func hourOf(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 30, 0, 0, day.Location())
}

func TestPlannedCumulativeNonDecreasingAndEndsOnTarget(t *testing.T) {
	t.Parallel()

	targets := []int{1, 13, 5000, 50000, 98800}
	for _, target := range targets {
		for hours := 1; hours <= 16; hours++ {
			prev := 0
			for idx := 0; idx < hours; idx++ {
				planned := PlannedCumulative(target, hours, idx)
				assert.GreaterOrEqual(t, planned, prev, "target %d hours %d idx %d", target, hours, idx)
				if idx < hours-1 {
					assert.Less(t, planned, target+1)
				}
				prev = planned
			}
			assert.Equal(t, target, PlannedCumulative(target, hours, hours-1), "final slot must equal target")
		}
	}
}

func TestScheduleIncrementsSumToTarget(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	s := activeSchedule(50000, 8, 21)
	s.Rollover(day.Format(DateLayout))

	total := 0
	for hour := 0; hour < 24; hour++ {
		now := hourOf(day, hour)
		slot, due := s.DueAt(now)
		if hour < 8 || hour >= 21 {
			assert.False(t, due, "hour %d outside window", hour)
			continue
		}
		require.True(t, due, "hour %d inside window", hour)
		total += slot.Increment
		s.Advance(slot, now)
	}

	assert.Equal(t, 50000, total)
	assert.Equal(t, 50000, s.CumulativeSteps)
	assert.Equal(t, 13, s.CompletedSlotIndex)
}

func TestScheduleFirstAndFinalSlotValues(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	s := activeSchedule(50000, 8, 21)
	s.Rollover(day.Format(DateLayout))

	slot, due := s.DueAt(hourOf(day, 8))
	require.True(t, due)
	assert.Equal(t, 0, slot.Index)
	assert.Equal(t, 3846, slot.Increment)
	s.Advance(slot, hourOf(day, 8))
	assert.Equal(t, 3846, s.CumulativeSteps)

	// Jump straight to the final slot: its increment subsumes every skipped
	// hour and snaps the day to the exact target.
	slot, due = s.DueAt(hourOf(day, 20))
	require.True(t, due)
	assert.Equal(t, 12, slot.Index)
	assert.Equal(t, 50000, slot.Planned)
	assert.Equal(t, 50000-3846, slot.Increment)
	s.Advance(slot, hourOf(day, 20))
	assert.Equal(t, 50000, s.CumulativeSteps)
}

func TestScheduleFailureLeavesSlotDue(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	s := activeSchedule(13000, 8, 21)
	s.Rollover(day.Format(DateLayout))

	first, due := s.DueAt(hourOf(day, 9))
	require.True(t, due)

	// No Advance: a failed submission must leave the same increment due.
	second, due := s.DueAt(hourOf(day, 9))
	require.True(t, due)
	assert.Equal(t, first, second)
}

func TestScheduleRolloverResetsOnceAndIsIdempotent(t *testing.T) {
	t.Parallel()

	s := activeSchedule(8000, 8, 21)
	s.CumulativeSteps = 5000
	s.CompletedSlotIndex = 7
	s.LastRunDate = "2026-03-13"

	require.True(t, s.Rollover("2026-03-14"))
	assert.Equal(t, 0, s.CumulativeSteps)
	assert.Equal(t, 0, s.CompletedSlotIndex)
	assert.Equal(t, "2026-03-14", s.LastRunDate)

	assert.False(t, s.Rollover("2026-03-14"))
}

func TestScheduleDueAtRespectsStatusAndCompletion(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	paused := activeSchedule(8000, 8, 21)
	paused.Status = SchedulePaused
	_, due := paused.DueAt(hourOf(day, 10))
	assert.False(t, due)

	done := activeSchedule(8000, 8, 21)
	done.Rollover(day.Format(DateLayout))
	done.CompletedSlotIndex = 3
	done.CumulativeSteps = PlannedCumulative(8000, 13, 2)
	_, due = done.DueAt(hourOf(day, 9))
	assert.False(t, due, "already-completed slot must not be due again")
}

func TestScheduleValidate(t *testing.T) {
	t.Parallel()

	valid := activeSchedule(8000, 8, 21)
	require.NoError(t, valid.Validate())

	tooMany := activeSchedule(MaxSteps+1, 8, 21)
	assert.Error(t, tooMany.Validate())

	inverted := activeSchedule(8000, 21, 8)
	assert.Error(t, inverted.Validate())

	badStatus := activeSchedule(8000, 8, 21)
	badStatus.Status = "done"
	assert.Error(t, badStatus.Validate())
}
