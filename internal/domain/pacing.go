package domain

import "time"

// PlannedCumulative is the step total a schedule should have reached by the
// end of slot idx (0-based). Every slot carries floor(target/hours); the
// final slot absorbs the integer-division remainder so the day lands on the
// target exactly. The exact-target snap is part of the delivery-curve shape
// the remote service sees and must not be "fixed".
func PlannedCumulative(target, hours, idx int) int {
	if idx >= hours-1 {
		return target
	}
	perHour := target / hours
	return (idx + 1) * perHour
}

// DueSlot describes a pending submission for the current hour.
type DueSlot struct {
	Index     int
	Planned   int
	Increment int
}

// DueAt decides whether a submission is owed at the given time. The caller
// must apply Rollover first; DueAt only inspects intra-day state. A slot is
// due when the current hour falls inside the window, the slot has not been
// completed, and the planned cumulative exceeds what was delivered so far. A
// failed slot therefore stays due until it succeeds or the next hour's larger
// increment subsumes it.
func (s Schedule) DueAt(now time.Time) (DueSlot, bool) {
	if s.Status != ScheduleActive {
		return DueSlot{}, false
	}

	hour := now.Hour()
	if hour < s.StartHour || hour >= s.EndHour {
		return DueSlot{}, false
	}

	idx := hour - s.StartHour
	if s.CompletedSlotIndex > idx {
		return DueSlot{}, false
	}

	planned := PlannedCumulative(s.TargetSteps, s.Hours(), idx)
	if planned <= s.CumulativeSteps {
		return DueSlot{}, false
	}

	return DueSlot{
		Index:     idx,
		Planned:   planned,
		Increment: planned - s.CumulativeSteps,
	}, true
}

// Advance records a successful submission for the slot: cumulative snaps to
// the planned total and the slot is marked complete.
func (s *Schedule) Advance(slot DueSlot, now time.Time) {
	s.CumulativeSteps = slot.Planned
	s.CompletedSlotIndex = slot.Index + 1
	s.LastRunAt = now
	s.LastRunDate = now.Format(DateLayout)
}
