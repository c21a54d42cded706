package domain

import (
	"fmt"
	"time"
)

type ScheduleStatus string

const (
	ScheduleActive    ScheduleStatus = "active"
	SchedulePaused    ScheduleStatus = "paused"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// DateLayout is the calendar-day key used for rollover detection.
const DateLayout = "2006-01-02"

const (
	DefaultStartHour = 8
	DefaultEndHour   = 21
)

// Schedule is the pacing state for one account: a daily step target spread
// over the [StartHour, EndHour) window in hourly slots.
//
// Invariants: CumulativeSteps is monotonically non-decreasing within a
// calendar day and resets to 0 on the first tick observing a new date;
// CompletedSlotIndex likewise resets on rollover and otherwise only advances,
// one slot per successful submission.
type Schedule struct {
	AccountID          AccountID
	TargetSteps        int
	StartHour          int
	EndHour            int
	Status             ScheduleStatus
	CumulativeSteps    int
	CompletedSlotIndex int
	LastRunDate        string
	LastRunAt          time.Time
	UpdatedAt          time.Time
}

func (s Schedule) Validate() error {
	if s.AccountID == "" {
		return fmt.Errorf("account id is required")
	}
	if !ValidSteps(s.TargetSteps) {
		return fmt.Errorf("target steps must be between %d and %d", MinSteps, MaxSteps)
	}
	if s.StartHour < 0 || s.StartHour > 23 {
		return fmt.Errorf("start hour must be between 0 and 23")
	}
	if s.EndHour < 1 || s.EndHour > 24 {
		return fmt.Errorf("end hour must be between 1 and 24")
	}
	if s.Hours() < 1 {
		return fmt.Errorf("end hour must be after start hour")
	}
	switch s.Status {
	case ScheduleActive, SchedulePaused, ScheduleCancelled:
	default:
		return fmt.Errorf("unsupported schedule status %q", s.Status)
	}
	return nil
}

// Hours is the number of hourly slots in the delivery window.
func (s Schedule) Hours() int {
	return s.EndHour - s.StartHour
}

// Live reports whether the schedule still occupies the account's single
// schedule slot (cancelled ones do not).
func (s Schedule) Live() bool {
	return s.Status == ScheduleActive || s.Status == SchedulePaused
}

// ResetProgress clears the intra-day delivery state.
func (s *Schedule) ResetProgress() {
	s.CumulativeSteps = 0
	s.CompletedSlotIndex = 0
	s.LastRunDate = ""
}

// Rollover resets progress when the stored run date differs from today.
// Returns true when a reset happened; repeated calls on the same date are
// no-ops.
func (s *Schedule) Rollover(today string) bool {
	if s.LastRunDate == today {
		return false
	}
	s.CumulativeSteps = 0
	s.CompletedSlotIndex = 0
	s.LastRunDate = today
	return true
}
