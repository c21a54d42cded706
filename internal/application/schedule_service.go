package application

import (
	"context"
	"fmt"

	"github.com/bnema/zepp-steps-cli/internal/domain"
	"github.com/bnema/zepp-steps-cli/internal/ports"
)

// ScheduleService manages each account's single live schedule.
type ScheduleService struct {
	schedules ports.ScheduleRepository
	accounts  ports.AccountRepository
	clock     ports.Clock
}

func NewScheduleService(schedules ports.ScheduleRepository, accounts ports.AccountRepository, clock ports.Clock) *ScheduleService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &ScheduleService{
		schedules: schedules,
		accounts:  accounts,
		clock:     clock,
	}
}

// Create starts a fresh schedule for the account, replacing any live one.
// Zero hours fall back to the default delivery window.
func (s *ScheduleService) Create(ctx context.Context, cmd CreateScheduleCommand) (domain.Schedule, error) {
	if _, err := s.accounts.GetByID(ctx, cmd.AccountID); err != nil {
		return domain.Schedule{}, fmt.Errorf("get account by id: %w", err)
	}

	startHour, endHour := cmd.StartHour, cmd.EndHour
	if startHour == 0 && endHour == 0 {
		startHour, endHour = domain.DefaultStartHour, domain.DefaultEndHour
	}

	schedule := domain.Schedule{
		AccountID:   cmd.AccountID,
		TargetSteps: cmd.TargetSteps,
		StartHour:   startHour,
		EndHour:     endHour,
		Status:      domain.ScheduleActive,
		UpdatedAt:   s.clock.Now(),
	}
	if err := schedule.Validate(); err != nil {
		return domain.Schedule{}, err
	}

	if err := s.schedules.Save(ctx, schedule); err != nil {
		return domain.Schedule{}, fmt.Errorf("save schedule: %w", err)
	}

	return schedule, nil
}

// SetTarget changes the daily target of the live schedule. Progress already
// made today is kept; pacing recomputes against the new target on the next
// tick.
func (s *ScheduleService) SetTarget(ctx context.Context, id domain.AccountID, targetSteps int) (domain.Schedule, error) {
	schedule, err := s.schedules.GetByAccountID(ctx, id)
	if err != nil {
		return domain.Schedule{}, err
	}

	schedule.TargetSteps = targetSteps
	schedule.UpdatedAt = s.clock.Now()
	if err := schedule.Validate(); err != nil {
		return domain.Schedule{}, err
	}

	if err := s.schedules.Save(ctx, schedule); err != nil {
		return domain.Schedule{}, fmt.Errorf("save schedule: %w", err)
	}

	return schedule, nil
}

func (s *ScheduleService) Pause(ctx context.Context, id domain.AccountID) error {
	return s.setStatus(ctx, id, domain.SchedulePaused)
}

func (s *ScheduleService) Resume(ctx context.Context, id domain.AccountID) error {
	return s.setStatus(ctx, id, domain.ScheduleActive)
}

// Cancel retires the live schedule. A cancelled schedule never runs again; a
// new one must be created in its place.
func (s *ScheduleService) Cancel(ctx context.Context, id domain.AccountID) error {
	return s.setStatus(ctx, id, domain.ScheduleCancelled)
}

func (s *ScheduleService) setStatus(ctx context.Context, id domain.AccountID, status domain.ScheduleStatus) error {
	schedule, err := s.schedules.GetByAccountID(ctx, id)
	if err != nil {
		return err
	}
	if schedule.Status == status {
		return nil
	}

	schedule.Status = status
	schedule.UpdatedAt = s.clock.Now()

	if err := s.schedules.Save(ctx, schedule); err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}

	return nil
}

func (s *ScheduleService) Get(ctx context.Context, id domain.AccountID) (domain.Schedule, error) {
	return s.schedules.GetByAccountID(ctx, id)
}

func (s *ScheduleService) ListActive(ctx context.Context) ([]domain.Schedule, error) {
	return s.schedules.ListActive(ctx)
}
