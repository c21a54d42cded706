package pacer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/zepp-steps-cli/internal/domain"
	"github.com/bnema/zepp-steps-cli/internal/log"
	"github.com/bnema/zepp-steps-cli/internal/ports"
)

// DefaultInterval is how often the loop re-evaluates active schedules.
const DefaultInterval = time.Minute

// Submitter uploads a step count for an account.
type Submitter interface {
	Submit(ctx context.Context, id domain.AccountID, steps int) (domain.Submission, error)
}

// Pacer drives the hourly delivery loop: on every tick it walks the active
// schedules and submits the increments that have come due. Schedules are
// processed sequentially; run a single Pacer per store, the schedule files
// are not partitioned for concurrent writers.
type Pacer struct {
	schedules ports.ScheduleRepository
	submitter Submitter
	clock     ports.Clock
	interval  time.Duration
	log       zerolog.Logger
}

func New(schedules ports.ScheduleRepository, submitter Submitter, clock ports.Clock, interval time.Duration) *Pacer {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Pacer{
		schedules: schedules,
		submitter: submitter,
		clock:     clock,
		interval:  interval,
		log:       log.WithComponent("pacer"),
	}
}

// Run ticks immediately, then on every interval until the context is
// cancelled. Cancellation is only honoured between ticks.
func (p *Pacer) Run(ctx context.Context) error {
	p.log.Info().
		Str("event", "pacer.start").
		Dur("interval", p.interval).
		Msg("pacing loop started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Str("event", "pacer.stop").Msg("pacing loop stopped")
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Pacer) tick(ctx context.Context) {
	schedules, err := p.schedules.ListActive(ctx)
	if err != nil {
		p.log.Error().Err(err).Str("event", "pacer.list_failed").Msg("cannot list active schedules")
		return
	}

	now := p.clock.Now()
	for _, schedule := range schedules {
		p.process(ctx, schedule, now)
	}
}

func (p *Pacer) process(ctx context.Context, schedule domain.Schedule, now time.Time) {
	logger := p.log.With().Str("account_id", string(schedule.AccountID)).Logger()

	if schedule.Rollover(now.Format(domain.DateLayout)) {
		logger.Debug().Str("event", "pacer.rollover").Str("date", schedule.LastRunDate).Msg("daily progress reset")
		if err := p.schedules.Save(ctx, schedule); err != nil {
			logger.Error().Err(err).Str("event", "pacer.save_failed").Msg("cannot persist rollover")
			return
		}
	}

	slot, due := schedule.DueAt(now)
	if !due {
		return
	}

	submission, err := p.submitter.Submit(ctx, schedule.AccountID, slot.Increment)
	if err != nil {
		// State stays put so the slot is retried on the next tick.
		logger.Warn().Err(err).
			Str("event", "pacer.submit_failed").
			Int("slot", slot.Index).
			Int("increment", slot.Increment).
			Msg("slot submission failed")
		return
	}

	schedule.Advance(slot, now)
	schedule.UpdatedAt = now
	if err := p.schedules.Save(ctx, schedule); err != nil {
		logger.Error().Err(err).Str("event", "pacer.save_failed").Msg("cannot persist slot progress")
		return
	}

	logger.Info().
		Str("event", "pacer.submitted").
		Int("slot", slot.Index).
		Int("steps", submission.Steps).
		Int("planned", slot.Planned).
		Msg("slot submitted")
}
