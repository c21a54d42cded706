package ports

import (
	"context"

	"github.com/bnema/zepp-steps-cli/internal/domain"
)

// ScheduleRepository persists pacing state. Each account holds at most one
// live (active or paused) schedule; GetByAccountID returns that one.
type ScheduleRepository interface {
	GetByAccountID(ctx context.Context, id domain.AccountID) (domain.Schedule, error)
	ListActive(ctx context.Context) ([]domain.Schedule, error)
	Save(ctx context.Context, schedule domain.Schedule) error
}
