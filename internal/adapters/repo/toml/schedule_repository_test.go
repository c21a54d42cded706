package toml

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/zepp-steps-cli/internal/domain"
)

func newTestScheduleRepository(t *testing.T) *ScheduleRepository {
	t.Helper()

	cfg := viper.New()
	cfg.Set(schedulesPathKey, filepath.Join(t.TempDir(), "schedules.toml"))

	repo, err := NewScheduleRepository(cfg)
	require.NoError(t, err)
	return repo
}

func sampleSchedule(id string) domain.Schedule {
	return domain.Schedule{
		AccountID:   domain.AccountID(id),
		TargetSteps: 20000,
		StartHour:   domain.DefaultStartHour,
		EndHour:     domain.DefaultEndHour,
		Status:      domain.ScheduleActive,
	}
}

func TestScheduleRepositorySaveAndGet(t *testing.T) {
	t.Parallel()

	repo := newTestScheduleRepository(t)
	ctx := context.Background()

	schedule := sampleSchedule("acc-1")
	schedule.CumulativeSteps = 4617
	schedule.CompletedSlotIndex = 3
	schedule.LastRunDate = "2026-08-29"
	schedule.LastRunAt = time.Now().Truncate(time.Second)

	require.NoError(t, repo.Save(ctx, schedule))

	got, err := repo.GetByAccountID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 20000, got.TargetSteps)
	assert.Equal(t, 4617, got.CumulativeSteps)
	assert.Equal(t, 3, got.CompletedSlotIndex)
	assert.Equal(t, "2026-08-29", got.LastRunDate)
	assert.True(t, schedule.LastRunAt.Equal(got.LastRunAt))
}

func TestScheduleRepositoryOneLiveSchedulePerAccount(t *testing.T) {
	t.Parallel()

	repo := newTestScheduleRepository(t)
	ctx := context.Background()

	first := sampleSchedule("acc-1")
	require.NoError(t, repo.Save(ctx, first))

	second := sampleSchedule("acc-1")
	second.TargetSteps = 30000
	require.NoError(t, repo.Save(ctx, second))

	got, err := repo.GetByAccountID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 30000, got.TargetSteps)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestScheduleRepositoryCancelledKeptAsHistory(t *testing.T) {
	t.Parallel()

	repo := newTestScheduleRepository(t)
	ctx := context.Background()

	schedule := sampleSchedule("acc-1")
	require.NoError(t, repo.Save(ctx, schedule))

	schedule.Status = domain.ScheduleCancelled
	require.NoError(t, repo.Save(ctx, schedule))

	// No live schedule remains.
	_, err := repo.GetByAccountID(ctx, "acc-1")
	require.ErrorIs(t, err, domain.ErrScheduleNotFound)

	// A fresh schedule starts a new live entry without disturbing history.
	replacement := sampleSchedule("acc-1")
	replacement.TargetSteps = 15000
	require.NoError(t, repo.Save(ctx, replacement))

	got, err := repo.GetByAccountID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 15000, got.TargetSteps)
}

func TestScheduleRepositoryPausedExcludedFromActive(t *testing.T) {
	t.Parallel()

	repo := newTestScheduleRepository(t)
	ctx := context.Background()

	paused := sampleSchedule("acc-1")
	paused.Status = domain.SchedulePaused
	require.NoError(t, repo.Save(ctx, paused))

	running := sampleSchedule("acc-2")
	require.NoError(t, repo.Save(ctx, running))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.AccountID("acc-2"), active[0].AccountID)

	// Paused schedules are still reachable directly.
	got, err := repo.GetByAccountID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SchedulePaused, got.Status)
}

func TestScheduleRepositorySaveValidates(t *testing.T) {
	t.Parallel()

	repo := newTestScheduleRepository(t)

	bad := sampleSchedule("acc-1")
	bad.TargetSteps = 0
	require.Error(t, repo.Save(context.Background(), bad))
}
