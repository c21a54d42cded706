package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/zepp-steps-cli/internal/domain"
	"github.com/bnema/zepp-steps-cli/internal/ports"
)

const (
	schedulesPathKey    = "schedules.path"
	schedulesConfigFile = "schedules.toml"
)

// ScheduleRepository persists pacing state next to the accounts file. The
// one-live-schedule-per-account rule is enforced here: saving a live schedule
// replaces the account's previous live entry, cancelled history is kept.
type ScheduleRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.ScheduleRepository = (*ScheduleRepository)(nil)

func NewScheduleRepository(cfg *viper.Viper) (*ScheduleRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	path := cfg.GetString(schedulesPathKey)
	if path == "" {
		path = filepath.Join(homeDir, appConfigDir, schedulesConfigFile)
	}

	path, err = normalizeStorePath(path)
	if err != nil {
		return nil, err
	}

	return &ScheduleRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule domain.Schedule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := schedule.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	encoded := toScheduleSchema(schedule)
	updated := false
	for i := range file.Schedules {
		entry := file.Schedules[i]
		if entry.AccountID != encoded.AccountID {
			continue
		}
		// Replace the account's live entry; cancelled rows stay as history
		// unless this save is itself the cancellation of that row.
		if domain.ScheduleStatus(entry.Status) == domain.ScheduleCancelled && schedule.Live() {
			continue
		}
		file.Schedules[i] = encoded
		updated = true
		break
	}

	if !updated {
		file.Schedules = append(file.Schedules, encoded)
	}

	return writeTOMLFile(r.path, file)
}

// GetByAccountID returns the account's live schedule.
func (r *ScheduleRepository) GetByAccountID(ctx context.Context, id domain.AccountID) (domain.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return domain.Schedule{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Schedule{}, err
	}

	for _, entry := range file.Schedules {
		decoded := fromScheduleSchema(entry)
		if decoded.AccountID == id && decoded.Live() {
			return decoded, nil
		}
	}

	return domain.Schedule{}, domain.ErrScheduleNotFound
}

func (r *ScheduleRepository) ListActive(ctx context.Context) ([]domain.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	schedules := make([]domain.Schedule, 0, len(file.Schedules))
	for _, entry := range file.Schedules {
		decoded := fromScheduleSchema(entry)
		if decoded.Status == domain.ScheduleActive {
			schedules = append(schedules, decoded)
		}
	}

	return schedules, nil
}

func (r *ScheduleRepository) readSchema() (schedulesFileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return schedulesFileSchema{}, nil
		}
		return schedulesFileSchema{}, fmt.Errorf("read schedules file: %w", err)
	}

	var file schedulesFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return schedulesFileSchema{}, fmt.Errorf("decode schedules file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return schedulesFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func toScheduleSchema(schedule domain.Schedule) scheduleSchema {
	return scheduleSchema{
		AccountID:          string(schedule.AccountID),
		TargetSteps:        schedule.TargetSteps,
		StartHour:          schedule.StartHour,
		EndHour:            schedule.EndHour,
		Status:             string(schedule.Status),
		CumulativeSteps:    schedule.CumulativeSteps,
		CompletedSlotIndex: schedule.CompletedSlotIndex,
		LastRunDate:        schedule.LastRunDate,
		LastRunAt:          formatTime(schedule.LastRunAt),
		UpdatedAt:          formatTime(schedule.UpdatedAt),
	}
}

func fromScheduleSchema(entry scheduleSchema) domain.Schedule {
	return domain.Schedule{
		AccountID:          domain.AccountID(entry.AccountID),
		TargetSteps:        entry.TargetSteps,
		StartHour:          entry.StartHour,
		EndHour:            entry.EndHour,
		Status:             domain.ScheduleStatus(entry.Status),
		CumulativeSteps:    entry.CumulativeSteps,
		CompletedSlotIndex: entry.CompletedSlotIndex,
		LastRunDate:        entry.LastRunDate,
		LastRunAt:          parseTime(entry.LastRunAt),
		UpdatedAt:          parseTime(entry.UpdatedAt),
	}
}
