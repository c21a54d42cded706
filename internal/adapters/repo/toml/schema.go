package toml

import "fmt"

const currentSchemaVersion = 1

type accountsFileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *accountsFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s accountsFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID             string            `toml:"id"`
	Name           string            `toml:"name"`
	Identity       identitySchema    `toml:"identity"`
	Auth           authSchema        `toml:"auth"`
	Remote         remoteSchema      `toml:"remote,omitempty"`
	Session        *sessionSchema    `toml:"session,omitempty"`
	LastSubmission *submissionSchema `toml:"last_submission,omitempty"`
}

type identitySchema struct {
	Value string `toml:"value"`
	Kind  string `toml:"kind"`
}

type authSchema struct {
	SecretRef string `toml:"secret_ref"`
}

type remoteSchema struct {
	UserID       string `toml:"user_id,omitempty"`
	DeviceID     string `toml:"device_id,omitempty"`
	Bound        bool   `toml:"bound,omitempty"`
	RegisteredAt string `toml:"registered_at,omitempty"`
}

type sessionSchema struct {
	DeviceID   string `toml:"device_id"`
	UserID     string `toml:"user_id"`
	LoginToken string `toml:"login_token"`
	AppToken   string `toml:"app_token"`
	ObtainedAt string `toml:"obtained_at"`
}

type submissionSchema struct {
	Steps   int    `toml:"steps"`
	Success bool   `toml:"success"`
	Message string `toml:"message,omitempty"`
	At      string `toml:"at"`
}

type schedulesFileSchema struct {
	Version   int              `toml:"version"`
	Schedules []scheduleSchema `toml:"schedules"`
}

func (s *schedulesFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s schedulesFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported schedules schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type scheduleSchema struct {
	AccountID          string `toml:"account_id"`
	TargetSteps        int    `toml:"target_steps"`
	StartHour          int    `toml:"start_hour"`
	EndHour            int    `toml:"end_hour"`
	Status             string `toml:"status"`
	CumulativeSteps    int    `toml:"cumulative_steps"`
	CompletedSlotIndex int    `toml:"completed_slot_index"`
	LastRunDate        string `toml:"last_run_date,omitempty"`
	LastRunAt          string `toml:"last_run_at,omitempty"`
	UpdatedAt          string `toml:"updated_at,omitempty"`
}
