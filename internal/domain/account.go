package domain

import "time"

type AccountID string

type Account struct {
	ID             AccountID
	Name           string
	Identity       Identity
	Auth           Auth
	Remote         RemoteAccount
	Session        *Session
	LastSubmission *Submission
}

// Auth points at the secret-store entry holding the remote-service password.
type Auth struct {
	SecretRef string
}

// RemoteAccount captures what the remote service knows about this account.
type RemoteAccount struct {
	UserID       string
	DeviceID     string
	Bound        bool
	RegisteredAt time.Time
}

// Submission is the recorded outcome of the most recent telemetry upload.
type Submission struct {
	Steps   int
	Success bool
	Message string
	At      time.Time
}
