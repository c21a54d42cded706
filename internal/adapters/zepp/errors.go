package zepp

import (
	"fmt"

	"github.com/bnema/zepp-steps-cli/internal/domain"
)

// ErrAuthExpired signals that the remote rejected the session tokens. Callers
// re-login once and retry before surfacing a failure.
var ErrAuthExpired = domain.ErrSessionExpired

// ProtocolError is an unexpected response from the remote service: wrong
// status, missing field, or an explicit failure payload.
type ProtocolError struct {
	Step    string
	Status  int
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("zepp: %s failed with status %d", e.Step, e.Status)
	}
	return fmt.Sprintf("zepp: %s failed with status %d: %s", e.Step, e.Status, e.Message)
}
