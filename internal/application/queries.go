package application

import "github.com/bnema/zepp-steps-cli/internal/domain"

// Status is the composed view of one account: its stored state, its live
// schedule if any, and whether the cached session is still usable.
type Status struct {
	Account      domain.Account
	Schedule     *domain.Schedule
	SessionFresh bool
}
