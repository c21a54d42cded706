package application

import "github.com/bnema/zepp-steps-cli/internal/domain"

type AddAccountCommand struct {
	Name     string
	Identity string
	Password string
}

// RegisterAccountCommand creates a brand-new remote account, then stores it
// locally. The challenge fields come from a previously resolved image
// challenge.
type RegisterAccountCommand struct {
	Name          string
	Identity      string
	Password      string
	ChallengeKey  string
	ChallengeCode string
}

type CreateScheduleCommand struct {
	AccountID   domain.AccountID
	TargetSteps int
	StartHour   int
	EndHour     int
}
