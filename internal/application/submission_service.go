package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bnema/zepp-steps-cli/internal/domain"
	"github.com/bnema/zepp-steps-cli/internal/log"
	"github.com/bnema/zepp-steps-cli/internal/ports"
)

// SubmissionService runs the authenticated remote operations for an account:
// session upkeep, telemetry uploads and the binding flow.
type SubmissionService struct {
	accounts ports.AccountRepository
	secrets  ports.SecretStore
	remote   ports.RemoteClient
	clock    ports.Clock
	log      zerolog.Logger
}

func NewSubmissionService(accounts ports.AccountRepository, secrets ports.SecretStore, remote ports.RemoteClient, clock ports.Clock) *SubmissionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &SubmissionService{
		accounts: accounts,
		secrets:  secrets,
		remote:   remote,
		clock:    clock,
		log:      log.WithComponent("submission"),
	}
}

// EnsureSession makes sure the account carries usable session tokens,
// logging in when the cached ones are stale or missing. The refreshed state
// is persisted before returning.
func (s *SubmissionService) EnsureSession(ctx context.Context, account *domain.Account) error {
	if account.Session.Fresh(s.clock.Now()) {
		return nil
	}

	if account.Auth.SecretRef == "" {
		return fmt.Errorf("account %s has no stored credential", account.ID)
	}
	password, err := s.secrets.Get(ctx, account.Auth.SecretRef)
	if err != nil {
		return fmt.Errorf("load account password: %w", err)
	}

	session, err := s.remote.Login(ctx, account.Identity, password)
	if err != nil {
		return fmt.Errorf("login %s: %w", account.Identity.Masked(), err)
	}

	account.Session = session
	account.Remote.UserID = session.UserID
	account.Remote.DeviceID = session.DeviceID

	if err := s.accounts.Save(ctx, *account); err != nil {
		return fmt.Errorf("save refreshed session: %w", err)
	}

	return nil
}

// Submit uploads a step total for the account, re-authenticating once if the
// remote rejects the cached tokens. The outcome is recorded on the account
// either way.
func (s *SubmissionService) Submit(ctx context.Context, id domain.AccountID, steps int) (domain.Submission, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("get account by id: %w", err)
	}

	if err := s.EnsureSession(ctx, &account); err != nil {
		return domain.Submission{}, err
	}

	message, err := s.remote.SubmitSteps(ctx, account.Session, steps)
	if errors.Is(err, domain.ErrSessionExpired) {
		s.log.Warn().Str("account_id", string(id)).Msg("session rejected, re-authenticating")
		account.Session = nil
		if err = s.EnsureSession(ctx, &account); err != nil {
			return domain.Submission{}, err
		}
		message, err = s.remote.SubmitSteps(ctx, account.Session, steps)
	}

	submission := domain.Submission{
		Steps:   steps,
		Success: err == nil,
		Message: message,
		At:      s.clock.Now(),
	}
	if err != nil {
		submission.Message = err.Error()
	}

	account.LastSubmission = &submission
	if saveErr := s.accounts.Save(ctx, account); saveErr != nil {
		return submission, errors.Join(err, fmt.Errorf("save submission outcome: %w", saveErr))
	}

	if err != nil {
		return submission, fmt.Errorf("submit steps: %w", err)
	}
	return submission, nil
}

// BindTicket fetches a binding ticket for the account, logging in first when
// needed.
func (s *SubmissionService) BindTicket(ctx context.Context, id domain.AccountID) (string, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get account by id: %w", err)
	}

	if err := s.EnsureSession(ctx, &account); err != nil {
		return "", err
	}

	ticket, err := s.remote.GetBindTicket(ctx, account.Remote.UserID)
	if err != nil {
		return "", fmt.Errorf("get bind ticket: %w", err)
	}
	return ticket, nil
}

// RefreshBindStatus asks the remote whether the account completed binding
// and records the answer.
func (s *SubmissionService) RefreshBindStatus(ctx context.Context, id domain.AccountID) (bool, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get account by id: %w", err)
	}

	if account.Remote.UserID == "" {
		if err := s.EnsureSession(ctx, &account); err != nil {
			return false, err
		}
	}

	bound, err := s.remote.CheckBindStatus(ctx, account.Remote.UserID)
	if err != nil {
		return false, fmt.Errorf("check bind status: %w", err)
	}

	if bound != account.Remote.Bound {
		account.Remote.Bound = bound
		if err := s.accounts.Save(ctx, account); err != nil {
			return bound, fmt.Errorf("save bind status: %w", err)
		}
	}

	return bound, nil
}
