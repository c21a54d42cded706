package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bnema/zepp-steps-cli/internal/domain"
	"github.com/bnema/zepp-steps-cli/internal/ports"
)

// AccountService owns local account state: the accounts file plus the secret
// store entry holding each account's remote password.
type AccountService struct {
	repo      ports.AccountRepository
	store     ports.SecretStore
	schedules ports.ScheduleRepository
	remote    ports.RemoteClient
	clock     ports.Clock
}

func NewAccountService(repo ports.AccountRepository, store ports.SecretStore, schedules ports.ScheduleRepository, remote ports.RemoteClient, clock ports.Clock) *AccountService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &AccountService{
		repo:      repo,
		store:     store,
		schedules: schedules,
		remote:    remote,
		clock:     clock,
	}
}

func secretRefFor(id domain.AccountID) string {
	return fmt.Sprintf("zepp/accounts/%s/password", id)
}

// Add stores an existing remote account locally. The password lands in the
// secret store first; a failed account save rolls the secret back out so the
// two stores never disagree.
func (s *AccountService) Add(ctx context.Context, cmd AddAccountCommand) (domain.Account, error) {
	identity, err := domain.NormalizeIdentity(cmd.Identity)
	if err != nil {
		return domain.Account{}, err
	}
	if cmd.Password == "" {
		return domain.Account{}, errors.New("password is required")
	}

	id := domain.AccountID(uuid.NewString())
	secretRef := secretRefFor(id)

	if err := s.store.Put(ctx, secretRef, cmd.Password); err != nil {
		return domain.Account{}, fmt.Errorf("store account password: %w", err)
	}

	account := domain.Account{
		ID:       id,
		Name:     cmd.Name,
		Identity: identity,
		Auth:     domain.Auth{SecretRef: secretRef},
	}
	if account.Name == "" {
		account.Name = identity.Masked()
	}

	if err := s.repo.Save(ctx, account); err != nil {
		if rollbackErr := s.store.Delete(ctx, secretRef); rollbackErr != nil {
			return domain.Account{}, fmt.Errorf("save account and rollback stored password: %w", errors.Join(err, rollbackErr))
		}
		return domain.Account{}, fmt.Errorf("save account: %w", err)
	}

	return account, nil
}

// Register creates the account on the remote service first, then stores it
// locally like Add.
func (s *AccountService) Register(ctx context.Context, cmd RegisterAccountCommand) (domain.Account, error) {
	identity, err := domain.NormalizeIdentity(cmd.Identity)
	if err != nil {
		return domain.Account{}, err
	}
	if cmd.ChallengeKey == "" || cmd.ChallengeCode == "" {
		return domain.Account{}, errors.New("a solved challenge is required for registration")
	}

	name := cmd.Name
	if name == "" {
		name = identity.Masked()
	}

	if _, err := s.remote.RegisterAccount(ctx, identity, cmd.Password, name, cmd.ChallengeKey, cmd.ChallengeCode); err != nil {
		return domain.Account{}, fmt.Errorf("register remote account: %w", err)
	}

	account, err := s.Add(ctx, AddAccountCommand{
		Name:     name,
		Identity: identity.Value,
		Password: cmd.Password,
	})
	if err != nil {
		return domain.Account{}, err
	}

	account.Remote.RegisteredAt = s.clock.Now()
	if err := s.repo.Save(ctx, account); err != nil {
		return domain.Account{}, fmt.Errorf("save account registration time: %w", err)
	}

	return account, nil
}

// SetPassword rotates the stored password and drops any cached session. The
// new secret is written first; the old ref is removed only after the account
// points at the new one.
func (s *AccountService) SetPassword(ctx context.Context, id domain.AccountID, password string) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}
	originalAccount := account
	previousRef := account.Auth.SecretRef

	secretRef := secretRefFor(id)
	if err := s.store.Put(ctx, secretRef, password); err != nil {
		return fmt.Errorf("store account password: %w", err)
	}

	account.Auth.SecretRef = secretRef
	// A changed password invalidates any cached session.
	account.Session = nil

	if err := s.repo.Save(ctx, account); err != nil {
		if previousRef != secretRef {
			if rollbackErr := s.store.Delete(ctx, secretRef); rollbackErr != nil {
				return fmt.Errorf("save account password and rollback stored secret: %w", errors.Join(err, rollbackErr))
			}
		}
		return fmt.Errorf("save account password: %w", err)
	}

	if previousRef != "" && previousRef != secretRef {
		if err := s.store.Delete(ctx, previousRef); err != nil {
			restoreAccount := originalAccount
			var rollbackErr error
			if restoreErr := s.repo.Save(ctx, restoreAccount); restoreErr != nil {
				rollbackErr = errors.Join(rollbackErr, restoreErr)
			}
			if newSecretDeleteErr := s.store.Delete(ctx, secretRef); newSecretDeleteErr != nil {
				rollbackErr = errors.Join(rollbackErr, newSecretDeleteErr)
			}
			if rollbackErr != nil {
				return fmt.Errorf("delete previous password and rollback update: %w", errors.Join(err, rollbackErr))
			}
			return fmt.Errorf("delete previous password: %w", err)
		}
	}

	return nil
}

// Remove deletes the account's secret and clears its stored credential. The
// account entry itself stays for history; a failed secret delete restores
// the credential ref.
func (s *AccountService) Remove(ctx context.Context, id domain.AccountID) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}
	originalAccount := account

	secretRef := account.Auth.SecretRef

	account.Auth = domain.Auth{}
	account.Session = nil
	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}

	if secretRef == "" {
		return nil
	}

	if err := s.store.Delete(ctx, secretRef); err != nil {
		if restoreErr := s.repo.Save(ctx, originalAccount); restoreErr != nil {
			return fmt.Errorf("delete account password and restore credential ref: %w", errors.Join(err, restoreErr))
		}
		return fmt.Errorf("delete account password: %w", err)
	}

	return nil
}

func (s *AccountService) SetName(ctx context.Context, id domain.AccountID, name string) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	account.Name = name

	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account name: %w", err)
	}

	return nil
}

func (s *AccountService) Get(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	return s.repo.List(ctx)
}

func (s *AccountService) GetStatus(ctx context.Context, id domain.AccountID) (Status, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Status{}, fmt.Errorf("get account by id: %w", err)
	}

	return s.statusFromAccount(ctx, account), nil
}

func (s *AccountService) GetStatusAll(ctx context.Context) ([]Status, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	statuses := make([]Status, 0, len(accounts))
	for _, account := range accounts {
		statuses = append(statuses, s.statusFromAccount(ctx, account))
	}

	return statuses, nil
}

func (s *AccountService) statusFromAccount(ctx context.Context, account domain.Account) Status {
	status := Status{
		Account:      account,
		SessionFresh: account.Session.Fresh(s.clock.Now()),
	}

	if s.schedules != nil {
		if schedule, err := s.schedules.GetByAccountID(ctx, account.ID); err == nil {
			status.Schedule = &schedule
		}
	}

	return status
}
