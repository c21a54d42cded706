package application

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/zepp-steps-cli/internal/domain"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock {
	return &fixedClock{now: now}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type inMemoryAccounts struct {
	mu       sync.Mutex
	accounts map[domain.AccountID]domain.Account
	saveErr  error
	saves    int
}

func newInMemoryAccounts() *inMemoryAccounts {
	return &inMemoryAccounts{accounts: map[domain.AccountID]domain.Account{}}
}

func (r *inMemoryAccounts) GetByID(_ context.Context, id domain.AccountID) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

func (r *inMemoryAccounts) List(context.Context) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		list = append(list, account)
	}
	return list, nil
}

func (r *inMemoryAccounts) Save(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.accounts[account.ID] = account
	return nil
}

type inMemorySchedules struct {
	mu        sync.Mutex
	schedules map[domain.AccountID]domain.Schedule
}

func newInMemorySchedules() *inMemorySchedules {
	return &inMemorySchedules{schedules: map[domain.AccountID]domain.Schedule{}}
}

func (r *inMemorySchedules) GetByAccountID(_ context.Context, id domain.AccountID) (domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	schedule, ok := r.schedules[id]
	if !ok || !schedule.Live() {
		return domain.Schedule{}, domain.ErrScheduleNotFound
	}
	return schedule, nil
}

func (r *inMemorySchedules) ListActive(context.Context) ([]domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]domain.Schedule, 0, len(r.schedules))
	for _, schedule := range r.schedules {
		if schedule.Status == domain.ScheduleActive {
			list = append(list, schedule)
		}
	}
	return list, nil
}

func (r *inMemorySchedules) Save(_ context.Context, schedule domain.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[schedule.AccountID] = schedule
	return nil
}

type inMemorySecrets struct {
	mu        sync.Mutex
	values    map[string]string
	putErr    error
	deleteErr error
	deletes   []string
}

func newInMemorySecrets() *inMemorySecrets {
	return &inMemorySecrets{values: map[string]string{}}
}

func (s *inMemorySecrets) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", domain.ErrSecretNotFound
	}
	return value, nil
}

func (s *inMemorySecrets) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.values[key] = value
	return nil
}

func (s *inMemorySecrets) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.values, key)
	return nil
}

type fakeRemote struct {
	mu sync.Mutex

	logins      int
	loginErr    error
	session     *domain.Session
	submissions []int
	submitErrs  []error
	submitMsg   string
	registered  []string
	registerErr error
	ticket      string
	bound       bool
}

func (f *fakeRemote) Login(_ context.Context, identity domain.Identity, _ string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if f.session != nil {
		session := *f.session
		return &session, nil
	}
	return &domain.Session{
		DeviceID:   "dev-1",
		UserID:     "user-1",
		LoginToken: "lt",
		AppToken:   "at",
		ObtainedAt: time.Now(),
	}, nil
}

func (f *fakeRemote) SubmitSteps(_ context.Context, _ *domain.Session, steps int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, steps)
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		if err != nil {
			return "", err
		}
	}
	if f.submitMsg != "" {
		return f.submitMsg, nil
	}
	return "ok", nil
}

func (f *fakeRemote) RegisterAccount(_ context.Context, identity domain.Identity, _, _, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return "", f.registerErr
	}
	f.registered = append(f.registered, identity.Value)
	return "access-code", nil
}

func (f *fakeRemote) GetBindTicket(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticket, nil
}

func (f *fakeRemote) CheckBindStatus(context.Context, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bound, nil
}
