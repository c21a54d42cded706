package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/zepp-steps-cli/internal/domain"
)

func newSubmissionFixture(t *testing.T) (*SubmissionService, *inMemoryAccounts, *inMemorySecrets, *fakeRemote, *fixedClock) {
	t.Helper()

	accounts := newInMemoryAccounts()
	secrets := newInMemorySecrets()
	remote := &fakeRemote{}
	clock := newFixedClock(time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC))
	service := NewSubmissionService(accounts, secrets, remote, clock)
	return service, accounts, secrets, remote, clock
}

func seedAccount(t *testing.T, accounts *inMemoryAccounts, secrets *inMemorySecrets, session *domain.Session) domain.Account {
	t.Helper()

	account := domain.Account{
		ID:       "acc-1",
		Identity: domain.Identity{Value: "+8613800138000", Kind: domain.IdentityPhone},
		Auth:     domain.Auth{SecretRef: "zepp/accounts/acc-1/password"},
		Session:  session,
	}
	require.NoError(t, accounts.Save(context.Background(), account))
	require.NoError(t, secrets.Put(context.Background(), account.Auth.SecretRef, "pw"))
	return account
}

func TestSubmitReusesFreshSession(t *testing.T) {
	t.Parallel()

	service, accounts, secrets, remote, clock := newSubmissionFixture(t)
	seedAccount(t, accounts, secrets, &domain.Session{
		DeviceID: "dev-1", UserID: "user-1",
		LoginToken: "lt", AppToken: "at",
		ObtainedAt: clock.Now().Add(-time.Hour),
	})

	submission, err := service.Submit(context.Background(), "acc-1", 12000)
	require.NoError(t, err)

	assert.True(t, submission.Success)
	assert.Equal(t, 12000, submission.Steps)
	assert.Zero(t, remote.logins)
	assert.Equal(t, []int{12000}, remote.submissions)
}

func TestSubmitLogsInWhenSessionStale(t *testing.T) {
	t.Parallel()

	service, accounts, secrets, remote, clock := newSubmissionFixture(t)
	seedAccount(t, accounts, secrets, &domain.Session{
		LoginToken: "lt", AppToken: "at",
		ObtainedAt: clock.Now().Add(-domain.SessionMaxAge - time.Minute),
	})

	_, err := service.Submit(context.Background(), "acc-1", 500)
	require.NoError(t, err)
	assert.Equal(t, 1, remote.logins)

	// The refreshed session is persisted.
	saved, err := accounts.GetByID(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", saved.Remote.UserID)
	require.NotNil(t, saved.Session)
	assert.Equal(t, "at", saved.Session.AppToken)
}

func TestSubmitRetriesOnceOnExpiredSession(t *testing.T) {
	t.Parallel()

	service, accounts, secrets, remote, clock := newSubmissionFixture(t)
	seedAccount(t, accounts, secrets, &domain.Session{
		LoginToken: "lt", AppToken: "at",
		ObtainedAt: clock.Now().Add(-time.Hour),
	})
	remote.submitErrs = []error{domain.ErrSessionExpired, nil}

	submission, err := service.Submit(context.Background(), "acc-1", 7000)
	require.NoError(t, err)

	assert.True(t, submission.Success)
	assert.Equal(t, 1, remote.logins)
	assert.Equal(t, []int{7000, 7000}, remote.submissions)
}

func TestSubmitRecordsFailureOutcome(t *testing.T) {
	t.Parallel()

	service, accounts, secrets, remote, clock := newSubmissionFixture(t)
	seedAccount(t, accounts, secrets, &domain.Session{
		LoginToken: "lt", AppToken: "at",
		ObtainedAt: clock.Now().Add(-time.Hour),
	})
	remote.submitErrs = []error{errors.New("data invalid")}

	_, err := service.Submit(context.Background(), "acc-1", 100)
	require.Error(t, err)

	saved, getErr := accounts.GetByID(context.Background(), "acc-1")
	require.NoError(t, getErr)
	require.NotNil(t, saved.LastSubmission)
	assert.False(t, saved.LastSubmission.Success)
	assert.Contains(t, saved.LastSubmission.Message, "data invalid")
}

func TestSubmitFailsWithoutStoredCredential(t *testing.T) {
	t.Parallel()

	service, accounts, _, remote, _ := newSubmissionFixture(t)
	require.NoError(t, accounts.Save(context.Background(), domain.Account{ID: "acc-1"}))

	_, err := service.Submit(context.Background(), "acc-1", 100)
	require.Error(t, err)
	assert.Zero(t, remote.logins)
}

func TestBindTicketEnsuresSession(t *testing.T) {
	t.Parallel()

	service, accounts, secrets, remote, _ := newSubmissionFixture(t)
	seedAccount(t, accounts, secrets, nil)
	remote.ticket = "http://we.qq.com/d/abc"

	ticket, err := service.BindTicket(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "http://we.qq.com/d/abc", ticket)
	assert.Equal(t, 1, remote.logins)
}

func TestRefreshBindStatusPersistsChange(t *testing.T) {
	t.Parallel()

	service, accounts, secrets, remote, _ := newSubmissionFixture(t)
	account := seedAccount(t, accounts, secrets, nil)
	account.Remote.UserID = "user-1"
	require.NoError(t, accounts.Save(context.Background(), account))
	remote.bound = true

	bound, err := service.RefreshBindStatus(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.True(t, bound)
	assert.Zero(t, remote.logins)

	saved, err := accounts.GetByID(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.True(t, saved.Remote.Bound)
}
