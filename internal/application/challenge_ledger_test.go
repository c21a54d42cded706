package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/zepp-steps-cli/internal/domain"
)

func TestChallengeLedgerPutAndGet(t *testing.T) {
	t.Parallel()

	clock := newFixedClock(time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))
	ledger := NewChallengeLedger(clock)

	ledger.Put(domain.Challenge{Kind: "registrations", Key: "k1", FetchedAt: clock.Now()})

	challenge, ok := ledger.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "registrations", challenge.Kind)

	// Get does not consume.
	_, ok = ledger.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, 1, ledger.Len())
}

func TestChallengeLedgerTakeIsSingleUse(t *testing.T) {
	t.Parallel()

	clock := newFixedClock(time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))
	ledger := NewChallengeLedger(clock)
	ledger.Put(domain.Challenge{Key: "k1", FetchedAt: clock.Now()})

	_, ok := ledger.Take("k1")
	require.True(t, ok)

	_, ok = ledger.Take("k1")
	assert.False(t, ok)
	assert.Zero(t, ledger.Len())
}

func TestChallengeLedgerEvictsExpired(t *testing.T) {
	t.Parallel()

	clock := newFixedClock(time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))
	ledger := NewChallengeLedger(clock)
	ledger.Put(domain.Challenge{Key: "old", FetchedAt: clock.Now()})

	clock.Advance(challengeTTL - time.Minute)
	ledger.Put(domain.Challenge{Key: "recent", FetchedAt: clock.Now()})

	clock.Advance(2 * time.Minute)

	_, ok := ledger.Get("old")
	assert.False(t, ok)
	_, ok = ledger.Get("recent")
	assert.True(t, ok)
	assert.Equal(t, 1, ledger.Len())
}

func TestChallengeLedgerMissingKey(t *testing.T) {
	t.Parallel()

	ledger := NewChallengeLedger(newFixedClock(time.Now()))

	_, ok := ledger.Get("nope")
	assert.False(t, ok)
	_, ok = ledger.Take("nope")
	assert.False(t, ok)
}
