package application

import (
	"sync"
	"time"

	"github.com/bnema/zepp-steps-cli/internal/domain"
	"github.com/bnema/zepp-steps-cli/internal/ports"
)

// challengeTTL is how long a fetched challenge stays redeemable. The remote
// expires its side too, so holding them longer only produces confusing
// rejections at submit time.
const challengeTTL = 15 * time.Minute

// ChallengeLedger holds fetched challenges between acquisition and use,
// keyed by the remote's challenge key. Expired entries are evicted lazily.
type ChallengeLedger struct {
	mu      sync.Mutex
	clock   ports.Clock
	entries map[string]domain.Challenge
}

func NewChallengeLedger(clock ports.Clock) *ChallengeLedger {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &ChallengeLedger{
		clock:   clock,
		entries: map[string]domain.Challenge{},
	}
}

func (l *ChallengeLedger) Put(challenge domain.Challenge) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictExpired()
	l.entries[challenge.Key] = challenge
}

// Get returns a live challenge without consuming it.
func (l *ChallengeLedger) Get(key string) (domain.Challenge, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictExpired()
	challenge, ok := l.entries[key]
	return challenge, ok
}

// Take removes and returns a live challenge. Challenges are single-use on
// the remote side, so redeeming one here removes it from the ledger.
func (l *ChallengeLedger) Take(key string) (domain.Challenge, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictExpired()
	challenge, ok := l.entries[key]
	if ok {
		delete(l.entries, key)
	}
	return challenge, ok
}

func (l *ChallengeLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictExpired()
	return len(l.entries)
}

func (l *ChallengeLedger) evictExpired() {
	cutoff := l.clock.Now().Add(-challengeTTL)
	for key, challenge := range l.entries {
		if challenge.FetchedAt.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
