package domain

import "time"

// Challenge is an image puzzle gating sensitive remote operations. Key is the
// opaque identifier the remote service pairs with the solved code.
type Challenge struct {
	Kind      string
	Key       string
	Image     []byte
	Code      string
	FetchedAt time.Time
}

// Solved reports whether an automatic or manual solution has been attached.
func (c Challenge) Solved() bool {
	return c.Code != ""
}
