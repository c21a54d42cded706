package domain

import "time"

// SessionMaxAge is how long the remote service is assumed to honour issued
// tokens. Expiry is also detected reactively on the first failed
// authenticated call, so this is an optimisation bound, not a guarantee.
const SessionMaxAge = 24 * time.Hour

// Session is the authenticated context for one remote account: the device
// fingerprint the tokens were issued against plus the token pair itself.
type Session struct {
	DeviceID   string
	UserID     string
	LoginToken string
	AppToken   string
	ObtainedAt time.Time
}

// Fresh reports whether the session is still within its assumed validity
// window and carries both tokens.
func (s *Session) Fresh(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.LoginToken == "" || s.AppToken == "" {
		return false
	}
	if s.ObtainedAt.IsZero() {
		return false
	}
	return now.Sub(s.ObtainedAt) < SessionMaxAge
}
