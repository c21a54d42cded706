package domain

import "errors"

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrSecretNotFound   = errors.New("secret not found")

	// ErrSessionExpired marks a remote rejection of stored session tokens.
	// Holders re-authenticate once before giving up.
	ErrSessionExpired = errors.New("session expired")
)
