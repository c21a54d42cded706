package domain

import (
	"fmt"
	"strings"
)

type IdentityKind string

const (
	IdentityPhone IdentityKind = "phone"
	IdentityEmail IdentityKind = "email"
)

// Identity is a login identity for the remote service: either an email
// address or a phone number carrying the +86 country prefix.
type Identity struct {
	Value string
	Kind  IdentityKind
}

// NormalizeIdentity classifies a raw identity string. Bare digit strings are
// treated as local phone numbers and get the +86 prefix the remote service
// expects.
func NormalizeIdentity(raw string) (Identity, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Identity{}, fmt.Errorf("identity is required")
	}

	if strings.Contains(trimmed, "@") {
		return Identity{Value: trimmed, Kind: IdentityEmail}, nil
	}

	if !strings.HasPrefix(trimmed, "+86") {
		trimmed = "+86" + trimmed
	}

	return Identity{Value: trimmed, Kind: IdentityPhone}, nil
}

func (i Identity) IsPhone() bool {
	return i.Kind == IdentityPhone
}

// Masked renders the identity safe for logs and terminal output.
func (i Identity) Masked() string {
	v := i.Value
	if at := strings.Index(v, "@"); at > 0 {
		head := v[:min(2, at)]
		return head + "***" + v[at:]
	}
	if len(v) > 7 {
		return v[:3] + "***" + v[len(v)-4:]
	}
	return "***"
}
