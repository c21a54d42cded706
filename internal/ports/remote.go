package ports

import (
	"context"

	"github.com/bnema/zepp-steps-cli/internal/domain"
)

// RemoteClient is the surface of the remote service the application layer
// depends on. SubmitSteps returns domain.ErrSessionExpired when the tokens
// are rejected so callers can re-login and retry.
type RemoteClient interface {
	Login(ctx context.Context, identity domain.Identity, password string) (*domain.Session, error)
	SubmitSteps(ctx context.Context, session *domain.Session, steps int) (string, error)
	RegisterAccount(ctx context.Context, identity domain.Identity, password, name, challengeKey, challengeCode string) (string, error)
	GetBindTicket(ctx context.Context, userID string) (string, error)
	CheckBindStatus(ctx context.Context, userID string) (bool, error)
}
