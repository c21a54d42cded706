package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/zepp-steps-cli/internal/domain"
)

// resolveAccountID accepts an account ID, identity, or display name and
// resolves it to a stored account. Identity matching ignores the +86 prefix
// so bare phone numbers work.
func resolveAccountID(ctx context.Context, app *app, raw string) (domain.AccountID, error) {
	requested := strings.TrimSpace(raw)
	if requested == "" {
		return "", fmt.Errorf("account is required")
	}

	accounts, err := app.accounts.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list accounts: %w", err)
	}

	for _, account := range accounts {
		if string(account.ID) == requested {
			return account.ID, nil
		}
	}

	var matches []domain.AccountID
	for _, account := range accounts {
		if account.Name == requested ||
			account.Identity.Value == requested ||
			strings.TrimPrefix(account.Identity.Value, "+86") == requested {
			matches = append(matches, account.ID)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no account matches %q: %w", requested, domain.ErrAccountNotFound)
	default:
		return "", fmt.Errorf("%q matches %d accounts, use the account id", requested, len(matches))
	}
}
