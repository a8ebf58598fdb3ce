package store

import (
	"context"

	"reitvest/internal/identity/models"
	id "reitvest/pkg/domain"
)

// Store persists account credentials. Implementations return
// pkg/platform/sentinel errors.
type Store interface {
	// Create inserts a new account. Returns sentinel.ErrConflict when the
	// name is taken.
	Create(ctx context.Context, a *models.Account) error

	// FindByPrincipal returns the account or sentinel.ErrNotFound.
	FindByPrincipal(ctx context.Context, principal id.Principal) (*models.Account, error)
}
