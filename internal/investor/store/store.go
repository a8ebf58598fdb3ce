package store

import (
	"context"

	"reitvest/internal/investor/models"
	id "reitvest/pkg/domain"
)

// Store persists investor records. Implementations return
// pkg/platform/sentinel errors; the service translates them into coded
// domain errors.
type Store interface {
	// Create inserts a new record. Returns sentinel.ErrConflict when the
	// principal already has one.
	Create(ctx context.Context, inv *models.Investor) error

	// FindByID returns a copy of the record or sentinel.ErrNotFound.
	FindByID(ctx context.Context, investorID id.InvestorID) (*models.Investor, error)

	// Execute atomically runs validate then apply against the live record
	// under the store's lock; this is what keeps sequence consumption
	// exactly-once under concurrent deposits.
	Execute(ctx context.Context, investorID id.InvestorID,
		validate func(*models.Investor) error,
		apply func(*models.Investor)) (*models.Investor, error)

	// Delete removes the record. Returns sentinel.ErrNotFound when absent.
	Delete(ctx context.Context, investorID id.InvestorID) error
}
