package store

import (
	"context"

	"reitvest/internal/fundraiser/models"
	id "reitvest/pkg/domain"
)

// Store persists fundraiser aggregates. Implementations return
// pkg/platform/sentinel errors; the service translates them into coded
// domain errors.
type Store interface {
	// Create inserts a new aggregate. Returns sentinel.ErrConflict when a
	// record already occupies the derived key - creation never overwrites.
	Create(ctx context.Context, f *models.Fundraiser) error

	// FindByID returns a copy of the aggregate or sentinel.ErrNotFound.
	FindByID(ctx context.Context, fundraiserID id.FundraiserID) (*models.Fundraiser, error)

	// Execute atomically runs validate then apply against the live record.
	// The store holds its lock (mutex or FOR UPDATE) across both, which is
	// what makes counter and balance updates exactly-once. A validation
	// error leaves the record untouched.
	Execute(ctx context.Context, fundraiserID id.FundraiserID,
		validate func(*models.Fundraiser) error,
		apply func(*models.Fundraiser)) (*models.Fundraiser, error)
}
