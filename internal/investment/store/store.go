package store

import (
	"context"

	"reitvest/internal/investment/models"
	id "reitvest/pkg/domain"
)

// Store persists investment records. Implementations return
// pkg/platform/sentinel errors; the service translates them into coded
// domain errors.
type Store interface {
	// Create inserts a new record. Returns sentinel.ErrConflict when the
	// derived key is occupied - a replayed sequence never overwrites.
	Create(ctx context.Context, i *models.Investment) error

	// FindByID returns a copy of the record or sentinel.ErrNotFound.
	FindByID(ctx context.Context, investmentID id.InvestmentID) (*models.Investment, error)

	// ListByFundraiser returns all investments under a campaign, oldest
	// first.
	ListByFundraiser(ctx context.Context, fundraiserID id.FundraiserID) ([]*models.Investment, error)

	// ListByInvestor returns all investments an investor holds, oldest
	// first.
	ListByInvestor(ctx context.Context, investorID id.InvestorID) ([]*models.Investment, error)

	// CountOpenByInvestor counts investments still holding an escrow or
	// share claim (pending, released, or wired).
	CountOpenByInvestor(ctx context.Context, investorID id.InvestorID) (int64, error)

	// Execute atomically runs validate then apply against the live record
	// under the store's lock. A validation error leaves the record
	// untouched.
	Execute(ctx context.Context, investmentID id.InvestmentID,
		validate func(*models.Investment) error,
		apply func(*models.Investment)) (*models.Investment, error)
}
