package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reitvest/internal/audit"
	"reitvest/internal/investor/models"
	"reitvest/internal/investor/store"
	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
	"reitvest/pkg/platform/sentinel"
	"reitvest/pkg/platform/tx"
	"reitvest/pkg/requestcontext"
)

// OpenInvestmentCounter reports how many non-terminal investments an
// investor currently holds. Implemented by the investment store; injected
// here so closing an investor can be refused while money is still in
// flight.
type OpenInvestmentCounter interface {
	CountOpenByInvestor(ctx context.Context, investorID id.InvestorID) (int64, error)
}

// Service manages investor registration and closure.
type Service struct {
	investors       store.Store
	openInvestments OpenInvestmentCounter
	runner          tx.Runner
	auditor         *audit.Publisher
	logger          *slog.Logger
}

func NewService(investors store.Store, openInvestments OpenInvestmentCounter, runner tx.Runner, auditor *audit.Publisher, logger *slog.Logger) *Service {
	return &Service{
		investors:       investors,
		openInvestments: openInvestments,
		runner:          runner,
		auditor:         auditor,
		logger:          logger,
	}
}

// Register creates an investor record for the acting principal. A principal
// holds at most one record; re-registration conflicts.
func (s *Service) Register(ctx context.Context) (*models.Investor, error) {
	principal := requestcontext.Principal(ctx)
	if principal.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no authenticated principal")
	}

	inv := models.NewInvestor(principal, requestcontext.Now(ctx))
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.investors.Create(txCtx, inv); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "investor already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register investor")
		}
		return s.auditor.Emit(txCtx, audit.Event{
			Action:   audit.ActionInvestorRegistered,
			Actor:    principal.String(),
			Investor: inv.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "investor registered", "investor", inv.ID.String())
	return inv, nil
}

// GetOrCreate returns the record for principal, registering it when absent.
// First deposits register investors implicitly; callers already inside a
// transaction get the same behavior through the shared runner context.
func (s *Service) GetOrCreate(ctx context.Context, principal id.Principal) (*models.Investor, error) {
	investorID := id.DeriveInvestorID(principal)
	inv, err := s.investors.FindByID(ctx, investorID)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "investor lookup failed")
	}

	inv = models.NewInvestor(principal, requestcontext.Now(ctx))
	if err := s.investors.Create(ctx, inv); err != nil {
		// Lost a registration race; the winner's record serves.
		if errors.Is(err, sentinel.ErrConflict) {
			return s.get(ctx, investorID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register investor")
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:   audit.ActionInvestorRegistered,
		Actor:    principal.String(),
		Investor: inv.ID.String(),
	}); err != nil {
		return nil, err
	}
	return inv, nil
}

// Get returns the investor record.
func (s *Service) Get(ctx context.Context, investorID id.InvestorID) (*models.Investor, error) {
	return s.get(ctx, investorID)
}

func (s *Service) get(ctx context.Context, investorID id.InvestorID) (*models.Investor, error) {
	inv, err := s.investors.FindByID(ctx, investorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "investor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "investor lookup failed")
	}
	return inv, nil
}

// Close removes the investor record. Only the owning principal may close
// its own record, and never while any investment is still in a non-terminal
// status - closure must not strand live escrow claims.
func (s *Service) Close(ctx context.Context, investorID id.InvestorID) error {
	principal := requestcontext.Principal(ctx)

	return s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		inv, err := s.get(txCtx, investorID)
		if err != nil {
			return err
		}
		if inv.Key != principal {
			return dErrors.New(dErrors.CodeInvalidAuthority, "only the owning principal may close an investor")
		}

		open, err := s.openInvestments.CountOpenByInvestor(txCtx, investorID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "open investment count failed")
		}
		if open > 0 {
			return dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("investor has %d open investments", open))
		}

		if err := s.investors.Delete(txCtx, investorID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "investor not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close investor")
		}
		return s.auditor.Emit(txCtx, audit.Event{
			Action:   audit.ActionInvestorClosed,
			Actor:    principal.String(),
			Investor: investorID.String(),
		})
	})
}
