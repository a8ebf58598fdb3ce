package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"reitvest/internal/audit"
	"reitvest/internal/custody"
	fundraiserModels "reitvest/internal/fundraiser/models"
	fundraiserStore "reitvest/internal/fundraiser/store"
	"reitvest/internal/investment/metrics"
	"reitvest/internal/investment/models"
	"reitvest/internal/investment/store"
	investorModels "reitvest/internal/investor/models"
	investorStore "reitvest/internal/investor/store"
	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
	"reitvest/pkg/platform/sentinel"
	"reitvest/pkg/platform/tx"
	"reitvest/pkg/requestcontext"
)

// InvestorRegistry resolves (and implicitly registers) investor records.
// Implemented by the investor service.
type InvestorRegistry interface {
	GetOrCreate(ctx context.Context, principal id.Principal) (*investorModels.Investor, error)
}

// Service is the lifecycle orchestrator. Every operation follows the same
// shape inside one transaction: validate every guard first, move funds
// through the custodian second, and record the already-validated mutations
// last. Record updates after a custody movement cannot fail validation, so
// a committed transaction always has matching custody and ledger state.
type Service struct {
	investments store.Store
	fundraisers fundraiserStore.Store
	investors   investorStore.Store
	registry    InvestorRegistry
	bank        custody.Custodian
	runner      tx.Runner
	auditor     *audit.Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

func NewService(
	investments store.Store,
	fundraisers fundraiserStore.Store,
	investors investorStore.Store,
	registry InvestorRegistry,
	bank custody.Custodian,
	runner tx.Runner,
	auditor *audit.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		investments: investments,
		fundraisers: fundraisers,
		investors:   investors,
		registry:    registry,
		bank:        bank,
		runner:      runner,
		auditor:     auditor,
		logger:      logger,
		metrics:     m,
		tracer:      otel.Tracer("reitvest/investment"),
	}
}

// Invest deposits amount into a campaign's escrow on behalf of the acting
// principal, registering the investor on first contact. The investment key
// is derived from the investor's next sequence value, so retries after a
// recorded deposit surface as conflicts instead of double-charges.
func (s *Service) Invest(ctx context.Context, fundraiserID id.FundraiserID, amount uint64) (*models.Investment, error) {
	ctx, span := s.tracer.Start(ctx, "investment.Invest",
		trace.WithAttributes(attribute.String("fundraiser", fundraiserID.String())))
	defer span.End()

	principal := requestcontext.Principal(ctx)
	if principal.IsZero() {
		return nil, s.reject(dErrors.New(dErrors.CodeUnauthorized, "no authenticated principal"))
	}
	if amount == 0 {
		return nil, s.reject(dErrors.New(dErrors.CodeInvalidAmount, "investment amount must be positive"))
	}

	var created *models.Investment
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		f, err := s.loadFundraiser(txCtx, fundraiserID)
		if err != nil {
			return err
		}
		if f.EscrowAccount.IsZero() {
			return dErrors.New(dErrors.CodeEscrowNotInitialized, "fundraiser escrow is not initialized")
		}
		if err := f.CanAccrue(amount); err != nil {
			return err
		}

		investor, err := s.registry.GetOrCreate(txCtx, principal)
		if err != nil {
			return err
		}
		if err := investor.CanAdvance(); err != nil {
			return err
		}
		sequence := investor.NextSequence()

		now := requestcontext.Now(txCtx)
		investment, err := models.NewInvestment(principal, fundraiserID, sequence, amount, now)
		if err != nil {
			return err
		}

		if err := s.bank.Transfer(txCtx, f.AcceptedCurrency, principal, f.EscrowAccount, amount); err != nil {
			return s.wrapTransferErr(err)
		}

		if err := s.investments.Create(txCtx, investment); err != nil {
			return s.wrapStoreErr(err, "investment")
		}
		// The sequence is consumed only once the funds have moved: a rejected
		// transfer must leave the investor record unchanged in both store
		// modes. The runner serializes deposits, so the value read above is
		// still the one being consumed here.
		if _, err := s.investors.Execute(txCtx, investor.ID,
			func(inv *investorModels.Investor) error { return inv.CanAdvance() },
			func(inv *investorModels.Investor) { inv.ApplyAdvance(now) }); err != nil {
			return s.wrapStoreErr(err, "investor")
		}
		if _, err := s.fundraisers.Execute(txCtx, fundraiserID,
			func(f *fundraiserModels.Fundraiser) error { return f.CanAccrue(amount) },
			func(f *fundraiserModels.Fundraiser) { f.ApplyAccrual(amount, now) }); err != nil {
			return s.wrapStoreErr(err, "fundraiser")
		}

		created = investment
		return s.auditor.Emit(txCtx, audit.Event{
			Action:     audit.ActionInvestmentCreated,
			Actor:      principal.String(),
			Fundraiser: fundraiserID.String(),
			Investor:   investment.Investor.String(),
			Investment: investment.ID.String(),
			Amount:     amount,
		})
	})
	if err != nil {
		return nil, s.reject(err)
	}

	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(models.StatusPending.String()).Inc()
		s.metrics.DepositedAmount.Add(float64(amount))
	}
	s.logger.InfoContext(ctx, "investment created",
		"investment", created.ID.String(),
		"fundraiser", fundraiserID.String(),
		"amount", amount,
	)
	return created, nil
}

// Release moves a pending deposit from escrow to the administrator for
// currency conversion. Administrator gated.
func (s *Service) Release(ctx context.Context, fundraiserID id.FundraiserID, investmentID id.InvestmentID) (*models.Investment, error) {
	ctx, span := s.tracer.Start(ctx, "investment.Release",
		trace.WithAttributes(attribute.String("investment", investmentID.String())))
	defer span.End()

	principal := requestcontext.Principal(ctx)
	var updated *models.Investment
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		f, investment, err := s.loadForTransition(txCtx, fundraiserID, investmentID, principal)
		if err != nil {
			return err
		}
		if err := investment.CanRelease(); err != nil {
			return err
		}
		if err := f.CanRelease(investment.Amount); err != nil {
			return err
		}

		if err := s.bank.Transfer(txCtx, f.AcceptedCurrency, f.EscrowAccount, f.Administrator, investment.Amount); err != nil {
			return s.wrapTransferErr(err)
		}

		now := requestcontext.Now(txCtx)
		updated, err = s.applyTransition(txCtx, investmentID,
			(*models.Investment).CanRelease,
			func(i *models.Investment) { i.ApplyRelease(now) })
		if err != nil {
			return err
		}
		if _, err := s.fundraisers.Execute(txCtx, fundraiserID,
			func(f *fundraiserModels.Fundraiser) error { return f.CanRelease(investment.Amount) },
			func(f *fundraiserModels.Fundraiser) { f.ApplyRelease(investment.Amount, now) }); err != nil {
			return s.wrapStoreErr(err, "fundraiser")
		}

		return s.auditor.Emit(txCtx, audit.Event{
			Action:     audit.ActionInvestmentReleased,
			Actor:      principal.String(),
			Fundraiser: fundraiserID.String(),
			Investor:   investment.Investor.String(),
			Investment: investmentID.String(),
			Amount:     investment.Amount,
		})
	})
	if err != nil {
		return nil, s.reject(err)
	}

	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(models.StatusReleased.String()).Inc()
	}
	return updated, nil
}

// Wire marks a released investment's funds as wired to the REIT. Pure
// status transition; the wire itself happens outside the ledger.
func (s *Service) Wire(ctx context.Context, fundraiserID id.FundraiserID, investmentID id.InvestmentID) (*models.Investment, error) {
	ctx, span := s.tracer.Start(ctx, "investment.Wire",
		trace.WithAttributes(attribute.String("investment", investmentID.String())))
	defer span.End()

	principal := requestcontext.Principal(ctx)
	var updated *models.Investment
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		_, investment, err := s.loadForTransition(txCtx, fundraiserID, investmentID, principal)
		if err != nil {
			return err
		}
		if err := investment.CanWire(); err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		updated, err = s.applyTransition(txCtx, investmentID,
			(*models.Investment).CanWire,
			func(i *models.Investment) { i.ApplyWire(now) })
		if err != nil {
			return err
		}

		return s.auditor.Emit(txCtx, audit.Event{
			Action:     audit.ActionInvestmentWired,
			Actor:      principal.String(),
			Fundraiser: fundraiserID.String(),
			Investor:   investment.Investor.String(),
			Investment: investmentID.String(),
			Amount:     investment.Amount,
		})
	})
	if err != nil {
		return nil, s.reject(err)
	}

	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(models.StatusWired.String()).Inc()
	}
	return updated, nil
}

// IssueShare converts a wired deposit into whole shares at the bound share
// price, flooring the remainder, and mints them to the investor.
func (s *Service) IssueShare(ctx context.Context, fundraiserID id.FundraiserID, investmentID id.InvestmentID) (*models.Investment, error) {
	ctx, span := s.tracer.Start(ctx, "investment.IssueShare",
		trace.WithAttributes(attribute.String("investment", investmentID.String())))
	defer span.End()

	principal := requestcontext.Principal(ctx)
	var updated *models.Investment
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		f, investment, err := s.loadForTransition(txCtx, fundraiserID, investmentID, principal)
		if err != nil {
			return err
		}
		if err := investment.CanIssueShare(); err != nil {
			return err
		}
		if f.Share == nil {
			return dErrors.New(dErrors.CodeInvalidMint, "no share asset created for this fundraiser")
		}
		shares, err := models.Shares(investment.Amount, f.Share.Price)
		if err != nil {
			return err
		}

		if err := s.bank.Mint(txCtx, f.Share.ID, investment.InvestorKey, shares); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "share mint failed")
		}

		now := requestcontext.Now(txCtx)
		updated, err = s.applyTransition(txCtx, investmentID,
			(*models.Investment).CanIssueShare,
			func(i *models.Investment) { i.ApplyIssueShare(shares, now) })
		if err != nil {
			return err
		}

		return s.auditor.Emit(txCtx, audit.Event{
			Action:     audit.ActionShareIssued,
			Actor:      principal.String(),
			Fundraiser: fundraiserID.String(),
			Investor:   investment.Investor.String(),
			Investment: investmentID.String(),
			Amount:     shares,
		})
	})
	if err != nil {
		return nil, s.reject(err)
	}

	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(models.StatusShareIssued.String()).Inc()
		s.metrics.SharesIssued.Add(float64(updated.ShareAmount))
	}
	return updated, nil
}

// Refund returns a released deposit from the administrator to the investor
// and terminally closes the investment. The fundraiser's raised and
// released totals keep their historical values.
func (s *Service) Refund(ctx context.Context, fundraiserID id.FundraiserID, investmentID id.InvestmentID) (*models.Investment, error) {
	ctx, span := s.tracer.Start(ctx, "investment.Refund",
		trace.WithAttributes(attribute.String("investment", investmentID.String())))
	defer span.End()

	principal := requestcontext.Principal(ctx)
	var updated *models.Investment
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		f, investment, err := s.loadForTransition(txCtx, fundraiserID, investmentID, principal)
		if err != nil {
			return err
		}
		if err := investment.CanRefund(); err != nil {
			return err
		}

		if err := s.bank.Transfer(txCtx, f.AcceptedCurrency, f.Administrator, investment.InvestorKey, investment.Amount); err != nil {
			return s.wrapTransferErr(err)
		}

		now := requestcontext.Now(txCtx)
		updated, err = s.applyTransition(txCtx, investmentID,
			(*models.Investment).CanRefund,
			func(i *models.Investment) { i.ApplyRefund(now) })
		if err != nil {
			return err
		}

		return s.auditor.Emit(txCtx, audit.Event{
			Action:     audit.ActionInvestmentRefunded,
			Actor:      principal.String(),
			Fundraiser: fundraiserID.String(),
			Investor:   investment.Investor.String(),
			Investment: investmentID.String(),
			Amount:     investment.Amount,
		})
	})
	if err != nil {
		return nil, s.reject(err)
	}

	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(models.StatusRefunded.String()).Inc()
		s.metrics.RefundedAmount.Add(float64(updated.Amount))
	}
	return updated, nil
}

// IssueDividend distributes amount from the administrator to the holder of
// an issued share position. Leaves the investment status untouched, so the
// same position can receive any number of distributions.
func (s *Service) IssueDividend(ctx context.Context, fundraiserID id.FundraiserID, investmentID id.InvestmentID, amount uint64) error {
	ctx, span := s.tracer.Start(ctx, "investment.IssueDividend",
		trace.WithAttributes(attribute.String("investment", investmentID.String())))
	defer span.End()

	principal := requestcontext.Principal(ctx)
	if amount == 0 {
		return s.reject(dErrors.New(dErrors.CodeInvalidAmount, "dividend amount must be positive"))
	}

	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		f, investment, err := s.loadForTransition(txCtx, fundraiserID, investmentID, principal)
		if err != nil {
			return err
		}
		if err := investment.CanReceiveDividend(); err != nil {
			return err
		}

		if err := s.bank.Transfer(txCtx, f.AcceptedCurrency, f.Administrator, investment.InvestorKey, amount); err != nil {
			return s.wrapTransferErr(err)
		}

		return s.auditor.Emit(txCtx, audit.Event{
			Action:     audit.ActionDividendIssued,
			Actor:      principal.String(),
			Fundraiser: fundraiserID.String(),
			Investor:   investment.Investor.String(),
			Investment: investmentID.String(),
			Amount:     amount,
		})
	})
	if err != nil {
		return s.reject(err)
	}

	if s.metrics != nil {
		s.metrics.DividendsPaid.Add(float64(amount))
	}
	return nil
}

// Get returns the investment record.
func (s *Service) Get(ctx context.Context, investmentID id.InvestmentID) (*models.Investment, error) {
	i, err := s.investments.FindByID(ctx, investmentID)
	if err != nil {
		return nil, s.wrapStoreErr(err, "investment")
	}
	return i, nil
}

// ListByFundraiser returns all investments under a campaign, oldest first.
func (s *Service) ListByFundraiser(ctx context.Context, fundraiserID id.FundraiserID) ([]*models.Investment, error) {
	list, err := s.investments.ListByFundraiser(ctx, fundraiserID)
	if err != nil {
		return nil, s.wrapStoreErr(err, "investment")
	}
	return list, nil
}

// ListByInvestor returns all investments an investor holds, oldest first.
func (s *Service) ListByInvestor(ctx context.Context, investorID id.InvestorID) ([]*models.Investment, error) {
	list, err := s.investments.ListByInvestor(ctx, investorID)
	if err != nil {
		return nil, s.wrapStoreErr(err, "investment")
	}
	return list, nil
}

// loadForTransition fetches the campaign and the investment and runs the
// guards shared by every administrator transition, in the documented order:
// record existence, authority, then campaign membership.
func (s *Service) loadForTransition(ctx context.Context, fundraiserID id.FundraiserID, investmentID id.InvestmentID, principal id.Principal) (*fundraiserModels.Fundraiser, *models.Investment, error) {
	f, err := s.loadFundraiser(ctx, fundraiserID)
	if err != nil {
		return nil, nil, err
	}
	if !f.IsAdmin(principal) {
		return nil, nil, dErrors.New(dErrors.CodeInvalidAuthority, "only the administrator may perform this transition")
	}
	investment, err := s.investments.FindByID(ctx, investmentID)
	if err != nil {
		return nil, nil, s.wrapStoreErr(err, "investment")
	}
	if err := investment.BelongsTo(fundraiserID); err != nil {
		return nil, nil, err
	}
	return f, investment, nil
}

func (s *Service) loadFundraiser(ctx context.Context, fundraiserID id.FundraiserID) (*fundraiserModels.Fundraiser, error) {
	f, err := s.fundraisers.FindByID(ctx, fundraiserID)
	if err != nil {
		return nil, s.wrapStoreErr(err, "fundraiser")
	}
	return f, nil
}

// applyTransition re-runs the guard under the store lock before mutating.
// The earlier check produced the error the caller sees; this one closes the
// gap against a concurrent transition that slipped between read and write.
func (s *Service) applyTransition(ctx context.Context, investmentID id.InvestmentID,
	validate func(*models.Investment) error, apply func(*models.Investment)) (*models.Investment, error) {
	updated, err := s.investments.Execute(ctx, investmentID, validate, apply)
	if err != nil {
		return nil, s.wrapStoreErr(err, "investment")
	}
	return updated, nil
}

func (s *Service) wrapStoreErr(err error, record string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, record+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, record+" already exists")
	case errors.Is(err, sentinel.ErrCorrupted):
		return dErrors.Wrap(err, dErrors.CodeInternal, record+" record corrupted")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, record+" store failure")
	}
}

func (s *Service) wrapTransferErr(err error) error {
	if errors.Is(err, sentinel.ErrInsufficientFunds) {
		return dErrors.Wrap(err, dErrors.CodeInsufficientFunds, "insufficient funds for transfer")
	}
	if errors.Is(err, custody.ErrBalanceOverflow) {
		return dErrors.Wrap(err, dErrors.CodeArithmeticOverflow, "transfer would overflow destination balance")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "custody transfer failed")
}

// reject counts a failed operation by its error code before returning it.
func (s *Service) reject(err error) error {
	if s.metrics != nil {
		s.metrics.GuardRejections.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
	}
	return err
}
