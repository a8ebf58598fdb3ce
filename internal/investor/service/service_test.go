package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"reitvest/internal/audit"
	investmentModels "reitvest/internal/investment/models"
	investmentStore "reitvest/internal/investment/store"
	"reitvest/internal/investor/store"
	"reitvest/internal/platform/logger"
	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
	"reitvest/pkg/platform/tx"
	"reitvest/pkg/requestcontext"
)

type InvestorServiceSuite struct {
	suite.Suite
	investors   *store.InMemory
	investments *investmentStore.InMemory
	auditStore  *audit.InMemoryStore
	service     *Service
}

func (s *InvestorServiceSuite) SetupTest() {
	s.investors = store.NewInMemory()
	s.investments = investmentStore.NewInMemory()
	s.auditStore = audit.NewInMemoryStore()
	log := logger.New()
	s.service = NewService(s.investors, s.investments, tx.NewMemoryRunner(), audit.NewPublisher(s.auditStore, log), log)
}

func TestInvestorServiceSuite(t *testing.T) {
	suite.Run(t, new(InvestorServiceSuite))
}

func (s *InvestorServiceSuite) authedCtx(name string) context.Context {
	return requestcontext.WithPrincipal(context.Background(), id.DerivePrincipal(name))
}

func (s *InvestorServiceSuite) TestRegister() {
	s.Run("registers and audits", func() {
		inv, err := s.service.Register(s.authedCtx("alice"))
		s.Require().NoError(err)
		s.Equal(id.DeriveInvestorID(id.DerivePrincipal("alice")), inv.ID)
		s.Zero(inv.InvestmentCounter)
		s.Len(s.auditStore.ByAction(audit.ActionInvestorRegistered), 1)
	})

	s.Run("rejects re-registration", func() {
		_, err := s.service.Register(s.authedCtx("alice"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects unauthenticated caller", func() {
		_, err := s.service.Register(context.Background())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *InvestorServiceSuite) TestGetOrCreate() {
	principal := id.DerivePrincipal("bob")
	ctx := s.authedCtx("bob")

	first, err := s.service.GetOrCreate(ctx, principal)
	s.Require().NoError(err)

	second, err := s.service.GetOrCreate(ctx, principal)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)

	// Only the first call registered.
	s.Len(s.auditStore.ByAction(audit.ActionInvestorRegistered), 1)
}

func (s *InvestorServiceSuite) TestGetOrCreateConcurrent() {
	principal := id.DerivePrincipal("carol")
	ctx := s.authedCtx("carol")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for n := range errs {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = s.service.GetOrCreate(ctx, principal)
		}(n)
	}
	wg.Wait()

	for _, err := range errs {
		s.Require().NoError(err)
	}
	inv, err := s.service.Get(ctx, id.DeriveInvestorID(principal))
	s.Require().NoError(err)
	s.Equal(principal, inv.Key)
}

func (s *InvestorServiceSuite) TestClose() {
	principal := id.DerivePrincipal("dave")
	ctx := s.authedCtx("dave")
	inv, err := s.service.Register(ctx)
	s.Require().NoError(err)

	s.Run("refuses while an investment is open", func() {
		open, err := investmentModels.NewInvestment(principal, id.DeriveFundraiserID([]byte("offering")), 0, 100, time.Now())
		s.Require().NoError(err)
		s.Require().NoError(s.investments.Create(context.Background(), open))

		err = s.service.Close(ctx, inv.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("refuses a foreign principal", func() {
		err := s.service.Close(s.authedCtx("mallory"), inv.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAuthority))
	})

	s.Run("closes once every investment is terminal", func() {
		open, err := s.investments.FindByID(context.Background(), id.DeriveInvestmentID(principal, id.DeriveFundraiserID([]byte("offering")), 0))
		s.Require().NoError(err)
		_, err = s.investments.Execute(context.Background(), open.ID,
			func(i *investmentModels.Investment) error { return nil },
			func(i *investmentModels.Investment) {
				i.ApplyRelease(time.Now())
				i.ApplyRefund(time.Now())
			})
		s.Require().NoError(err)

		s.Require().NoError(s.service.Close(ctx, inv.ID))
		s.Len(s.auditStore.ByAction(audit.ActionInvestorClosed), 1)

		_, err = s.service.Get(ctx, inv.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *InvestorServiceSuite) TestCloseUnknownInvestor() {
	err := s.service.Close(s.authedCtx("nobody"), id.DeriveInvestorID(id.DerivePrincipal("nobody")))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
