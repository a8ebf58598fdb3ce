package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"reitvest/internal/fundraiser/models"
	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
	"reitvest/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newFundraiser(offering string) *models.Fundraiser {
	code, err := models.ParseCurrencyCode("CAD")
	s.Require().NoError(err)
	f, err := models.NewFundraiser(
		id.DeriveFundraiserID([]byte(offering)),
		id.DerivePrincipal("admin"),
		id.DeriveShareAssetID(id.DeriveFundraiserID([]byte("usdc"))),
		code,
		time.Now(),
	)
	s.Require().NoError(err)
	return f
}

func (s *MemoryStoreSuite) TestCreateAndFind() {
	f := s.newFundraiser("offering-1")
	s.Require().NoError(s.store.Create(s.ctx, f))

	found, err := s.store.FindByID(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Equal(f.ID, found.ID)
	s.Equal(f.Administrator, found.Administrator)
}

func (s *MemoryStoreSuite) TestCreateNeverOverwrites() {
	f := s.newFundraiser("offering-1")
	s.Require().NoError(s.store.Create(s.ctx, f))

	dup := s.newFundraiser("offering-1")
	dup.Administrator = id.DerivePrincipal("mallory")
	s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)

	// Original record intact.
	found, err := s.store.FindByID(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Equal(id.DerivePrincipal("admin"), found.Administrator)
}

func (s *MemoryStoreSuite) TestFindUnknownReturnsNotFound() {
	_, err := s.store.FindByID(s.ctx, id.DeriveFundraiserID([]byte("missing")))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestReadsNeverAliasLiveState() {
	f := s.newFundraiser("offering-1")
	s.Require().NoError(s.store.Create(s.ctx, f))

	found, err := s.store.FindByID(s.ctx, f.ID)
	s.Require().NoError(err)
	found.TotalRaised = 999

	again, err := s.store.FindByID(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Zero(again.TotalRaised)
}

func (s *MemoryStoreSuite) TestExecuteAppliesAfterValidation() {
	f := s.newFundraiser("offering-1")
	s.Require().NoError(s.store.Create(s.ctx, f))

	updated, err := s.store.Execute(s.ctx, f.ID,
		func(f *models.Fundraiser) error { return f.CanAccrue(100) },
		func(f *models.Fundraiser) { f.ApplyAccrual(100, time.Now()) })
	s.Require().NoError(err)
	s.Equal(uint64(100), updated.TotalRaised)
	s.Equal(uint64(1), updated.InvestmentCounter)
}

func (s *MemoryStoreSuite) TestExecuteValidationFailureLeavesRecordUntouched() {
	f := s.newFundraiser("offering-1")
	s.Require().NoError(s.store.Create(s.ctx, f))

	guard := dErrors.New(dErrors.CodeArithmeticOverflow, "nope")
	_, err := s.store.Execute(s.ctx, f.ID,
		func(f *models.Fundraiser) error { return guard },
		func(f *models.Fundraiser) { f.ApplyAccrual(100, time.Now()) })
	s.Require().ErrorIs(err, guard)

	found, findErr := s.store.FindByID(s.ctx, f.ID)
	s.Require().NoError(findErr)
	s.Zero(found.TotalRaised)
}

func (s *MemoryStoreSuite) TestExecuteUnknownReturnsNotFound() {
	_, err := s.store.Execute(s.ctx, id.DeriveFundraiserID([]byte("missing")),
		func(f *models.Fundraiser) error { return nil },
		func(f *models.Fundraiser) {})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
