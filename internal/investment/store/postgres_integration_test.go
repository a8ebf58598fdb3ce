//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	fundraiserModels "reitvest/internal/fundraiser/models"
	fundraiserStore "reitvest/internal/fundraiser/store"
	"reitvest/internal/investment/models"
	id "reitvest/pkg/domain"
	"reitvest/pkg/platform/sentinel"
	"reitvest/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg          *containers.PostgresContainer
	store       *Postgres
	fundraisers *fundraiserStore.Postgres

	fundraiserID id.FundraiserID
	investorKey  id.Principal
	investorID   id.InvestorID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.fundraisers = fundraiserStore.NewPostgres(s.pg.DB)
	s.investorKey = id.DerivePrincipal("investor")
	s.investorID = id.DeriveInvestorID(s.investorKey)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "investments", "fundraisers"))

	code, err := fundraiserModels.ParseCurrencyCode("USD")
	s.Require().NoError(err)
	s.fundraiserID = id.DeriveFundraiserID([]byte("offering"))
	f, err := fundraiserModels.NewFundraiser(s.fundraiserID, id.DerivePrincipal("admin"), id.AssetID{0xaa}, code, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.fundraisers.Create(context.Background(), f))
}

func (s *PostgresStoreSuite) newInvestment(sequence, amount uint64) *models.Investment {
	s.T().Helper()
	i, err := models.NewInvestment(s.investorKey, s.fundraiserID, sequence, amount, time.Now().UTC())
	s.Require().NoError(err)
	return i
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	in := s.newInvestment(0, 1_000)
	s.Require().NoError(s.store.Create(context.Background(), in))

	out, err := s.store.FindByID(context.Background(), in.ID)
	s.Require().NoError(err)
	s.Equal(in.ID, out.ID)
	s.Equal(s.investorID, out.Investor)
	s.Equal(s.investorKey, out.InvestorKey)
	s.Equal(uint64(1_000), out.Amount)
	s.Equal(models.StatusPending, out.Status)
}

func (s *PostgresStoreSuite) TestCreateNeverOverwrites() {
	in := s.newInvestment(0, 1_000)
	s.Require().NoError(s.store.Create(context.Background(), in))

	err := s.store.Create(context.Background(), in)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindUnknown() {
	_, err := s.store.FindByID(context.Background(), id.InvestmentID{0x01})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrdering() {
	for seq := uint64(0); seq < 3; seq++ {
		in := s.newInvestment(seq, (seq+1)*100)
		s.Require().NoError(s.store.Create(context.Background(), in))
	}

	byFundraiser, err := s.store.ListByFundraiser(context.Background(), s.fundraiserID)
	s.Require().NoError(err)
	s.Require().Len(byFundraiser, 3)
	for n, i := range byFundraiser {
		s.Equal(uint64(n), i.Sequence)
	}

	byInvestor, err := s.store.ListByInvestor(context.Background(), s.investorID)
	s.Require().NoError(err)
	s.Len(byInvestor, 3)
}

func (s *PostgresStoreSuite) TestCountOpenByInvestor() {
	open := s.newInvestment(0, 100)
	s.Require().NoError(s.store.Create(context.Background(), open))
	closed := s.newInvestment(1, 200)
	s.Require().NoError(s.store.Create(context.Background(), closed))

	_, err := s.store.Execute(context.Background(), closed.ID,
		func(i *models.Investment) error { return nil },
		func(i *models.Investment) {
			i.ApplyRelease(time.Now().UTC())
			i.ApplyRefund(time.Now().UTC())
		})
	s.Require().NoError(err)

	n, err := s.store.CountOpenByInvestor(context.Background(), s.investorID)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

func (s *PostgresStoreSuite) TestExecute() {
	in := s.newInvestment(0, 1_000)
	s.Require().NoError(s.store.Create(context.Background(), in))

	s.Run("persists the applied mutation", func() {
		updated, err := s.store.Execute(context.Background(), in.ID,
			func(i *models.Investment) error { return i.CanRelease() },
			func(i *models.Investment) { i.ApplyRelease(time.Now().UTC()) })
		s.Require().NoError(err)
		s.Equal(models.StatusReleased, updated.Status)

		found, err := s.store.FindByID(context.Background(), in.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusReleased, found.Status)
	})

	s.Run("a failed guard leaves the row untouched", func() {
		_, err := s.store.Execute(context.Background(), in.ID,
			func(i *models.Investment) error { return i.CanRelease() },
			func(i *models.Investment) { i.ApplyRelease(time.Now().UTC()) })
		s.Require().Error(err)

		found, err := s.store.FindByID(context.Background(), in.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusReleased, found.Status)
	})

	s.Run("unknown investment", func() {
		_, err := s.store.Execute(context.Background(), id.InvestmentID{0x02},
			func(i *models.Investment) error { return nil },
			func(i *models.Investment) {})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
