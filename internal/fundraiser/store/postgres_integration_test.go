//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"reitvest/internal/fundraiser/models"
	id "reitvest/pkg/domain"
	"reitvest/pkg/platform/sentinel"
	"reitvest/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
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
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "fundraisers"))
}

func (s *PostgresStoreSuite) newFundraiser(offering string) *models.Fundraiser {
	s.T().Helper()
	code, err := models.ParseCurrencyCode("USD")
	s.Require().NoError(err)
	f, err := models.NewFundraiser(id.DeriveFundraiserID([]byte(offering)),
		id.DerivePrincipal("admin"), id.AssetID{0xaa}, code, time.Now().UTC())
	s.Require().NoError(err)
	return f
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	in := s.newFundraiser("offering")
	s.Require().NoError(s.store.Create(context.Background(), in))

	out, err := s.store.FindByID(context.Background(), in.ID)
	s.Require().NoError(err)
	s.Equal(in.ID, out.ID)
	s.Equal(in.Administrator, out.Administrator)
	s.Equal(in.EscrowAccount, out.EscrowAccount)
	s.Equal("USD", out.CurrencyCode.String())
	s.Nil(out.Share)
}

func (s *PostgresStoreSuite) TestCreateNeverOverwrites() {
	in := s.newFundraiser("offering")
	s.Require().NoError(s.store.Create(context.Background(), in))
	s.Require().ErrorIs(s.store.Create(context.Background(), in), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindUnknown() {
	_, err := s.store.FindByID(context.Background(), id.FundraiserID{0x01})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExecutePersistsShareAsset() {
	in := s.newFundraiser("offering")
	s.Require().NoError(s.store.Create(context.Background(), in))

	share := models.ShareAsset{
		ID:          id.DeriveShareAssetID(in.ID),
		Name:        "Harbor REIT",
		Symbol:      "HBR",
		MetadataURI: "ipfs://v1",
		Price:       250,
	}
	_, err := s.store.Execute(context.Background(), in.ID,
		func(f *models.Fundraiser) error { return f.CanBindShareAsset() },
		func(f *models.Fundraiser) { f.ApplyShareAsset(share, time.Now().UTC()) })
	s.Require().NoError(err)

	out, err := s.store.FindByID(context.Background(), in.ID)
	s.Require().NoError(err)
	s.Require().NotNil(out.Share)
	s.Equal(share.ID, out.Share.ID)
	s.Equal("HBR", out.Share.Symbol)
	s.Equal(uint64(250), out.Share.Price)
}

func (s *PostgresStoreSuite) TestExecutePersistsCounters() {
	in := s.newFundraiser("offering")
	s.Require().NoError(s.store.Create(context.Background(), in))

	_, err := s.store.Execute(context.Background(), in.ID,
		func(f *models.Fundraiser) error { return f.CanAccrue(1_000) },
		func(f *models.Fundraiser) { f.ApplyAccrual(1_000, time.Now().UTC()) })
	s.Require().NoError(err)
	_, err = s.store.Execute(context.Background(), in.ID,
		func(f *models.Fundraiser) error { return f.CanRelease(400) },
		func(f *models.Fundraiser) { f.ApplyRelease(400, time.Now().UTC()) })
	s.Require().NoError(err)

	out, err := s.store.FindByID(context.Background(), in.ID)
	s.Require().NoError(err)
	s.Equal(uint64(1_000), out.TotalRaised)
	s.Equal(uint64(400), out.ReleasedAmount)
	s.Equal(uint64(1), out.InvestmentCounter)
}

func (s *PostgresStoreSuite) TestExecuteFailedGuardRollsBack() {
	in := s.newFundraiser("offering")
	s.Require().NoError(s.store.Create(context.Background(), in))

	_, err := s.store.Execute(context.Background(), in.ID,
		func(f *models.Fundraiser) error { return f.CanRelease(100) },
		func(f *models.Fundraiser) { f.ApplyRelease(100, time.Now().UTC()) })
	s.Require().Error(err)

	out, err := s.store.FindByID(context.Background(), in.ID)
	s.Require().NoError(err)
	s.Equal(uint64(0), out.ReleasedAmount)
}
