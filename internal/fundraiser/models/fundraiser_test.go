package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
)

type FundraiserSuite struct {
	suite.Suite
	f   *Fundraiser
	now time.Time
}

func (s *FundraiserSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	code, err := ParseCurrencyCode("CAD")
	s.Require().NoError(err)

	f, err := NewFundraiser(
		id.DeriveFundraiserID([]byte("offering")),
		id.DerivePrincipal("admin"),
		id.DeriveShareAssetID(id.DeriveFundraiserID([]byte("usdc"))),
		code,
		s.now,
	)
	s.Require().NoError(err)
	s.f = f
}

func TestFundraiserSuite(t *testing.T) {
	suite.Run(t, new(FundraiserSuite))
}

func (s *FundraiserSuite) TestNewFundraiserDerivesEscrow() {
	s.False(s.f.EscrowAccount.IsZero())
	s.Equal(id.DeriveEscrowAccount(s.f.ID), s.f.EscrowAccount)
	s.Zero(s.f.TotalRaised)
	s.Zero(s.f.InvestmentCounter)
}

func (s *FundraiserSuite) TestIsAdmin() {
	s.True(s.f.IsAdmin(id.DerivePrincipal("admin")))
	s.False(s.f.IsAdmin(id.DerivePrincipal("mallory")))
}

func (s *FundraiserSuite) TestAccrual() {
	s.Run("accumulates total and counter", func() {
		s.Require().NoError(s.f.CanAccrue(100))
		s.f.ApplyAccrual(100, s.now)
		s.Require().NoError(s.f.CanAccrue(50))
		s.f.ApplyAccrual(50, s.now)

		s.Equal(uint64(150), s.f.TotalRaised)
		s.Equal(uint64(2), s.f.InvestmentCounter)
	})

	s.Run("rejects raised-total overflow", func() {
		s.f.TotalRaised = math.MaxUint64 - 10
		err := s.f.CanAccrue(11)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeArithmeticOverflow))
	})

	s.Run("rejects counter exhaustion", func() {
		s.f.TotalRaised = 0
		s.f.InvestmentCounter = math.MaxUint64
		err := s.f.CanAccrue(1)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvestmentCounterOverflow))
	})
}

func (s *FundraiserSuite) TestRelease() {
	s.f.TotalRaised = 100

	s.Run("allows release up to total raised", func() {
		s.Require().NoError(s.f.CanRelease(60))
		s.f.ApplyRelease(60, s.now)
		s.Require().NoError(s.f.CanRelease(40))
		s.f.ApplyRelease(40, s.now)
		s.Equal(uint64(100), s.f.ReleasedAmount)
	})

	s.Run("rejects release beyond total raised", func() {
		err := s.f.CanRelease(1)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeArithmeticOverflow))
	})
}

func (s *FundraiserSuite) TestShareAssetBindsOnce() {
	share := ShareAsset{
		ID:     id.DeriveShareAssetID(s.f.ID),
		Name:   "Maple REIT Units",
		Symbol: "MPL",
		Price:  100_000_000,
	}

	s.Require().NoError(s.f.CanBindShareAsset())
	s.f.ApplyShareAsset(share, s.now)
	s.Equal(uint64(100_000_000), s.f.SharePrice())

	err := s.f.CanBindShareAsset()
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *FundraiserSuite) TestShareAssetUpdate() {
	s.Run("rejects update before binding", func() {
		err := s.f.CanUpdateShareAsset()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("updates price and keeps URI when empty", func() {
		s.f.ApplyShareAsset(ShareAsset{ID: id.DeriveShareAssetID(s.f.ID), Name: "Units", Symbol: "U", MetadataURI: "ipfs://meta", Price: 10}, s.now)
		s.Require().NoError(s.f.CanUpdateShareAsset())

		s.f.ApplyShareAssetUpdate(20, "", s.now)
		s.Equal(uint64(20), s.f.Share.Price)
		s.Equal("ipfs://meta", s.f.Share.MetadataURI)
	})
}

func (s *FundraiserSuite) TestCloneIsDeep() {
	s.f.ApplyShareAsset(ShareAsset{ID: id.DeriveShareAssetID(s.f.ID), Name: "Units", Symbol: "U", Price: 10}, s.now)
	clone := s.f.Clone()
	clone.Share.Price = 999
	s.Equal(uint64(10), s.f.Share.Price)
}

func TestParseCurrencyCode(t *testing.T) {
	code, err := ParseCurrencyCode("CAD")
	require.NoError(t, err)
	require.Equal(t, "CAD", code.String())

	_, err = ParseCurrencyCode("CADX")
	require.Error(t, err)
	_, err = ParseCurrencyCode("")
	require.Error(t, err)
}
