package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"reitvest/internal/audit"
	"reitvest/internal/custody"
	fundraiserModels "reitvest/internal/fundraiser/models"
	fundraiserStore "reitvest/internal/fundraiser/store"
	"reitvest/internal/investment/service"
	"reitvest/internal/investment/store"
	investorService "reitvest/internal/investor/service"
	investorStore "reitvest/internal/investor/store"
	"reitvest/internal/platform/logger"
	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
	"reitvest/pkg/platform/tx"
	"reitvest/pkg/testutil"
)

// staticValidator maps opaque bearer tokens to principals, standing in for
// the identity service.
type staticValidator map[string]id.Principal

func (v staticValidator) ValidateToken(token string) (id.Principal, error) {
	p, ok := v[token]
	if !ok {
		return id.Principal{}, errors.New("unknown token")
	}
	return p, nil
}

type HandlerSuite struct {
	suite.Suite
	router       chi.Router
	bank         *custody.InMemoryBank
	fundraiserID id.FundraiserID
	admin        id.Principal
	investor     id.Principal
}

func (s *HandlerSuite) SetupTest() {
	log := logger.New()
	investments := store.NewInMemory()
	fundraisers := fundraiserStore.NewInMemory()
	investors := investorStore.NewInMemory()
	s.bank = custody.NewInMemoryBank()
	runner := tx.NewMemoryRunner()
	auditor := audit.NewPublisher(audit.NewInMemoryStore(), log)
	registry := investorService.NewService(investors, investments, runner, auditor, log)
	svc := service.NewService(investments, fundraisers, investors, registry, s.bank, runner, auditor, log, nil)

	s.admin = id.DerivePrincipal("admin")
	s.investor = id.DerivePrincipal("investor")

	usdc := id.AssetID{0xaa}
	code, err := fundraiserModels.ParseCurrencyCode("USD")
	s.Require().NoError(err)
	s.fundraiserID = id.DeriveFundraiserID([]byte("offering"))
	f, err := fundraiserModels.NewFundraiser(s.fundraiserID, s.admin, usdc, code, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(fundraisers.Create(context.Background(), f))
	s.bank.Fund(usdc, s.investor, 10_000)

	validator := staticValidator{
		"admin-token":    s.admin,
		"investor-token": s.investor,
	}
	s.router = chi.NewRouter()
	New(svc, log, validator).Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) request(token, method, path string, body any) *http.Request {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (s *HandlerSuite) TestAuthentication() {
	s.Run("missing token", func() {
		rr := testutil.DoRequest(s.router, s.request("", http.MethodPost,
			"/fundraisers/"+s.fundraiserID.String()+"/investments", investRequest{Amount: 100}))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("unknown token", func() {
		rr := testutil.DoRequest(s.router, s.request("bogus", http.MethodPost,
			"/fundraisers/"+s.fundraiserID.String()+"/investments", investRequest{Amount: 100}))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})
}

func (s *HandlerSuite) TestInvest() {
	s.Run("creates a pending investment", func() {
		rr := testutil.DoRequest(s.router, s.request("investor-token", http.MethodPost,
			"/fundraisers/"+s.fundraiserID.String()+"/investments", investRequest{Amount: 1_000}))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)

		resp := testutil.UnmarshalResponse[investmentResponse](s.T(), rr)
		s.Equal("pending", resp.Status)
		s.Equal(uint64(1_000), resp.Amount)
		s.Equal(s.fundraiserID.String(), resp.Fundraiser)
	})

	s.Run("rejects a zero amount", func() {
		rr := testutil.DoRequest(s.router, s.request("investor-token", http.MethodPost,
			"/fundraisers/"+s.fundraiserID.String()+"/investments", investRequest{Amount: 0}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeInvalidAmount))
	})

	s.Run("rejects a malformed fundraiser id", func() {
		rr := testutil.DoRequest(s.router, s.request("investor-token", http.MethodPost,
			"/fundraisers/zzzz/investments", investRequest{Amount: 100}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *HandlerSuite) invest(amount uint64) investmentResponse {
	s.T().Helper()
	rr := testutil.DoRequest(s.router, s.request("investor-token", http.MethodPost,
		"/fundraisers/"+s.fundraiserID.String()+"/investments", investRequest{Amount: amount}))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return *testutil.UnmarshalResponse[investmentResponse](s.T(), rr)
}

func (s *HandlerSuite) TestTransitions() {
	inv := s.invest(1_000)
	body := transitionRequest{FundraiserID: s.fundraiserID.String()}

	s.Run("investor cannot release", func() {
		rr := testutil.DoRequest(s.router, s.request("investor-token", http.MethodPost,
			"/investments/"+inv.ID+"/release", body))
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeInvalidAuthority))
	})

	s.Run("admin releases", func() {
		rr := testutil.DoRequest(s.router, s.request("admin-token", http.MethodPost,
			"/investments/"+inv.ID+"/release", body))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[investmentResponse](s.T(), rr)
		s.Equal("released", resp.Status)
	})

	s.Run("refund out of order conflicts", func() {
		rr := testutil.DoRequest(s.router, s.request("admin-token", http.MethodPost,
			"/investments/"+inv.ID+"/wire", body))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		rr = testutil.DoRequest(s.router, s.request("admin-token", http.MethodPost,
			"/investments/"+inv.ID+"/refund", body))
		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeInvalidInvestmentStatus))
	})

	s.Run("missing body is a bad request", func() {
		rr := testutil.DoRequest(s.router, s.request("admin-token", http.MethodPost,
			"/investments/"+inv.ID+"/release", nil))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *HandlerSuite) TestGetAndList() {
	first := s.invest(100)
	s.invest(200)

	s.Run("get by id", func() {
		rr := testutil.DoRequest(s.router, s.request("investor-token", http.MethodGet,
			"/investments/"+first.ID, nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[investmentResponse](s.T(), rr)
		s.Equal(first.ID, resp.ID)
	})

	s.Run("unknown id", func() {
		rr := testutil.DoRequest(s.router, s.request("investor-token", http.MethodGet,
			"/investments/"+id.InvestmentID{0x01}.String(), nil))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("list by fundraiser", func() {
		rr := testutil.DoRequest(s.router, s.request("investor-token", http.MethodGet,
			"/fundraisers/"+s.fundraiserID.String()+"/investments", nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[[]investmentResponse](s.T(), rr)
		s.Len(*resp, 2)
	})

	s.Run("list by investor", func() {
		rr := testutil.DoRequest(s.router, s.request("investor-token", http.MethodGet,
			"/investors/"+id.DeriveInvestorID(s.investor).String()+"/investments", nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[[]investmentResponse](s.T(), rr)
		s.Len(*resp, 2)
	})
}

func (s *HandlerSuite) TestDividends() {
	inv := s.invest(1_000)

	rr := testutil.DoRequest(s.router, s.request("admin-token", http.MethodPost,
		"/investments/"+inv.ID+"/dividends",
		dividendRequest{FundraiserID: s.fundraiserID.String(), Amount: 50}))
	// Still pending; dividends need an issued share position.
	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
}
