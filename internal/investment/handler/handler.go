package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	investmentModel "reitvest/internal/investment/models"
	"reitvest/internal/platform/middleware"
	"reitvest/internal/transport/http/shared"
	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
	"reitvest/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler depends on.
type Service interface {
	Invest(ctx context.Context, fundraiserID id.FundraiserID, amount uint64) (*investmentModel.Investment, error)
	Release(ctx context.Context, fundraiserID id.FundraiserID, investmentID id.InvestmentID) (*investmentModel.Investment, error)
	Wire(ctx context.Context, fundraiserID id.FundraiserID, investmentID id.InvestmentID) (*investmentModel.Investment, error)
	IssueShare(ctx context.Context, fundraiserID id.FundraiserID, investmentID id.InvestmentID) (*investmentModel.Investment, error)
	Refund(ctx context.Context, fundraiserID id.FundraiserID, investmentID id.InvestmentID) (*investmentModel.Investment, error)
	IssueDividend(ctx context.Context, fundraiserID id.FundraiserID, investmentID id.InvestmentID, amount uint64) error
	Get(ctx context.Context, investmentID id.InvestmentID) (*investmentModel.Investment, error)
	ListByFundraiser(ctx context.Context, fundraiserID id.FundraiserID) ([]*investmentModel.Investment, error)
	ListByInvestor(ctx context.Context, investorID id.InvestorID) ([]*investmentModel.Investment, error)
}

// Handler handles investment lifecycle endpoints.
type Handler struct {
	logger      *slog.Logger
	investments Service
	validator   middleware.TokenValidator
}

// New creates a new investment Handler.
func New(investments Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:      logger,
		investments: investments,
		validator:   validator,
	}
}

// Register registers the investment routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/fundraisers/{fundraiserID}/investments", h.handleInvest)
		r.Get("/fundraisers/{fundraiserID}/investments", h.handleListByFundraiser)
		r.Get("/investors/{investorID}/investments", h.handleListByInvestor)
		r.Get("/investments/{investmentID}", h.handleGet)
		r.Post("/investments/{investmentID}/release", h.transition(h.investments.Release))
		r.Post("/investments/{investmentID}/wire", h.transition(h.investments.Wire))
		r.Post("/investments/{investmentID}/issue-share", h.transition(h.investments.IssueShare))
		r.Post("/investments/{investmentID}/refund", h.transition(h.investments.Refund))
		r.Post("/investments/{investmentID}/dividends", h.handleIssueDividend)
	})
}

type investmentResponse struct {
	ID          string    `json:"id"`
	Investor    string    `json:"investor"`
	Fundraiser  string    `json:"fundraiser"`
	Sequence    uint64    `json:"sequence"`
	Amount      uint64    `json:"amount"`
	ShareAmount uint64    `json:"share_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toInvestmentResponse(i *investmentModel.Investment) investmentResponse {
	return investmentResponse{
		ID:          i.ID.String(),
		Investor:    i.Investor.String(),
		Fundraiser:  i.Fundraiser.String(),
		Sequence:    i.Sequence,
		Amount:      i.Amount,
		ShareAmount: i.ShareAmount,
		Status:      i.Status.String(),
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

type investRequest struct {
	Amount uint64 `json:"amount"`
}

func (h *Handler) handleInvest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fundraiserID, err := id.ParseFundraiserID(chi.URLParam(r, "fundraiserID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid fundraiser id"))
		return
	}

	var req investRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	investment, err := h.investments.Invest(ctx, fundraiserID, req.Amount)
	if err != nil {
		h.logger.WarnContext(ctx, "investment rejected",
			"request_id", requestcontext.RequestID(ctx),
			"fundraiser", fundraiserID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toInvestmentResponse(investment))
}

// transitionRequest names the campaign the caller believes the investment
// belongs to. The service verifies the claim and rejects mismatches.
type transitionRequest struct {
	FundraiserID string `json:"fundraiser_id"`
}

func (h *Handler) transition(op func(ctx context.Context, fundraiserID id.FundraiserID, investmentID id.InvestmentID) (*investmentModel.Investment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		investmentID, err := id.ParseInvestmentID(chi.URLParam(r, "investmentID"))
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid investment id"))
			return
		}

		var req transitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
		fundraiserID, err := id.ParseFundraiserID(req.FundraiserID)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid fundraiser_id"))
			return
		}

		investment, err := op(ctx, fundraiserID, investmentID)
		if err != nil {
			h.logger.WarnContext(ctx, "lifecycle transition rejected",
				"request_id", requestcontext.RequestID(ctx),
				"investment", investmentID.String(),
				"error", err.Error(),
			)
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, toInvestmentResponse(investment))
	}
}

type dividendRequest struct {
	FundraiserID string `json:"fundraiser_id"`
	Amount       uint64 `json:"amount"`
}

func (h *Handler) handleIssueDividend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	investmentID, err := id.ParseInvestmentID(chi.URLParam(r, "investmentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid investment id"))
		return
	}

	var req dividendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	fundraiserID, err := id.ParseFundraiserID(req.FundraiserID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid fundraiser_id"))
		return
	}

	if err := h.investments.IssueDividend(ctx, fundraiserID, investmentID, req.Amount); err != nil {
		h.logger.WarnContext(ctx, "dividend rejected",
			"request_id", requestcontext.RequestID(ctx),
			"investment", investmentID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	investmentID, err := id.ParseInvestmentID(chi.URLParam(r, "investmentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid investment id"))
		return
	}
	investment, err := h.investments.Get(r.Context(), investmentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toInvestmentResponse(investment))
}

func (h *Handler) handleListByFundraiser(w http.ResponseWriter, r *http.Request) {
	fundraiserID, err := id.ParseFundraiserID(chi.URLParam(r, "fundraiserID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid fundraiser id"))
		return
	}
	list, err := h.investments.ListByFundraiser(r.Context(), fundraiserID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toInvestmentListResponse(list))
}

func (h *Handler) handleListByInvestor(w http.ResponseWriter, r *http.Request) {
	investorID, err := id.ParseInvestorID(chi.URLParam(r, "investorID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid investor id"))
		return
	}
	list, err := h.investments.ListByInvestor(r.Context(), investorID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toInvestmentListResponse(list))
}

func toInvestmentListResponse(list []*investmentModel.Investment) []investmentResponse {
	out := make([]investmentResponse, 0, len(list))
	for _, i := range list {
		out = append(out, toInvestmentResponse(i))
	}
	return out
}
