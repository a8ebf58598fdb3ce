package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	investorModel "reitvest/internal/investor/models"
	"reitvest/internal/platform/middleware"
	"reitvest/internal/transport/http/shared"
	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
	"reitvest/pkg/requestcontext"
)

// Service defines the investor operations the handler depends on.
type Service interface {
	Register(ctx context.Context) (*investorModel.Investor, error)
	Get(ctx context.Context, investorID id.InvestorID) (*investorModel.Investor, error)
	Close(ctx context.Context, investorID id.InvestorID) error
}

// Handler handles investor endpoints.
type Handler struct {
	logger    *slog.Logger
	investors Service
	validator middleware.TokenValidator
}

// New creates a new investor Handler.
func New(investors Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		investors: investors,
		validator: validator,
	}
}

// Register registers the investor routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/investors", h.handleRegister)
		r.Get("/investors/{investorID}", h.handleGet)
		r.Delete("/investors/{investorID}", h.handleClose)
	})
}

type investorResponse struct {
	ID                string    `json:"id"`
	Key               string    `json:"key"`
	InvestmentCounter uint64    `json:"investment_counter"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toInvestorResponse(inv *investorModel.Investor) investorResponse {
	return investorResponse{
		ID:                inv.ID.String(),
		Key:               inv.Key.String(),
		InvestmentCounter: inv.InvestmentCounter,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inv, err := h.investors.Register(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "investor registration rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toInvestorResponse(inv))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	investorID, err := id.ParseInvestorID(chi.URLParam(r, "investorID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid investor id"))
		return
	}
	inv, err := h.investors.Get(r.Context(), investorID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toInvestorResponse(inv))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	investorID, err := id.ParseInvestorID(chi.URLParam(r, "investorID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid investor id"))
		return
	}
	if err := h.investors.Close(ctx, investorID); err != nil {
		h.logger.WarnContext(ctx, "investor close rejected",
			"request_id", requestcontext.RequestID(ctx),
			"investor", investorID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
