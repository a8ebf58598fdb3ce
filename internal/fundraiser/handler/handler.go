package handler

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	fundraiserModel "reitvest/internal/fundraiser/models"
	"reitvest/internal/fundraiser/service"
	"reitvest/internal/platform/middleware"
	"reitvest/internal/transport/http/shared"
	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
	"reitvest/pkg/requestcontext"
)

// Service defines the fundraiser operations the handler depends on.
type Service interface {
	Create(ctx context.Context, params service.CreateParams) (*fundraiserModel.Fundraiser, error)
	CreateShareAsset(ctx context.Context, fundraiserID id.FundraiserID, params service.ShareAssetParams) (*fundraiserModel.Fundraiser, error)
	UpdateShareAsset(ctx context.Context, fundraiserID id.FundraiserID, price uint64, metadataURI string) (*fundraiserModel.Fundraiser, error)
	Get(ctx context.Context, fundraiserID id.FundraiserID) (*fundraiserModel.Fundraiser, error)
	Stats(ctx context.Context, fundraiserID id.FundraiserID) (*service.Stats, error)
}

// Handler handles fundraiser endpoints.
type Handler struct {
	logger      *slog.Logger
	fundraisers Service
	validator   middleware.TokenValidator
}

// New creates a new fundraiser Handler.
func New(fundraisers Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:      logger,
		fundraisers: fundraisers,
		validator:   validator,
	}
}

// Register registers the fundraiser routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/fundraisers", h.handleCreate)
		r.Get("/fundraisers/{fundraiserID}", h.handleGet)
		r.Get("/fundraisers/{fundraiserID}/stats", h.handleStats)
		r.Post("/fundraisers/{fundraiserID}/share-asset", h.handleCreateShareAsset)
		r.Patch("/fundraisers/{fundraiserID}/share-asset", h.handleUpdateShareAsset)
	})
}

type createRequest struct {
	OfferingHash     string `json:"offering_hash"`
	AcceptedCurrency string `json:"accepted_currency"`
	CurrencyCode     string `json:"currency_code"`
}

type shareAssetResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	MetadataURI string `json:"metadata_uri,omitempty"`
	Decimals    uint8  `json:"decimals"`
	Price       uint64 `json:"price"`
}

type fundraiserResponse struct {
	ID                string              `json:"id"`
	Administrator     string              `json:"administrator"`
	AcceptedCurrency  string              `json:"accepted_currency"`
	CurrencyCode      string              `json:"currency_code"`
	EscrowAccount     string              `json:"escrow_account"`
	TotalRaised       uint64              `json:"total_raised"`
	ReleasedAmount    uint64              `json:"released_amount"`
	InvestmentCounter uint64              `json:"investment_counter"`
	Share             *shareAssetResponse `json:"share_asset,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func toFundraiserResponse(f *fundraiserModel.Fundraiser) fundraiserResponse {
	resp := fundraiserResponse{
		ID:                f.ID.String(),
		Administrator:     f.Administrator.String(),
		AcceptedCurrency:  f.AcceptedCurrency.String(),
		CurrencyCode:      f.CurrencyCode.String(),
		EscrowAccount:     f.EscrowAccount.String(),
		TotalRaised:       f.TotalRaised,
		ReleasedAmount:    f.ReleasedAmount,
		InvestmentCounter: f.InvestmentCounter,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
	if f.Share != nil {
		resp.Share = &shareAssetResponse{
			ID:          f.Share.ID.String(),
			Name:        f.Share.Name,
			Symbol:      f.Share.Symbol,
			MetadataURI: f.Share.MetadataURI,
			Decimals:    f.Share.Decimals,
			Price:       f.Share.Price,
		}
	}
	return resp
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	offeringHash, err := hex.DecodeString(req.OfferingHash)
	if err != nil || len(offeringHash) == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "offering_hash must be non-empty hex"))
		return
	}
	currency, err := id.ParseAssetID(req.AcceptedCurrency)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid accepted_currency"))
		return
	}

	f, err := h.fundraisers.Create(ctx, service.CreateParams{
		OfferingHash:     offeringHash,
		AcceptedCurrency: currency,
		CurrencyCode:     req.CurrencyCode,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "fundraiser creation rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toFundraiserResponse(f))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	fundraiserID, err := id.ParseFundraiserID(chi.URLParam(r, "fundraiserID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid fundraiser id"))
		return
	}
	f, err := h.fundraisers.Get(r.Context(), fundraiserID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toFundraiserResponse(f))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	fundraiserID, err := id.ParseFundraiserID(chi.URLParam(r, "fundraiserID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid fundraiser id"))
		return
	}
	stats, err := h.fundraisers.Stats(r.Context(), fundraiserID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

type createShareAssetRequest struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	MetadataURI string `json:"metadata_uri"`
	Decimals    uint8  `json:"decimals"`
	Price       uint64 `json:"price"`
}

func (h *Handler) handleCreateShareAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fundraiserID, err := id.ParseFundraiserID(chi.URLParam(r, "fundraiserID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid fundraiser id"))
		return
	}

	var req createShareAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	f, err := h.fundraisers.CreateShareAsset(ctx, fundraiserID, service.ShareAssetParams{
		Name:        req.Name,
		Symbol:      req.Symbol,
		MetadataURI: req.MetadataURI,
		Decimals:    req.Decimals,
		Price:       req.Price,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "share asset creation rejected",
			"request_id", requestcontext.RequestID(ctx),
			"fundraiser", fundraiserID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toFundraiserResponse(f))
}

type updateShareAssetRequest struct {
	Price       uint64 `json:"price"`
	MetadataURI string `json:"metadata_uri"`
}

func (h *Handler) handleUpdateShareAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fundraiserID, err := id.ParseFundraiserID(chi.URLParam(r, "fundraiserID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid fundraiser id"))
		return
	}

	var req updateShareAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	f, err := h.fundraisers.UpdateShareAsset(ctx, fundraiserID, req.Price, req.MetadataURI)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toFundraiserResponse(f))
}
