package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	identityModel "reitvest/internal/identity/models"
	"reitvest/internal/transport/http/shared"
	dErrors "reitvest/pkg/domain-errors"
	"reitvest/pkg/requestcontext"
)

// Service defines the identity operations the handler depends on.
type Service interface {
	Register(ctx context.Context, name, secret string) (*identityModel.Account, error)
	Token(ctx context.Context, name, secret string) (string, time.Time, error)
}

// Handler handles registration and token endpoints. These routes sit
// outside RequireAuth - they are how callers obtain tokens.
type Handler struct {
	logger   *slog.Logger
	identity Service
}

// New creates a new identity Handler.
func New(identity Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, identity: identity}
}

// Register registers the identity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/token", h.handleToken)
}

type credentialsRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

type registerResponse struct {
	Principal string `json:"principal"`
	Name      string `json:"name"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	account, err := h.identity.Register(ctx, req.Name, req.Secret)
	if err != nil {
		h.logger.WarnContext(ctx, "registration rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, registerResponse{
		Principal: account.Principal.String(),
		Name:      account.Name,
	})
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	token, expiresAt, err := h.identity.Token(ctx, req.Name, req.Secret)
	if err != nil {
		h.logger.WarnContext(ctx, "token request rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.Unix(),
	})
}
