package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"reitvest/internal/identity/models"
	"reitvest/internal/identity/secrets"
	"reitvest/internal/identity/store"
	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
	"reitvest/pkg/platform/sentinel"
)

const issuer = "reitvest"

// Claims represents the JWT claims for our access tokens.
type Claims struct {
	Principal string `json:"principal"`
	jwt.RegisteredClaims
}

// Service registers accounts and issues HS256 access tokens. It implements
// middleware.TokenValidator.
type Service struct {
	accounts   store.Store
	signingKey []byte
	tokenTTL   time.Duration
	logger     *slog.Logger
}

func NewService(accounts store.Store, signingKey string, tokenTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		accounts:   accounts,
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
		logger:     logger,
	}
}

// Register creates an account and returns its derived principal.
func (s *Service) Register(ctx context.Context, name, secret string) (*models.Account, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "account name is required")
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return nil, err
	}

	account := models.NewAccount(name, hash, time.Now().UTC())
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "account name is taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	s.logger.InfoContext(ctx, "account registered", "principal", account.Principal.String())
	return account, nil
}

// Token verifies the credentials and issues a signed access token.
func (s *Service) Token(ctx context.Context, name, secret string) (string, time.Time, error) {
	principal := id.DerivePrincipal(name)
	account, err := s.accounts.FindByPrincipal(ctx, principal)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Same rejection as a wrong secret; existence is not disclosed.
			return "", time.Time{}, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "account lookup failed")
	}
	if err := secrets.Verify(secret, account.SecretHash); err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Principal: account.Principal.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   account.Principal.String(),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "token signing failed")
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies an access token, returning the
// principal it was issued to.
func (s *Service) ValidateToken(tokenString string) (id.Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return id.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return id.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return id.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	principal, err := id.ParsePrincipal(claims.Principal)
	if err != nil {
		return id.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return principal, nil
}
