package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reitvest/internal/identity/models"
	id "reitvest/pkg/domain"
	"reitvest/pkg/platform/sentinel"
)

// Postgres persists account credentials.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, a *models.Account) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (principal, name, secret_hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (principal) DO NOTHING
	`, a.Principal[:], a.Name, a.SecretHash, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify account creation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) FindByPrincipal(ctx context.Context, principal id.Principal) (*models.Account, error) {
	var (
		a   models.Account
		raw []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT principal, name, secret_hash, created_at FROM accounts WHERE principal = $1
	`, principal[:]).Scan(&raw, &a.Name, &a.SecretHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	copy(a.Principal[:], raw)
	return &a, nil
}
