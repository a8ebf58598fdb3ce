package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"reitvest/internal/investor/models"
	id "reitvest/pkg/domain"
	"reitvest/pkg/platform/sentinel"
	txcontext "reitvest/pkg/platform/tx"
)

// Postgres persists investor records. Pure I/O; sequence rules live in the
// models.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) querier(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, inv *models.Investor) error {
	if inv.InvestmentCounter > math.MaxInt64 {
		return fmt.Errorf("investment_counter %d exceeds storable range", inv.InvestmentCounter)
	}

	q := s.querier(ctx)
	res, err := q.ExecContext(ctx, `
		INSERT INTO investors (id, key, investment_counter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, inv.ID[:], inv.Key[:], int64(inv.InvestmentCounter), inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create investor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify investor creation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

const investorSelect = `
	SELECT id, key, investment_counter, created_at, updated_at
	FROM investors
	WHERE id = $1
`

func (s *Postgres) FindByID(ctx context.Context, investorID id.InvestorID) (*models.Investor, error) {
	return scanInvestor(s.querier(ctx).QueryRowContext(ctx, investorSelect, investorID[:]))
}

func scanInvestor(row *sql.Row) (*models.Investor, error) {
	var (
		inv           models.Investor
		idRaw, keyRaw []byte
		counter       int64
	)
	err := row.Scan(&idRaw, &keyRaw, &counter, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan investor: %w", err)
	}
	copy(inv.ID[:], idRaw)
	copy(inv.Key[:], keyRaw)
	inv.InvestmentCounter = uint64(counter)
	return &inv, nil
}

func (s *Postgres) Execute(ctx context.Context, investorID id.InvestorID,
	validate func(*models.Investor) error,
	apply func(*models.Investor)) (*models.Investor, error) {

	dbTx, ok := txcontext.From(ctx)
	owned := false
	if !ok {
		var err error
		dbTx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin investor execute: %w", err)
		}
		owned = true
		ctx = txcontext.WithTx(ctx, dbTx)
	}
	finish := func(err error) error {
		if !owned {
			return err
		}
		if err != nil {
			_ = dbTx.Rollback()
			return err
		}
		return dbTx.Commit()
	}

	inv, err := scanInvestor(dbTx.QueryRowContext(ctx, investorSelect+" FOR UPDATE", investorID[:]))
	if err != nil {
		return nil, finish(err)
	}
	if err := validate(inv); err != nil {
		return nil, finish(err)
	}
	apply(inv)

	if inv.InvestmentCounter > math.MaxInt64 {
		return nil, finish(fmt.Errorf("investment_counter %d exceeds storable range", inv.InvestmentCounter))
	}
	if _, err := dbTx.ExecContext(ctx, `
		UPDATE investors SET investment_counter = $2, updated_at = $3 WHERE id = $1
	`, inv.ID[:], int64(inv.InvestmentCounter), inv.UpdatedAt); err != nil {
		return nil, finish(fmt.Errorf("update investor: %w", err))
	}
	if err := finish(nil); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Postgres) Delete(ctx context.Context, investorID id.InvestorID) error {
	res, err := s.querier(ctx).ExecContext(ctx, `DELETE FROM investors WHERE id = $1`, investorID[:])
	if err != nil {
		return fmt.Errorf("delete investor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify investor deletion: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
