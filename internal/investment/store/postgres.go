package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"reitvest/internal/investment/models"
	id "reitvest/pkg/domain"
	"reitvest/pkg/platform/sentinel"
	txcontext "reitvest/pkg/platform/tx"
)

// Postgres persists investment records. Pure I/O; transition rules live in
// the models and the service.
//
// Amounts are stored as BIGINT; values above math.MaxInt64 micro-units are
// rejected on write rather than silently wrapped.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) querier(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func checkRange(name string, v uint64) error {
	if v > math.MaxInt64 {
		return fmt.Errorf("%s %d exceeds storable range", name, v)
	}
	return nil
}

func (s *Postgres) Create(ctx context.Context, i *models.Investment) error {
	for name, v := range map[string]uint64{
		"amount":       i.Amount,
		"share_amount": i.ShareAmount,
		"sequence":     i.Sequence,
	} {
		if err := checkRange(name, v); err != nil {
			return err
		}
	}

	res, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO investments (
			id, investor_id, investor_key, fundraiser_id, sequence,
			amount, share_amount, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, i.ID[:], i.Investor[:], i.InvestorKey[:], i.Fundraiser[:], int64(i.Sequence),
		int64(i.Amount), int64(i.ShareAmount), int16(i.Status), i.CreatedAt, i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create investment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify investment creation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

const investmentColumns = `
	id, investor_id, investor_key, fundraiser_id, sequence,
	amount, share_amount, status, created_at, updated_at
`

const investmentSelect = `
	SELECT ` + investmentColumns + `
	FROM investments
	WHERE id = $1
`

func (s *Postgres) FindByID(ctx context.Context, investmentID id.InvestmentID) (*models.Investment, error) {
	return scanInvestment(s.querier(ctx).QueryRowContext(ctx, investmentSelect, investmentID[:]))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvestment(row rowScanner) (*models.Investment, error) {
	var (
		i                                     models.Investment
		idRaw, investorRaw, keyRaw, fundRaw   []byte
		sequence, amount, shareAmount, status int64
	)
	err := row.Scan(&idRaw, &investorRaw, &keyRaw, &fundRaw, &sequence,
		&amount, &shareAmount, &status, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan investment: %w", err)
	}
	copy(i.ID[:], idRaw)
	copy(i.Investor[:], investorRaw)
	copy(i.InvestorKey[:], keyRaw)
	copy(i.Fundraiser[:], fundRaw)
	i.Sequence = uint64(sequence)
	i.Amount = uint64(amount)
	i.ShareAmount = uint64(shareAmount)
	parsed, err := models.ParseStatus(uint8(status))
	if err != nil {
		return nil, fmt.Errorf("investment %x: %w", idRaw, err)
	}
	i.Status = parsed
	return &i, nil
}

func (s *Postgres) list(ctx context.Context, query string, arg []byte) ([]*models.Investment, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	var out []*models.Investment
	for rows.Next() {
		i, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (s *Postgres) ListByFundraiser(ctx context.Context, fundraiserID id.FundraiserID) ([]*models.Investment, error) {
	return s.list(ctx, `
		SELECT `+investmentColumns+`
		FROM investments
		WHERE fundraiser_id = $1
		ORDER BY created_at, sequence
	`, fundraiserID[:])
}

func (s *Postgres) ListByInvestor(ctx context.Context, investorID id.InvestorID) ([]*models.Investment, error) {
	return s.list(ctx, `
		SELECT `+investmentColumns+`
		FROM investments
		WHERE investor_id = $1
		ORDER BY created_at, sequence
	`, investorID[:])
}

func (s *Postgres) CountOpenByInvestor(ctx context.Context, investorID id.InvestorID) (int64, error) {
	var n int64
	err := s.querier(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM investments
		WHERE investor_id = $1 AND status IN ($2, $3, $4)
	`, investorID[:], int16(models.StatusPending), int16(models.StatusReleased), int16(models.StatusWired)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open investments: %w", err)
	}
	return n, nil
}

func (s *Postgres) Execute(ctx context.Context, investmentID id.InvestmentID,
	validate func(*models.Investment) error,
	apply func(*models.Investment)) (*models.Investment, error) {

	dbTx, ok := txcontext.From(ctx)
	owned := false
	if !ok {
		var err error
		dbTx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin investment execute: %w", err)
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

	// Row lock held across validate and apply.
	i, err := scanInvestment(dbTx.QueryRowContext(ctx, investmentSelect+" FOR UPDATE", investmentID[:]))
	if err != nil {
		return nil, finish(err)
	}
	if err := validate(i); err != nil {
		return nil, finish(err)
	}
	apply(i)

	if err := checkRange("share_amount", i.ShareAmount); err != nil {
		return nil, finish(err)
	}
	if _, err := dbTx.ExecContext(ctx, `
		UPDATE investments SET share_amount = $2, status = $3, updated_at = $4 WHERE id = $1
	`, i.ID[:], int64(i.ShareAmount), int16(i.Status), i.UpdatedAt); err != nil {
		return nil, finish(fmt.Errorf("update investment: %w", err))
	}
	if err := finish(nil); err != nil {
		return nil, err
	}
	return i, nil
}
