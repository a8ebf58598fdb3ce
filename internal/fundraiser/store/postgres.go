package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"reitvest/internal/fundraiser/models"
	id "reitvest/pkg/domain"
	"reitvest/pkg/platform/sentinel"
	txcontext "reitvest/pkg/platform/tx"
)

// Postgres persists fundraiser aggregates. This store is pure I/O - all
// transition rules live in the models and the service.
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

func (s *Postgres) Create(ctx context.Context, f *models.Fundraiser) error {
	for name, v := range map[string]uint64{
		"total_raised":       f.TotalRaised,
		"released_amount":    f.ReleasedAmount,
		"investment_counter": f.InvestmentCounter,
	} {
		if err := checkRange(name, v); err != nil {
			return err
		}
	}

	q := s.querier(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO fundraisers (
			id, administrator, accepted_currency, currency_code, escrow_account,
			total_raised, released_amount, investment_counter, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, f.ID[:], f.Administrator[:], f.AcceptedCurrency[:], f.CurrencyCode.String(), f.EscrowAccount[:],
		int64(f.TotalRaised), int64(f.ReleasedAmount), int64(f.InvestmentCounter), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create fundraiser: %w", err)
	}

	// ON CONFLICT DO NOTHING swallows the duplicate; detect it explicitly
	// so creation at an occupied key fails instead of overwriting.
	var existing []byte
	row := q.QueryRowContext(ctx, `SELECT administrator FROM fundraisers WHERE id = $1`, f.ID[:])
	if err := row.Scan(&existing); err != nil {
		return fmt.Errorf("verify fundraiser creation: %w", err)
	}
	var admin id.Principal
	copy(admin[:], existing)
	if admin != f.Administrator {
		return sentinel.ErrConflict
	}
	return nil
}

const fundraiserColumns = `
	f.id, f.administrator, f.accepted_currency, f.currency_code, f.escrow_account,
	f.total_raised, f.released_amount, f.investment_counter, f.created_at, f.updated_at,
	a.asset_id, a.name, a.symbol, a.metadata_uri, a.decimals, a.price, a.created_at, a.updated_at
`

const fundraiserSelect = `
	SELECT ` + fundraiserColumns + `
	FROM fundraisers f
	LEFT JOIN share_assets a ON a.fundraiser_id = f.id
	WHERE f.id = $1
`

func (s *Postgres) FindByID(ctx context.Context, fundraiserID id.FundraiserID) (*models.Fundraiser, error) {
	return s.scanOne(s.querier(ctx).QueryRowContext(ctx, fundraiserSelect, fundraiserID[:]))
}

func (s *Postgres) scanOne(row *sql.Row) (*models.Fundraiser, error) {
	var (
		f                                  models.Fundraiser
		idRaw, adminRaw, curRaw, escrowRaw []byte
		code                               string
		raised, released, counter          int64
		assetID                            []byte
		name, symbol, uri                  sql.NullString
		decimals                           sql.NullInt16
		price                              sql.NullInt64
		assetCreated, assetUpdated         sql.NullTime
	)
	err := row.Scan(&idRaw, &adminRaw, &curRaw, &code, &escrowRaw,
		&raised, &released, &counter, &f.CreatedAt, &f.UpdatedAt,
		&assetID, &name, &symbol, &uri, &decimals, &price, &assetCreated, &assetUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan fundraiser: %w", err)
	}

	copy(f.ID[:], idRaw)
	copy(f.Administrator[:], adminRaw)
	copy(f.AcceptedCurrency[:], curRaw)
	copy(f.EscrowAccount[:], escrowRaw)
	parsedCode, err := models.ParseCurrencyCode(code)
	if err != nil {
		return nil, fmt.Errorf("fundraiser %x: %w", idRaw, sentinel.ErrCorrupted)
	}
	f.CurrencyCode = parsedCode
	f.TotalRaised = uint64(raised)
	f.ReleasedAmount = uint64(released)
	f.InvestmentCounter = uint64(counter)

	if len(assetID) > 0 {
		share := models.ShareAsset{
			Name:        name.String,
			Symbol:      symbol.String,
			MetadataURI: uri.String,
			Decimals:    uint8(decimals.Int16),
			Price:       uint64(price.Int64),
			CreatedAt:   assetCreated.Time,
			UpdatedAt:   assetUpdated.Time,
		}
		copy(share.ID[:], assetID)
		f.Share = &share
	}
	return &f, nil
}

func (s *Postgres) Execute(ctx context.Context, fundraiserID id.FundraiserID,
	validate func(*models.Fundraiser) error,
	apply func(*models.Fundraiser)) (*models.Fundraiser, error) {

	dbTx, ok := txcontext.From(ctx)
	owned := false
	if !ok {
		var err error
		dbTx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin fundraiser execute: %w", err)
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
	f, err := s.scanOne(dbTx.QueryRowContext(ctx, fundraiserSelect+" FOR UPDATE OF f", fundraiserID[:]))
	if err != nil {
		return nil, finish(err)
	}
	if err := validate(f); err != nil {
		return nil, finish(err)
	}
	apply(f)

	if err := s.persist(ctx, dbTx, f); err != nil {
		return nil, finish(err)
	}
	if err := finish(nil); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Postgres) persist(ctx context.Context, q querier, f *models.Fundraiser) error {
	for name, v := range map[string]uint64{
		"total_raised":       f.TotalRaised,
		"released_amount":    f.ReleasedAmount,
		"investment_counter": f.InvestmentCounter,
	} {
		if err := checkRange(name, v); err != nil {
			return err
		}
	}

	if _, err := q.ExecContext(ctx, `
		UPDATE fundraisers SET
			total_raised = $2, released_amount = $3, investment_counter = $4, updated_at = $5
		WHERE id = $1
	`, f.ID[:], int64(f.TotalRaised), int64(f.ReleasedAmount), int64(f.InvestmentCounter), f.UpdatedAt); err != nil {
		return fmt.Errorf("update fundraiser: %w", err)
	}

	if f.Share != nil {
		if err := checkRange("share_price", f.Share.Price); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO share_assets (fundraiser_id, asset_id, name, symbol, metadata_uri, decimals, price, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (fundraiser_id) DO UPDATE SET
				name = EXCLUDED.name,
				symbol = EXCLUDED.symbol,
				metadata_uri = EXCLUDED.metadata_uri,
				decimals = EXCLUDED.decimals,
				price = EXCLUDED.price,
				updated_at = EXCLUDED.updated_at
		`, f.ID[:], f.Share.ID[:], f.Share.Name, f.Share.Symbol, f.Share.MetadataURI,
			int16(f.Share.Decimals), int64(f.Share.Price), f.Share.CreatedAt, f.Share.UpdatedAt); err != nil {
			return fmt.Errorf("upsert share asset: %w", err)
		}
	}
	return nil
}
