package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reitvest/internal/audit"
	"reitvest/internal/fundraiser/metrics"
	"reitvest/internal/fundraiser/models"
	"reitvest/internal/fundraiser/store"
	"reitvest/internal/platform/redis"
	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
	"reitvest/pkg/platform/sentinel"
	"reitvest/pkg/platform/tx"
	"reitvest/pkg/requestcontext"
)

// Service orchestrates fundraiser lifecycle management: campaign creation
// and share-asset binding. Deposit accounting against the aggregate happens
// in the investment service as transition side effects, never directly.
type Service struct {
	fundraisers store.Store
	runner      tx.Runner
	auditor     *audit.Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	statsCache  *redis.Client
	statsTTL    time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithStatsCache enables the Redis read-through cache for aggregate stats.
// Stats served from cache may lag the ledger by up to ttl; the ledger
// itself is never read through the cache.
func WithStatsCache(client *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.statsCache = client
		s.statsTTL = ttl
	}
}

func NewService(fundraisers store.Store, runner tx.Runner, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		fundraisers: fundraisers,
		runner:      runner,
		auditor:     auditor,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries the inputs for campaign creation.
type CreateParams struct {
	// OfferingHash is the digest of the REIT listing this campaign funds.
	// The fundraiser key is derived from it, so the same offering always
	// maps to the same campaign record.
	OfferingHash     []byte
	AcceptedCurrency id.AssetID
	CurrencyCode     string
}

// Create initializes a campaign with the acting principal as its immutable
// administrator. The escrow pool account is derived alongside the campaign
// key; no private key exists for it.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Fundraiser, error) {
	admin := requestcontext.Principal(ctx)
	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no authenticated principal")
	}
	if len(params.OfferingHash) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "offering hash is required")
	}
	code, err := models.ParseCurrencyCode(params.CurrencyCode)
	if err != nil {
		return nil, err
	}

	fundraiserID := id.DeriveFundraiserID(params.OfferingHash)
	f, err := models.NewFundraiser(fundraiserID, admin, params.AcceptedCurrency, code, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.fundraisers.Create(txCtx, f); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "fundraiser already exists for this offering")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create fundraiser")
		}
		return s.auditor.Emit(txCtx, audit.Event{
			Action:     audit.ActionFundraiserCreated,
			Actor:      admin.String(),
			Fundraiser: fundraiserID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.FundraisersCreated.Inc()
	}
	s.logger.InfoContext(ctx, "fundraiser created",
		"fundraiser", fundraiserID.String(),
		"administrator", admin.String(),
		"currency_code", code.String(),
	)
	return f, nil
}

// ShareAssetParams carries share-asset creation inputs.
type ShareAssetParams struct {
	Name        string
	Symbol      string
	MetadataURI string
	Decimals    uint8
	Price       uint64
}

// CreateShareAsset binds the issued-share asset to a campaign. Administrator
// gated; binds exactly once.
func (s *Service) CreateShareAsset(ctx context.Context, fundraiserID id.FundraiserID, params ShareAssetParams) (*models.Fundraiser, error) {
	principal := requestcontext.Principal(ctx)
	if params.Price == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "share price must be positive")
	}
	if params.Name == "" || params.Symbol == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "share asset name and symbol are required")
	}

	share := models.ShareAsset{
		ID:          id.DeriveShareAssetID(fundraiserID),
		Name:        params.Name,
		Symbol:      params.Symbol,
		MetadataURI: params.MetadataURI,
		Decimals:    params.Decimals,
		Price:       params.Price,
	}

	var updated *models.Fundraiser
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		f, err := s.fundraisers.Execute(txCtx, fundraiserID,
			func(f *models.Fundraiser) error {
				if !f.IsAdmin(principal) {
					return dErrors.New(dErrors.CodeInvalidAuthority, "only the administrator may create the share asset")
				}
				return f.CanBindShareAsset()
			},
			func(f *models.Fundraiser) {
				f.ApplyShareAsset(share, now)
			})
		if err != nil {
			return wrapFundraiserErr(err)
		}
		updated = f
		return s.auditor.Emit(txCtx, audit.Event{
			Action:     audit.ActionShareAssetCreated,
			Actor:      principal.String(),
			Fundraiser: fundraiserID.String(),
			Amount:     params.Price,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ShareAssetsCreated.Inc()
	}
	return updated, nil
}

// UpdateShareAsset mutates the bound asset's price and metadata URI.
// Administrator gated. Changing the price while issuance is in flight is a
// caller responsibility, matching the binding rule.
func (s *Service) UpdateShareAsset(ctx context.Context, fundraiserID id.FundraiserID, price uint64, metadataURI string) (*models.Fundraiser, error) {
	principal := requestcontext.Principal(ctx)
	if price == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "share price must be positive")
	}

	var updated *models.Fundraiser
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		f, err := s.fundraisers.Execute(txCtx, fundraiserID,
			func(f *models.Fundraiser) error {
				if !f.IsAdmin(principal) {
					return dErrors.New(dErrors.CodeInvalidAuthority, "only the administrator may update the share asset")
				}
				return f.CanUpdateShareAsset()
			},
			func(f *models.Fundraiser) {
				f.ApplyShareAssetUpdate(price, metadataURI, now)
			})
		if err != nil {
			return wrapFundraiserErr(err)
		}
		updated = f
		return s.auditor.Emit(txCtx, audit.Event{
			Action:     audit.ActionShareAssetUpdated,
			Actor:      principal.String(),
			Fundraiser: fundraiserID.String(),
			Amount:     price,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get returns the aggregate.
func (s *Service) Get(ctx context.Context, fundraiserID id.FundraiserID) (*models.Fundraiser, error) {
	f, err := s.fundraisers.FindByID(ctx, fundraiserID)
	if err != nil {
		return nil, wrapFundraiserErr(err)
	}
	return f, nil
}

// Stats is the cached aggregate view served to dashboards.
type Stats struct {
	Fundraiser        string `json:"fundraiser"`
	CurrencyCode      string `json:"currency_code"`
	TotalRaised       uint64 `json:"total_raised"`
	ReleasedAmount    uint64 `json:"released_amount"`
	EscrowOutstanding uint64 `json:"escrow_outstanding"`
	InvestmentCount   uint64 `json:"investment_count"`
	SharePrice        uint64 `json:"share_price,omitempty"`
}

func statsKey(fundraiserID id.FundraiserID) string {
	return "fundraiser:stats:" + fundraiserID.String()
}

// Stats returns aggregate campaign numbers, served from Redis when fresh.
func (s *Service) Stats(ctx context.Context, fundraiserID id.FundraiserID) (*Stats, error) {
	if s.statsCache != nil {
		raw, err := s.statsCache.Get(ctx, statsKey(fundraiserID)).Bytes()
		if err == nil {
			var cached Stats
			if err := json.Unmarshal(raw, &cached); err == nil {
				if s.metrics != nil {
					s.metrics.StatsCacheHits.Inc()
				}
				return &cached, nil
			}
		}
	}

	f, err := s.fundraisers.FindByID(ctx, fundraiserID)
	if err != nil {
		return nil, wrapFundraiserErr(err)
	}
	if s.metrics != nil {
		s.metrics.StatsCacheMisses.Inc()
	}

	stats := &Stats{
		Fundraiser:        f.ID.String(),
		CurrencyCode:      f.CurrencyCode.String(),
		TotalRaised:       f.TotalRaised,
		ReleasedAmount:    f.ReleasedAmount,
		EscrowOutstanding: f.TotalRaised - f.ReleasedAmount,
		InvestmentCount:   f.InvestmentCounter,
		SharePrice:        f.SharePrice(),
	}

	if s.statsCache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.statsCache.Set(ctx, statsKey(fundraiserID), raw, s.statsTTL).Err(); err != nil {
				s.logger.WarnContext(ctx, "stats cache write failed", "error", err)
			}
		}
	}
	return stats, nil
}

func wrapFundraiserErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "fundraiser not found")
	case errors.Is(err, sentinel.ErrCorrupted):
		return dErrors.Wrap(err, dErrors.CodeInternal, "fundraiser record corrupted")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("fundraiser store: %v", err))
	}
}
