package models

import (
	"fmt"
	"math"
	"time"

	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
)

// CurrencyCode is the advisory three-letter display label for the currency
// the campaign converts into (e.g. "CAD"). Never enforced against
// transfers.
type CurrencyCode [3]byte

func (c CurrencyCode) String() string { return string(c[:]) }

// ParseCurrencyCode validates the fixed-length label.
func ParseCurrencyCode(s string) (CurrencyCode, error) {
	var c CurrencyCode
	if len(s) != 3 {
		return c, dErrors.New(dErrors.CodeBadRequest, "currency code must be exactly 3 characters")
	}
	copy(c[:], s)
	return c, nil
}

// ShareAsset describes the fungible unit representing proportional REIT
// ownership, issued 1 per Price units of deposited currency.
type ShareAsset struct {
	ID          id.AssetID
	Name        string
	Symbol      string
	MetadataURI string
	Decimals    uint8
	Price       uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Fundraiser is the aggregate root for one campaign.
//
// Invariants:
//   - Administrator is set at creation and immutable
//   - ReleasedAmount <= TotalRaised at all times
//   - TotalRaised and ReleasedAmount are monotonically non-decreasing;
//     refunds reverse custody of funds, not historical accounting
//   - TotalRaised equals the sum of deposit amounts over every investment
//     ever created under this fundraiser
//   - InvestmentCounter is strictly increasing
//   - Share is nil until share-asset creation completes
type Fundraiser struct {
	ID                id.FundraiserID
	Administrator     id.Principal
	AcceptedCurrency  id.AssetID
	CurrencyCode      CurrencyCode
	EscrowAccount     id.Principal
	Share             *ShareAsset
	TotalRaised       uint64
	ReleasedAmount    uint64
	InvestmentCounter uint64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewFundraiser constructs a campaign with all counters at zero and the
// escrow pool derived from the campaign key (a keyless custody account).
func NewFundraiser(fundraiserID id.FundraiserID, admin id.Principal, acceptedCurrency id.AssetID, code CurrencyCode, now time.Time) (*Fundraiser, error) {
	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "administrator is required")
	}
	if acceptedCurrency.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "accepted currency is required")
	}
	return &Fundraiser{
		ID:               fundraiserID,
		Administrator:    admin,
		AcceptedCurrency: acceptedCurrency,
		CurrencyCode:     code,
		EscrowAccount:    id.DeriveEscrowAccount(fundraiserID),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsAdmin reports whether principal is the campaign administrator. Every
// administrator-gated operation evaluates this first and fails closed.
func (f *Fundraiser) IsAdmin(principal id.Principal) bool {
	return principal == f.Administrator
}

// SharePrice returns the bound share price, zero when no share asset exists.
func (f *Fundraiser) SharePrice() uint64 {
	if f.Share == nil {
		return 0
	}
	return f.Share.Price
}

// CanAccrue checks that recording a new deposit neither overflows the
// raised total nor the investment counter.
func (f *Fundraiser) CanAccrue(amount uint64) error {
	if f.TotalRaised > math.MaxUint64-amount {
		return dErrors.New(dErrors.CodeArithmeticOverflow, "total raised would overflow")
	}
	if f.InvestmentCounter == math.MaxUint64 {
		return dErrors.New(dErrors.CodeInvestmentCounterOverflow, "fundraiser investment counter exhausted")
	}
	return nil
}

// ApplyAccrual records a new deposit. Call CanAccrue first; this method
// never fails.
func (f *Fundraiser) ApplyAccrual(amount uint64, now time.Time) {
	f.TotalRaised += amount
	f.InvestmentCounter++
	f.UpdatedAt = now
}

// CanRelease checks that releasing amount keeps the ledger arithmetic
// sound, including the released <= raised invariant.
func (f *Fundraiser) CanRelease(amount uint64) error {
	if f.ReleasedAmount > math.MaxUint64-amount {
		return dErrors.New(dErrors.CodeArithmeticOverflow, "released amount would overflow")
	}
	if f.ReleasedAmount+amount > f.TotalRaised {
		return dErrors.New(dErrors.CodeArithmeticOverflow,
			fmt.Sprintf("release of %d would exceed total raised %d", amount, f.TotalRaised))
	}
	return nil
}

// ApplyRelease records currency leaving escrow toward the administrator.
func (f *Fundraiser) ApplyRelease(amount uint64, now time.Time) {
	f.ReleasedAmount += amount
	f.UpdatedAt = now
}

// CanBindShareAsset checks that no share asset is bound yet. Re-binding
// after issuance has begun is a caller responsibility; the ledger only
// guards the initial binding.
func (f *Fundraiser) CanBindShareAsset() error {
	if f.Share != nil {
		return dErrors.New(dErrors.CodeConflict, "share asset already created for this fundraiser")
	}
	return nil
}

// ApplyShareAsset binds the issued-share asset.
func (f *Fundraiser) ApplyShareAsset(share ShareAsset, now time.Time) {
	share.CreatedAt = now
	share.UpdatedAt = now
	f.Share = &share
	f.UpdatedAt = now
}

// CanUpdateShareAsset checks that a share asset exists to update.
func (f *Fundraiser) CanUpdateShareAsset() error {
	if f.Share == nil {
		return dErrors.New(dErrors.CodeNotFound, "no share asset created for this fundraiser")
	}
	return nil
}

// ApplyShareAssetUpdate mutates price and metadata of the bound asset.
func (f *Fundraiser) ApplyShareAssetUpdate(price uint64, metadataURI string, now time.Time) {
	f.Share.Price = price
	if metadataURI != "" {
		f.Share.MetadataURI = metadataURI
	}
	f.Share.UpdatedAt = now
	f.UpdatedAt = now
}

// Clone returns a deep copy so store reads never alias live aggregate state.
func (f *Fundraiser) Clone() *Fundraiser {
	out := *f
	if f.Share != nil {
		share := *f.Share
		out.Share = &share
	}
	return &out
}
