package models

import (
	"fmt"
	"time"

	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
	"reitvest/pkg/platform/sentinel"
)

// Status is the investment lifecycle discriminant. The numeric values are
// persisted, so they are append-only: new statuses take new values and
// existing ones never renumber.
type Status uint8

const (
	// StatusPending: funds sit in escrow awaiting the administrator.
	StatusPending Status = 0
	// StatusReleased: funds moved escrow -> administrator for conversion.
	StatusReleased Status = 1
	// StatusRefunded: terminal; funds returned to the investor.
	StatusRefunded Status = 2
	// StatusWired: off-ledger wire to the REIT confirmed; no funds moved.
	StatusWired Status = 3
	// StatusShareIssued: terminal; shares minted to the investor.
	StatusShareIssued Status = 4
	// StatusShareSold is reserved for secondary-market support. No
	// transition produces it yet.
	StatusShareSold Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReleased:
		return "released"
	case StatusRefunded:
		return "refunded"
	case StatusWired:
		return "wired"
	case StatusShareIssued:
		return "share_issued"
	case StatusShareSold:
		return "share_sold"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ParseStatus validates a persisted discriminant. An out-of-range value
// means a corrupted record, not a caller error.
func ParseStatus(v uint8) (Status, error) {
	if v > uint8(StatusShareSold) {
		return 0, fmt.Errorf("investment status %d: %w", v, sentinel.ErrCorrupted)
	}
	return Status(v), nil
}

// Investment is one investor's deposit into one campaign, tracked from
// escrow custody through to shares or refund.
type Investment struct {
	ID          id.InvestmentID
	Investor    id.InvestorID
	InvestorKey id.Principal
	Fundraiser  id.FundraiserID
	Sequence    uint64
	Amount      uint64
	ShareAmount uint64
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewInvestment constructs a Pending record. The key is derived from
// (investor, fundraiser, sequence), so a replayed sequence value can never
// mint a second record.
func NewInvestment(investorKey id.Principal, fundraiser id.FundraiserID, sequence, amount uint64, now time.Time) (*Investment, error) {
	if amount == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "investment amount must be positive")
	}
	return &Investment{
		ID:          id.DeriveInvestmentID(investorKey, fundraiser, sequence),
		Investor:    id.DeriveInvestorID(investorKey),
		InvestorKey: investorKey,
		Fundraiser:  fundraiser,
		Sequence:    sequence,
		Amount:      amount,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// BelongsTo checks the record against the campaign the caller named.
// Every transition runs this before anything else touches money.
func (i *Investment) BelongsTo(fundraiserID id.FundraiserID) error {
	if i.Fundraiser != fundraiserID {
		return dErrors.New(dErrors.CodeInvalidFundraiserMismatch, "investment does not belong to this fundraiser")
	}
	return nil
}

// IsOpen reports whether the investment still has a claim on escrow or
// undelivered shares. Open investments block investor closure.
func (i *Investment) IsOpen() bool {
	switch i.Status {
	case StatusPending, StatusReleased, StatusWired:
		return true
	default:
		return false
	}
}

func (i *Investment) statusError(want Status) error {
	return dErrors.New(dErrors.CodeInvalidInvestmentStatus,
		fmt.Sprintf("investment is %s, requires %s", i.Status, want))
}

// CanRelease checks Pending -> Released.
func (i *Investment) CanRelease() error {
	if i.Status != StatusPending {
		return i.statusError(StatusPending)
	}
	return nil
}

// ApplyRelease records the transition. Call CanRelease first.
func (i *Investment) ApplyRelease(now time.Time) {
	i.Status = StatusReleased
	i.UpdatedAt = now
}

// CanWire checks Released -> Wired.
func (i *Investment) CanWire() error {
	if i.Status != StatusReleased {
		return i.statusError(StatusReleased)
	}
	return nil
}

// ApplyWire records the transition. Moves no funds; the wire itself happens
// off-ledger.
func (i *Investment) ApplyWire(now time.Time) {
	i.Status = StatusWired
	i.UpdatedAt = now
}

// CanRefund checks Released -> Refunded. Pending deposits are not
// refundable directly; release them first so the escrow accounting stays
// single-path.
func (i *Investment) CanRefund() error {
	if i.Status != StatusReleased {
		return i.statusError(StatusReleased)
	}
	return nil
}

// ApplyRefund records the terminal refund transition.
func (i *Investment) ApplyRefund(now time.Time) {
	i.Status = StatusRefunded
	i.UpdatedAt = now
}

// CanIssueShare checks Wired -> ShareIssued.
func (i *Investment) CanIssueShare() error {
	if i.Status != StatusWired {
		return i.statusError(StatusWired)
	}
	return nil
}

// ApplyIssueShare records the minted share count and the terminal
// transition.
func (i *Investment) ApplyIssueShare(shareAmount uint64, now time.Time) {
	i.ShareAmount = shareAmount
	i.Status = StatusShareIssued
	i.UpdatedAt = now
}

// CanReceiveDividend checks eligibility. Dividends require issued shares
// and leave the status untouched; the same investment can receive any
// number of distributions.
func (i *Investment) CanReceiveDividend() error {
	if i.Status != StatusShareIssued {
		return i.statusError(StatusShareIssued)
	}
	return nil
}

// Shares converts a deposit into whole shares at the given price, flooring
// the remainder. The sub-price remainder stays in the deposit accounting.
func Shares(amount, sharePrice uint64) (uint64, error) {
	if sharePrice == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidAmount, "share price is not set")
	}
	return amount / sharePrice, nil
}

// Clone returns a copy so store reads never alias live state.
func (i *Investment) Clone() *Investment {
	out := *i
	return &out
}
