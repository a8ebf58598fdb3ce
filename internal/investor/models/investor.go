package models

import (
	"math"
	"time"

	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
)

// Investor is one registered participant. Its record key is derived from
// the participant's principal, so a principal owns at most one record and
// re-registration is always detectable.
//
// InvestmentCounter is the investor-scoped sequence: each new investment
// consumes the current value, which makes investment keys deterministic and
// collision-free across concurrent deposits by the same investor.
type Investor struct {
	ID                id.InvestorID
	Key               id.Principal
	InvestmentCounter uint64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewInvestor constructs a record for the given principal with the sequence
// at zero.
func NewInvestor(key id.Principal, now time.Time) *Investor {
	return &Investor{
		ID:        id.DeriveInvestorID(key),
		Key:       key,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanAdvance checks that the sequence has room for one more investment.
func (inv *Investor) CanAdvance() error {
	if inv.InvestmentCounter == math.MaxUint64 {
		return dErrors.New(dErrors.CodeInvestmentCounterOverflow, "investor sequence exhausted")
	}
	return nil
}

// NextSequence returns the sequence value the next investment will consume.
func (inv *Investor) NextSequence() uint64 {
	return inv.InvestmentCounter
}

// ApplyAdvance consumes one sequence value. Call CanAdvance first.
func (inv *Investor) ApplyAdvance(now time.Time) {
	inv.InvestmentCounter++
	inv.UpdatedAt = now
}

// Clone returns a copy so store reads never alias live state.
func (inv *Investor) Clone() *Investor {
	out := *inv
	return &out
}
