// Package custody models the external currency-transfer service the ledger
// drives. The orchestrator holds a Custodian by composition and asks it to
// move value; it never holds key material for any account.
//
// The escrow pool of a fundraiser is a derived principal with no private
// key (domain.DeriveEscrowAccount). Only the ledger's lifecycle operations
// request transfers out of it, which is the custody-authority model the
// product requires: escrowed deposits cannot move except through a legal
// transition.
package custody

import (
	"context"
	"errors"

	id "reitvest/pkg/domain"
)

// ErrBalanceOverflow is returned when crediting an account would exceed the
// representable balance. The custodian never wraps values around.
var ErrBalanceOverflow = errors.New("balance overflow")

// Custodian is the transfer capability the lifecycle orchestrator holds.
// Implementations are trusted to reject over-draw attempts
// (sentinel.ErrInsufficientFunds) and must never create currency out of
// nothing - Mint exists solely for issuing the fundraiser's share asset.
type Custodian interface {
	// Transfer moves amount of asset between two accounts. The caller is
	// responsible for having authorized the movement; the custodian only
	// enforces balance sufficiency.
	Transfer(ctx context.Context, asset id.AssetID, from, to id.Principal, amount uint64) error

	// Mint credits newly issued units of asset to an account. Used for
	// share issuance only.
	Mint(ctx context.Context, asset id.AssetID, to id.Principal, amount uint64) error

	// Balance reports the current holdings of an account.
	Balance(ctx context.Context, asset id.AssetID, holder id.Principal) (uint64, error)
}
