package custody

import (
	"context"
	"fmt"
	"math"
	"sync"

	id "reitvest/pkg/domain"
	"reitvest/pkg/platform/sentinel"
)

type accountKey struct {
	asset  id.AssetID
	holder id.Principal
}

// InMemoryBank is the in-process custodian used by unit tests and the
// in-memory deployment mode. Balances are unsigned and every mutation is
// checked; a failed transfer leaves both accounts untouched.
type InMemoryBank struct {
	mu       sync.RWMutex
	balances map[accountKey]uint64
}

func NewInMemoryBank() *InMemoryBank {
	return &InMemoryBank{balances: make(map[accountKey]uint64)}
}

func (b *InMemoryBank) Transfer(ctx context.Context, asset id.AssetID, from, to id.Principal, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fromKey := accountKey{asset: asset, holder: from}
	toKey := accountKey{asset: asset, holder: to}

	if b.balances[fromKey] < amount {
		return fmt.Errorf("transfer %d from %s: %w", amount, from, sentinel.ErrInsufficientFunds)
	}
	if b.balances[toKey] > math.MaxUint64-amount {
		return fmt.Errorf("credit %d to %s: %w", amount, to, ErrBalanceOverflow)
	}

	b.balances[fromKey] -= amount
	b.balances[toKey] += amount
	return nil
}

func (b *InMemoryBank) Mint(ctx context.Context, asset id.AssetID, to id.Principal, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := accountKey{asset: asset, holder: to}
	if b.balances[key] > math.MaxUint64-amount {
		return fmt.Errorf("mint %d to %s: %w", amount, to, ErrBalanceOverflow)
	}
	b.balances[key] += amount
	return nil
}

func (b *InMemoryBank) Balance(ctx context.Context, asset id.AssetID, holder id.Principal) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[accountKey{asset: asset, holder: holder}], nil
}

// Fund credits an account outside the ledger's transition rules. Test and
// development seeding only; not part of the Custodian capability.
func (b *InMemoryBank) Fund(asset id.AssetID, holder id.Principal, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[accountKey{asset: asset, holder: holder}] += amount
}
