package custody

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "reitvest/pkg/domain"
	"reitvest/pkg/platform/sentinel"
)

var (
	testAsset = id.DeriveShareAssetID(id.DeriveFundraiserID([]byte("offering")))
	alice     = id.DerivePrincipal("alice")
	bob       = id.DerivePrincipal("bob")
)

func TestTransferMovesFunds(t *testing.T) {
	bank := NewInMemoryBank()
	ctx := context.Background()
	bank.Fund(testAsset, alice, 100)

	require.NoError(t, bank.Transfer(ctx, testAsset, alice, bob, 40))

	fromBalance, _ := bank.Balance(ctx, testAsset, alice)
	toBalance, _ := bank.Balance(ctx, testAsset, bob)
	assert.Equal(t, uint64(60), fromBalance)
	assert.Equal(t, uint64(40), toBalance)
}

func TestTransferRejectsOverdraw(t *testing.T) {
	bank := NewInMemoryBank()
	ctx := context.Background()
	bank.Fund(testAsset, alice, 10)

	err := bank.Transfer(ctx, testAsset, alice, bob, 11)
	require.ErrorIs(t, err, sentinel.ErrInsufficientFunds)

	// Both accounts untouched.
	fromBalance, _ := bank.Balance(ctx, testAsset, alice)
	toBalance, _ := bank.Balance(ctx, testAsset, bob)
	assert.Equal(t, uint64(10), fromBalance)
	assert.Zero(t, toBalance)
}

func TestTransferRejectsCreditOverflow(t *testing.T) {
	bank := NewInMemoryBank()
	ctx := context.Background()
	bank.Fund(testAsset, alice, 5)
	bank.Fund(testAsset, bob, math.MaxUint64)

	err := bank.Transfer(ctx, testAsset, alice, bob, 5)
	require.ErrorIs(t, err, ErrBalanceOverflow)

	fromBalance, _ := bank.Balance(ctx, testAsset, alice)
	assert.Equal(t, uint64(5), fromBalance)
}

func TestMint(t *testing.T) {
	bank := NewInMemoryBank()
	ctx := context.Background()

	require.NoError(t, bank.Mint(ctx, testAsset, alice, 7))
	balance, _ := bank.Balance(ctx, testAsset, alice)
	assert.Equal(t, uint64(7), balance)

	err := bank.Mint(ctx, testAsset, alice, math.MaxUint64)
	assert.ErrorIs(t, err, ErrBalanceOverflow)
}

func TestBalancesAreScopedByAsset(t *testing.T) {
	bank := NewInMemoryBank()
	ctx := context.Background()
	other := id.DeriveShareAssetID(id.DeriveFundraiserID([]byte("other")))

	bank.Fund(testAsset, alice, 50)

	balance, _ := bank.Balance(ctx, other, alice)
	assert.Zero(t, balance)
}
