package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivationIsDeterministic(t *testing.T) {
	offering := []byte("offering-digest-1")
	assert.Equal(t, DeriveFundraiserID(offering), DeriveFundraiserID(offering))
	assert.NotEqual(t, DeriveFundraiserID(offering), DeriveFundraiserID([]byte("offering-digest-2")))

	p := DerivePrincipal("alice")
	assert.Equal(t, p, DerivePrincipal("alice"))
	assert.Equal(t, DeriveInvestorID(p), DeriveInvestorID(p))
}

func TestDerivationKeyspacesAreDisjoint(t *testing.T) {
	// The same input bytes under different tags must never collide.
	f := DeriveFundraiserID([]byte("shared-input"))
	escrow := DeriveEscrowAccount(f)
	asset := DeriveShareAssetID(f)
	assert.NotEqual(t, f[:], escrow[:])
	assert.NotEqual(t, f[:], asset[:])
}

func TestInvestmentIDVariesBySequence(t *testing.T) {
	investor := DerivePrincipal("alice")
	fundraiser := DeriveFundraiserID([]byte("offering"))

	first := DeriveInvestmentID(investor, fundraiser, 0)
	second := DeriveInvestmentID(investor, fundraiser, 1)
	assert.NotEqual(t, first, second)

	// Same scope and sequence re-derives the same key.
	assert.Equal(t, first, DeriveInvestmentID(investor, fundraiser, 0))

	other := DeriveInvestmentID(DerivePrincipal("bob"), fundraiser, 0)
	assert.NotEqual(t, first, other)
}

func TestParseRoundTrip(t *testing.T) {
	fundraiser := DeriveFundraiserID([]byte("offering"))
	parsed, err := ParseFundraiserID(fundraiser.String())
	require.NoError(t, err)
	assert.Equal(t, fundraiser, parsed)

	principal := DerivePrincipal("alice")
	parsedPrincipal, err := ParsePrincipal(principal.String())
	require.NoError(t, err)
	assert.Equal(t, principal, parsedPrincipal)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	_, err := ParseFundraiserID("not-hex")
	assert.Error(t, err)

	_, err = ParseInvestmentID("abcd")
	assert.Error(t, err)

	_, err = ParsePrincipal("")
	assert.Error(t, err)
}

func TestIsZero(t *testing.T) {
	var p Principal
	assert.True(t, p.IsZero())
	assert.False(t, DerivePrincipal("alice").IsZero())
}
