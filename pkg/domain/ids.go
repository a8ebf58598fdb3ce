// Package domain defines the typed identifiers shared across the ledger.
//
// Every entity reference is a fixed 32-byte value. Distinct Go types prevent
// accidentally passing an investor where a fundraiser is expected; the
// compiler catches the mix-up instead of the auditor.
//
// Identifiers are content-derived (SHA-256 over a type tag and the owning
// components), so any party holding the components can re-derive the key of
// the record it addresses. Derivation is deterministic: the same inputs
// always yield the same identifier, and creation at an already-occupied key
// must fail rather than overwrite.
package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Derivation tags keep the keyspaces of the entity types disjoint.
const (
	tagPrincipal  = "principal"
	tagFundraiser = "fundraiser"
	tagInvestor   = "investor"
	tagInvestment = "investment"
	tagEscrow     = "escrow"
	tagShareAsset = "share_asset"
)

// Principal identifies an acting party (administrator, investor) or a
// currency account holder.
type Principal [32]byte

// FundraiserID identifies one fundraising campaign.
type FundraiserID [32]byte

// InvestorID identifies one investor registry record.
type InvestorID [32]byte

// InvestmentID identifies one deposit lifecycle record.
type InvestmentID [32]byte

// AssetID identifies a currency or share asset type.
type AssetID [32]byte

func (p Principal) String() string    { return hex.EncodeToString(p[:]) }
func (f FundraiserID) String() string { return hex.EncodeToString(f[:]) }
func (i InvestorID) String() string   { return hex.EncodeToString(i[:]) }
func (i InvestmentID) String() string { return hex.EncodeToString(i[:]) }
func (a AssetID) String() string      { return hex.EncodeToString(a[:]) }

func (p Principal) IsZero() bool    { return p == Principal{} }
func (f FundraiserID) IsZero() bool { return f == FundraiserID{} }
func (i InvestorID) IsZero() bool   { return i == InvestorID{} }
func (i InvestmentID) IsZero() bool { return i == InvestmentID{} }
func (a AssetID) IsZero() bool      { return a == AssetID{} }

func parse32(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid identifier encoding: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("identifier must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// ParsePrincipal decodes a hex-encoded 32-byte principal reference.
func ParsePrincipal(s string) (Principal, error) {
	raw, err := parse32(s)
	return Principal(raw), err
}

// ParseFundraiserID decodes a hex-encoded fundraiser identifier.
func ParseFundraiserID(s string) (FundraiserID, error) {
	raw, err := parse32(s)
	return FundraiserID(raw), err
}

// ParseInvestorID decodes a hex-encoded investor identifier.
func ParseInvestorID(s string) (InvestorID, error) {
	raw, err := parse32(s)
	return InvestorID(raw), err
}

// ParseInvestmentID decodes a hex-encoded investment identifier.
func ParseInvestmentID(s string) (InvestmentID, error) {
	raw, err := parse32(s)
	return InvestmentID(raw), err
}

// ParseAssetID decodes a hex-encoded asset identifier.
func ParseAssetID(s string) (AssetID, error) {
	raw, err := parse32(s)
	return AssetID(raw), err
}

func derive(tag string, parts ...[]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(tag))
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DerivePrincipal derives a principal key from a registered account name.
// An account name maps to exactly one principal for the service lifetime.
func DerivePrincipal(accountName string) Principal {
	return Principal(derive(tagPrincipal, []byte(accountName)))
}

// DeriveFundraiserID derives the campaign key from the offering hash
// supplied at creation time (the REIT listing digest).
func DeriveFundraiserID(offeringHash []byte) FundraiserID {
	return FundraiserID(derive(tagFundraiser, offeringHash))
}

// DeriveInvestorID derives the registry key for a depositing principal.
func DeriveInvestorID(p Principal) InvestorID {
	return InvestorID(derive(tagInvestor, p[:]))
}

// DeriveInvestmentID derives the deposit key from its owning scope and the
// investor-scoped sequence index assigned at creation.
func DeriveInvestmentID(investor Principal, fundraiser FundraiserID, sequence uint64) InvestmentID {
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], sequence)
	return InvestmentID(derive(tagInvestment, investor[:], fundraiser[:], seq[:]))
}

// DeriveEscrowAccount derives the custody pool account for a fundraiser.
// No private key exists for this principal; only the ledger's escrow
// authority may move funds out of it.
func DeriveEscrowAccount(f FundraiserID) Principal {
	return Principal(derive(tagEscrow, f[:]))
}

// DeriveShareAssetID derives the share asset identifier for a fundraiser.
func DeriveShareAssetID(f FundraiserID) AssetID {
	return AssetID(derive(tagShareAsset, f[:]))
}
