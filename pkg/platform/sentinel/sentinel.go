package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the custodian return
// these (optionally wrapped) so services can translate them into coded
// domain errors.
//
// These represent factual states about records and accounts, not validation
// failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a record already occupies the derived key
// - ErrInvalidState: record status does not admit the requested transition
// - ErrInsufficientFunds: custodian rejected a transfer exceeding balance
// - ErrCorrupted: persisted record failed to decode (unknown discriminant)
// - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCorrupted         = errors.New("corrupted record")
	ErrUnavailable       = errors.New("unavailable")
)
