// Package domainerrors provides coded errors for the ledger's failure
// taxonomy. Services attach a Code to every failure they surface; transport
// layers translate codes to HTTP statuses without inspecting messages.
//
// Stores do not use this package directly - they return pkg/platform/sentinel
// errors and services translate them into coded errors here.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure. Every error returned across a service
// boundary carries exactly one code.
type Code string

const (
	// Financial-safety codes. Each corresponds to one guard in the
	// investment lifecycle; none of them is retryable without a changed
	// request.
	CodeInvalidAmount             Code = "invalid_amount"
	CodeInvalidAuthority          Code = "invalid_authority"
	CodeInvalidInvestmentStatus   Code = "invalid_investment_status"
	CodeInvalidFundraiserMismatch Code = "invalid_fundraiser_mismatch"
	CodeInvalidMint               Code = "invalid_mint"
	CodeInvestmentCounterOverflow Code = "investment_counter_overflow"
	CodeArithmeticOverflow        Code = "arithmetic_overflow"
	CodeInsufficientFunds         Code = "insufficient_funds"
	CodeEscrowNotInitialized      Code = "escrow_not_initialized"

	// Ambient codes shared by every module.
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"
)

// Error is a coded domain error. It wraps an optional cause so callers can
// still errors.Is/As through it.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// CodeOf extracts the outermost code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidAmount, CodeBadRequest:
		return http.StatusBadRequest
	case CodeInvalidAuthority:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInvestmentStatus, CodeConflict, CodeInvalidFundraiserMismatch,
		CodeInvalidMint, CodeEscrowNotInitialized:
		return http.StatusConflict
	case CodeInvestmentCounterOverflow, CodeArithmeticOverflow, CodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
