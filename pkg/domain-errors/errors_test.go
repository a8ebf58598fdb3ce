package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCodeSeesThroughWrapping(t *testing.T) {
	base := New(CodeInvalidAmount, "amount must be positive")
	wrapped := Wrap(base, CodeInternal, "operation failed")

	assert.True(t, HasCode(base, CodeInvalidAmount))
	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.True(t, HasCode(wrapped, CodeInvalidAmount))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}

func TestCodeOfReturnsOutermost(t *testing.T) {
	inner := New(CodeInsufficientFunds, "short")
	outer := Wrap(inner, CodeInternal, "transfer failed")

	assert.Equal(t, CodeInternal, CodeOf(outer))
	assert.Equal(t, CodeInsufficientFunds, CodeOf(inner))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("row not found")
	err := Wrap(fmt.Errorf("lookup: %w", cause), CodeNotFound, "investment not found")
	assert.ErrorIs(t, err, cause)
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidAmount:             http.StatusBadRequest,
		CodeBadRequest:                http.StatusBadRequest,
		CodeInvalidAuthority:          http.StatusForbidden,
		CodeUnauthorized:              http.StatusUnauthorized,
		CodeNotFound:                  http.StatusNotFound,
		CodeInvalidInvestmentStatus:   http.StatusConflict,
		CodeConflict:                  http.StatusConflict,
		CodeInvalidFundraiserMismatch: http.StatusConflict,
		CodeInvalidMint:               http.StatusConflict,
		CodeEscrowNotInitialized:      http.StatusConflict,
		CodeInvestmentCounterOverflow: http.StatusUnprocessableEntity,
		CodeArithmeticOverflow:        http.StatusUnprocessableEntity,
		CodeInsufficientFunds:         http.StatusUnprocessableEntity,
		CodeInternal:                  http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
