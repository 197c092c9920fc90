package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteErrorUnwrapsToSentinel(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := Wrap(NewQuoteError("Acme", "fetch failed", cause), "pricing")

	assert.True(t, Is(err, ErrQuoteUnavailable))
	assert.True(t, Is(err, cause))

	var qe *QuoteError
	if assert.True(t, As(err, &qe)) {
		assert.Equal(t, "Acme", qe.Company)
	}
}

func TestQuoteErrorWithoutCause(t *testing.T) {
	err := NewQuoteError("Acme", "no price", nil)
	assert.True(t, Is(err, ErrQuoteUnavailable))
	assert.Equal(t, "quote error [Acme]: no price", err.Error())
}

func TestDataIntegrityError(t *testing.T) {
	err := NewDataIntegrityError("company", "Acme", []string{"r1", "r2"})
	assert.True(t, Is(err, ErrDataIntegrity))
	assert.Contains(t, err.Error(), `"Acme"`)
	assert.Contains(t, err.Error(), "r1, r2")

	base := NewDataIntegrityError("base", "", []string{"b1", "b2"})
	assert.Equal(t, "data integrity: duplicate base rules [b1, b2]", base.Error())
}

func TestTypedErrorsUnwrap(t *testing.T) {
	assert.True(t, Is(NewNumericError("issue_price", "abc"), ErrInvalidNumber))
	assert.True(t, Is(NewValidationError("gain_pct", 0, "required"), ErrInputValidation))
	assert.True(t, Is(NewStoreError("delete", "sector", ErrSectorInUse), ErrSectorInUse))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ctx"))
	assert.NoError(t, Wrapf(nil, "ctx %d", 1))
}
