package util

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorNilStaysNil(t *testing.T) {
	err := MapError(nil)
	assert.NoError(t, err)
	// the interface itself must be nil, not a typed-nil *DomainError
	assert.Nil(t, err)
}

func TestMapErrorPassesDomainErrorThrough(t *testing.T) {
	orig := NewForbidden("not authorized")
	mapped := MapError(orig)
	require.Error(t, mapped)
	assert.True(t, IsCode(mapped, "FORBIDDEN"))
}

func TestToDomainErrorWrapsUnknownErrors(t *testing.T) {
	de := ToDomainError(errors.New("boom"))
	require.NotNil(t, de)
	assert.Equal(t, "INTERNAL_ERROR", de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	de := ToDomainError(sql.ErrNoRows)
	require.NotNil(t, de)
	assert.Equal(t, "NOT_FOUND", de.Code)
}

func TestIsCodeMatchesWrappedErrors(t *testing.T) {
	wrapped := NewValidationError("bad input", nil)
	assert.True(t, IsCode(wrapped, "VALIDATION_FAILED"))
	assert.False(t, IsCode(wrapped, "NOT_FOUND"))
	assert.False(t, IsCode(nil, "VALIDATION_FAILED"))
}
