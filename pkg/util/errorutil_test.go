package util

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainErrorPassesThrough(t *testing.T) {
	original := NewDomainError("SLA_NOT_PAUSED", "SLA clock is not paused", http.StatusConflict, nil)

	got := ToDomainError(original)
	assert.Same(t, original, got)
}

func TestToDomainErrorUnwrapsWrapped(t *testing.T) {
	original := NewConflict("busy", nil)
	wrapped := errors.Join(errors.New("outer"), original)

	got := ToDomainError(wrapped)
	assert.Equal(t, "CONFLICT", got.Code)
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	got := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, "NOT_FOUND", got.Code)
	assert.Equal(t, http.StatusNotFound, got.HTTPStatus)
}

func TestToDomainErrorDefaultsToInternal(t *testing.T) {
	got := ToDomainError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
}

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}
