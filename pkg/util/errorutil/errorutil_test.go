package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMatchesSentinelByCode(t *testing.T) {
	err := NewAlreadyOwned("t-1", nil)
	assert.ErrorIs(t, err, ErrAlreadyOwned)
	assert.NotErrorIs(t, err, ErrAgentAtCapacity)

	wrapped := fmt.Errorf("accept: %w", NewAgentAtCapacity("a-1", 25, 25))
	assert.ErrorIs(t, wrapped, ErrAgentAtCapacity)
}

func TestNotAuthorizedNamesAction(t *testing.T) {
	err := NewNotAuthorized("complete envelope", nil)
	require.Error(t, err)
	assert.Equal(t, "not authorized to complete envelope", err.Error())
	assert.Equal(t, http.StatusForbidden, ToDomainError(err).HTTPStatus)
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))

	notFound := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, "NOT_FOUND", notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)

	original := NewNotOwner("t-1", "a-1")
	assert.Same(t, original, ToDomainError(original))
}
