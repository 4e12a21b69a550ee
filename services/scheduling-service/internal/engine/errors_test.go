package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	conflict := fmt.Errorf("wrapped: %w", &ConflictError{Cause: CauseBlackout, Reason: "vacation"})
	assert.ErrorIs(t, conflict, ErrConflict)
	assert.NotErrorIs(t, conflict, ErrState)
	assert.True(t, IsDomainError(conflict))

	state := &StateError{From: model.StatusConfirmed, To: model.StatusPending}
	assert.ErrorIs(t, state, ErrState)
	assert.Equal(t, "cannot change booking status from confirmed to pending", state.Error())

	nf := notFound(ErrNotFound, "blackout", "b1")
	assert.ErrorIs(t, nf, ErrNotFound)
	assert.Equal(t, "blackout b1 not found", nf.Error())

	infra := errors.New("connection refused")
	assert.Same(t, infra, notFound(infra, "booking", "x"))
	assert.False(t, IsDomainError(infra))

	assert.Equal(t, "date: is required", invalid("date", "is required").Error())
}
