package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"arqueo-backend/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err  *apperr.Error
		code int
	}{
		{apperr.Validation("missing", nil), http.StatusBadRequest},
		{apperr.Auth("no user"), http.StatusUnauthorized},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.Conflict("dup"), http.StatusConflict},
		{apperr.ContextRequired("select a site"), http.StatusPreconditionFailed},
		{apperr.Persistence("boom", errors.New("pq: broken")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Status(), tt.err.Message)
	}
}

func TestFrom(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", apperr.NotFound("site not found"))
	assert.Equal(t, apperr.KindNotFound, apperr.From(wrapped).Kind)
	assert.True(t, apperr.Is(wrapped, apperr.KindNotFound))

	plain := apperr.From(errors.New("connection refused"))
	assert.Equal(t, apperr.KindPersistence, plain.Kind)
	assert.ErrorContains(t, plain, "connection refused")
}
