package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-feed/internal/model"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", model.NewValidationError("kind", "bad"), http.StatusBadRequest},
		{"not found", model.ErrProfileMissing, http.StatusNotFound},
		{"store", model.NewStoreError("get", errors.New("refused")), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteDomainError(rr, tt.err)
			assert.Equal(t, tt.code, rr.Code)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, http.StatusText(tt.code), body.Error)
		})
	}
}
