package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshelf/docshelf/pkg/docerr"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	err := WriteJSON(w, http.StatusOK, map[string]string{"key": "value"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "value", body["key"])
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "forbidden maps to 403",
			err:        docerr.ErrForbidden,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "wrapped forbidden maps to 403",
			err:        fmt.Errorf("checking access: %w", docerr.ErrForbidden),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "not found maps to 404",
			err:        fmt.Errorf("topic 42: %w", docerr.ErrNotFound),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "validation maps to 400",
			err:        docerr.Validation("name", "must not be empty"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "blocked delete maps to 409",
			err:        &docerr.DeleteBlockedError{TopicID: 7, Reason: docerr.DeleteBlockedChildren},
			wantStatus: http.StatusConflict,
		},
		{
			name: "upload rejection maps to 400",
			err: &docerr.UploadRejectedError{
				Reason:            docerr.UploadRejectedExtension,
				AllowedExtensions: []string{".pdf"},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown error maps to 500",
			err:        fmt.Errorf("connection reset"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteDomainError(w, tt.err)
			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestWriteDomainErrorUploadDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteDomainError(w, &docerr.UploadRejectedError{
		Reason:      docerr.UploadRejectedSize,
		MaxFileSize: 1024,
	})

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, docerr.UploadRejectedSize, body.Details["reason"])
}
