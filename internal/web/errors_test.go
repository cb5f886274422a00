package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
)

// captureLogs routes the default logger into a buffer for one test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func lastLogLevel(t *testing.T, buf *bytes.Buffer) string {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	level, _ := entry["level"].(string)
	return level
}

func TestRespondError_LogLevel(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantCode  int
	}{
		{"invalid upload", fmt.Errorf("upload: %w", core.ErrInvalidExtension), "WARN", http.StatusBadRequest},
		{"upload slots busy", core.ErrTooManyUploads, "WARN", http.StatusServiceUnavailable},
		{"unknown product", fmt.Errorf("product 9: %w", core.ErrNotFound), "WARN", http.StatusNotFound},
		{"queue down", errors.New("enqueue job: dial tcp: connection refused"), "ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)

			(&Server{}).respondError(rec, req, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLevel, lastLogLevel(t, logs))
		})
	}
}

func TestRespondError_PlainText(t *testing.T) {
	captureLogs(t)

	t.Run("internal error uses the support message", func(t *testing.T) {
		err := errors.New("dial tcp: connection refused")
		rec := httptest.NewRecorder()
		(&Server{}).respondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), err)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		assert.Equal(t, core.FormatUserError(err)+"\n", rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "dial tcp")
	})

	t.Run("validation echoes the reason", func(t *testing.T) {
		rec := httptest.NewRecorder()
		(&Server{}).respondError(rec, httptest.NewRequest(http.MethodGet, "/", nil),
			core.NewValidationError("page", "must be at least 1"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "page: must be at least 1 (Code: VAL005)\n", rec.Body.String())
	})
}

func TestBadRequestKeepsPercentSigns(t *testing.T) {
	captureLogs(t)
	rec := httptest.NewRecorder()
	(&Server{}).badRequest(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil), "size", "100% is not a number")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "size: 100% is not a number", decodeBody[ErrorResponse](t, rec).Detail)
}
