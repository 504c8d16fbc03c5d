package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtid/internal/chat"
	"mtid/internal/dataset"
	"mtid/internal/exporter"
	"mtid/internal/infrastructure"
	"mtid/internal/navigation"
	"mtid/internal/pages"
	"mtid/internal/services"
	"mtid/internal/table"
	"mtid/pkg/contracts/domain"
)

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestErrorToProblem(t *testing.T) {
	type sample struct {
		Message string `validate:"required"`
	}
	validationErr := validator.New().Struct(sample{})
	require.Error(t, validationErr)

	tests := []struct {
		name   string
		err    error
		status int
		typ    string
		code   string
	}{
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout, ""},
		{"wrapped cancel", fmt.Errorf("query: %w", context.Canceled), http.StatusGatewayTimeout, TypeTimeout, ""},
		{"api error", ErrValidation("page", "must be positive"), http.StatusBadRequest, TypeValidation, CodeValidationFailed},
		{"api not found", NotFoundError("page"), http.StatusNotFound, TypeNotFound, CodeNotFound},
		{"validator", validationErr, http.StatusBadRequest, TypeValidation, CodeValidationFailed},
		{"data load", &dataset.DataLoadError{Path: "formal.csv", Err: dataset.ErrMissingColumn}, http.StatusServiceUnavailable, TypeDataLoad, CodeDataUnavailable},
		{"filter", fmt.Errorf("%w: bad", table.ErrInvalidFilter), http.StatusBadRequest, TypeInvalidQuery, CodeValidationFailed},
		{"sort", table.ErrInvalidSort, http.StatusBadRequest, TypeInvalidQuery, CodeValidationFailed},
		{"table page", table.ErrInvalidPage, http.StatusBadRequest, TypeInvalidQuery, CodeValidationFailed},
		{"format", fmt.Errorf("%w: %q", exporter.ErrUnsupportedFormat, "pdf"), http.StatusBadRequest, TypeUnsupportedFormat, CodeValidationFailed},
		{"event", navigation.ErrUnknownEvent, http.StatusBadRequest, TypeUnknownEvent, CodeValidationFailed},
		{"unknown chart", pages.ErrUnknownChart, http.StatusNotFound, TypeUnknownChart, CodeNotFound},
		{"empty chart", pages.ErrEmptyChart, http.StatusNotFound, TypeEmptyChart, CodeChartUnavailable},
		{"empty message", chat.ErrEmptyMessage, http.StatusBadRequest, TypeChatMessage, CodeValidationFailed},
		{"long message", chat.ErrMessageTooLong, http.StatusBadRequest, TypeChatMessage, CodeValidationFailed},
		{"chat rate", chat.ErrRateLimited, http.StatusTooManyRequests, TypeRateLimit, CodeRateLimitExceeded},
		{"upstream", fmt.Errorf("%w: 502", chat.ErrUpstream), http.StatusBadGateway, TypeChatUpstream, CodeChatUnavailable},
		{"chat disabled", fmt.Errorf("chat: %w", services.ErrChatDisabled), http.StatusServiceUnavailable, TypeServiceDown, CodeChatUnavailable},
		{"no dataset", services.ErrDatasetNotLoaded, http.StatusServiceUnavailable, TypeDataLoad, CodeDataUnavailable},
		{"no session", fmt.Errorf("dispatch event: %w", services.ErrSessionRequired), http.StatusBadRequest, TypeValidation, CodeInvalidRequest},
		{"render", &pages.RenderError{Page: domain.PageExecutive, Err: io.ErrUnexpectedEOF}, http.StatusInternalServerError, TypeRender, CodeInternalServer},
		{"unknown", io.EOF, http.StatusInternalServerError, TypeInternal, ""},
	}

	h := newTestHandler()
	r := httptest.NewRequest(http.MethodGet, "/api/data/table", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := h.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, tt.typ, p.Type)
			assert.Equal(t, "/api/data/table", p.Instance)
			if tt.code != "" {
				assert.Equal(t, tt.code, p.Extensions["error_code"])
			}
		})
	}
}

func TestHandleError_WritesProblem(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodGet, "/api/data/table?filter[Year]=x", nil)
	r = r.WithContext(infrastructure.WithTraceID(r.Context(), "trace-42"))
	w := httptest.NewRecorder()

	h.HandleError(w, r, fmt.Errorf("query: %w", table.ErrInvalidFilter))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeInvalidQuery, body["type"])
	assert.Equal(t, "trace-42", body["trace_id"])
	assert.Equal(t, CodeValidationFailed, body["error_code"])
	assert.EqualValues(t, 400, body["status"])
}

func TestHandleError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	newTestHandler().HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, 0, w.Body.Len())
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestHandler()

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), TypeNotFound)

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/state", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "DELETE")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := newTestHandler()
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	RecoveryMiddleware(h)(panicking).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pages/page1", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), TypeInternal)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	p := NewProblemDetails(http.StatusTooManyRequests, TypeRateLimit, "Rate Limit Exceeded", "", "/api/chat").
		WithExtension("retry_after", 60).
		WithExtension("status", "ignored")

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.EqualValues(t, 429, got["status"])
	assert.EqualValues(t, 60, got["retry_after"])
	_, hasDetail := got["detail"]
	assert.False(t, hasDetail)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrWebSocketUpgrade)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":{"status_code":500,"error_code":"WEBSOCKET_UPGRADE_FAILED","message":"WebSocket upgrade failed"}}`, w.Body.String())
}
