package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"mtid/internal/chat"
	"mtid/internal/dataset"
	"mtid/internal/exporter"
	"mtid/internal/infrastructure"
	"mtid/internal/navigation"
	"mtid/internal/pages"
	"mtid/internal/services"
	"mtid/internal/table"
)

// Problem types following RFC 7807
const (
	TypeValidation  = "/errors/validation"
	TypeNotFound    = "/errors/not-found"
	TypeRateLimit   = "/errors/rate-limit"
	TypeInternal    = "/errors/internal"
	TypeServiceDown = "/errors/service-unavailable"
	TypeTimeout     = "/errors/timeout"
	TypeMethod      = "/errors/method-not-allowed"
)

// Domain problem types
const (
	TypeDataLoad          = "/errors/data/load-failed"
	TypeInvalidQuery      = "/errors/data/invalid-query"
	TypeUnsupportedFormat = "/errors/export/unsupported-format"
	TypeUnknownChart      = "/errors/chart/unknown"
	TypeEmptyChart        = "/errors/chart/empty"
	TypeRender            = "/errors/page/render-failed"
	TypeUnknownEvent      = "/errors/event/unknown"
	TypeChatMessage       = "/errors/chat/invalid-message"
	TypeChatUpstream      = "/errors/chat/upstream"
	TypeWebSocketUpgrade  = "/errors/websocket/upgrade-failed"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	problem := h.ErrorToProblem(err, r)
	traceID := traceIDFrom(r)
	problem.WithExtension("trace_id", traceID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("type", problem.Type),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)

	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	path := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErrorToProblem(apiErr, path)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		list := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			list = append(list, ValidationError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
			})
		}
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Validation Failed",
			"Request validation failed",
			path,
		).WithExtension("error_code", CodeValidationFailed).WithExtension("errors", list)
	}

	var loadErr *dataset.DataLoadError
	if errors.As(err, &loadErr) {
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeDataLoad,
			"Dataset Unavailable",
			"The trade dataset could not be loaded",
			path,
		).WithExtension("error_code", CodeDataUnavailable).WithExtension("source", loadErr.Path)
	}

	switch {
	case errors.Is(err, table.ErrInvalidFilter),
		errors.Is(err, table.ErrInvalidSort),
		errors.Is(err, table.ErrInvalidPage):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeInvalidQuery,
			"Invalid Table Query",
			err.Error(),
			path,
		).WithExtension("error_code", CodeValidationFailed)

	case errors.Is(err, exporter.ErrUnsupportedFormat):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeUnsupportedFormat,
			"Unsupported Export Format",
			err.Error(),
			path,
		).WithExtension("error_code", CodeValidationFailed).
			WithExtension("supported", []string{"xlsx", "csv", "sqlite"})

	case errors.Is(err, navigation.ErrUnknownEvent):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeUnknownEvent,
			"Unknown Event",
			err.Error(),
			path,
		).WithExtension("error_code", CodeValidationFailed)

	case errors.Is(err, pages.ErrUnknownChart):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeUnknownChart,
			"Chart Not Found",
			err.Error(),
			path,
		).WithExtension("error_code", CodeNotFound)

	case errors.Is(err, pages.ErrEmptyChart):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeEmptyChart,
			"Chart Has No Data",
			"No data available for this trade type.",
			path,
		).WithExtension("error_code", CodeChartUnavailable)

	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMessageTooLong):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeChatMessage,
			"Invalid Chat Message",
			err.Error(),
			path,
		).WithExtension("error_code", CodeValidationFailed)

	case errors.Is(err, chat.ErrRateLimited):
		return NewProblemDetails(
			http.StatusTooManyRequests,
			TypeRateLimit,
			"Rate Limit Exceeded",
			"Too many chat messages. Please wait a moment.",
			path,
		).WithExtension("error_code", CodeRateLimitExceeded).WithExtension("retry_after", 60)

	case errors.Is(err, chat.ErrUpstream):
		return NewProblemDetails(
			http.StatusBadGateway,
			TypeChatUpstream,
			"Assistant Unavailable",
			"The chat assistant could not be reached",
			path,
		).WithExtension("error_code", CodeChatUnavailable)

	case errors.Is(err, services.ErrChatDisabled):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeServiceDown,
			"Assistant Disabled",
			"The chat assistant is not enabled on this server",
			path,
		).WithExtension("error_code", CodeChatUnavailable)

	case errors.Is(err, services.ErrDatasetNotLoaded):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeDataLoad,
			"Dataset Unavailable",
			err.Error(),
			path,
		).WithExtension("error_code", CodeDataUnavailable)

	case errors.Is(err, services.ErrSessionRequired):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Session Required",
			"Enable cookies to keep dashboard state between requests",
			path,
		).WithExtension("error_code", CodeInvalidRequest)
	}

	var renderErr *pages.RenderError
	if errors.As(err, &renderErr) {
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeRender,
			"Error Loading Dataset",
			renderErr.Error(),
			path,
		).WithExtension("error_code", CodeInternalServer).WithExtension("page", string(renderErr.Page))
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		path,
	)
}

func apiErrorToProblem(apiErr *APIError, path string) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case CodeValidationFailed, CodeInvalidRequest:
		problemType = TypeValidation
	case CodeNotFound:
		problemType = TypeNotFound
	case CodeRateLimitExceeded:
		problemType = TypeRateLimit
	case CodeServiceUnavailable, CodeDataUnavailable:
		problemType = TypeServiceDown
	case CodeWebSocketUpgrade:
		problemType = TypeWebSocketUpgrade
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic logs a recovered panic and responds with a 500 problem
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	traceID := traceIDFrom(r)

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", traceID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", traceIDFrom(r))

	_ = render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethod,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", traceIDFrom(r))

	_ = render.Render(w, r, problem)
}

// traceIDFrom prefers the trace id set by the request id middleware
func traceIDFrom(r *http.Request) string {
	if id := infrastructure.GetTraceID(r.Context()); id != "" {
		return id
	}
	return middleware.GetReqID(r.Context())
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
