package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "mtid/internal/errors"
	"mtid/internal/middleware"
	"mtid/internal/navigation"
	"mtid/internal/pages"
)

// Chart image size bounds in pixels
const (
	minChartSize = 200
	maxChartSize = 2000
)

var errInvalidSize = fmt.Errorf("must be a number between %d and %d", minChartSize, maxChartSize)

// DashboardHandler serves the view state, UI events and rendered pages
type DashboardHandler struct {
	service      DashboardService
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a dashboard handler
func NewDashboardHandler(service DashboardService, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("handler", "dashboard")),
		errorHandler: errorHandler,
	}
}

// RegisterRoutes adds the dashboard routes to the /api router
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.GetState)
	r.With(middleware.ContentTypeValidator("application/json")).Post("/events", h.PostEvent)

	r.Route("/pages/{page}", func(r chi.Router) {
		r.Get("/", h.GetPage)
		r.Get("/charts/{chart}.png", h.GetChart)
	})
}

// GetState handles GET /api/state
func (h *DashboardHandler) GetState(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.State(r.Context(), SessionID(r.Context())))
}

// PostEvent handles POST /api/events. The body is a navigation event; the
// response carries the new state and the page it selects.
func (h *DashboardHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var ev navigation.Event
	if err := h.validator.Decode(r, &ev); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Dispatch(r.Context(), SessionID(r.Context()), ev)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "event dispatched",
		slog.String("kind", string(ev.Kind)),
		slog.String("page", string(res.State.Page)))
	render.JSON(w, r, res)
}

// GetPage handles GET /api/pages/{page}?trade_type=
func (h *DashboardHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	content := h.service.Page(r.Context(), SessionID(r.Context()),
		chi.URLParam(r, "page"), r.URL.Query().Get("trade_type"))
	render.JSON(w, r, content)
}

// GetChart handles GET /api/pages/{page}/charts/{chart}.png
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, err := chartSize(q.Get("width"), pages.DefaultChartWidth)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("width", err.Error()))
		return
	}
	height, err := chartSize(q.Get("height"), pages.DefaultChartHeight)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("height", err.Error()))
		return
	}

	var buf bytes.Buffer
	err = h.service.ChartPNG(r.Context(), SessionID(r.Context()),
		chi.URLParam(r, "page"), chi.URLParam(r, "chart"), q.Get("trade_type"),
		&buf, width, height)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func chartSize(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errInvalidSize
	}
	if n < minChartSize || n > maxChartSize {
		return 0, errInvalidSize
	}
	return n, nil
}
