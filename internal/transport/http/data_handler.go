package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "mtid/internal/errors"
)

// DataHandler serves the dataset summary, the raw data table and exports
type DataHandler struct {
	service      DashboardService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a data handler
func NewDataHandler(service DashboardService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the data routes, mounted under /api/data
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/info", h.GetInfo)
	r.Get("/table", h.GetTable)
	r.Get("/export", h.Export)
	r.Get("/dictionary", h.GetDictionary)

	return r
}

// GetInfo handles GET /api/data/info?trade_type=
func (h *DataHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Info(r.Context(), SessionID(r.Context()), r.URL.Query().Get("trade_type")))
}

// GetTable handles GET /api/data/table. It accepts page, sort and
// filter[Column] parameters.
func (h *DataHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.service.Table(r.Context(), SessionID(r.Context()), q.Get("trade_type"), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

// Export handles GET /api/data/export?format=xlsx|csv|sqlite. The table's
// sort and filter parameters select the exported rows.
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	file, err := h.service.Export(r.Context(), SessionID(r.Context()), q.Get("trade_type"), q.Get("format"), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "export generated",
		slog.String("file", file.Name),
		slog.String("format", string(file.Format)),
		slog.Int("rows", file.Rows),
		slog.Int("bytes", len(file.Data)))

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// GetDictionary handles GET /api/data/dictionary
func (h *DataHandler) GetDictionary(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Dictionary())
}
