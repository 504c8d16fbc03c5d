package http

import (
	"bytes"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"mtid/pkg/contracts"
)

// FrontendHandler serves the embedded dashboard shell and its assets
type FrontendHandler struct {
	fsys   fs.FS
	index  *template.Template
	logger *slog.Logger
}

// shellData is passed to index.html
type shellData struct {
	Title   string
	Version string
}

// NewFrontendHandler parses index.html from fsys
func NewFrontendHandler(fsys fs.FS, logger *slog.Logger) (*FrontendHandler, error) {
	tmpl, err := template.ParseFS(fsys, "index.html")
	if err != nil {
		return nil, err
	}
	return &FrontendHandler{
		fsys:   fsys,
		index:  tmpl,
		logger: logger.With(slog.String("handler", "frontend")),
	}, nil
}

// ServeIndex renders the dashboard shell
func (h *FrontendHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := h.index.Execute(&buf, shellData{
		Title:   "Merchandise Trade Intelligence Dashboard",
		Version: contracts.Version,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error rendering page", slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

// ServeStatic serves files under /static/ from the embedded filesystem
func (h *FrontendHandler) ServeStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	file, err := h.fsys.Open(name)
	if err != nil {
		h.logger.DebugContext(r.Context(), "Static file not found", slog.String("path", name))
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	if stat, statErr := file.Stat(); statErr != nil || stat.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(name))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = io.Copy(w, file)
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css"
	case ".json":
		return "application/json"
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".ico":
		return "image/x-icon"
	case ".html":
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
