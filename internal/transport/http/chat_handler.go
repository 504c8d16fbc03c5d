package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	gorilla "github.com/gorilla/websocket"

	apierrors "mtid/internal/errors"
	"mtid/internal/infrastructure"
	"mtid/internal/middleware"
	"mtid/internal/services"
	"mtid/internal/websocket"
	api "mtid/pkg/contracts/api/v1"
)

// ChatOptions configure the chat socket
type ChatOptions struct {
	AllowedOrigins  []string
	DevMode         bool
	ReadBufferSize  int
	WriteBufferSize int
	PongWait        time.Duration
	AskTimeout      time.Duration
}

// ChatHandler serves the assistant over plain HTTP and over a websocket
type ChatHandler struct {
	service      DashboardService
	hub          *websocket.Hub
	asker        websocket.Asker
	validator    *middleware.Validator
	upgrader     gorilla.Upgrader
	opts         ChatOptions
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewChatHandler creates a chat handler. asker may be nil when the
// assistant is disabled; the socket then refuses connections.
func NewChatHandler(service DashboardService, hub *websocket.Hub, asker websocket.Asker, validator *middleware.Validator, opts ChatOptions, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ChatHandler {
	h := &ChatHandler{
		service:      service,
		hub:          hub,
		asker:        asker,
		validator:    validator,
		opts:         opts,
		logger:       logger.With(slog.String("handler", "chat")),
		errorHandler: errorHandler,
	}
	h.upgrader = gorilla.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(status,
				apierrors.CodeWebSocketUpgrade, "WebSocket upgrade failed",
				map[string]string{"reason": reason.Error()}))
		},
	}
	return h
}

// PostChat handles POST /api/chat
func (h *ChatHandler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Chat(r.Context(), SessionID(r.Context()), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

// ServeWS handles GET /ws/chat. Each frame is answered for the session's
// current trade type unless the frame names one.
func (h *ChatHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.asker == nil || h.hub == nil {
		h.errorHandler.HandleError(w, r, services.ErrChatDisabled)
		return
	}

	sessionID := SessionID(r.Context())
	traceID := infrastructure.GetTraceID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered the request
		return
	}

	h.logger.InfoContext(r.Context(), "WebSocket connection established",
		slog.String("remote_addr", middleware.GetRealIP(r)),
		slog.String("session_id", sessionID))

	client := websocket.NewClient(h.hub, websocket.WrapConn(conn), h.asker,
		sessionID, traceID, h.service.SessionTradeType(sessionID),
		websocket.Options{PongWait: h.opts.PongWait, AskTimeout: h.opts.AskTimeout},
		h.logger)
	client.Serve()
}

func (h *ChatHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.opts.DevMode {
		return true
	}
	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	h.logger.WarnContext(r.Context(), "WebSocket origin check - origin not allowed",
		slog.String("origin", origin),
		slog.Any("allowed_origins", h.opts.AllowedOrigins))
	return false
}
