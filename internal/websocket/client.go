package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mtid/internal/chat"
	"mtid/internal/infrastructure"
	"mtid/pkg/contracts/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 8 << 10

	sendBuffer = 32
)

// Options tune the pumps
type Options struct {
	PongWait   time.Duration
	AskTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.AskTimeout <= 0 {
		o.AskTimeout = 30 * time.Second
	}
	return o
}

// Client is a middleman between one chat websocket and the hub
type Client struct {
	hub   *Hub
	conn  Connection
	send  chan []byte
	asker Asker
	opts  Options

	id          string
	sessionID   string
	traceID     string
	remoteAddr  string
	connectedAt time.Time
	tradeType   domain.TradeType

	logger *slog.Logger
}

// NewClient creates a client for a session. tradeType is the session's
// current trade type and is used when a message does not carry one.
func NewClient(hub *Hub, conn Connection, asker Asker, sessionID, traceID string, tradeType domain.TradeType, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	id := uuid.New().String()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		asker:       asker,
		opts:        opts.withDefaults(),
		id:          id,
		sessionID:   sessionID,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		tradeType:   tradeType,
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// ID returns the client id
func (c *Client) ID() string { return c.id }

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// Serve registers the client and runs both pumps until the connection ends
func (c *Client) Serve() {
	if !c.hub.Register(c) {
		_ = c.conn.Close()
		return
	}
	go c.WritePump()
	c.ReadPump()
}

// ReadPump reads chat frames and answers them in order
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
		c.logger.InfoContext(c.context(), "WebSocket client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.ErrorContext(c.context(), "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))

		var in Inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			c.reply(TypeError, ErrorData{Code: "BAD_FRAME", Message: "frames must be JSON objects"})
			continue
		}

		switch in.Type {
		case TypeHeartbeat:
			c.logger.Debug("Heartbeat received")
		case TypeChat:
			c.handleChat(in)
		default:
			c.reply(TypeError, ErrorData{Code: "UNKNOWN_TYPE", Message: "unknown frame type " + in.Type})
		}
	}
}

func (c *Client) handleChat(in Inbound) {
	tradeType := c.tradeType
	if t, ok := domain.ParseTradeType(in.TradeType); ok {
		tradeType = t
	}

	c.reply(TypeTyping, map[string]bool{"typing": true})

	ctx, cancel := context.WithTimeout(c.context(), c.opts.AskTimeout)
	defer cancel()
	answer, err := c.asker.Ask(ctx, c.sessionID, tradeType, in.Message)
	if err != nil {
		c.logger.WarnContext(ctx, "Chat message rejected", slog.String("error", err.Error()))
		c.reply(TypeError, chatError(err))
		return
	}
	c.reply(TypeReply, answer)
}

func chatError(err error) ErrorData {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return ErrorData{Code: "EMPTY_MESSAGE", Message: err.Error()}
	case errors.Is(err, chat.ErrMessageTooLong):
		return ErrorData{Code: "MESSAGE_TOO_LONG", Message: err.Error()}
	case errors.Is(err, chat.ErrRateLimited):
		return ErrorData{Code: "RATE_LIMITED", Message: "Please wait a moment before sending another message."}
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorData{Code: "TIMEOUT", Message: "The assistant took too long to answer."}
	default:
		return ErrorData{Code: "CHAT_FAILED", Message: "The assistant could not answer."}
	}
}

func (c *Client) reply(msgType string, data any) {
	msg, err := encode(msgType, data, c.traceID)
	if err != nil {
		c.logger.ErrorContext(c.context(), "Error marshaling reply", slog.String("error", err.Error()))
		return
	}
	c.hub.SendTo(c, msg)
}

// WritePump writes queued frames and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(c.context(), "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}
