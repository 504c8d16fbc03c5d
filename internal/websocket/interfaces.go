package websocket

import (
	"context"
	"time"

	"mtid/internal/chat"
	"mtid/pkg/contracts/domain"
)

// Connection is the subset of a websocket connection the pumps use.
// It lets tests drive clients without a network.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// Asker answers chat messages; *chat.Service implements it
type Asker interface {
	Ask(ctx context.Context, sessionID string, tradeType domain.TradeType, message string) (chat.Reply, error)
}

// ConnectionObserver is told when connections open and close. It may be nil.
type ConnectionObserver interface {
	RecordWebSocket(ctx context.Context, delta int64)
}
