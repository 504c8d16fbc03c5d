package websocket

import (
	"encoding/json"
	"time"
)

// Message types exchanged with the chat widget
const (
	TypeHeartbeat  = "heartbeat"
	TypeChat       = "chat"
	TypeConnection = "connection"
	TypeTyping     = "typing"
	TypeReply      = "chat_reply"
	TypeError      = "error"
	TypeNotice     = "notice"
)

// Inbound is a frame sent by the browser
type Inbound struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	TradeType string `json:"trade_type,omitempty"`
}

// Outbound is a frame sent to the browser
type Outbound struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
	TraceID   string `json:"trace_id,omitempty"`
}

// ErrorData is the payload of an error frame
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func encode(msgType string, data any, traceID string) ([]byte, error) {
	return json.Marshal(Outbound{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   traceID,
	})
}
