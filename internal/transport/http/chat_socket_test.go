package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtid/internal/chat"
	apierrors "mtid/internal/errors"
	"mtid/internal/middleware"
	"mtid/internal/websocket"
	"mtid/pkg/contracts/domain"
)

type echoAsker struct{}

func (echoAsker) Ask(_ context.Context, sessionID string, tradeType domain.TradeType, message string) (chat.Reply, error) {
	return chat.Reply{Text: message, Source: "local", TradeType: tradeType}, nil
}

func TestChatHandler_ServeWS(t *testing.T) {
	logger := testLogger()
	hub := websocket.NewHub(logger, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	svc := new(MockDashboardService)
	svc.On("SessionTradeType", "s1").Return(domain.TradeTypeInformal)

	eh := apierrors.NewErrorHandler(logger, false)
	h := NewChatHandler(svc, hub, echoAsker{}, middleware.NewValidator(logger), ChatOptions{}, logger, eh)
	server := httptest.NewServer(SessionMiddleware(testCookie, time.Hour)(http.HandlerFunc(h.ServeWS)))
	defer server.Close()

	header := http.Header{}
	header.Set("Cookie", testCookie+"=s1")
	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), header)
	require.NoError(t, err)
	defer conn.Close()

	read := func() websocket.Outbound {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var out websocket.Outbound
		require.NoError(t, conn.ReadJSON(&out))
		return out
	}

	assert.Equal(t, websocket.TypeConnection, read().Type)
	require.NoError(t, conn.WriteJSON(websocket.Inbound{Type: websocket.TypeChat, Message: "hello"}))
	assert.Equal(t, websocket.TypeTyping, read().Type)

	reply := read()
	require.Equal(t, websocket.TypeReply, reply.Type)
	raw, err := json.Marshal(reply.Data)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"trade_type":"Informal"`)
	svc.AssertExpectations(t)
}

func TestChatHandler_ServeWS_Disabled(t *testing.T) {
	logger := testLogger()
	h := NewChatHandler(new(MockDashboardService), nil, nil, middleware.NewValidator(logger), ChatOptions{}, logger,
		apierrors.NewErrorHandler(logger, false))

	w := httptest.NewRecorder()
	h.ServeWS(w, httptest.NewRequest(http.MethodGet, "/ws/chat", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestChatHandler_CheckOrigin(t *testing.T) {
	logger := testLogger()
	h := NewChatHandler(new(MockDashboardService), nil, nil, nil,
		ChatOptions{AllowedOrigins: []string{"http://dash.example"}}, logger, apierrors.NewErrorHandler(logger, false))

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://example.com", true},
		{"http://dash.example", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "http://example.com/ws/chat", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, h.checkOrigin(r), tt.origin)
	}
}

func TestFrontendHandler(t *testing.T) {
	fsys := fstest.MapFS{
		"index.html":    {Data: []byte(`<title>{{.Title}}</title><meta name="version" content="{{.Version}}">`)},
		"static/app.js": {Data: []byte(`console.log("ok")`)},
	}
	h, err := NewFrontendHandler(fsys, testLogger())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.ServeIndex(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Merchandise Trade Intelligence Dashboard")
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	h.ServeStatic(w, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	h.ServeStatic(w, httptest.NewRequest(http.MethodGet, "/static/missing.css", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.ServeStatic(w, httptest.NewRequest(http.MethodGet, "/static", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err = NewFrontendHandler(fstest.MapFS{}, testLogger())
	assert.Error(t, err)
}

func TestMetricsHandler(t *testing.T) {
	eh := apierrors.NewErrorHandler(testLogger(), false)

	w := httptest.NewRecorder()
	NewMetricsHandler(nil, eh).GetMetrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	exp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mtid_http_requests_total 1\n"))
	})
	w = httptest.NewRecorder()
	NewMetricsHandler(exp, eh).GetMetrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "mtid_http_requests_total")
}
