package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtid/internal/dataset"
	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

func trade(flow domain.Flow, partner, hs string, value int64) domain.TradeRecord {
	return domain.TradeRecord{
		Year:            2024,
		Quarter:         domain.Q1,
		Month:           "March",
		Flow:            flow,
		HS2:             hs[:2],
		HS4:             hs[:4],
		HSCode:          hs,
		HSDescription:   "Goods " + hs,
		PartnerCountry:  partner,
		TradeValueUSD:   decimal.NewFromInt(value),
		Quantity:        decimal.NewFromInt(1),
		ModeOfTransport: domain.TransportRoad,
	}
}

func testDataset() *dataset.Dataset {
	return dataset.New(
		[]domain.TradeRecord{
			trade(domain.FlowExport, "Kenya", "090240", 1500),
			trade(domain.FlowImport, "China", "271019", 4000),
			trade(domain.FlowExport, "Uganda", "090240", 500),
		},
		[]domain.TradeRecord{
			trade(domain.FlowExport, "DRC", "070190", 250),
		},
	)
}

type stubResponder struct {
	text string
	err  error
	mu   sync.Mutex
	reqs []Request
}

func (s *stubResponder) Name() string { return "stub" }

func (s *stubResponder) Reply(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return s.text, s.err
}

type recordingObserver struct {
	sources   []string
	fallbacks []bool
}

func (o *recordingObserver) ChatAnswered(_ context.Context, source string, fallback bool, _ time.Duration) {
	o.sources = append(o.sources, source)
	o.fallbacks = append(o.fallbacks, fallback)
}

func TestNewDatasetContext(t *testing.T) {
	c := NewDatasetContext(view.Filter(testDataset(), domain.TradeTypeFormal))

	assert.Equal(t, domain.TradeTypeFormal, c.TradeType)
	assert.Equal(t, 3, c.Summary.RecordCount)
	assert.Equal(t, []string{"China", "Kenya", "Uganda"}, c.TopPartners)
	assert.Equal(t, []string{"271019 Goods 271019", "090240 Goods 090240"}, c.TopProducts)

	prompt := c.Prompt()
	assert.Contains(t, prompt, "Formal trade dataset")
	assert.Contains(t, prompt, "Total exports: $2,000")
	assert.Contains(t, prompt, "Trade balance: -$2,000")
}

func TestLocalResponder(t *testing.T) {
	c := NewDatasetContext(view.Filter(testDataset(), domain.TradeTypeFormal))

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"balance", "What is the trade balance?", "balance is -$2,000"},
		{"exports", "total EXPORTS please", "exports are $2,000"},
		{"imports", "how much was imported", "imports are $4,000"},
		{"partners", "top partner countries", "China, Kenya, Uganda"},
		{"products", "which products lead", "2 distinct HS codes"},
		{"periods", "which years are covered", "years 2024 and quarters Q1"},
		{"records", "how many rows", "3 records across 15 columns"},
		{"fallback help", "hello", "I can answer questions about the formal trade data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalResponder{}.Reply(context.Background(), Request{Message: tt.message, Context: c})
			require.NoError(t, err)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestLocalResponder_EmptyView(t *testing.T) {
	c := NewDatasetContext(view.Filter(dataset.New(nil, nil), domain.TradeTypeInformal))

	got, err := LocalResponder{}.Reply(context.Background(), Request{Message: "partners?", Context: c})
	require.NoError(t, err)
	assert.Equal(t, "There are no partner countries in the current dataset.", got)

	got, err = LocalResponder{}.Reply(context.Background(), Request{Message: "which quarter", Context: c})
	require.NoError(t, err)
	assert.Contains(t, got, "no periods")
}

func TestHTTPResponder(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{"reply field", http.StatusOK, `{"reply":"hi there"}`, "hi there", false},
		{"choices", http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"from choices"}}]}`, "from choices", false},
		{"error body", http.StatusOK, `{"error":{"message":"quota"}}`, "", true},
		{"empty", http.StatusOK, `{}`, "", true},
		{"bad status", http.StatusBadGateway, `{"reply":"x"}`, "", true},
		{"bad json", http.StatusOK, `not json`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got completionRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			h := NewHTTPResponder(srv.URL, "test-model", "secret", time.Second)
			req := Request{
				Message: "question",
				Context: NewDatasetContext(view.Filter(testDataset(), domain.TradeTypeFormal)),
				History: []Turn{{Role: "user", Content: "earlier"}},
			}
			text, err := h.Reply(context.Background(), req)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUpstream))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)

			assert.Equal(t, "test-model", got.Model)
			require.Len(t, got.Messages, 3)
			assert.Equal(t, "system", got.Messages[0].Role)
			assert.Equal(t, "earlier", got.Messages[1].Content)
			assert.Equal(t, Turn{Role: "user", Content: "question"}, got.Messages[2])
		})
	}
}

func TestService_Ask_Validation(t *testing.T) {
	s := NewService(testDataset(), Options{MaxLength: 10}, nil)

	_, err := s.Ask(context.Background(), "s1", domain.TradeTypeFormal, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = s.Ask(context.Background(), "s1", domain.TradeTypeFormal, strings.Repeat("x", 11))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	reply, err := s.Ask(context.Background(), "s1", domain.TradeTypeFormal, "exports?")
	require.NoError(t, err)
	assert.Equal(t, "local", reply.Source)
	assert.Equal(t, domain.TradeTypeFormal, reply.TradeType)
}

func TestService_Ask_RemoteAndFallback(t *testing.T) {
	remote := &stubResponder{text: "remote answer"}
	obs := &recordingObserver{}
	s := NewService(testDataset(), Options{Remote: remote, Observer: obs}, nil)

	reply, err := s.Ask(context.Background(), "s1", domain.TradeTypeInformal, "anything")
	require.NoError(t, err)
	assert.Equal(t, "remote answer", reply.Text)
	assert.Equal(t, "stub", reply.Source)
	require.Len(t, remote.reqs, 1)
	assert.Equal(t, domain.TradeTypeInformal, remote.reqs[0].Context.TradeType)
	assert.Empty(t, remote.reqs[0].History)

	remote.err = ErrUpstream
	reply, err = s.Ask(context.Background(), "s1", domain.TradeTypeInformal, "exports")
	require.NoError(t, err)
	assert.Equal(t, "local", reply.Source)
	assert.Contains(t, reply.Text, "informal exports are $250")

	require.Len(t, remote.reqs, 2)
	assert.Len(t, remote.reqs[1].History, 2)
	assert.Equal(t, []string{"stub", "local"}, obs.sources)
	assert.Equal(t, []bool{false, true}, obs.fallbacks)
}

func TestService_Ask_HistoryIsBounded(t *testing.T) {
	remote := &stubResponder{text: "ok"}
	s := NewService(testDataset(), Options{Remote: remote, History: 4, RatePerMin: 6000, Burst: 100}, nil)

	for i := 0; i < 5; i++ {
		_, err := s.Ask(context.Background(), "s1", domain.TradeTypeFormal, "q")
		require.NoError(t, err)
	}
	assert.Len(t, remote.reqs[4].History, 4)
}

func TestService_Ask_RateLimitPerSession(t *testing.T) {
	s := NewService(testDataset(), Options{RatePerMin: 1, Burst: 2}, nil)

	for i := 0; i < 2; i++ {
		_, err := s.Ask(context.Background(), "a", domain.TradeTypeFormal, "exports")
		require.NoError(t, err)
	}
	_, err := s.Ask(context.Background(), "a", domain.TradeTypeFormal, "exports")
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = s.Ask(context.Background(), "b", domain.TradeTypeFormal, "exports")
	assert.NoError(t, err)
}

func TestService_Ask_CancelledContext(t *testing.T) {
	s := NewService(testDataset(), Options{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Ask(ctx, "s1", domain.TradeTypeFormal, "exports")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_PruneAndForget(t *testing.T) {
	s := NewService(testDataset(), Options{}, nil)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, err := s.Ask(context.Background(), "old", domain.TradeTypeFormal, "exports")
	require.NoError(t, err)
	now = now.Add(time.Hour)
	_, err = s.Ask(context.Background(), "new", domain.TradeTypeFormal, "exports")
	require.NoError(t, err)

	assert.Equal(t, 1, s.Prune(30*time.Minute))
	s.Forget("new")
	assert.Equal(t, 0, s.Prune(0))
}
