// Package chat answers free-text questions about the trade data currently on
// screen. Messages go to a remote responder when one is configured and fall
// back to a local keyword responder when it is not or when it fails.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"mtid/internal/dataset"
	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

var (
	// ErrEmptyMessage is returned for blank messages
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMessageTooLong is returned when a message exceeds the configured limit
	ErrMessageTooLong = errors.New("message too long")
	// ErrRateLimited is returned when a session sends messages too quickly
	ErrRateLimited = errors.New("too many chat messages")
	// ErrUpstream wraps failures of the remote responder
	ErrUpstream = errors.New("chat upstream failed")
)

// Defaults used when Options leaves a field zero
const (
	DefaultMaxLength  = 1000
	DefaultHistory    = 10
	DefaultRatePerMin = 20
	DefaultBurst      = 5
)

// Reply is the answer to one message
type Reply struct {
	Text      string           `json:"text"`
	Source    string           `json:"source"`
	TradeType domain.TradeType `json:"trade_type"`
	Time      time.Time        `json:"time"`
}

// Observer receives one call per answered message. It may be nil.
type Observer interface {
	ChatAnswered(ctx context.Context, source string, fallback bool, latency time.Duration)
}

// Options configure a Service
type Options struct {
	Remote     Responder
	MaxLength  int
	History    int
	RatePerMin int
	Burst      int
	Observer   Observer
}

type conversation struct {
	limiter *rate.Limiter
	turns   []Turn
	seen    time.Time
}

// Service answers chat messages per session
type Service struct {
	data     *dataset.Dataset
	remote   Responder
	local    Responder
	opts     Options
	logger   *slog.Logger
	observer Observer

	mu    sync.Mutex
	convs map[string]*conversation
	now   func() time.Time
}

// NewService creates a chat service over data
func NewService(data *dataset.Dataset, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	if opts.History <= 0 {
		opts.History = DefaultHistory
	}
	if opts.RatePerMin <= 0 {
		opts.RatePerMin = DefaultRatePerMin
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	return &Service{
		data:     data,
		remote:   opts.Remote,
		local:    LocalResponder{},
		opts:     opts,
		logger:   logger.With(slog.String("component", "chat")),
		observer: opts.Observer,
		convs:    make(map[string]*conversation),
		now:      time.Now,
	}
}

// Ask answers message for the session, using the records of tradeType as context
func (s *Service) Ask(ctx context.Context, sessionID string, tradeType domain.TradeType, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}
	if n := utf8.RuneCountInString(message); n > s.opts.MaxLength {
		return Reply{}, fmt.Errorf("%w: %d characters, limit %d", ErrMessageTooLong, n, s.opts.MaxLength)
	}

	conv := s.conversation(sessionID)
	if !conv.limiter.Allow() {
		return Reply{}, ErrRateLimited
	}

	req := Request{
		Message: message,
		Context: NewDatasetContext(view.Filter(s.data, tradeType)),
		History: s.history(conv),
	}

	start := s.now()
	text, source, fallback := s.reply(ctx, req)
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	if s.observer != nil {
		s.observer.ChatAnswered(ctx, source, fallback, s.now().Sub(start))
	}

	s.record(conv, Turn{Role: "user", Content: message}, Turn{Role: "assistant", Content: text})
	return Reply{Text: text, Source: source, TradeType: req.Context.TradeType, Time: s.now()}, nil
}

func (s *Service) reply(ctx context.Context, req Request) (text, source string, fallback bool) {
	if s.remote != nil {
		text, err := s.remote.Reply(ctx, req)
		if err == nil {
			return text, s.remote.Name(), false
		}
		s.logger.WarnContext(ctx, "remote chat responder failed, using local answers",
			slog.String("responder", s.remote.Name()),
			slog.String("error", err.Error()))
		fallback = true
	}
	// local responder never fails
	text, _ = s.local.Reply(ctx, req)
	return text, s.local.Name(), fallback
}

func (s *Service) conversation(id string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		perSecond := rate.Limit(float64(s.opts.RatePerMin) / 60)
		c = &conversation{limiter: rate.NewLimiter(perSecond, s.opts.Burst)}
		s.convs[id] = c
	}
	c.seen = s.now()
	return c
}

func (s *Service) history(c *conversation) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (s *Service) record(c *conversation, turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.turns = append(c.turns, turns...)
	if extra := len(c.turns) - s.opts.History; extra > 0 {
		c.turns = append([]Turn(nil), c.turns[extra:]...)
	}
}

// Forget drops the conversation of a session
func (s *Service) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, sessionID)
}

// Prune drops conversations idle for longer than idle and returns how many
func (s *Service) Prune(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-idle)
	n := 0
	for id, c := range s.convs {
		if c.seen.Before(cutoff) {
			delete(s.convs, id)
			n++
		}
	}
	return n
}
