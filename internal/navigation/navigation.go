// Package navigation holds the dashboard's view-state transitions.
//
// A ViewState is only ever replaced, never modified. Each event kind has one
// pure handler registered in a Dispatcher; Reduce looks the handler up and
// returns the next state.
package navigation

import (
	"errors"
	"fmt"
	"strings"

	"mtid/pkg/contracts/domain"
)

// ErrUnknownEvent is returned for event kinds without a handler
var ErrUnknownEvent = errors.New("unknown event kind")

// EventKind names a UI event
type EventKind string

const (
	// EventNavigate is a sidebar link click. Target is a page id.
	EventNavigate EventKind = "navigate"
	// EventToggleTradeType is a trade-type button click. Target is a
	// button id ("btn-formal") or a trade type name ("Informal").
	EventToggleTradeType EventKind = "toggle_trade_type"
)

// Event is one discrete UI event
type Event struct {
	Kind   EventKind `json:"kind" validate:"required,oneof=navigate toggle_trade_type"`
	Target string    `json:"target" validate:"max=64"`
}

// Handler computes the next state from the current one
type Handler func(domain.ViewState, Event) domain.ViewState

// Dispatcher is an explicit table of handlers keyed by event kind
type Dispatcher struct {
	handlers map[EventKind]Handler
}

// NewDispatcher returns a dispatcher with the navigate and toggle handlers
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: map[EventKind]Handler{
			EventNavigate:        Navigate,
			EventToggleTradeType: ToggleTradeType,
		},
	}
}

// Register adds or replaces the handler for kind
func (d *Dispatcher) Register(kind EventKind, h Handler) {
	d.handlers[kind] = h
}

// Handles reports whether kind has a handler
func (d *Dispatcher) Handles(kind EventKind) bool {
	_, ok := d.handlers[kind]
	return ok
}

// Reduce applies ev to state. The result is always a normalized state.
func (d *Dispatcher) Reduce(state domain.ViewState, ev Event) (domain.ViewState, error) {
	h, ok := d.handlers[ev.Kind]
	if !ok {
		return state.Normalize(), fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}
	return h(state.Normalize(), ev).Normalize(), nil
}

// Navigate sets the page and keeps the trade type. Unknown pages fall back to page1.
func Navigate(state domain.ViewState, ev Event) domain.ViewState {
	state.Page = domain.ParsePageID(strings.TrimSpace(ev.Target))
	return state
}

// ToggleTradeType sets the trade type and keeps the page.
// Unknown button ids select Formal.
func ToggleTradeType(state domain.ViewState, ev Event) domain.ViewState {
	state.TradeType = TradeTypeForButton(ev.Target)
	return state
}

// Button ids of the trade-type toggle
const (
	ButtonFormal   = "btn-formal"
	ButtonInformal = "btn-informal"
)

// TradeTypeForButton maps a button id or trade type name to a trade type
func TradeTypeForButton(target string) domain.TradeType {
	switch strings.TrimSpace(target) {
	case ButtonFormal:
		return domain.TradeTypeFormal
	case ButtonInformal:
		return domain.TradeTypeInformal
	}
	t, _ := domain.ParseTradeType(target)
	return t
}
