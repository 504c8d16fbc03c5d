package api

import (
	"time"

	"mtid/internal/navigation"
	"mtid/internal/pages"
	"mtid/internal/table"
	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

// StateResponse is the session's view state with everything the shell
// needs to draw the sidebar
type StateResponse struct {
	State   domain.ViewState   `json:"state"`
	Sidebar navigation.Sidebar `json:"sidebar"`
}

// EventResponse is the result of dispatching one UI event
type EventResponse struct {
	State   domain.ViewState   `json:"state"`
	Sidebar navigation.Sidebar `json:"sidebar"`
	Content pages.Content      `json:"content"`
}

// InfoResponse summarizes one trade type's records
type InfoResponse struct {
	TradeType    domain.TradeType    `json:"trade_type"`
	Summary      view.DatasetSummary `json:"summary"`
	InfoLine     string              `json:"info_line"`
	TradeBalance string              `json:"trade_balance"`
	LoadedAt     time.Time           `json:"loaded_at"`
}

// TableResponse is one queried page of the raw data table
type TableResponse struct {
	NoData  bool           `json:"no_data"`
	Message string         `json:"message,omitempty"`
	Detail  string         `json:"detail,omitempty"`
	Config  *table.Config  `json:"config,omitempty"`
	Columns []table.Column `json:"columns,omitempty"`
	Page    table.Page     `json:"page"`
}

// DictionaryResponse lists the columns of the data model
type DictionaryResponse struct {
	Columns []domain.ColumnInfo `json:"columns"`
}

// ChatResponse is the assistant's answer
type ChatResponse struct {
	Reply     string           `json:"reply"`
	Source    string           `json:"source"`
	TradeType domain.TradeType `json:"trade_type"`
	Time      time.Time        `json:"time"`
}
