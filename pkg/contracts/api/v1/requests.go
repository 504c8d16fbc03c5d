// Package api contains the JSON contracts of the dashboard HTTP API.
package api

// ChatRequest is the body of POST /api/chat. An empty trade type uses the
// session's current one.
type ChatRequest struct {
	Message   string `json:"message" validate:"required"`
	TradeType string `json:"trade_type,omitempty" validate:"omitempty,max=16"`
}

// ExportParams are the query parameters of GET /api/data/export besides the
// table's sort and filter parameters
type ExportParams struct {
	Format    string `json:"format"`
	TradeType string `json:"trade_type,omitempty"`
}
