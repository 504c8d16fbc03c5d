package http

import (
	"context"
	"io"
	"net/url"

	"mtid/internal/navigation"
	"mtid/internal/pages"
	"mtid/internal/services"
	api "mtid/pkg/contracts/api/v1"
	"mtid/pkg/contracts/domain"
)

// DashboardService defines the dashboard operations the handlers call.
// *services.DashboardService implements it.
type DashboardService interface {
	State(ctx context.Context, sessionID string) api.StateResponse
	Dispatch(ctx context.Context, sessionID string, ev navigation.Event) (api.EventResponse, error)
	Page(ctx context.Context, sessionID, page, tradeType string) pages.Content
	ChartPNG(ctx context.Context, sessionID, page, chartID, tradeType string, w io.Writer, width, height int) error

	Info(ctx context.Context, sessionID, tradeType string) api.InfoResponse
	Table(ctx context.Context, sessionID, tradeType string, params url.Values) (api.TableResponse, error)
	Export(ctx context.Context, sessionID, tradeType, format string, params url.Values) (services.ExportFile, error)
	Dictionary() api.DictionaryResponse

	Chat(ctx context.Context, sessionID string, req api.ChatRequest) (api.ChatResponse, error)
	SessionTradeType(sessionID string) domain.TradeType
}

var _ DashboardService = (*services.DashboardService)(nil)
