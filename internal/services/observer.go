package services

import (
	"context"
	"time"

	"mtid/internal/infrastructure"
	"mtid/internal/pages"
	"mtid/pkg/contracts/domain"
)

// MetricsObserver forwards page, chat and socket events to the dashboard
// metrics. A nil *DashboardMetrics records nothing.
type MetricsObserver struct {
	metrics *infrastructure.DashboardMetrics
}

// NewMetricsObserver wraps metrics
func NewMetricsObserver(metrics *infrastructure.DashboardMetrics) *MetricsObserver {
	return &MetricsObserver{metrics: metrics}
}

// PageRendered implements pages.Observer
func (o *MetricsObserver) PageRendered(ctx context.Context, page domain.PageID, tradeType domain.TradeType, status pages.Status) {
	o.metrics.RecordPageRender(ctx, string(page), string(tradeType), string(status))
}

// ChatAnswered implements chat.Observer
func (o *MetricsObserver) ChatAnswered(ctx context.Context, source string, fallback bool, latency time.Duration) {
	o.metrics.RecordChat(ctx, source, fallback, latency)
}

// RecordWebSocket implements websocket.ConnectionObserver
func (o *MetricsObserver) RecordWebSocket(ctx context.Context, delta int64) {
	o.metrics.RecordWebSocket(ctx, delta)
}
