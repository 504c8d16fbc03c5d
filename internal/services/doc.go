// Package services holds the dashboard's use cases. Handlers translate HTTP
// into calls on DashboardService and HealthService; the services combine the
// dataset, per-session view state, page controller, table queries, exporter
// and chat assistant, and report what happened to the metrics layer.
//
// Every request works on a snapshot of the session's ViewState. Pages, tables
// and exports are recomputed from the immutable dataset on every call.
package services
