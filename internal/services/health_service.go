package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"mtid/pkg/contracts"
)

// HubStatus is the part of the chat socket hub the health checks need
type HubStatus interface {
	ClientCount() int
	Done() <-chan struct{}
}

// SessionCounter reports the number of live sessions
type SessionCounter interface {
	Len() int
}

// DatasetStatus reports what was loaded at startup
type DatasetStatus interface {
	Len() int
	LoadedAt() time.Time
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	data      DatasetStatus
	hub       HubStatus
	sessions  SessionCounter
	chatMode  string
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. hub and sessions may be nil;
// chatMode is "remote" or "local".
func NewHealthService(version string, data DatasetStatus, hub HubStatus, sessions SessionCounter, chatMode string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("chat_mode", chatMode))

	return &HealthService{
		version:   version,
		data:      data,
		hub:       hub,
		sessions:  sessions,
		chatMode:  chatMode,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  hs.services(),
	}
	if !allReady(status.Services) {
		status.Status = "degraded"
	}
	hs.logger.DebugContext(ctx, "HealthCheck: completed", slog.String("status", status.Status))
	return status
}

// ReadinessCheck reports whether every component can serve requests
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  hs.services(),
	}
	if !allReady(status.Services) {
		status.Status = "not_ready"
		hs.logger.WarnContext(ctx, "ReadinessCheck: not ready")
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      hs.version,
		"api_version":  info.APIVersion,
		"data_format":  info.DataFormat,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) services() map[string]interface{} {
	return map[string]interface{}{
		"dataset":   hs.checkDataset(),
		"websocket": hs.checkWebSocket(),
		"sessions":  hs.checkSessions(),
		"chat":      ServiceHealth{Status: "ready", Message: "chat assistant mode: " + hs.chatMode},
	}
}

func allReady(services map[string]interface{}) bool {
	for _, s := range services {
		if sh, ok := s.(ServiceHealth); ok && sh.Status != "ready" {
			return false
		}
	}
	return true
}

func (hs *HealthService) checkDataset() ServiceHealth {
	if hs.data == nil {
		return ServiceHealth{Status: "not_ready", Message: "dataset not loaded"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d records loaded", hs.data.Len()),
		Uptime:  time.Since(hs.data.LoadedAt()).Round(time.Second).String(),
	}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "not_ready", Message: "chat hub not started"}
	}
	select {
	case <-hs.hub.Done():
		return ServiceHealth{Status: "not_ready", Message: "chat hub stopped"}
	default:
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d chat clients connected", hs.hub.ClientCount()),
		Uptime:  time.Since(hs.startTime).Round(time.Second).String(),
	}
}

func (hs *HealthService) checkSessions() ServiceHealth {
	if hs.sessions == nil {
		return ServiceHealth{Status: "not_ready", Message: "session store missing"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d active sessions", hs.sessions.Len()),
	}
}
