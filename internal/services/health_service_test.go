package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockHub struct {
	mock.Mock
}

func (m *MockHub) ClientCount() int {
	return m.Called().Int(0)
}

func (m *MockHub) Done() <-chan struct{} {
	return m.Called().Get(0).(chan struct{})
}

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Len() int {
	return m.Called().Int(0)
}

type MockDataset struct {
	mock.Mock
}

func (m *MockDataset) Len() int {
	return m.Called().Int(0)
}

func (m *MockDataset) LoadedAt() time.Time {
	return m.Called().Get(0).(time.Time)
}

func healthyMocks() (*MockDataset, *MockHub, *MockSessions) {
	data := new(MockDataset)
	data.On("Len").Return(1200)
	data.On("LoadedAt").Return(time.Now().Add(-time.Minute))

	hub := new(MockHub)
	hub.On("ClientCount").Return(3)
	hub.On("Done").Return(make(chan struct{}))

	sessions := new(MockSessions)
	sessions.On("Len").Return(5)
	return data, hub, sessions
}

func TestHealthService_HealthCheck(t *testing.T) {
	data, hub, sessions := healthyMocks()
	hs := NewHealthService("1.2.3", data, hub, sessions, "local", testLogger())

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	require.Contains(t, status.Services, "dataset")

	ds := status.Services["dataset"].(ServiceHealth)
	assert.Equal(t, "ready", ds.Status)
	assert.Equal(t, "1200 records loaded", ds.Message)
	assert.Equal(t, "3 chat clients connected", status.Services["websocket"].(ServiceHealth).Message)
	assert.Equal(t, "5 active sessions", status.Services["sessions"].(ServiceHealth).Message)
	assert.Contains(t, status.Services["chat"].(ServiceHealth).Message, "local")

	data.AssertExpectations(t)
	hub.AssertExpectations(t)
	sessions.AssertExpectations(t)
}

func TestHealthService_Readiness(t *testing.T) {
	tests := []struct {
		name  string
		setup func() (DatasetStatus, HubStatus, SessionCounter)
		want  string
	}{
		{
			name: "all ready",
			setup: func() (DatasetStatus, HubStatus, SessionCounter) {
				d, h, s := healthyMocks()
				return d, h, s
			},
			want: "ready",
		},
		{
			name: "hub stopped",
			setup: func() (DatasetStatus, HubStatus, SessionCounter) {
				d, _, s := healthyMocks()
				done := make(chan struct{})
				close(done)
				h := new(MockHub)
				h.On("Done").Return(done)
				return d, h, s
			},
			want: "not_ready",
		},
		{
			name: "no dataset",
			setup: func() (DatasetStatus, HubStatus, SessionCounter) {
				_, h, s := healthyMocks()
				return nil, h, s
			},
			want: "not_ready",
		},
		{
			name: "no hub",
			setup: func() (DatasetStatus, HubStatus, SessionCounter) {
				d, _, s := healthyMocks()
				return d, nil, s
			},
			want: "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, h, s := tt.setup()
			hs := NewHealthService("dev", d, h, s, "remote", testLogger())
			assert.Equal(t, tt.want, hs.ReadinessCheck(context.Background()).Status)
		})
	}
}

func TestHealthService_HealthCheckDegraded(t *testing.T) {
	hs := NewHealthService("dev", nil, nil, nil, "local", testLogger())
	assert.Equal(t, "degraded", hs.HealthCheck(context.Background()).Status)
}

func TestHealthService_LivenessAndVersion(t *testing.T) {
	hs := NewHealthService("0.3.0", nil, nil, nil, "local", testLogger())

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	v := hs.Version()
	assert.Equal(t, "0.3.0", v["version"])
	assert.Equal(t, "v1", v["api_version"])
	assert.Contains(t, v, "go_version")
}
