package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"peerprep/interview/internal/config"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubTemplates []string

func (s stubTemplates) GetTemplates() []string { return s }

type stubArchiveStats struct {
	stats map[string]int64
	err   error
}

func (s stubArchiveStats) Stats(context.Context) (map[string]int64, error) { return s.stats, s.err }

func TestHealthzHandler(t *testing.T) {
	handler := NewHealthHandler(nil, nil, nil, nil, nil)
	rec := httptest.NewRecorder()

	handler.HealthzHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "interview", body["service"])
}

func TestReadyzHandler_AllHealthy(t *testing.T) {
	archive := stubArchiveStats{stats: map[string]int64{"total_transcripts": 3}}
	handler := NewHealthHandler(stubPinger{}, archive, stubProvider{}, stubTemplates{"interviewer"}, &config.Config{})
	rec := httptest.NewRecorder()

	handler.ReadyzHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[ReadinessResponse](t, rec)
	assert.Equal(t, "ready", resp.Status)
	for _, name := range []string{"session_store", "prompt_manager", "provider", "configuration", "archive"} {
		assert.Equal(t, "ok", resp.Checks[name].Status, name)
	}
	assert.Equal(t, int64(3), resp.Archive["total_transcripts"])
}

func TestReadyzHandler_MissingProviderIsNotFatal(t *testing.T) {
	handler := NewHealthHandler(stubPinger{}, nil, nil, stubTemplates{"interviewer"}, &config.Config{})
	rec := httptest.NewRecorder()

	handler.ReadyzHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[ReadinessResponse](t, rec)
	assert.Equal(t, "disabled", resp.Checks["provider"].Status)
	assert.Equal(t, "disabled", resp.Checks["archive"].Status)
}

func TestReadyzHandler_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler *HealthHandler
		failed  string
	}{
		{
			name:    "store unreachable",
			handler: NewHealthHandler(stubPinger{err: errors.New("connection refused")}, nil, nil, stubTemplates{"a"}, &config.Config{}),
			failed:  "session_store",
		},
		{
			name:    "store missing",
			handler: NewHealthHandler(nil, nil, nil, stubTemplates{"a"}, &config.Config{}),
			failed:  "session_store",
		},
		{
			name:    "no templates",
			handler: NewHealthHandler(stubPinger{}, nil, nil, stubTemplates{}, &config.Config{}),
			failed:  "prompt_manager",
		},
		{
			name:    "no config",
			handler: NewHealthHandler(stubPinger{}, nil, nil, stubTemplates{"a"}, nil),
			failed:  "configuration",
		},
		{
			name:    "archive error",
			handler: NewHealthHandler(stubPinger{}, stubArchiveStats{err: errors.New("db closed")}, nil, stubTemplates{"a"}, &config.Config{}),
			failed:  "archive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler.ReadyzHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			resp := decodeBody[ReadinessResponse](t, rec)
			assert.Equal(t, "not_ready", resp.Status)
			assert.Equal(t, "failed", resp.Checks[tt.failed].Status)
		})
	}
}
