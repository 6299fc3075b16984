package routers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"peerprep/interview/internal/config"
	"peerprep/interview/internal/conversation"
	"peerprep/interview/internal/handlers"
	"peerprep/interview/internal/interview"
	"peerprep/interview/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubMachines struct{}

func (stubMachines) Get(context.Context, string) (*interview.Machine, error) {
	return nil, context.Canceled
}

type stubTranscripts struct{}

func (stubTranscripts) Get(context.Context, string) (*models.TranscriptRecord, error) {
	return nil, context.Canceled
}

func (stubTranscripts) ListByCandidate(context.Context, string, int) ([]models.TranscriptRecord, error) {
	return nil, nil
}

func walk(t *testing.T, router *chi.Mux) map[string]bool {
	t.Helper()
	paths := map[string]bool{}
	err := chi.Walk(router, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		paths[method+" "+route] = true
		return nil
	})
	require.NoError(t, err)
	return paths
}

func TestHealthRoutes(t *testing.T) {
	router := chi.NewRouter()
	HealthRoutes(router, handlers.NewHealthHandler(nil, nil, nil, nil, &config.Config{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInterviewRoutesRegistersEndpoints(t *testing.T) {
	router := chi.NewRouter()
	InterviewRoutes(router, "", handlers.NewInterviewHandler(stubMachines{}, zap.NewNop()))

	paths := walk(t, router)
	for _, route := range []string{
		"POST /api/v1/interview/start",
		"GET /api/v1/interview/question",
		"POST /api/v1/interview/answer",
		"GET /api/v1/interview/feedback",
		"POST /api/v1/interview/cancel",
		"GET /api/v1/interview/session",
	} {
		assert.True(t, paths[route], "expected route %s to be registered", route)
	}
}

func TestInterviewRoutesRequireAuthentication(t *testing.T) {
	router := chi.NewRouter()
	InterviewRoutes(router, "secret", handlers.NewInterviewHandler(stubMachines{}, zap.NewNop()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/interview/session", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLiveRoutesRegistersEndpoints(t *testing.T) {
	factory := func(string, conversation.Observer) *conversation.Conversation { return nil }
	live := handlers.NewLiveHandler(factory, time.Minute, zap.NewNop())
	defer live.Close()

	router := chi.NewRouter()
	LiveRoutes(router, "", live, handlers.NewTranscriptHandler(stubTranscripts{}, zap.NewNop()))
	paths := walk(t, router)
	assert.True(t, paths["GET /api/v1/live/ws"])
	assert.True(t, paths["GET /api/v1/live/transcripts"])
	assert.True(t, paths["GET /api/v1/live/transcripts/{conversation_id}"])

	router = chi.NewRouter()
	LiveRoutes(router, "", live, nil)
	paths = walk(t, router)
	assert.True(t, paths["GET /api/v1/live/ws"])
	assert.False(t, paths["GET /api/v1/live/transcripts"])
}
