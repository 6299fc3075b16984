package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"peerprep/interview/internal/models"
)

type stubProvider struct{}

func (stubProvider) GenerateContent(context.Context, string, string) (*models.GenerationResponse, error) {
	return &models.GenerationResponse{Content: "ok"}, nil
}

func (stubProvider) GetProviderName() string { return "stub" }

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}
