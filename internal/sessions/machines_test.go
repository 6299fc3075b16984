package sessions

import (
	"context"
	"testing"
	"time"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct{}

func (stubBackend) Start(ctx context.Context, name string) (*models.StartInterviewResponse, error) {
	return &models.StartInterviewResponse{SessionID: "sess-" + name}, nil
}

func (stubBackend) NextQuestion(ctx context.Context, id string) (*models.QuestionResponse, error) {
	return &models.QuestionResponse{Question: models.Question{ID: "q1", Text: "What is a mutex?", Topic: "concurrency"}}, nil
}

func (stubBackend) SubmitAnswer(ctx context.Context, id, answer string) (*models.EvaluationResponse, error) {
	return &models.EvaluationResponse{NextQuestionAvailable: true}, nil
}

func (stubBackend) Feedback(ctx context.Context, id string) (*models.FeedbackResponse, error) {
	return &models.FeedbackResponse{SessionID: id}, nil
}

func (stubBackend) Cancel(ctx context.Context, id string) error { return nil }

func TestMachinesArePerCandidate(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	machines := NewMachines(stubBackend{}, fs, time.Minute, nil)
	defer machines.Close()

	a, err := machines.Get(context.Background(), "alice")
	require.NoError(t, err)
	again, err := machines.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Same(t, a, again)

	b, err := machines.Get(context.Background(), "bob")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, machines.Size())
}

func TestMachinesRestoreAfterEviction(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	machines := NewMachines(stubBackend{}, fs, time.Minute, nil)
	defer machines.Close()

	m, err := machines.Get(context.Background(), "alice")
	require.NoError(t, err)
	_, err = m.Start(context.Background(), "Alice")
	require.NoError(t, err)
	_, err = m.RequestNextQuestion(context.Background())
	require.NoError(t, err)

	machines.registry.Delete("alice")

	restored, err := machines.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotSame(t, m, restored)
	require.NotNil(t, restored.Session())
	assert.Equal(t, models.SessionInProgress, restored.State())
	assert.Equal(t, "q1", restored.Session().CurrentQuestion.ID)
}
