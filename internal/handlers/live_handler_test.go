package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"peerprep/interview/internal/conversation"
	"peerprep/interview/internal/evaluation"
	"peerprep/interview/internal/live"
	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/prompts"
)

type fakeLive struct {
	mu        sync.Mutex
	subs      map[live.EventKind][]live.Handler
	connected bool
	sent      int
}

func newFakeLive() *fakeLive {
	return &fakeLive{subs: make(map[live.EventKind][]live.Handler)}
}

func (f *fakeLive) Connect(ctx context.Context, cfg models.LiveConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeLive) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeLive) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeLive) Send(parts []live.Part, turnComplete bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return live.ErrNotConnected
	}
	f.sent++
	return nil
}

func (f *fakeLive) SendRealtimeAudio(pcm []byte, sampleRate int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return live.ErrNotConnected
	}
	return nil
}

func (f *fakeLive) SendToolResponse(responses ...models.ToolResponse) error { return nil }

func (f *fakeLive) Subscribe(kind live.EventKind, h live.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.subs[kind])
	f.subs[kind] = append(f.subs[kind], h)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.subs[kind][idx] = nil
	}
}

func (f *fakeLive) emit(ev live.Event) {
	f.mu.Lock()
	handlers := append([]live.Handler(nil), f.subs[ev.Kind()]...)
	f.mu.Unlock()
	for _, h := range handlers {
		if h != nil {
			h(ev)
		}
	}
}

type staticEvaluator struct{}

func (staticEvaluator) Evaluate(ctx context.Context, req evaluation.Request) *models.InterviewEvaluation {
	return &models.InterviewEvaluation{
		ConversationID: req.ConversationID,
		Feedback:       "## OVERALL FEEDBACK\nGood.",
		Scores:         &models.EvaluationScores{Technical: 7, Communication: 8},
		Transcript:     req.Transcript,
		Available:      true,
		CompletedAt:    time.Now(),
	}
}

type liveFixture struct {
	server  *httptest.Server
	handler *LiveHandler
	clients chan *fakeLive
}

func newLiveFixture(t *testing.T) *liveFixture {
	t.Helper()
	pm, err := prompts.NewPromptManager()
	require.NoError(t, err)

	f := &liveFixture{clients: make(chan *fakeLive, 4)}
	factory := func(candidateID string, observer conversation.Observer) *conversation.Conversation {
		client := newFakeLive()
		f.clients <- client
		return conversation.New(conversation.Config{CandidateID: candidateID}, client, pm, staticEvaluator{}, nil, observer, zap.NewNop())
	}
	f.handler = NewLiveHandler(factory, time.Minute, zap.NewNop())

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(""))
	router.Get("/live/ws", f.handler.LiveWS)
	f.server = httptest.NewServer(router)

	t.Cleanup(func() {
		f.handler.Close()
		f.server.Close()
	})
	return f
}

func (f *liveFixture) dial(t *testing.T, candidateID string) (*websocket.Conn, *fakeLive) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/live/ws"
	header := http.Header{"X-Candidate-ID": []string{candidateID}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ready := readUntil(t, conn, frameReady)
	assert.Equal(t, frameReady, ready.Type)
	return conn, <-f.clients
}

func readUntil(t *testing.T, conn *websocket.Conn, frameType string) serverFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var frame serverFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == frameType {
			return frame
		}
	}
}

func TestLiveHandler_InterviewRoundTrip(t *testing.T) {
	f := newLiveFixture(t)
	conn, client := f.dial(t, "cand-1")

	require.NoError(t, conn.WriteJSON(clientFrame{Type: frameText, Text: "too early"}))
	errFrame := readUntil(t, conn, frameError)
	require.NotNil(t, errFrame.Error)
	assert.Equal(t, "not_started", errFrame.Error.Code)

	require.NoError(t, conn.WriteJSON(clientFrame{
		Type:  frameStart,
		Start: &models.LiveStartRequest{InterviewType: models.InterviewBackend, SkillLevel: 5, NumQuestions: 2},
	}))
	started := readUntil(t, conn, frameStarted)
	assert.NotEmpty(t, started.ConversationID)
	assert.NotEmpty(t, started.InitialQuestion)

	client.emit(live.OutputTranscription{Text: "Welcome! How would you design a REST API?"})
	client.emit(live.TurnComplete{})
	snap := readUntil(t, conn, frameTranscript)
	require.NotNil(t, snap.Transcript)

	require.NoError(t, conn.WriteJSON(clientFrame{Type: frameText, Text: "I would start with resources"}))
	for found := false; !found; {
		frame := readUntil(t, conn, frameTranscript)
		for _, m := range frame.Transcript.Messages {
			if m.Role == models.RoleCandidate && m.Content == "I would start with resources" {
				found = true
			}
		}
	}

	require.NoError(t, conn.WriteJSON(clientFrame{Type: frameEvaluate}))
	eval := readUntil(t, conn, frameEvaluation)
	require.NotNil(t, eval.Evaluation)
	assert.True(t, eval.Evaluation.Available)
	assert.Equal(t, started.ConversationID, eval.Evaluation.ConversationID)
	assert.Contains(t, eval.Evaluation.Transcript, "I would start with resources")
}

func TestLiveHandler_InvalidStartAndUnknownFrames(t *testing.T) {
	f := newLiveFixture(t)
	conn, _ := f.dial(t, "cand-1")

	require.NoError(t, conn.WriteJSON(clientFrame{Type: frameStart, Start: &models.LiveStartRequest{SkillLevel: 42}}))
	frame := readUntil(t, conn, frameError)
	assert.Equal(t, "invalid_skill_level", frame.Error.Code)

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "dance"}))
	frame = readUntil(t, conn, frameError)
	assert.Equal(t, "unknown_type", frame.Error.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	frame = readUntil(t, conn, frameError)
	assert.Equal(t, "invalid_frame", frame.Error.Code)
}

func TestLiveHandler_EvaluateEmptyTranscript(t *testing.T) {
	f := newLiveFixture(t)
	conn, _ := f.dial(t, "cand-1")

	require.NoError(t, conn.WriteJSON(clientFrame{Type: frameStart}))
	readUntil(t, conn, frameStarted)

	// the opening question is sent to the model but nothing was said yet
	require.NoError(t, conn.WriteJSON(clientFrame{Type: frameEvaluate}))
	frame := readUntil(t, conn, frameError)
	assert.Equal(t, "empty_transcript", frame.Error.Code)
}

func TestLiveHandler_ModelAudioIsForwarded(t *testing.T) {
	f := newLiveFixture(t)
	conn, client := f.dial(t, "cand-1")

	require.NoError(t, conn.WriteJSON(clientFrame{Type: frameStart}))
	readUntil(t, conn, frameStarted)

	client.emit(live.AudioChunk{MIMEType: "audio/pcm;rate=24000", Data: []byte{1, 2, 3, 4}})
	frame := readUntil(t, conn, frameAudio)
	assert.Equal(t, "audio/pcm;rate=24000", frame.MIMEType)
	assert.Equal(t, []byte{1, 2, 3, 4}, frame.Audio)
}

func TestLiveHandler_NewConnectionReplacesOld(t *testing.T) {
	f := newLiveFixture(t)
	first, _ := f.dial(t, "cand-1")
	_, _ = f.dial(t, "cand-1")

	require.NoError(t, first.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := first.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 1, f.handler.ActiveSockets())

	_, _ = f.dial(t, "cand-2")
	assert.Equal(t, 2, f.handler.ActiveSockets())
}
