package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"peerprep/interview/internal/conversation"
	"peerprep/interview/internal/live"
	"peerprep/interview/internal/metrics"
	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/sessions"
	"peerprep/interview/internal/turn"
)

const socketWriteTimeout = 5 * time.Second

// Client frame types. Binary websocket messages are raw 16 kHz PCM audio.
const (
	frameStart    = "start"
	frameText     = "text"
	frameAudio    = "audio"
	frameEvaluate = "evaluate"
	frameReset    = "reset"
)

// Server frame types.
const (
	frameReady          = "ready"
	frameStarted        = "started"
	frameTranscript     = "transcript"
	frameConcludePrompt = "conclude_prompt"
	frameEvaluation     = "evaluation"
	frameError          = "error"
)

type clientFrame struct {
	Type       string                   `json:"type"`
	Start      *models.LiveStartRequest `json:"start,omitempty"`
	Text       string                   `json:"text,omitempty"`
	Audio      []byte                   `json:"audio,omitempty"`
	SampleRate int                      `json:"sample_rate,omitempty"`
}

type serverFrame struct {
	Type            string                      `json:"type"`
	ConversationID  string                      `json:"conversation_id,omitempty"`
	InitialQuestion string                      `json:"initial_question,omitempty"`
	Transcript      *models.TranscriptSnapshot  `json:"transcript,omitempty"`
	Progress        *turn.Progress              `json:"progress,omitempty"`
	MIMEType        string                      `json:"mime_type,omitempty"`
	Audio           []byte                      `json:"audio,omitempty"`
	Evaluation      *models.InterviewEvaluation `json:"evaluation,omitempty"`
	Error           *models.ErrorResponse       `json:"error,omitempty"`
}

// ConversationFactory builds the conversation behind one candidate socket.
type ConversationFactory func(candidateID string, observer conversation.Observer) *conversation.Conversation

// LiveHandler serves the live interview websocket. Each candidate holds at
// most one socket; a new connection replaces the previous one.
type LiveHandler struct {
	upgrader        websocket.Upgrader
	newConversation ConversationFactory
	sockets         *sessions.Registry[*liveSocket]
	logger          *zap.Logger
}

func NewLiveHandler(factory ConversationFactory, idleTTL time.Duration, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{
		upgrader:        websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		newConversation: factory,
		sockets: sessions.NewRegistry[*liveSocket](idleTTL, logger,
			sessions.WithEviction[*liveSocket](func(_ string, s *liveSocket) { s.shutdown() })),
		logger: logger,
	}
}

// ActiveSockets returns the number of connected candidates.
func (h *LiveHandler) ActiveSockets() int { return h.sockets.Size() }

// Close disconnects every socket.
func (h *LiveHandler) Close() { h.sockets.Close() }

func (h *LiveHandler) LiveWS(w http.ResponseWriter, r *http.Request) {
	candidateID := middleware.CandidateID(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err), zap.String("candidate_id", candidateID))
		return
	}

	socket := &liveSocket{conn: conn, logger: h.logger.With(zap.String("candidate_id", candidateID))}
	socket.conv = h.newConversation(candidateID, socket)
	h.sockets.Put(candidateID, socket)

	metrics.LiveConnectionOpened()
	defer func() {
		if !h.sockets.CompareAndDelete(candidateID, func(s *liveSocket) bool { return s == socket }) {
			socket.shutdown()
		}
		metrics.LiveConnectionClosed()
	}()

	socket.write(serverFrame{Type: frameReady})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				socket.logger.Info("WebSocket read error", zap.Error(err))
			}
			return
		}
		// activity keeps the socket from idling out
		h.sockets.Get(candidateID)

		if msgType == websocket.BinaryMessage {
			h.handleFrame(r.Context(), socket, clientFrame{Type: frameAudio, Audio: data})
			continue
		}
		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			socket.sendError("invalid_frame", "Frame must be a JSON object with a type")
			continue
		}
		h.handleFrame(r.Context(), socket, frame)
	}
}

func (h *LiveHandler) handleFrame(ctx context.Context, socket *liveSocket, frame clientFrame) {
	conv := socket.conv
	switch frame.Type {
	case frameStart:
		req := frame.Start
		if req == nil {
			req = &models.LiveStartRequest{}
		}
		if err := req.Validate(); err != nil {
			var errResp *models.ErrorResponse
			if errors.As(err, &errResp) {
				socket.write(serverFrame{Type: frameError, Error: errResp})
			} else {
				socket.sendError("invalid_request", err.Error())
			}
			return
		}
		started, err := conv.StartInterview(ctx, conversation.Setup{
			InterviewType: req.InterviewType,
			SkillLevel:    req.SkillLevel,
			NumQuestions:  req.NumQuestions,
		})
		if err != nil {
			socket.sendConversationError(err)
			return
		}
		metrics.InterviewStarted("live")
		socket.write(serverFrame{
			Type:            frameStarted,
			ConversationID:  started.ConversationID,
			InitialQuestion: started.InitialQuestion,
		})

	case frameText:
		if err := conv.SendText(frame.Text); err != nil {
			socket.sendConversationError(err)
		}

	case frameAudio:
		if len(frame.Audio) == 0 {
			return
		}
		if err := conv.SendAudio(frame.Audio, frame.SampleRate); err != nil {
			socket.sendConversationError(err)
		}

	case frameEvaluate:
		result, err := conv.RequestEvaluation(ctx)
		if err != nil {
			socket.sendConversationError(err)
			return
		}
		metrics.EvaluationCompleted(result.Available)

	case frameReset:
		conv.Reset()
		snapshot := conv.Snapshot()
		socket.write(serverFrame{Type: frameTranscript, Transcript: &snapshot})

	default:
		socket.sendError("unknown_type", "Unknown frame type: "+frame.Type)
	}
}

// liveSocket is the conversation.Observer for one websocket connection.
type liveSocket struct {
	conn   *websocket.Conn
	conv   *conversation.Conversation
	logger *zap.Logger

	writeMu  sync.Mutex
	closed   atomic.Bool
	stopOnce sync.Once
}

func (s *liveSocket) OnTranscript(snapshot models.TranscriptSnapshot) {
	s.write(serverFrame{Type: frameTranscript, Transcript: &snapshot})
}

func (s *liveSocket) OnConcludePrompt(progress turn.Progress) {
	s.write(serverFrame{Type: frameConcludePrompt, Progress: &progress})
}

func (s *liveSocket) OnAudio(mimeType string, pcm []byte) {
	s.write(serverFrame{Type: frameAudio, MIMEType: mimeType, Audio: pcm})
}

func (s *liveSocket) OnError(err error) {
	s.sendError("live_error", err.Error())
}

func (s *liveSocket) OnEvaluation(result *models.InterviewEvaluation) {
	s.write(serverFrame{Type: frameEvaluation, Evaluation: result})
}

func (s *liveSocket) sendError(code, message string) {
	s.write(serverFrame{Type: frameError, Error: &models.ErrorResponse{Code: code, Message: message}})
}

func (s *liveSocket) sendConversationError(err error) {
	code := "live_error"
	switch {
	case errors.Is(err, conversation.ErrNotStarted):
		code = "not_started"
	case errors.Is(err, conversation.ErrEmptyTranscript):
		code = "empty_transcript"
	case errors.Is(err, conversation.ErrClosed):
		code = "closed"
	case errors.Is(err, live.ErrNotConnected):
		code = "not_connected"
	}
	s.sendError(code, err.Error())
}

func (s *liveSocket) write(frame serverFrame) {
	if s.closed.Load() {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
	if err := s.conn.WriteJSON(frame); err != nil {
		s.logger.Debug("WebSocket write failed", zap.String("type", frame.Type), zap.Error(err))
	}
}

func (s *liveSocket) shutdown() {
	s.stopOnce.Do(func() {
		s.closed.Store(true)
		_ = s.conn.Close()
		if s.conv != nil {
			if err := s.conv.Close(); err != nil {
				s.logger.Warn("Failed to close conversation", zap.Error(err))
			}
		}
	})
}
