// Package turn turns live model events into transcript commits and interview
// progress: question counting, the final-answer wait and the conclusion prompt.
package turn

import (
	"strings"
	"sync"
	"time"

	"peerprep/interview/internal/classify"
	"peerprep/interview/internal/live"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/transcript"

	"go.uber.org/zap"
)

// ToolResponder answers tool calls on the live connection.
type ToolResponder interface {
	SendToolResponse(responses ...models.ToolResponse) error
}

// TextSource selects which stream carries the interviewer's words.
type TextSource int

const (
	// SourceTranscription uses output transcription (audio responses).
	SourceTranscription TextSource = iota
	// SourceContent uses text parts of the model turn (text responses).
	SourceContent
)

// EventSource is implemented by live.Client.
type EventSource interface {
	Subscribe(kind live.EventKind, h live.Handler) func()
}

type Config struct {
	NumQuestions    int
	SilenceFallback time.Duration
	TextSource      TextSource
	// OnConclude runs at most once per interview, outside the coordinator lock.
	OnConclude func()
}

// Progress is a point-in-time view of the coordinator counters.
type Progress struct {
	Active         bool `json:"active"`
	ModelTurns     int  `json:"model_turns"`
	QuestionsAsked int  `json:"questions_asked"`
	NumQuestions   int  `json:"num_questions"`
	WaitingFinal   bool `json:"waiting_final"`
	Concluded      bool `json:"concluded"`
}

type Coordinator struct {
	buf       *transcript.Buffer
	responder ToolResponder
	logger    *zap.Logger
	cfg       Config

	mu             sync.Mutex
	active         bool
	modelTurns     int
	questionsAsked int
	waitingFinal   bool
	concluded      bool
	replaced       bool
	awaitingText   bool
	timer          *time.Timer
	generation     uint64
}

func NewCoordinator(buf *transcript.Buffer, responder ToolResponder, cfg Config, logger *zap.Logger) *Coordinator {
	if cfg.NumQuestions <= 0 {
		cfg.NumQuestions = models.DefaultNumQuestions
	}
	if cfg.SilenceFallback <= 0 {
		cfg.SilenceFallback = models.DefaultSilenceFallback
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		buf:       buf,
		responder: responder,
		logger:    logger,
		cfg:       cfg,
	}
}

// Begin resets all counters for a new interview. initialQuestionCounted
// records that the opening question was already sent by the caller.
func (c *Coordinator) Begin(numQuestions int, initialQuestionCounted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disarmLocked()
	if numQuestions > 0 {
		c.cfg.NumQuestions = numQuestions
	}
	c.active = true
	c.modelTurns = 0
	c.questionsAsked = 0
	if initialQuestionCounted {
		c.questionsAsked = 1
	}
	c.waitingFinal = false
	c.concluded = false
	c.replaced = false
	c.awaitingText = false
}

// Stop disarms the fallback timer and ignores events until the next Begin.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.disarmLocked()
}

func (c *Coordinator) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Progress{
		Active:         c.active,
		ModelTurns:     c.modelTurns,
		QuestionsAsked: c.questionsAsked,
		NumQuestions:   c.cfg.NumQuestions,
		WaitingFinal:   c.waitingFinal,
		Concluded:      c.concluded,
	}
}

// NoteCandidateAudio records that candidate speech was streamed and a
// transcription is expected.
func (c *Coordinator) NoteCandidateAudio() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		c.awaitingText = true
	}
}

// CandidateText commits typed candidate input as one message. It counts as
// the final answer when the interviewer is waiting for one.
func (c *Coordinator) CandidateText(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.buf.Add(models.RoleCandidate, text)
	c.candidateTextLocked()
	fire := c.latchLocked()
	c.mu.Unlock()

	if fire {
		c.conclude()
	}
}

// Subscribe wires the coordinator to every event kind it consumes and returns
// a function that removes all of those subscriptions.
func (c *Coordinator) Subscribe(src EventSource) func() {
	kinds := []live.EventKind{
		live.EventContent,
		live.EventAudio,
		live.EventOutputTranscription,
		live.EventInputTranscription,
		live.EventTurnComplete,
		live.EventToolCall,
		live.EventClose,
	}
	disposers := make([]func(), 0, len(kinds))
	for _, kind := range kinds {
		disposers = append(disposers, src.Subscribe(kind, c.Handle))
	}
	return func() {
		for _, d := range disposers {
			d()
		}
	}
}

// Handle applies one live event. Buffer commit hooks run while the
// coordinator lock is held and must not call back into the coordinator.
func (c *Coordinator) Handle(ev live.Event) {
	var fire bool
	var responses []models.ToolResponse

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	switch e := ev.(type) {
	case live.OutputTranscription:
		if c.cfg.TextSource == SourceTranscription {
			c.interviewerTextLocked(e.Text)
		}
	case live.ModelTurnFragment:
		if c.cfg.TextSource == SourceContent {
			c.interviewerTextLocked(e.Text())
		}
	case live.InputTranscription:
		if strings.TrimSpace(e.Text) != "" {
			c.buf.Append(models.RoleCandidate, e.Text)
			c.candidateTextLocked()
			fire = c.latchLocked()
		}
	case live.AudioChunk:
		if c.awaitingText && c.timer == nil {
			c.armLocked()
		}
	case live.ToolCall:
		responses, fire = c.toolCallLocked(e.Calls)
	case live.TurnComplete:
		fire = c.turnCompleteLocked()
	case live.Close:
		c.disarmLocked()
	}
	c.mu.Unlock()

	if len(responses) > 0 && c.responder != nil {
		if err := c.responder.SendToolResponse(responses...); err != nil {
			c.logger.Warn("failed to answer tool call", zap.Error(err))
		}
	}
	if fire {
		c.conclude()
	}
}

func (c *Coordinator) interviewerTextLocked(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	candidate, rest, ok := classify.ExtractUserTranscript(text)
	if ok {
		if candidate != "" {
			c.buf.Replace(models.RoleCandidate, candidate)
			c.replaced = true
			c.candidateTextLocked()
		}
		text = rest
	}
	if strings.TrimSpace(text) != "" {
		c.buf.Append(models.RoleInterviewer, text)
	}
}

func (c *Coordinator) toolCallLocked(calls []models.ToolCall) ([]models.ToolResponse, bool) {
	var fire bool
	responses := make([]models.ToolResponse, 0, len(calls))
	for _, call := range calls {
		if call.Name != models.CandidateResponseTool {
			responses = append(responses, models.ToolResponse{
				ID:       call.ID,
				Name:     call.Name,
				Response: map[string]any{"success": false, "error": "unknown function " + call.Name},
			})
			continue
		}
		text, _ := call.Args["transcription"].(string)
		if strings.TrimSpace(text) != "" {
			c.buf.Add(models.RoleCandidate, strings.TrimSpace(text))
			c.candidateTextLocked()
			if c.latchLocked() {
				fire = true
			}
		}
		responses = append(responses, models.ToolResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: map[string]any{"success": true},
		})
	}
	return responses, fire
}

func (c *Coordinator) turnCompleteLocked() bool {
	fire := false
	if c.buf.HasPending(models.RoleCandidate) || c.replaced {
		fire = c.latchLocked()
	}

	spoken := c.buf.Pending(models.RoleInterviewer)
	c.modelTurns++
	cls := classify.Utterance(spoken)
	// the opening turn is an introduction even when it asks something
	if c.modelTurns > 1 {
		if cls.IsQuestion && c.questionsAsked < c.cfg.NumQuestions {
			c.questionsAsked++
			c.logger.Debug("question asked",
				zap.Int("questions_asked", c.questionsAsked),
				zap.Int("num_questions", c.cfg.NumQuestions))
			if c.questionsAsked >= c.cfg.NumQuestions && !c.concluded {
				c.waitingFinal = true
			}
		}
		if cls.SignalsConclusion && !c.concluded {
			c.concluded = true
			c.waitingFinal = false
			fire = true
		}
	}

	// Replace already dropped the superseded partials; anything pending now
	// arrived after the correction.
	c.buf.Flush(models.RoleCandidate)
	c.buf.Flush(models.RoleInterviewer)
	c.replaced = false
	return fire
}

// latchLocked reports whether this call is the one that concludes the interview.
func (c *Coordinator) latchLocked() bool {
	if !c.waitingFinal || c.concluded {
		return false
	}
	c.waitingFinal = false
	c.concluded = true
	return true
}

func (c *Coordinator) candidateTextLocked() {
	c.awaitingText = false
	c.disarmLocked()
}

func (c *Coordinator) armLocked() {
	c.generation++
	gen := c.generation
	c.timer = time.AfterFunc(c.cfg.SilenceFallback, func() { c.fallback(gen) })
}

func (c *Coordinator) disarmLocked() {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) fallback(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || !c.active {
		return
	}
	c.timer = nil
	if !c.awaitingText || c.buf.HasPending(models.RoleCandidate) {
		return
	}
	c.awaitingText = false
	c.buf.Add(models.RoleCandidate, models.PendingTranscriptionPlaceholder)
	c.logger.Info("no candidate transcription received, inserted placeholder")
}

func (c *Coordinator) conclude() {
	c.logger.Info("interview ready to conclude")
	if c.cfg.OnConclude != nil {
		c.cfg.OnConclude()
	}
}
