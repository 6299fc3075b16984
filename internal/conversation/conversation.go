// Package conversation runs one live voice interview: it owns the live
// connection, the transcript and the turn coordinator for a single candidate.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"peerprep/interview/internal/evaluation"
	"peerprep/interview/internal/live"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/transcript"
	"peerprep/interview/internal/turn"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotStarted      = errors.New("conversation: interview not started")
	ErrClosed          = errors.New("conversation: closed")
	ErrEmptyTranscript = errors.New("conversation: nothing to evaluate")
)

// LiveSession is implemented by live.Client.
type LiveSession interface {
	Connect(ctx context.Context, cfg models.LiveConfig) error
	Disconnect() error
	Connected() bool
	Send(parts []live.Part, turnComplete bool) error
	SendRealtimeAudio(pcm []byte, sampleRate int) error
	SendToolResponse(responses ...models.ToolResponse) error
	Subscribe(kind live.EventKind, h live.Handler) func()
}

type PromptBuilder interface {
	BuildInterviewPrompt(interviewType models.InterviewType, skillLevel, numQuestions int) (*prompts.InterviewPrompt, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, req evaluation.Request) *models.InterviewEvaluation
}

// Archive is implemented by store.TranscriptArchive.
type Archive interface {
	Save(ctx context.Context, rec *models.TranscriptRecord) error
}

// Observer receives everything the UI renders. Calls may arrive on the live
// read goroutine or a timer goroutine and must not block.
type Observer interface {
	OnTranscript(snapshot models.TranscriptSnapshot)
	OnConcludePrompt(progress turn.Progress)
	OnAudio(mimeType string, pcm []byte)
	OnError(err error)
	OnEvaluation(result *models.InterviewEvaluation)
}

// Setup selects the interview to run.
type Setup struct {
	InterviewType models.InterviewType `json:"interview_type"`
	SkillLevel    int                  `json:"skill_level"`
	NumQuestions  int                  `json:"num_questions"`
}

// Started is returned once the opening question was sent.
type Started struct {
	ConversationID  string `json:"conversation_id"`
	InitialQuestion string `json:"initial_question"`
}

type Config struct {
	CandidateID string
	// Live is the connection template; the system instruction is filled per interview.
	Live            models.LiveConfig
	SilenceFallback time.Duration
	// Location for transcript timestamps, UTC when nil.
	Location *time.Location
}

type Conversation struct {
	cfg       Config
	client    LiveSession
	prompts   PromptBuilder
	evaluator Evaluator
	archive   Archive
	observer  Observer
	logger    *zap.Logger

	buf       *transcript.Buffer
	coord     *turn.Coordinator
	disposers []func()

	// serializes start, evaluate, reset and close
	opMu      sync.Mutex
	mu        sync.Mutex
	id        string
	setup     Setup
	started   bool
	closed    bool
	startedAt time.Time
}

func New(cfg Config, client LiveSession, pb PromptBuilder, evaluator Evaluator, archive Archive, observer Observer, logger *zap.Logger) *Conversation {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if cfg.Live.Model == "" {
		cfg.Live = models.DefaultLiveConfig()
	}

	c := &Conversation{
		cfg:       cfg,
		client:    client,
		prompts:   pb,
		evaluator: evaluator,
		archive:   archive,
		observer:  observer,
		logger:    logger.With(zap.String("candidate_id", cfg.CandidateID)),
	}

	// live deltas carry their own spacing
	c.buf = transcript.NewBuffer(
		transcript.WithJoinMode(models.RoleInterviewer, transcript.JoinRaw),
		transcript.WithJoinMode(models.RoleCandidate, transcript.JoinRaw),
		transcript.WithCommitHook(func(models.Message) { c.pushSnapshot() }),
	)

	source := turn.SourceTranscription
	if !hasModality(cfg.Live.GenerationConfig.ResponseModalities, "AUDIO") {
		source = turn.SourceContent
	}
	c.coord = turn.NewCoordinator(c.buf, client, turn.Config{
		SilenceFallback: cfg.SilenceFallback,
		TextSource:      source,
		OnConclude:      func() { c.observer.OnConcludePrompt(c.coord.Progress()) },
	}, c.logger)

	c.disposers = append(c.disposers, c.coord.Subscribe(client))
	// subscribed after the coordinator so snapshots include the fragment
	for _, kind := range []live.EventKind{live.EventInputTranscription, live.EventOutputTranscription, live.EventContent} {
		c.disposers = append(c.disposers, client.Subscribe(kind, func(live.Event) { c.pushSnapshot() }))
	}
	c.disposers = append(c.disposers,
		client.Subscribe(live.EventAudio, c.onAudio),
		client.Subscribe(live.EventError, c.onError),
		client.Subscribe(live.EventGoAway, c.onGoAway),
	)
	return c
}

// StartInterview reconnects with a prompt for setup, clears the transcript and
// sends the opening question, which counts as the first question asked.
func (c *Conversation) StartInterview(ctx context.Context, setup Setup) (*Started, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.isClosed() {
		return nil, ErrClosed
	}
	setup = normalize(setup)

	prompt, err := c.prompts.BuildInterviewPrompt(setup.InterviewType, setup.SkillLevel, setup.NumQuestions)
	if err != nil {
		return nil, fmt.Errorf("failed to build interview prompt: %w", err)
	}

	c.coord.Stop()
	c.setStarted(false)
	if err := c.client.Disconnect(); err != nil {
		c.logger.Warn("disconnect before start failed", zap.Error(err))
	}

	liveCfg := c.liveConfig(prompt.SystemPrompt)
	if err := c.client.Connect(ctx, liveCfg); err != nil {
		return nil, fmt.Errorf("failed to connect live session: %w", err)
	}

	c.buf.Reset()
	id := uuid.New().String()
	c.mu.Lock()
	c.id = id
	c.setup = setup
	c.startedAt = time.Now()
	c.started = true
	c.mu.Unlock()
	c.coord.Begin(setup.NumQuestions, true)

	if err := c.client.Send([]live.Part{live.TextPart(models.QuestionToAskPrefix + prompt.InitialQuestion)}, true); err != nil {
		c.coord.Stop()
		c.setStarted(false)
		return nil, fmt.Errorf("failed to send initial question: %w", err)
	}

	c.pushSnapshot()
	c.logger.Info("live interview started",
		zap.String("conversation_id", id),
		zap.String("interview_type", string(setup.InterviewType)),
		zap.Int("skill_level", setup.SkillLevel),
		zap.Int("num_questions", setup.NumQuestions))
	return &Started{ConversationID: id, InitialQuestion: prompt.InitialQuestion}, nil
}

// SendText forwards a typed answer and records it in the transcript.
func (c *Conversation) SendText(text string) error {
	if !c.isStarted() {
		return ErrNotStarted
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := c.client.Send([]live.Part{live.TextPart(text)}, true); err != nil {
		return err
	}
	c.coord.CandidateText(text)
	return nil
}

// SendAudio streams one chunk of candidate microphone PCM.
func (c *Conversation) SendAudio(pcm []byte, sampleRate int) error {
	if !c.isStarted() {
		return ErrNotStarted
	}
	if err := c.client.SendRealtimeAudio(pcm, sampleRate); err != nil {
		return err
	}
	c.coord.NoteCandidateAudio()
	return nil
}

// RequestEvaluation ends the live session and evaluates the transcript. An
// unavailable evaluation is a result, not an error.
func (c *Conversation) RequestEvaluation(ctx context.Context) (*models.InterviewEvaluation, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.isClosed() {
		return nil, ErrClosed
	}
	if !c.isStarted() {
		return nil, ErrNotStarted
	}
	snap := c.buf.Snapshot()
	if len(snap.Messages) == 0 && snap.Pending[models.RoleCandidate] == "" && snap.Pending[models.RoleInterviewer] == "" {
		return nil, ErrEmptyTranscript
	}

	progress := c.coord.Progress()
	c.coord.Stop()
	c.setStarted(false)
	if err := c.client.Disconnect(); err != nil {
		c.logger.Warn("disconnect before evaluation failed", zap.Error(err))
	}
	c.buf.Flush(models.RoleCandidate)
	c.buf.Flush(models.RoleInterviewer)

	c.mu.Lock()
	id, setup := c.id, c.setup
	c.mu.Unlock()

	md := transcript.Markdown(c.buf.Messages(), c.cfg.Location)
	result := c.evaluator.Evaluate(ctx, evaluation.Request{
		ConversationID: id,
		InterviewType:  setup.InterviewType,
		SkillLevel:     setup.SkillLevel,
		Transcript:     md,
	})

	if c.archive != nil {
		rec := &models.TranscriptRecord{
			ConversationID: id,
			CandidateID:    c.cfg.CandidateID,
			InterviewType:  string(setup.InterviewType),
			SkillLevel:     setup.SkillLevel,
			NumQuestions:   setup.NumQuestions,
			QuestionsAsked: progress.QuestionsAsked,
			Transcript:     md,
			Feedback:       result.Feedback,
			Available:      result.Available,
			CompletedAt:    result.CompletedAt,
		}
		if result.Scores != nil {
			tech, comm := result.Scores.Technical, result.Scores.Communication
			rec.TechnicalScore = &tech
			rec.CommunicationScore = &comm
		}
		if err := c.archive.Save(ctx, rec); err != nil {
			c.logger.Error("failed to archive transcript", zap.String("conversation_id", id), zap.Error(err))
		}
	}

	c.observer.OnEvaluation(result)
	return result, nil
}

// Reset abandons the interview and clears the transcript.
func (c *Conversation) Reset() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.resetLocked()
	c.pushSnapshot()
}

// Close resets and detaches from the live client. It is idempotent.
func (c *Conversation) Close() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.resetLocked()
	for _, d := range c.disposers {
		d()
	}
	c.disposers = nil
	return err
}

func (c *Conversation) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Conversation) Active() bool { return c.isStarted() }

func (c *Conversation) Progress() turn.Progress { return c.coord.Progress() }

func (c *Conversation) Snapshot() models.TranscriptSnapshot { return c.buf.Snapshot() }

func (c *Conversation) resetLocked() error {
	c.coord.Stop()
	c.setStarted(false)
	err := c.client.Disconnect()
	c.buf.Reset()
	return err
}

func (c *Conversation) liveConfig(systemPrompt string) models.LiveConfig {
	cfg := c.cfg.Live
	cfg.SystemInstruction = systemPrompt
	cfg.Tools = append([]models.FunctionDeclaration(nil), cfg.Tools...)
	for _, t := range cfg.Tools {
		if t.Name == models.CandidateResponseTool {
			return cfg
		}
	}
	cfg.Tools = append(cfg.Tools, models.CandidateResponseDeclaration())
	return cfg
}

func (c *Conversation) pushSnapshot() {
	c.observer.OnTranscript(c.buf.Snapshot())
}

func (c *Conversation) onAudio(ev live.Event) {
	if chunk, ok := ev.(live.AudioChunk); ok {
		c.observer.OnAudio(chunk.MIMEType, chunk.Data)
	}
}

func (c *Conversation) onError(ev live.Event) {
	if e, ok := ev.(live.Error); ok {
		c.observer.OnError(e.Err)
	}
}

func (c *Conversation) onGoAway(ev live.Event) {
	if g, ok := ev.(live.GoAway); ok {
		c.logger.Warn("live server going away", zap.String("time_left", g.TimeLeft))
	}
}

func (c *Conversation) isStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *Conversation) setStarted(v bool) {
	c.mu.Lock()
	c.started = v
	c.mu.Unlock()
}

func (c *Conversation) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func normalize(s Setup) Setup {
	if s.InterviewType == "" {
		s.InterviewType = models.InterviewGeneral
	}
	if s.SkillLevel <= 0 {
		s.SkillLevel = 5
	}
	if s.SkillLevel > 10 {
		s.SkillLevel = 10
	}
	if s.NumQuestions <= 0 {
		s.NumQuestions = models.DefaultNumQuestions
	}
	if s.NumQuestions < models.MinNumQuestions {
		s.NumQuestions = models.MinNumQuestions
	}
	if s.NumQuestions > models.MaxNumQuestions {
		s.NumQuestions = models.MaxNumQuestions
	}
	return s
}

func hasModality(modalities []string, want string) bool {
	for _, m := range modalities {
		if strings.EqualFold(m, want) {
			return true
		}
	}
	return false
}

type nopObserver struct{}

func (nopObserver) OnTranscript(models.TranscriptSnapshot) {}
func (nopObserver) OnConcludePrompt(turn.Progress) {}
func (nopObserver) OnAudio(string, []byte) {}
func (nopObserver) OnError(error) {}
func (nopObserver) OnEvaluation(*models.InterviewEvaluation) {}
