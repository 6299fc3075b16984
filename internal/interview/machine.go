// Package interview drives the question, answer, evaluate and conclude
// protocol of one candidate's REST-backed interview.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"peerprep/interview/internal/interviewapi"
	"peerprep/interview/internal/models"

	"go.uber.org/zap"
)

// maxFetchAttempts bounds retries when the backend repeats an asked question.
const maxFetchAttempts = 3

var (
	ErrInvalidState      = errors.New("interview: operation not allowed in current state")
	ErrNoCurrentQuestion = errors.New("interview: no current question")
	ErrEmptyAnswer       = errors.New("interview: answer is empty")
	ErrDuplicateQuestion = errors.New("interview: backend repeated an already asked question")
)

// SessionRepository persists the session record. Load returns a nil session
// and no error when nothing is stored.
type SessionRepository interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Clear(ctx context.Context) error
}

// Backend is the REST collaborator. interviewapi.Client implements it.
type Backend interface {
	Start(ctx context.Context, candidateName string) (*models.StartInterviewResponse, error)
	NextQuestion(ctx context.Context, sessionID string) (*models.QuestionResponse, error)
	SubmitAnswer(ctx context.Context, sessionID, answer string) (*models.EvaluationResponse, error)
	Feedback(ctx context.Context, sessionID string) (*models.FeedbackResponse, error)
	Cancel(ctx context.Context, sessionID string) error
}

// Machine owns one Session. Operations are serialized; each holds the lock
// for its backend round trip.
type Machine struct {
	backend Backend
	repo    SessionRepository
	logger  *zap.Logger
	now     func() time.Time

	mu            sync.Mutex
	session       *models.Session
	feedback      *models.FeedbackResponse
	moreQuestions *bool
	lastErr       string
}

type Option func(*Machine)

func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

func NewMachine(backend Backend, repo SessionRepository, logger *zap.Logger, opts ...Option) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Machine{
		backend: backend,
		repo:    repo,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore rehydrates the session from the repository, if one was saved.
func (m *Machine) Restore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	m.session = session
	m.feedback = nil
	m.moreQuestions = nil
	return nil
}

// Start opens a new backend session. A session already in progress must be
// cancelled first.
func (m *Machine) Start(ctx context.Context, candidateName string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state() == models.SessionInProgress {
		return nil, m.fail(ErrInvalidState)
	}

	session := models.NewSession(candidateName)
	resp, err := m.backend.Start(ctx, session.CandidateName)
	if err != nil {
		return nil, m.fail(fmt.Errorf("failed to start interview: %w", err))
	}

	now := m.now()
	session.SessionID = resp.SessionID
	session.State = models.SessionInProgress
	session.StartTime = &now

	if err := m.commit(ctx, session); err != nil {
		return nil, err
	}
	m.feedback = nil
	m.moreQuestions = nil
	m.logger.Info("interview started",
		zap.String("session_id", session.SessionID),
		zap.String("candidate", session.CandidateName))
	return session.Clone(), nil
}

// RequestNextQuestion returns the question to answer next. A nil question
// with a nil error means the backend has none left and the session is now
// completed. An unanswered current question is returned again.
func (m *Machine) RequestNextQuestion(ctx context.Context) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state() != models.SessionInProgress {
		return nil, m.fail(ErrInvalidState)
	}
	if q := m.session.CurrentQuestion; q != nil {
		m.lastErr = ""
		out := *q
		return &out, nil
	}

	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		resp, err := m.backend.NextQuestion(ctx, m.session.SessionID)
		if errors.Is(err, interviewapi.ErrNoMoreQuestions) {
			return nil, m.complete(ctx)
		}
		if err != nil {
			return nil, m.fail(fmt.Errorf("failed to fetch question: %w", err))
		}

		q := resp.Question
		if m.session.HasAsked(q.ID) {
			m.logger.Warn("backend repeated a question",
				zap.String("session_id", m.session.SessionID),
				zap.String("question_id", q.ID))
			continue
		}

		next := m.session.Clone()
		next.CurrentQuestion = &q
		if q.Difficulty != "" {
			next.CurrentDifficulty = q.Difficulty
		}
		if err := m.commit(ctx, next); err != nil {
			return nil, err
		}
		out := q
		return &out, nil
	}
	return nil, m.fail(ErrDuplicateQuestion)
}

// SubmitAnswer records the answer to the current question together with its
// evaluation. The returned response says whether more questions are available;
// a completed status from the backend ends the session.
func (m *Machine) SubmitAnswer(ctx context.Context, answer string) (*models.EvaluationResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state() != models.SessionInProgress {
		return nil, m.fail(ErrInvalidState)
	}
	if m.session.CurrentQuestion == nil {
		return nil, m.fail(ErrNoCurrentQuestion)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, m.fail(ErrEmptyAnswer)
	}

	resp, err := m.backend.SubmitAnswer(ctx, m.session.SessionID, answer)
	if err != nil {
		return nil, m.fail(fmt.Errorf("failed to submit answer: %w", err))
	}

	next := m.session.Clone()
	q := *next.CurrentQuestion
	next.QuestionsAsked = append(next.QuestionsAsked, q)
	next.AnswersGiven = append(next.AnswersGiven, answer)
	next.Scores = append(next.Scores, resp.Evaluation.Score)
	next.TopicCoverage[q.Topic]++
	next.TopicScores[q.Topic] = append(next.TopicScores[q.Topic], resp.Evaluation.Score)
	next.AskedQuestionIDs[q.ID] = struct{}{}
	next.CurrentQuestion = nil

	more := resp.NextQuestionAvailable
	if models.SessionState(resp.SessionStatus) == models.SessionCompleted {
		now := m.now()
		next.State = models.SessionCompleted
		next.EndTime = &now
		more = false
	}

	if err := m.commit(ctx, next); err != nil {
		return nil, err
	}
	m.moreQuestions = &more
	return resp, nil
}

// RequestFeedback fetches the final aggregate once the session is completed.
// The first successful result is cached and returned on later calls.
func (m *Machine) RequestFeedback(ctx context.Context) (*models.FeedbackResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state() != models.SessionCompleted {
		return nil, m.fail(ErrInvalidState)
	}
	if m.feedback != nil {
		m.lastErr = ""
		return m.feedback, nil
	}

	resp, err := m.backend.Feedback(ctx, m.session.SessionID)
	if err != nil {
		return nil, m.fail(fmt.Errorf("failed to fetch feedback: %w", err))
	}
	m.feedback = resp
	m.lastErr = ""
	return resp, nil
}

// Cancel abandons the interview from any state and clears the stored record.
// The backend is told on a best-effort basis. Start is allowed afterwards.
func (m *Machine) Cancel(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state() == models.SessionInProgress {
		if err := m.backend.Cancel(ctx, m.session.SessionID); err != nil {
			m.logger.Warn("backend cancel failed",
				zap.String("session_id", m.session.SessionID),
				zap.Error(err))
		}
	}
	if err := m.repo.Clear(ctx); err != nil {
		return m.fail(fmt.Errorf("failed to clear session: %w", err))
	}
	if m.session != nil {
		// kept in memory only so callers can observe the cancellation
		cancelled := m.session.Clone()
		cancelled.State = models.SessionCancelled
		cancelled.CurrentQuestion = nil
		if cancelled.EndTime == nil {
			now := m.now()
			cancelled.EndTime = &now
		}
		m.session = cancelled
		m.logger.Info("interview cancelled", zap.String("session_id", cancelled.SessionID))
	}
	m.feedback = nil
	m.moreQuestions = nil
	m.lastErr = ""
	return nil
}

// Session returns a copy of the current session, or nil before Start.
func (m *Machine) Session() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone()
}

// State is not_started when there is no session.
func (m *Machine) State() models.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state()
}

// LastError is the normalized message of the last failed operation. Any
// successful operation clears it.
func (m *Machine) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Machine) View() models.SessionView {
	m.mu.Lock()
	defer m.mu.Unlock()
	view := models.SessionView{
		Session:   m.session.Clone(),
		Feedback:  m.feedback,
		LastError: m.lastErr,
	}
	if m.moreQuestions != nil {
		more := *m.moreQuestions
		view.MoreQuestions = &more
	}
	return view
}

func (m *Machine) state() models.SessionState {
	if m.session == nil {
		return models.SessionNotStarted
	}
	return m.session.State
}

func (m *Machine) complete(ctx context.Context) error {
	next := m.session.Clone()
	now := m.now()
	next.State = models.SessionCompleted
	next.EndTime = &now
	next.CurrentQuestion = nil
	if err := m.commit(ctx, next); err != nil {
		return err
	}
	more := false
	m.moreQuestions = &more
	m.logger.Info("interview completed", zap.String("session_id", next.SessionID))
	return nil
}

// commit persists next and only then adopts it.
func (m *Machine) commit(ctx context.Context, next *models.Session) error {
	if err := m.repo.Save(ctx, next); err != nil {
		return m.fail(fmt.Errorf("failed to save session: %w", err))
	}
	m.session = next
	m.lastErr = ""
	return nil
}

func (m *Machine) fail(err error) error {
	m.lastErr = Describe(err)
	return err
}

// Describe normalizes err into the single message shown to the candidate.
func Describe(err error) string {
	var apiErr *interviewapi.APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Detail
	case errors.Is(err, ErrInvalidState):
		return "That action is not available right now."
	case errors.Is(err, ErrNoCurrentQuestion):
		return "There is no question to answer yet."
	case errors.Is(err, ErrEmptyAnswer):
		return "Please enter an answer."
	default:
		return err.Error()
	}
}
