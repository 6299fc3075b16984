package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"peerprep/interview/internal/interview"
	"peerprep/interview/internal/interviewapi"
	"peerprep/interview/internal/metrics"
	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/utils"
)

// MachineSource is implemented by sessions.Machines.
type MachineSource interface {
	Get(ctx context.Context, candidateID string) (*interview.Machine, error)
}

// QuestionResult is the body of the next-question endpoint. Question is null
// once the interview has completed.
type QuestionResult struct {
	Question  *models.Question `json:"question"`
	Completed bool             `json:"completed"`
	Session   *models.Session  `json:"session"`
}

type InterviewHandler struct {
	machines MachineSource
	logger   *zap.Logger
}

func NewInterviewHandler(machines MachineSource, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{machines: machines, logger: logger}
}

func (h *InterviewHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.StartRequest](r)
	m, ok := h.machine(w, r)
	if !ok {
		return
	}

	if _, err := m.Start(r.Context(), req.CandidateName); err != nil {
		h.writeError(w, r, err)
		return
	}
	metrics.InterviewStarted("rest")
	utils.JSON(w, http.StatusCreated, m.View())
}

func (h *InterviewHandler) NextQuestionHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}

	q, err := m.RequestNextQuestion(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, QuestionResult{
		Question:  q,
		Completed: q == nil,
		Session:   m.Session(),
	})
}

func (h *InterviewHandler) AnswerHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.AnswerRequest](r)
	m, ok := h.machine(w, r)
	if !ok {
		return
	}

	resp, err := m.SubmitAnswer(r.Context(), req.Answer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

func (h *InterviewHandler) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}

	resp, err := m.RequestFeedback(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

func (h *InterviewHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}

	if err := m.Cancel(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, m.View())
}

func (h *InterviewHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}
	utils.JSON(w, http.StatusOK, m.View())
}

func (h *InterviewHandler) machine(w http.ResponseWriter, r *http.Request) (*interview.Machine, bool) {
	candidateID := middleware.CandidateID(r.Context())
	m, err := h.machines.Get(r.Context(), candidateID)
	if err != nil {
		h.logger.Error("Failed to load interview session", zap.Error(err), zap.String("candidate_id", candidateID))
		utils.Error(w, http.StatusInternalServerError, "session_unavailable", "Failed to load interview session")
		return nil, false
	}
	return m, true
}

func (h *InterviewHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	var apiErr *interviewapi.APIError
	switch {
	case errors.Is(err, interview.ErrInvalidState), errors.Is(err, interview.ErrNoCurrentQuestion):
		status, code = http.StatusConflict, "invalid_state"
	case errors.Is(err, interview.ErrEmptyAnswer):
		status, code = http.StatusBadRequest, "missing_answer"
	case errors.Is(err, interview.ErrDuplicateQuestion):
		status, code = http.StatusBadGateway, "duplicate_question"
	case errors.As(err, &apiErr):
		status, code = http.StatusBadGateway, "backend_error"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Interview operation failed",
			zap.Error(err),
			zap.String("candidate_id", middleware.CandidateID(r.Context())),
			zap.String("path", r.URL.Path))
	}
	utils.Error(w, status, code, interview.Describe(err))
}
