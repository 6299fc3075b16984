package models

import "time"

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

// implements error interface
func (e *ErrorResponse) Error() string {
	return e.Message
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// SessionView is the protocol state returned to the UI.
type SessionView struct {
	Session       *Session          `json:"session"`
	Feedback      *FeedbackResponse `json:"feedback,omitempty"`
	MoreQuestions *bool             `json:"more_questions,omitempty"`
	LastError     string            `json:"last_error,omitempty"`
}

// TranscriptSnapshot is committed messages plus in-progress text per role.
type TranscriptSnapshot struct {
	Messages []Message       `json:"messages"`
	Pending  map[Role]string `json:"pending"`
}

// Scores extracted from a free-text evaluation, each out of 10.
type EvaluationScores struct {
	Technical     int `json:"technical"`
	Communication int `json:"communication"`
}

// InterviewEvaluation is the post-interview assessment of a live transcript.
type InterviewEvaluation struct {
	ConversationID string            `json:"conversation_id"`
	Feedback       string            `json:"feedback"`
	Scores         *EvaluationScores `json:"scores,omitempty"`
	Transcript     string            `json:"transcript"`
	Available      bool              `json:"available"`
	CompletedAt    time.Time         `json:"completed_at"`
}
