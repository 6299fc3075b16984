package models

// Wire types for the interview REST backend.

type StartInterviewRequest struct {
	CandidateName string `json:"candidate_name,omitempty"`
}

type StartInterviewResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type QuestionResponse struct {
	Question       Question `json:"question"`
	QuestionNumber int      `json:"question_number"`
	TotalQuestions int      `json:"total_questions"`
	SessionStatus  string   `json:"session_status"`
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}

type EvaluationResponse struct {
	Evaluation            Evaluation `json:"evaluation"`
	NextQuestionAvailable bool       `json:"next_question_available"`
	SessionStatus         string     `json:"session_status"`
	QuestionNumber        int        `json:"question_number"`
	TotalQuestions        int        `json:"total_questions"`
}

type SessionStatusResponse struct {
	SessionID         string   `json:"session_id"`
	Status            string   `json:"status"`
	CurrentDifficulty *string  `json:"current_difficulty"`
	QuestionsAsked    int      `json:"questions_asked"`
	TotalQuestions    int      `json:"total_questions"`
	OverallScore      *float64 `json:"overall_score"`
}

type Feedback struct {
	OverallAssessment string   `json:"overall_assessment,omitempty"`
	Strengths         []string `json:"strengths,omitempty"`
	Weaknesses        []string `json:"weaknesses,omitempty"`
	Recommendations   []string `json:"recommendations,omitempty"`
}

type FinalScores struct {
	OverallScore *float64           `json:"overall_score,omitempty"`
	TopicScores  map[string]float64 `json:"topic_scores,omitempty"`
}

type FeedbackResponse struct {
	Feedback    Feedback    `json:"feedback"`
	FinalScores FinalScores `json:"final_scores"`
	SessionID   string      `json:"session_id"`
}

// error body returned by the backend on non-2xx responses
type BackendError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
