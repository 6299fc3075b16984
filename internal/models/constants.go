package models

import "time"

const (
	// SessionStorageKey is the fixed key the session record is persisted under.
	SessionStorageKey = "interview_session"

	DefaultCandidateName = "Anonymous"

	DefaultLiveModel       = "models/gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultLiveVoice       = "Aoede"
	DefaultEvaluationModel = "gemini-3-flash-preview"

	DefaultNumQuestions = 3
	MinNumQuestions     = 2
	MaxNumQuestions     = 10

	DefaultSetupTimeout    = 5 * time.Second
	DefaultSilenceFallback = 3 * time.Second

	// inserted when candidate audio was heard but no transcription followed
	PendingTranscriptionPlaceholder = "[Audio response captured - transcription pending]"

	EvaluationUnavailableMessage = "Sorry, we were unable to generate an evaluation. Please try again in a moment."

	// prefix the model is instructed to treat as a question to present, not answer
	QuestionToAskPrefix = "QUESTION TO ASK: "

	CandidateResponseTool = "add_candidate_response"
)

// InterviewType selects the interviewer persona and initial question pool.
type InterviewType string

const (
	InterviewGeneral   InterviewType = "general"
	InterviewFrontend  InterviewType = "frontend"
	InterviewBackend   InterviewType = "backend"
	InterviewFullstack InterviewType = "fullstack"
	InterviewData      InterviewType = "data"
)

var SupportedInterviewTypes = map[InterviewType]bool{
	InterviewGeneral:   true,
	InterviewFrontend:  true,
	InterviewBackend:   true,
	InterviewFullstack: true,
	InterviewData:      true,
}

// SkillBand maps a 1-10 self-reported skill level onto a question band.
func SkillBand(level int) string {
	switch {
	case level <= 3:
		return "beginner"
	case level <= 7:
		return "intermediate"
	default:
		return "advanced"
	}
}
