package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

type SessionState string

const (
	SessionNotStarted SessionState = "not_started"
	SessionInProgress SessionState = "in_progress"
	SessionCompleted  SessionState = "completed"
	SessionCancelled  SessionState = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question as served by the interview backend.
type Question struct {
	ID         string     `json:"id"`
	Text       string     `json:"question"`
	Difficulty Difficulty `json:"difficulty"`
	Topic      string     `json:"topic"`
	KeyPoints  []string   `json:"key_points,omitempty"`
}

// Evaluation of a single answer. Score is in [0, 1].
type Evaluation struct {
	Score            float64  `json:"score"`
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	KeyPointsCovered []string `json:"key_points_covered"`
	KeyPointsMissing []string `json:"key_points_missing"`
	Explanation      string   `json:"explanation"`
}

// Session is the durable record of one interview attempt.
// QuestionsAsked, AnswersGiven and Scores always have equal length.
type Session struct {
	SessionID         string
	CandidateName     string
	State             SessionState
	StartTime         *time.Time
	EndTime           *time.Time
	CurrentDifficulty Difficulty
	QuestionsAsked    []Question
	AnswersGiven      []string
	Scores            []float64
	TopicCoverage     map[string]int
	TopicScores       map[string][]float64
	AskedQuestionIDs  map[string]struct{}
	CurrentQuestion   *Question
}

// NewSession returns an empty session with the default candidate name and difficulty.
func NewSession(candidateName string) *Session {
	name := strings.TrimSpace(candidateName)
	if name == "" {
		name = DefaultCandidateName
	}
	return &Session{
		CandidateName:     name,
		State:             SessionNotStarted,
		CurrentDifficulty: DifficultyMedium,
		QuestionsAsked:    []Question{},
		AnswersGiven:      []string{},
		Scores:            []float64{},
		TopicCoverage:     map[string]int{},
		TopicScores:       map[string][]float64{},
		AskedQuestionIDs:  map[string]struct{}{},
	}
}

func (s *Session) HasAsked(questionID string) bool {
	_, ok := s.AskedQuestionIDs[questionID]
	return ok
}

// Clone returns a deep copy so callers cannot mutate the owner's record.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.StartTime = cloneTime(s.StartTime)
	out.EndTime = cloneTime(s.EndTime)
	out.QuestionsAsked = make([]Question, len(s.QuestionsAsked))
	for i, q := range s.QuestionsAsked {
		out.QuestionsAsked[i] = q.clone()
	}
	out.AnswersGiven = append([]string{}, s.AnswersGiven...)
	out.Scores = append([]float64{}, s.Scores...)
	out.TopicCoverage = make(map[string]int, len(s.TopicCoverage))
	for k, v := range s.TopicCoverage {
		out.TopicCoverage[k] = v
	}
	out.TopicScores = make(map[string][]float64, len(s.TopicScores))
	for k, v := range s.TopicScores {
		out.TopicScores[k] = append([]float64{}, v...)
	}
	out.AskedQuestionIDs = make(map[string]struct{}, len(s.AskedQuestionIDs))
	for k := range s.AskedQuestionIDs {
		out.AskedQuestionIDs[k] = struct{}{}
	}
	if s.CurrentQuestion != nil {
		q := s.CurrentQuestion.clone()
		out.CurrentQuestion = &q
	}
	return &out
}

func (q Question) clone() Question {
	if q.KeyPoints != nil {
		q.KeyPoints = append([]string{}, q.KeyPoints...)
	}
	return q
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// persisted form: the id set becomes a sorted array and times become RFC 3339 strings
type sessionJSON struct {
	SessionID         string               `json:"session_id"`
	CandidateName     string               `json:"candidate_name"`
	State             SessionState         `json:"state"`
	StartTime         string               `json:"start_time,omitempty"`
	EndTime           string               `json:"end_time,omitempty"`
	CurrentDifficulty Difficulty           `json:"current_difficulty"`
	QuestionsAsked    []Question           `json:"questions_asked"`
	AnswersGiven      []string             `json:"answers_given"`
	Scores            []float64            `json:"scores"`
	TopicCoverage     map[string]int       `json:"topic_coverage"`
	TopicScores       map[string][]float64 `json:"topic_scores"`
	AskedQuestionIDs  []string             `json:"asked_question_ids"`
	CurrentQuestion   *Question            `json:"current_question"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(s.AskedQuestionIDs))
	for id := range s.AskedQuestionIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return json.Marshal(sessionJSON{
		SessionID:         s.SessionID,
		CandidateName:     s.CandidateName,
		State:             s.State,
		StartTime:         formatTime(s.StartTime),
		EndTime:           formatTime(s.EndTime),
		CurrentDifficulty: s.CurrentDifficulty,
		QuestionsAsked:    nonNil(s.QuestionsAsked),
		AnswersGiven:      nonNil(s.AnswersGiven),
		Scores:            nonNil(s.Scores),
		TopicCoverage:     s.TopicCoverage,
		TopicScores:       s.TopicScores,
		AskedQuestionIDs:  ids,
		CurrentQuestion:   s.CurrentQuestion,
	})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := parseTime(raw.StartTime)
	if err != nil {
		return err
	}
	end, err := parseTime(raw.EndTime)
	if err != nil {
		return err
	}

	*s = Session{
		SessionID:         raw.SessionID,
		CandidateName:     raw.CandidateName,
		State:             raw.State,
		StartTime:         start,
		EndTime:           end,
		CurrentDifficulty: raw.CurrentDifficulty,
		QuestionsAsked:    nonNil(raw.QuestionsAsked),
		AnswersGiven:      nonNil(raw.AnswersGiven),
		Scores:            nonNil(raw.Scores),
		TopicCoverage:     raw.TopicCoverage,
		TopicScores:       raw.TopicScores,
		AskedQuestionIDs:  make(map[string]struct{}, len(raw.AskedQuestionIDs)),
		CurrentQuestion:   raw.CurrentQuestion,
	}
	if s.TopicCoverage == nil {
		s.TopicCoverage = map[string]int{}
	}
	if s.TopicScores == nil {
		s.TopicScores = map[string][]float64{}
	}
	for _, id := range raw.AskedQuestionIDs {
		s.AskedQuestionIDs[id] = struct{}{}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
