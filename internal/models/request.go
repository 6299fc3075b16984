package models

import (
	"strings"
	"unicode/utf8"
)

const maxCandidateNameLength = 100

type StartRequest struct {
	CandidateName string `json:"candidate_name"`
}

// implements the Validator interface
func (r *StartRequest) Validate() error {
	r.CandidateName = strings.TrimSpace(r.CandidateName)
	if utf8.RuneCountInString(r.CandidateName) > maxCandidateNameLength {
		return &ErrorResponse{
			Code:    "invalid_candidate_name",
			Message: "Candidate name must be at most 100 characters",
			Details: []ValidationErrorDetail{{Field: "candidate_name", Reason: "too_long"}},
		}
	}
	return nil
}

type AnswerRequest struct {
	Answer string `json:"answer"`
}

func (r *AnswerRequest) Validate() error {
	if strings.TrimSpace(r.Answer) == "" {
		return &ErrorResponse{Code: "missing_answer", Message: "Answer field is required"}
	}
	return nil
}

// LiveStartRequest configures a live voice interview.
type LiveStartRequest struct {
	InterviewType InterviewType `json:"interview_type"`
	SkillLevel    int           `json:"skill_level"`
	NumQuestions  int           `json:"num_questions"`
}

func (r *LiveStartRequest) Validate() error {
	if r.InterviewType == "" {
		r.InterviewType = InterviewGeneral
	}
	if !SupportedInterviewTypes[r.InterviewType] {
		return &ErrorResponse{
			Code:    "unsupported_interview_type",
			Message: "Interview type must be one of: general, frontend, backend, fullstack, data",
		}
	}

	if r.SkillLevel == 0 {
		r.SkillLevel = 5
	}
	if r.SkillLevel < 1 || r.SkillLevel > 10 {
		return &ErrorResponse{Code: "invalid_skill_level", Message: "Skill level must be between 1 and 10"}
	}

	if r.NumQuestions == 0 {
		r.NumQuestions = DefaultNumQuestions
	}
	if r.NumQuestions < MinNumQuestions || r.NumQuestions > MaxNumQuestions {
		return &ErrorResponse{Code: "invalid_num_questions", Message: "Number of questions must be between 2 and 10"}
	}
	return nil
}
