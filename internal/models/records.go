package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionRecord is a keyed session blob in the SQL session backend.
type SessionRecord struct {
	Key       string    `gorm:"primaryKey;column:storage_key;size:255" json:"key"`
	Data      string    `gorm:"type:text;not null" json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TranscriptRecord archives one finished live interview and its evaluation.
type TranscriptRecord struct {
	gorm.Model
	ConversationID     string     `gorm:"uniqueIndex;not null" json:"conversation_id"`
	CandidateID        string     `gorm:"index;not null" json:"candidate_id"`
	InterviewType      string     `gorm:"not null" json:"interview_type"`
	SkillLevel         int        `gorm:"not null" json:"skill_level"`
	NumQuestions       int        `gorm:"not null" json:"num_questions"`
	QuestionsAsked     int        `gorm:"not null" json:"questions_asked"`
	Transcript         string     `gorm:"type:text;not null" json:"transcript"`
	Feedback           string     `gorm:"type:text" json:"feedback"`
	TechnicalScore     *int       `json:"technical_score"`
	CommunicationScore *int       `json:"communication_score"`
	Available          bool       `gorm:"not null;default:false" json:"available"`
	CompletedAt        time.Time  `gorm:"not null" json:"completed_at"`
	Exported           bool       `gorm:"not null;default:false;index" json:"exported"`
	ExportedAt         *time.Time `json:"exported_at"`
}

// TrainingDataPoint is one JSONL line of an exported transcript: the
// transcript as the user turn and the evaluation as the model turn.
type TrainingDataPoint struct {
	Contents []TrainingContent `json:"contents"`
}

type TrainingContent struct {
	Role  string         `json:"role"`
	Parts []TrainingPart `json:"parts"`
}

type TrainingPart struct {
	Text string `json:"text"`
}
