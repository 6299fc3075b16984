package models

import "time"

// Role identifies the speaker of a transcript message.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Label is the display name used in exported transcripts.
func (r Role) Label() string {
	if r == RoleCandidate {
		return "Candidate"
	}
	return "Interviewer"
}

func (r Role) Valid() bool {
	return r == RoleInterviewer || r == RoleCandidate
}

// committed transcript entry, never edited after creation
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
