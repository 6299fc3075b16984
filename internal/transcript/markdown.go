package transcript

import (
	"fmt"
	"strings"
	"time"

	"peerprep/interview/internal/models"
)

// Markdown renders messages as the exported interview transcript.
// Timestamps are printed as wall-clock time in loc (UTC when nil).
func Markdown(messages []models.Message, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	var sb strings.Builder
	sb.WriteString("# Interview Transcript\n\n")
	for _, m := range messages {
		fmt.Fprintf(&sb, "[%s] **%s:** %s\n\n", m.Timestamp.In(loc).Format("15:04:05"), m.Role.Label(), m.Content)
	}
	return sb.String()
}
