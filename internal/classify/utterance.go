// Package classify holds the lexical heuristics applied to free-form model output.
package classify

import (
	"regexp"
	"strings"
)

var (
	questionPattern = regexp.MustCompile(`(?i)\b(what|how|why|when|where|can you|could you|would you|explain|describe|tell me|walk me through|walk through|discuss|give me|talk about|think about)\b`)

	evaluationPattern = regexp.MustCompile(`(?i)evaluation|assessment|score:|feedback|## TECHNICAL|## COMMUNICATION|## OVERALL`)

	// section headers of a formal end-of-interview assessment
	assessmentSectionPattern = regexp.MustCompile(`(?i)##\s*(TECHNICAL|COMMUNICATION|OVERALL)\b`)

	conclusionPattern = regexp.MustCompile(`(?i)thank you for your time|thanks for your time|that concludes|concludes (our|the|this) interview|end of (the|our|this) interview|we('re| are) out of time|that wraps up`)

	userTranscriptPattern = regexp.MustCompile(`(?s)<user_transcript>(.*?)</user_transcript>\s*`)
)

// Classification of one interviewer utterance.
type Classification struct {
	IsQuestion   bool
	IsEvaluation bool
	// SignalsConclusion is set by closing phrases and formal assessment
	// sections. Passing mentions of feedback only suppress IsQuestion.
	SignalsConclusion bool
}

// Utterance classifies text. A question is text with a question mark or a
// question-indicating phrase that is not evaluation text.
func Utterance(text string) Classification {
	t := strings.TrimSpace(text)
	if t == "" {
		return Classification{}
	}

	isEval := evaluationPattern.MatchString(t)
	asks := strings.Contains(t, "?") || questionPattern.MatchString(t)

	return Classification{
		IsQuestion:        asks && !isEval,
		IsEvaluation:      isEval,
		SignalsConclusion: assessmentSectionPattern.MatchString(t) || conclusionPattern.MatchString(t),
	}
}

// ExtractUserTranscript splits a corrected candidate transcription out of
// interviewer output. ok is false when text carries no <user_transcript> block.
func ExtractUserTranscript(text string) (candidate, rest string, ok bool) {
	matches := userTranscriptPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", text, false
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(m[1]); s != "" {
			parts = append(parts, s)
		}
	}
	rest = userTranscriptPattern.ReplaceAllString(text, "")
	return strings.Join(parts, " "), rest, true
}
