package prompts

import (
	"strings"
	"testing"

	"peerprep/interview/internal/models"
)

func TestPromptManagerBuildInterviewPrompt(t *testing.T) {
	pm, err := NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}

	prompt, err := pm.BuildInterviewPrompt(models.InterviewBackend, 8, 4)
	if err != nil {
		t.Fatalf("BuildInterviewPrompt error: %v", err)
	}

	if !containsAll(prompt.SystemPrompt, []string{
		"Backend Engineering",
		"skill level 8/10 (advanced)",
		"exactly 4 main questions",
		"<user_transcript>",
		"QUESTION TO ASK:",
		models.CandidateResponseTool,
	}) {
		t.Fatalf("prompt did not contain expected values: %s", prompt.SystemPrompt)
	}
	if strings.Contains(prompt.SystemPrompt, "{{.") {
		t.Fatalf("unreplaced placeholder in prompt: %s", prompt.SystemPrompt)
	}
	if !strings.Contains(prompt.InitialQuestion, "payment processing") {
		t.Fatalf("expected advanced backend question, got %q", prompt.InitialQuestion)
	}
}

func TestInitialQuestionEveryTypeAndBand(t *testing.T) {
	pm, err := NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}

	for interviewType := range models.SupportedInterviewTypes {
		seen := map[string]bool{}
		for _, level := range []int{1, 5, 10} {
			prompt, err := pm.BuildInterviewPrompt(interviewType, level, 3)
			if err != nil {
				t.Fatalf("BuildInterviewPrompt(%s, %d): %v", interviewType, level, err)
			}
			if prompt.InitialQuestion == "" || seen[prompt.InitialQuestion] {
				t.Fatalf("expected a distinct question for %s level %d", interviewType, level)
			}
			seen[prompt.InitialQuestion] = true
		}
	}

	if _, err := pm.BuildInterviewPrompt("python", 5, 3); err == nil {
		t.Fatalf("expected error for unknown interview type")
	}
}

func TestPromptManagerBuildEvaluationPrompt(t *testing.T) {
	pm, err := NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}

	transcript := "# Interview Transcript\n\n[10:00:00] **Candidate:** I use indexes."
	prompt, err := pm.BuildEvaluationPrompt(models.InterviewData, 6, transcript)
	if err != nil {
		t.Fatalf("BuildEvaluationPrompt error: %v", err)
	}
	if !containsAll(prompt, []string{"Data Engineering", "6/10", transcript, "## TECHNICAL SKILLS ASSESSMENT", "## COMMUNICATION ASSESSMENT"}) {
		t.Fatalf("evaluation prompt missing values: %s", prompt)
	}

	prompt, err = pm.BuildEvaluationPrompt("unknown", 0, transcript)
	if err != nil {
		t.Fatalf("BuildEvaluationPrompt error: %v", err)
	}
	if !containsAll(prompt, []string{"General Technical", "unspecified level"}) {
		t.Fatalf("expected fallback labels: %s", prompt)
	}
}

func TestGetTemplates(t *testing.T) {
	pm, err := NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}
	got := strings.Join(pm.GetTemplates(), ",")
	if got != "evaluation,interviewer,questions" {
		t.Fatalf("unexpected templates %s", got)
	}
}

func containsAll(haystack string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
