package evaluation

import (
	"context"
	"strings"
	"testing"
	"time"

	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/prompts"
)

const sampleEvaluation = `## TECHNICAL SKILLS ASSESSMENT
Score: 7/10
Solid grasp of indexing.

## COMMUNICATION ASSESSMENT
Score: 9/10
Clear and concise.

## OVERALL FEEDBACK
Good interview.`

type fakeProvider struct {
	content string
	err     error
	prompt  string
	reqID   string
	hasDL   bool
}

func (f *fakeProvider) GenerateContent(ctx context.Context, prompt, requestID string) (*models.GenerationResponse, error) {
	f.prompt = prompt
	f.reqID = requestID
	_, f.hasDL = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &models.GenerationResponse{Content: f.content, RequestID: requestID}, nil
}

func (f *fakeProvider) GetProviderName() string { return "fake" }

func newPrompts(t *testing.T) *prompts.PromptManager {
	t.Helper()
	pm, err := prompts.NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}
	return pm
}

func TestEvaluateSuccess(t *testing.T) {
	provider := &fakeProvider{content: sampleEvaluation}
	ev := NewEvaluator(provider, newPrompts(t), time.Second, nil)

	result := ev.Evaluate(context.Background(), Request{
		ConversationID: "conv-1",
		InterviewType:  models.InterviewBackend,
		SkillLevel:     5,
		Transcript:     "# Interview Transcript\n\nhello",
	})

	if !result.Available || result.Feedback != sampleEvaluation {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Scores == nil || result.Scores.Technical != 7 || result.Scores.Communication != 9 {
		t.Fatalf("unexpected scores %+v", result.Scores)
	}
	if !strings.Contains(provider.prompt, "Backend Engineering") || !strings.Contains(provider.prompt, "hello") {
		t.Fatalf("prompt missing context: %s", provider.prompt)
	}
	if provider.reqID != "conv-1" || !provider.hasDL {
		t.Fatalf("expected request id and deadline to be passed")
	}
}

func TestEvaluateProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: &llm.ProviderError{Provider: "fake", Code: llm.ErrCodeRateLimit, Message: "slow down"}}
	ev := NewEvaluator(provider, newPrompts(t), time.Second, nil)

	result := ev.Evaluate(context.Background(), Request{ConversationID: "conv-2", Transcript: "t"})
	if result.Available {
		t.Fatalf("expected unavailable result")
	}
	if result.Feedback != models.EvaluationUnavailableMessage {
		t.Fatalf("unexpected feedback %q", result.Feedback)
	}
	if result.Transcript != "t" || result.ConversationID != "conv-2" {
		t.Fatalf("expected transcript and id to be kept: %+v", result)
	}
}

func TestEvaluateWithoutProvider(t *testing.T) {
	ev := NewEvaluator(nil, newPrompts(t), 0, nil)
	result := ev.Evaluate(context.Background(), Request{Transcript: "t"})
	if result.Available || result.Feedback != models.EvaluationUnavailableMessage {
		t.Fatalf("expected unavailable result, got %+v", result)
	}
}

func TestEvaluateUnscoredText(t *testing.T) {
	ev := NewEvaluator(&fakeProvider{content: "The candidate did well."}, newPrompts(t), time.Second, nil)
	result := ev.Evaluate(context.Background(), Request{Transcript: "t"})
	if !result.Available || result.Scores != nil {
		t.Fatalf("expected available result without scores, got %+v", result)
	}
}

func TestParseScores(t *testing.T) {
	cases := []struct {
		name string
		text string
		want *models.EvaluationScores
	}{
		{"both", sampleEvaluation, &models.EvaluationScores{Technical: 7, Communication: 9}},
		{"case insensitive", "technical skills assessment\nscore: 4/10\ncommunication assessment\nSCORE: 6/10", &models.EvaluationScores{Technical: 4, Communication: 6}},
		{"missing communication", "## TECHNICAL SKILLS ASSESSMENT\nScore: 7/10", nil},
		{"no scores", "nothing here", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseScores(tc.text)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil || *got != *tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestIsEvaluationResponse(t *testing.T) {
	if !IsEvaluationResponse(sampleEvaluation) {
		t.Fatal("expected sample to be an evaluation")
	}
	if !IsEvaluationResponse("Score: 5/10\nOVERALL FEEDBACK") {
		t.Fatal("expected score plus feedback to count")
	}
	if IsEvaluationResponse("What is a closure?") {
		t.Fatal("question is not an evaluation")
	}
}
