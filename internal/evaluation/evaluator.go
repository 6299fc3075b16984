// Package evaluation scores a finished live interview from its transcript.
package evaluation

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/models"

	"go.uber.org/zap"
)

var (
	technicalScore     = regexp.MustCompile(`(?is)TECHNICAL SKILLS ASSESSMENT.*?Score:\s*(\d+)`)
	communicationScore = regexp.MustCompile(`(?is)COMMUNICATION ASSESSMENT.*?Score:\s*(\d+)`)
)

// PromptBuilder is implemented by prompts.PromptManager.
type PromptBuilder interface {
	BuildEvaluationPrompt(interviewType models.InterviewType, skillLevel int, transcript string) (string, error)
}

// Request describes the interview being evaluated.
type Request struct {
	ConversationID string
	InterviewType  models.InterviewType
	SkillLevel     int
	Transcript     string
}

type Evaluator struct {
	provider llm.Provider
	prompts  PromptBuilder
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewEvaluator(provider llm.Provider, prompts PromptBuilder, timeout time.Duration, logger *zap.Logger) *Evaluator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		provider: provider,
		prompts:  prompts,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Evaluate never fails: when the provider cannot produce an assessment the
// result carries the unavailable message and Available is false.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) *models.InterviewEvaluation {
	result := &models.InterviewEvaluation{
		ConversationID: req.ConversationID,
		Transcript:     req.Transcript,
		Feedback:       models.EvaluationUnavailableMessage,
		CompletedAt:    e.now(),
	}

	if e.provider == nil {
		e.logger.Warn("no evaluation provider configured", zap.String("conversation_id", req.ConversationID))
		return result
	}

	prompt, err := e.prompts.BuildEvaluationPrompt(req.InterviewType, req.SkillLevel, req.Transcript)
	if err != nil {
		e.logger.Error("failed to build evaluation prompt", zap.Error(err))
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.provider.GenerateContent(ctx, prompt, req.ConversationID)
	if err != nil {
		e.logger.Error("evaluation generation failed",
			zap.String("conversation_id", req.ConversationID),
			zap.String("provider", e.provider.GetProviderName()),
			zap.String("code", llm.ErrorCode(err)),
			zap.Error(err))
		return result
	}

	result.Feedback = resp.Content
	result.Available = true
	result.Scores = ParseScores(resp.Content)
	if result.Scores == nil {
		e.logger.Warn("evaluation returned without parseable scores", zap.String("conversation_id", req.ConversationID))
	}
	e.logger.Info("interview evaluated",
		zap.String("conversation_id", req.ConversationID),
		zap.Int("processing_time_ms", resp.Metadata.ProcessingTime))
	return result
}

// ParseScores extracts both section scores. It returns nil unless both are present.
func ParseScores(text string) *models.EvaluationScores {
	tech := technicalScore.FindStringSubmatch(text)
	comm := communicationScore.FindStringSubmatch(text)
	if tech == nil || comm == nil {
		return nil
	}
	t, err := strconv.Atoi(tech[1])
	if err != nil {
		return nil
	}
	c, err := strconv.Atoi(comm[1])
	if err != nil {
		return nil
	}
	return &models.EvaluationScores{Technical: t, Communication: c}
}

// IsEvaluationResponse reports whether text looks like a formal assessment.
func IsEvaluationResponse(text string) bool {
	return strings.Contains(text, "TECHNICAL SKILLS ASSESSMENT") ||
		strings.Contains(text, "COMMUNICATION ASSESSMENT") ||
		(strings.Contains(text, "Score:") && strings.Contains(text, "FEEDBACK"))
}
