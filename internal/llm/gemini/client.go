package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/models"
)

const ProviderName = "gemini"

// Client generates text through the Gemini REST API.
type Client struct {
	client *genai.Client
	config *Config
}

func NewClient(config *Config) (*Client, error) {
	ctx := context.Background()

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeAPIKey,
			Message:  "Failed to create Gemini client",
			Err:      err,
		}
	}

	return &Client{
		client: client,
		config: config,
	}, nil
}

// GenerateContent sends prompt as a single user turn.
func (c *Client) GenerateContent(ctx context.Context, prompt string, requestID string) (*models.GenerationResponse, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "Prompt is empty",
		}
	}

	startTime := time.Now()
	result, err := c.client.Models.GenerateContent(
		ctx,
		c.config.Model,
		genai.Text(prompt),
		nil,
	)
	if err != nil {
		return nil, classifyError(err)
	}

	if result == nil {
		return nil, &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "No response generated",
		}
	}

	content := result.Text()
	if strings.TrimSpace(content) == "" {
		return nil, &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "Empty response generated",
		}
	}

	return &models.GenerationResponse{
		Content:   content,
		RequestID: requestID,
		Metadata: models.GenerationMetadata{
			ProcessingTime: int(time.Since(startTime).Milliseconds()),
			Provider:       ProviderName,
			Model:          c.config.Model,
		},
	}, nil
}

func (c *Client) GetProviderName() string {
	return ProviderName
}

func classifyError(err error) *llm.ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &llm.ProviderError{Provider: ProviderName, Code: llm.ErrCodeTimeout, Message: "Request timed out", Err: err}
	case isRateLimitError(err):
		return &llm.ProviderError{Provider: ProviderName, Code: llm.ErrCodeRateLimit, Message: "Rate limit exceeded", Err: err}
	default:
		return &llm.ProviderError{Provider: ProviderName, Code: llm.ErrCodeServiceDown, Message: "Failed to generate content", Err: err}
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota")
}
