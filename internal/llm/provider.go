// Package llm abstracts the text model that writes post-interview assessments.
package llm

import (
	"context"
	"errors"
	"fmt"

	"peerprep/interview/internal/models"
)

// Provider turns an evaluation prompt into assessment text. conversationID
// is echoed into the response metadata and used to correlate logs.
type Provider interface {
	GenerateContent(ctx context.Context, prompt string, conversationID string) (*models.GenerationResponse, error)
	GetProviderName() string
}

const (
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeRateLimit    = "rate_limit_exceeded"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeTimeout      = "timeout"
)

// ProviderError carries one of the ErrCode values so callers can tell a
// misconfigured provider from a transient outage.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Provider, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ErrorCode extracts the ErrCode of err, or "" when err did not come from a provider.
func ErrorCode(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
