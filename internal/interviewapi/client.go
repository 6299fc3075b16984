// Package interviewapi is the HTTP client for the interview REST backend that
// issues sessions, serves questions and scores answers.
package interviewapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"peerprep/interview/internal/models"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// ErrNoMoreQuestions is returned by NextQuestion when the backend answers 404.
// It marks normal completion, not a failure.
var ErrNoMoreQuestions = errors.New("interviewapi: no more questions")

// APIError is any non-2xx backend response.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("interview api error (status %d): %s", e.Status, e.Detail)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Start opens a new backend session. An empty name lets the backend pick its default.
func (c *Client) Start(ctx context.Context, candidateName string) (*models.StartInterviewResponse, error) {
	var out models.StartInterviewResponse
	body := models.StartInterviewRequest{CandidateName: candidateName}
	if err := c.do(ctx, http.MethodPost, "/api/interview/start", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NextQuestion fetches the next question or ErrNoMoreQuestions.
func (c *Client) NextQuestion(ctx context.Context, sessionID string) (*models.QuestionResponse, error) {
	var out models.QuestionResponse
	err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "question"), nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, ErrNoMoreQuestions
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitAnswer(ctx context.Context, sessionID, answer string) (*models.EvaluationResponse, error) {
	var out models.EvaluationResponse
	body := models.SubmitAnswerRequest{Answer: answer}
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "answer"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Feedback(ctx context.Context, sessionID string) (*models.FeedbackResponse, error) {
	var out models.FeedbackResponse
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "feedback"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, sessionID string) (*models.SessionStatusResponse, error) {
	var out models.SessionStatusResponse
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "status"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Cancel(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "cancel"), nil, nil)
}

func sessionPath(sessionID, action string) string {
	return "/api/interview/" + url.PathEscape(sessionID) + "/" + action
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Detail: errorDetail(resp, body)}
		if resp.StatusCode != http.StatusNotFound {
			c.logger.Warn("interview api request failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.String("detail", apiErr.Detail))
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorDetail prefers the body's detail, then its error, then the status text.
func errorDetail(resp *http.Response, body []byte) string {
	var be models.BackendError
	if err := json.Unmarshal(body, &be); err == nil {
		if be.Detail != "" {
			return be.Detail
		}
		if be.Error != "" {
			return be.Error
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
