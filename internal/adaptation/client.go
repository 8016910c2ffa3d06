package adaptation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/brightclass/insight/internal/adaptation/domain"
	"github.com/brightclass/insight/internal/config"
	"github.com/brightclass/insight/internal/observability/tracing"
)

// transientError marks failures worth retrying: transport errors and
// 5xx responses from the engine.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// IsTransient reports whether an engine error is retryable.
func IsTransient(err error) bool {
	var transient *transientError
	return errors.As(err, &transient)
}

// EngineClient calls the remote AI engine transform endpoint.
type EngineClient struct {
	baseURL string
	client  *http.Client
}

func NewEngineClient(cfg config.Config) *EngineClient {
	return &EngineClient{
		baseURL: cfg.AIEngine.BaseURL,
		client: tracing.WrapHTTPClient(&http.Client{
			Timeout: cfg.AIEngine.Timeout,
		}),
	}
}

type transformRequest struct {
	LearningDifference string `json:"learning_difference"`
	Title              string `json:"title,omitempty"`
	Text               string `json:"text"`
}

type transformResponse struct {
	HTML string `json:"html"`
}

// Transform posts content to the engine and returns the adapted HTML.
func (c *EngineClient) Transform(ctx context.Context, req domain.AdaptRequest) (string, error) {
	body, err := json.Marshal(transformRequest{
		LearningDifference: req.LearningDifference,
		Title:              req.Title,
		Text:               req.Text,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transform", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &transientError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", &transientError{err: fmt.Errorf("engine returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", domain.ErrEngineRejected, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &transientError{err: err}
	}

	var parsed transformResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", err
	}
	return parsed.HTML, nil
}
