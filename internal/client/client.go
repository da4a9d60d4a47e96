// Package client holds the client half of the system: an HTTP client for the
// mutation endpoint and the Manager that owns current state and history.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gptodo/internal/models"
)

var (
	// ErrTransport is wrapped by errors for requests that never produced a response.
	ErrTransport = errors.New("mutation request failed")
	// ErrParseFailed is wrapped when the server could not turn backend output into state.
	ErrParseFailed = errors.New("server could not parse backend output")
	// ErrRejected is wrapped when the server refused the request as malformed.
	ErrRejected = errors.New("server rejected mutation request")
)

// StatusError is returned for any non-200 response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mutation endpoint returned %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusInternalServerError:
		return ErrParseFailed
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return ErrRejected
	default:
		return ErrTransport
	}
}

// Client calls the mutation endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a Client for the server at baseURL. A nil httpClient means
// http.DefaultClient; no timeout is applied beyond what it carries.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   strings.TrimSuffix(baseURL, "/") + "/api/prompt",
		httpClient: httpClient,
	}
}

// Mutate sends one mutation request and returns the replacement state.
func (c *Client) Mutate(ctx context.Context, prompt string, state models.AppState, schema json.RawMessage) (models.AppState, error) {
	body, err := json.Marshal(struct {
		Prompt string          `json:"prompt"`
		State  models.AppState `json:"state"`
		Schema json.RawMessage `json:"schema"`
	}{prompt, state, schema})
	if err != nil {
		return models.AppState{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.AppState{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.AppState{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.AppState{}, fmt.Errorf("%w: failed to read response: %v", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return models.AppState{}, &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	var out struct {
		State *models.AppState `json:"state"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return models.AppState{}, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	if out.State == nil {
		return models.AppState{}, fmt.Errorf("%w: response has no state", ErrParseFailed)
	}

	out.State.Normalize()
	return *out.State, nil
}
