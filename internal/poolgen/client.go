package poolgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin HTTP client for driving a running engine instance.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a Client for the engine at baseURL. token may be empty
// when the engine runs without an admin token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// TriggerRun posts a manual trigger and returns the raw run record JSON.
// A 200 response marks a replayed batch id; both 200 and 202 are success.
func (c *Client) TriggerRun(ctx context.Context, batchID string) (json.RawMessage, bool, error) {
	body, err := json.Marshal(map[string]string{"batch_id": batchID})
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal trigger body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/runs", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("trigger request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read trigger response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return raw, false, nil
	case http.StatusOK:
		return raw, true, nil
	default:
		return nil, false, fmt.Errorf("trigger rejected: %s: %s", resp.Status, raw)
	}
}

// Readiness fetches the pool readiness report.
func (c *Client) Readiness(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/readiness")
}

// LatestRun fetches the most recently recorded run.
func (c *Client) LatestRun(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/runs/latest")
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s: %s", path, resp.Status, raw)
	}
	return raw, nil
}
