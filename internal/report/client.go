// Package report submits inappropriate-message reports to the moderation
// endpoint.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Report is a single message report.
type Report struct {
	DeviceID         string `json:"device_id"`
	ConversationID   string `json:"conversation_id"`
	MessageText      string `json:"message_text"`
	MessageTimestamp string `json:"message_timestamp,omitempty"`
	Reason           string `json:"reason"`
}

type submitResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client calls the report submission endpoint.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a report client.
func NewClient(url, apiKey string) (*Client, error) {
	if url == "" {
		return nil, errors.New("report URL is required")
	}

	return &Client{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// Submit posts the report and returns the endpoint's success message.
func (c *Client) Submit(ctx context.Context, r Report) (string, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("report submission failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read report response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var parsed submitResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != "" {
			return "", fmt.Errorf("failed to submit report: %d - %s", resp.StatusCode, parsed.Error)
		}
		return "", fmt.Errorf("failed to submit report: %d - %s", resp.StatusCode, string(respBody))
	}

	var parsed submitResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.Message == "" {
		return "Report submitted.", nil
	}
	return parsed.Message, nil
}
