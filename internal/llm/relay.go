package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lunatalk/lunatalk-server/internal/model"
)

// RelayClient calls the serverless relay that fronts the text-generation
// provider. Request: {"messages": [...]} with a bearer key; response:
// {"text": "..."} on 2xx.
type RelayClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

type relayRequest struct {
	Messages []model.Message `json:"messages"`
}

type relayResponse struct {
	Text string `json:"text"`
}

// NewRelayClient creates a relay gateway client.
func NewRelayClient(url, apiKey string) (*RelayClient, error) {
	if url == "" {
		return nil, errors.New("relay URL is required")
	}
	if apiKey == "" {
		return nil, errors.New("relay API key is required")
	}

	return &RelayClient{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Name returns the provider name.
func (c *RelayClient) Name() string {
	return "relay"
}

// Generate posts the message list to the relay and extracts the generated
// text. Non-2xx responses and malformed or empty bodies are failures that
// keep the upstream status and body for diagnostics.
func (c *RelayClient) Generate(ctx context.Context, messages []model.Message) (string, error) {
	body, err := json.Marshal(relayRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to marshal relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read relay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &GatewayError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var parsed relayResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("relay response is not valid JSON: %w", err)
	}

	return validateText(parsed.Text)
}
