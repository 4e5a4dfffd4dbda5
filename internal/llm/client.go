// Package llm provides AI gateway client interfaces and implementations.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/lunatalk/lunatalk-server/internal/model"
)

// Fixed generation parameters applied by every gateway implementation.
const (
	maxOutputTokens = 500
	temperature     = 0.7
)

// Client is the interface for AI gateways: an ordered message list in,
// generated text out.
type Client interface {
	// Generate sends the assembled message list and returns the generated
	// text, or an error on any failure including empty output.
	Generate(ctx context.Context, messages []model.Message) (string, error)

	// Name returns the provider name.
	Name() string
}

// GatewayError carries the upstream status and body for diagnostics.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("AI gateway error (%d): %s", e.Status, e.Body)
}

// Provider is the type of AI gateway provider.
type Provider string

const (
	ProviderRelay     Provider = "relay"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Options holds provider credentials for the factory.
type Options struct {
	RelayURL        string
	RelayAPIKey     string
	OpenAIAPIKey    string
	AnthropicAPIKey string
}

// NewClient creates an AI gateway client for the configured provider.
func NewClient(provider Provider, opts Options) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(opts.OpenAIAPIKey)
	case ProviderAnthropic:
		return NewAnthropicClient(opts.AnthropicAPIKey)
	case ProviderRelay:
		return NewRelayClient(opts.RelayURL, opts.RelayAPIKey)
	default:
		return nil, fmt.Errorf("unknown AI gateway provider %q", provider)
	}
}

// validateText rejects empty or whitespace-only gateway output.
func validateText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("AI gateway returned empty text")
	}
	return text, nil
}
