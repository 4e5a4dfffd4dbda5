package llm

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lunatalk/lunatalk-server/internal/model"
)

const anthropicModel = "claude-3-5-haiku-20241022"

// AnthropicClient is the Anthropic gateway client.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Generate sends the message list as an Anthropic messages request. The API
// requires alternating roles, so consecutive same-role messages are merged.
func (c *AnthropicClient) Generate(ctx context.Context, messages []model.Message) (string, error) {
	var params []anthropic.MessageParam
	for _, msg := range messages {
		role := anthropic.MessageParamRoleUser
		if msg.Sender == model.SenderAI {
			role = anthropic.MessageParamRoleAssistant
		}

		if n := len(params); n > 0 && params[n-1].Role.Value == role {
			merged := mergedText(params[n-1]) + "\n" + msg.Text
			params[n-1] = textMessage(role, merged)
			continue
		}
		params = append(params, textMessage(role, msg.Text))
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.F(anthropicModel),
		MaxTokens:   anthropic.F(int64(maxOutputTokens)),
		Temperature: anthropic.F(float64(temperature)),
		Messages:    anthropic.F(params),
	})
	if err != nil {
		return "", err
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}

	return validateText(content)
}

func textMessage(role anthropic.MessageParamRole, text string) anthropic.MessageParam {
	return anthropic.MessageParam{
		Role: anthropic.F(role),
		Content: anthropic.F([]anthropic.ContentBlockParamUnion{
			anthropic.TextBlockParam{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(text),
			},
		}),
	}
}

func mergedText(param anthropic.MessageParam) string {
	var text string
	for _, block := range param.Content.Value {
		if tb, ok := block.(anthropic.TextBlockParam); ok {
			text += tb.Text.Value
		}
	}
	return text
}
