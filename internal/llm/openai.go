package llm

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"github.com/lunatalk/lunatalk-server/internal/model"
)

const openAIModel = "gpt-4o-mini"

// OpenAIClient is the OpenAI gateway client.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Generate sends the message list as a chat completion. sender=ai maps to the
// assistant role, sender=user to the user role.
func (c *OpenAIClient) Generate(ctx context.Context, messages []model.Message) (string, error) {
	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		role := openai.ChatMessageRoleUser
		if msg.Sender == model.SenderAI {
			role = openai.ChatMessageRoleAssistant
		}
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Text,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       openAIModel,
		Messages:    chatMessages,
		MaxTokens:   maxOutputTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}

	return validateText(resp.Choices[0].Message.Content)
}
