package model

import (
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is a single entry in a conversation log. Timestamp is an ISO-8601
// string; it is empty only on synthetic prompt messages built for an outbound
// gateway call, which are never persisted.
type Message struct {
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	IsError   bool   `json:"isError,omitempty"`
}

// NewUserMessage creates a user-authored message stamped at t.
func NewUserMessage(text string, t time.Time) Message {
	return Message{
		Sender:    SenderUser,
		Text:      text,
		Timestamp: t.UTC().Format(time.RFC3339),
	}
}

// NewAIMessage creates an AI-authored message stamped at t.
func NewAIMessage(text string, t time.Time) Message {
	return Message{
		Sender:    SenderAI,
		Text:      text,
		Timestamp: t.UTC().Format(time.RFC3339),
	}
}

// NewErrorMessage creates a flagged error message rendered in the transcript
// in place of genuine AI output.
func NewErrorMessage(text string, t time.Time) Message {
	return Message{
		Sender:    SenderAI,
		Text:      text,
		Timestamp: t.UTC().Format(time.RFC3339),
		IsError:   true,
	}
}

// NewPromptMessage creates a synthetic message for an outbound gateway call.
func NewPromptMessage(text string) Message {
	return Message{
		Sender: SenderUser,
		Text:   text,
	}
}

// FormatClock renders t as the hour:minute display string used by
// conversation summaries.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}
