package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateMessageText validates user message text.
func ValidateMessageText(text string) error {
	if len(text) == 0 {
		return errors.New("text cannot be empty")
	}
	if len(text) > 10000 {
		return errors.New("text exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New("text must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateReportReason validates a report reason.
func ValidateReportReason(reason string) error {
	if len(reason) == 0 {
		return errors.New("reason cannot be empty")
	}
	if len(reason) > 500 {
		return errors.New("reason exceeds maximum length")
	}
	if !utf8.ValidString(reason) {
		return errors.New("reason must be valid UTF-8")
	}
	return nil
}
