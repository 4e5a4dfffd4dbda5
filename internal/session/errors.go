package session

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy rejects a send issued while another send is in flight. The
	// Sending-state guard stands in for a lock around the store.
	ErrBusy = errors.New("a send is already in flight")

	// ErrClosed rejects operations on a closed session.
	ErrClosed = errors.New("session is closed")

	// ErrEmptyMessage rejects sends with no text.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrNoConversation rejects sends before a conversation id is
	// established.
	ErrNoConversation = errors.New("no conversation is established")

	// ErrReportsUnavailable marks the report feature as disabled for the
	// session (missing endpoint configuration or device identity).
	ErrReportsUnavailable = errors.New("message reporting is unavailable")
)

// QuotaExceededError is the deliberate control-flow branch taken when a
// non-subscribed user has exhausted the daily free messages. It is presented
// as an upgrade prompt, not a failure.
type QuotaExceededError struct {
	Count int
	Max   int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily message limit reached (%d/%d)", e.Count, e.Max)
}

// ReportLimitError is returned when the independent daily report cap is hit.
type ReportLimitError struct {
	Max int
}

func (e *ReportLimitError) Error() string {
	return fmt.Sprintf("daily report limit reached (%d per day)", e.Max)
}
