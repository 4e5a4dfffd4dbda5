// Package model defines data structures for the conversation service.
package model

// ConversationSummary is the denormalized per-conversation metadata used to
// render the conversation list without loading full message logs. Exactly one
// summary exists per conversation id.
type ConversationSummary struct {
	ID              string `json:"id"`
	ParticipantName string `json:"participantName"`
	LastMessage     string `json:"lastMessage"`
	Timestamp       string `json:"timestamp"`
	InitialPrompt   string `json:"initialPrompt,omitempty"`
	Icon            string `json:"icon,omitempty"`
	Text            string `json:"text,omitempty"`
}

// OpenSessionRequest is the request to open a chat session.
type OpenSessionRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	InitialPrompt  string `json:"initial_prompt,omitempty"`
}

// SessionResponse describes the state of an open session.
type SessionResponse struct {
	SessionID         string    `json:"session_id"`
	ConversationID    string    `json:"conversation_id"`
	DeviceID          string    `json:"device_id"`
	Title             string    `json:"title"`
	State             string    `json:"state"`
	Messages          []Message `json:"messages"`
	DailyMessageCount int       `json:"daily_message_count"`
	MaxDailyMessages  int       `json:"max_daily_messages"`
	IsSubscribed      bool      `json:"is_subscribed"`
}

// SendMessageRequest is the request to send a user message.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessageResponse carries the appended messages after a send.
type SendMessageResponse struct {
	Messages          []Message `json:"messages"`
	DailyMessageCount int       `json:"daily_message_count"`
}

// QuotaExceededResponse is the upsell payload returned when the daily free
// message quota is exhausted.
type QuotaExceededResponse struct {
	Error            string `json:"error"`
	DailyCount       int    `json:"daily_count"`
	MaxDailyMessages int    `json:"max_daily_messages"`
	UpgradeURL       string `json:"upgrade_url"`
}

// ReportMessageRequest is the request to report a transcript message.
type ReportMessageRequest struct {
	MessageText      string `json:"message_text"`
	MessageTimestamp string `json:"message_timestamp,omitempty"`
	Reason           string `json:"reason"`
}

// ReportMessageResponse is the response after a successful report.
type ReportMessageResponse struct {
	Message         string `json:"message"`
	ReportsToday    int    `json:"reports_today"`
	MaxDailyReports int    `json:"max_daily_reports"`
}

// ListConversationsResponse is the response for listing conversation
// summaries, newest-created first.
type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	Total         int                   `json:"total"`
}
