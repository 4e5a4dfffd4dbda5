// Package session orchestrates the quota-gated, persona-constrained chat
// session: conversation identity, daily counters, prompt assembly, gateway
// calls, and persistence.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/internal/entitlement"
	"github.com/lunatalk/lunatalk-server/internal/llm"
	"github.com/lunatalk/lunatalk-server/internal/model"
	"github.com/lunatalk/lunatalk-server/internal/prompt"
	"github.com/lunatalk/lunatalk-server/internal/quota"
	"github.com/lunatalk/lunatalk-server/internal/report"
	"github.com/lunatalk/lunatalk-server/internal/store"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
	"github.com/lunatalk/lunatalk-server/pkg/metrics"
)

// State is the session lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateSending      State = "sending"
)

// DefaultAnchorPrompt seeds the exchange when no anchor is stored.
const DefaultAnchorPrompt = "Hello!"

// Session is one open chat session. All mutations run under mu; the Sending
// state, not the mutex, is what prevents overlapping gateway calls.
type Session struct {
	ID       string
	UserID   string
	DeviceID string

	conversations *store.ConversationStore
	quota         *quota.Tracker
	assembler     *prompt.Assembler
	gateway       llm.Client
	oracle        entitlement.Oracle
	reports       *report.Client
	logger        *logger.Logger

	mu             sync.Mutex
	state          State
	closed         bool
	conversationID string
	title          string
	anchorPrompt   string
	messages       []model.Message

	// Daily counters; the date key is computed once at session start and
	// never re-evaluated, even across midnight.
	dateKey      string
	messageCount int
	reportCount  int

	level      prompt.CharacterLevel
	username   string
	subscribed bool

	unsubscribe func()
}

// Snapshot returns the session state for API responses.
func (s *Session) Snapshot() model.SessionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]model.Message, len(s.messages))
	copy(messages, s.messages)

	return model.SessionResponse{
		SessionID:         s.ID,
		ConversationID:    s.conversationID,
		DeviceID:          s.DeviceID,
		Title:             s.title,
		State:             string(s.state),
		Messages:          messages,
		DailyMessageCount: s.messageCount,
		MaxDailyMessages:  quota.MaxDailyMessages,
		IsSubscribed:      s.subscribed,
	}
}

// Send runs one user exchange: quota gate, optimistic append, counter
// persist, prompt assembly, gateway call, and reconciliation back into the
// log and summary index. Gateway failures become flagged transcript messages
// and are never retried automatically.
func (s *Session) Send(ctx context.Context, text string) ([]model.Message, error) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.state == StateSending {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return nil, ErrEmptyMessage
	}
	if s.conversationID == "" {
		s.mu.Unlock()
		return nil, ErrNoConversation
	}

	// The quota gate runs before anything else: no message is appended and
	// no counter changes when the limit is hit.
	if !quota.CanSend(s.subscribed, s.messageCount) {
		count := s.messageCount
		s.mu.Unlock()
		metrics.QuotaBlockedTotal.Inc()
		return nil, &QuotaExceededError{Count: count, Max: quota.MaxDailyMessages}
	}

	s.state = StateSending

	userMsg := model.NewUserMessage(text, time.Now())
	s.messages = append(s.messages, userMsg)

	if !s.subscribed {
		s.messageCount = quota.Increment(s.messageCount)
		s.quota.SaveCount(ctx, quota.KindMessages, s.dateKey, s.messageCount)
	}

	anchor := s.anchorPrompt
	if anchor == "" {
		anchor = DefaultAnchorPrompt
	}
	outbound := s.assembler.Build(s.level, s.username, anchor, s.messages)
	conversationID := s.conversationID
	s.mu.Unlock()

	metrics.MessagesTotal.WithLabelValues(string(model.SenderUser), "false").Inc()

	responseText, err := s.generate(ctx, outbound)

	s.mu.Lock()
	defer s.mu.Unlock()

	var reply model.Message
	if err != nil {
		reply = model.NewErrorMessage("An error occurred: "+err.Error(), time.Now())
		metrics.MessagesTotal.WithLabelValues(string(model.SenderAI), "true").Inc()
		s.logger.Error("gateway call failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	} else {
		reply = model.NewAIMessage(responseText, time.Now())
		metrics.MessagesTotal.WithLabelValues(string(model.SenderAI), "false").Inc()
	}

	s.messages = append(s.messages, reply)
	s.persistLocked(ctx, reply)
	s.state = StateReady

	return []model.Message{userMsg, reply}, nil
}

// MessageCount returns the current daily message counter.
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageCount
}

// Report flags a transcript message. Reports are gated by their own daily
// counter and require both a device and a conversation identity.
func (s *Session) Report(ctx context.Context, req model.ReportMessageRequest) (model.ReportMessageResponse, error) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return model.ReportMessageResponse{}, ErrClosed
	}
	if s.reports == nil || s.DeviceID == "" || s.conversationID == "" {
		s.mu.Unlock()
		return model.ReportMessageResponse{}, ErrReportsUnavailable
	}
	if !quota.CanReport(s.reportCount) {
		s.mu.Unlock()
		return model.ReportMessageResponse{}, &ReportLimitError{Max: quota.MaxDailyReports}
	}

	r := report.Report{
		DeviceID:         s.DeviceID,
		ConversationID:   s.conversationID,
		MessageText:      req.MessageText,
		MessageTimestamp: req.MessageTimestamp,
		Reason:           strings.TrimSpace(req.Reason),
	}
	s.mu.Unlock()

	message, err := s.reports.Submit(ctx, r)
	if err != nil {
		metrics.ReportsTotal.WithLabelValues("error").Inc()
		return model.ReportMessageResponse{}, err
	}
	metrics.ReportsTotal.WithLabelValues("ok").Inc()

	s.mu.Lock()
	s.reportCount = quota.Increment(s.reportCount)
	s.quota.SaveCount(ctx, quota.KindReports, s.dateKey, s.reportCount)
	count := s.reportCount
	s.mu.Unlock()

	return model.ReportMessageResponse{
		Message:         message,
		ReportsToday:    count,
		MaxDailyReports: quota.MaxDailyReports,
	}, nil
}

// Close tears the session down: the entitlement subscription is released and
// any still-in-flight completion becomes a no-op against live state.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = StateIdle
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// fetchInitial issues the opening AI exchange for a freshly minted
// conversation: system instruction plus the scenario prompt, no history.
func (s *Session) fetchInitial(ctx context.Context, promptText string) {
	outbound := s.assembler.BuildInitial(s.level, s.username, promptText)

	responseText, err := s.generate(ctx, outbound)

	s.mu.Lock()
	defer s.mu.Unlock()

	var reply model.Message
	if err != nil {
		reply = model.NewErrorMessage("An error occurred: "+err.Error(), time.Now())
		s.logger.Error("initial gateway call failed",
			zap.String("conversation_id", s.conversationID),
			zap.Error(err),
		)
	} else {
		reply = model.NewAIMessage(responseText, time.Now())
	}

	s.messages = []model.Message{reply}
	s.persistLocked(ctx, reply)
}

func (s *Session) generate(ctx context.Context, outbound []model.Message) (string, error) {
	start := time.Now()
	responseText, err := s.gateway.Generate(ctx, outbound)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordGatewayCall(s.gateway.Name(), status, time.Since(start).Seconds())

	return responseText, err
}

// persistLocked writes the full log and mirrors the latest message into the
// summary index. Persistence failures are logged; the user-visible flow
// proceeds on in-memory state. Callers hold mu.
func (s *Session) persistLocked(ctx context.Context, latest model.Message) {
	if err := s.conversations.Save(ctx, s.conversationID, s.messages); err != nil {
		s.logger.Warn("failed to persist conversation log",
			zap.String("conversation_id", s.conversationID),
			zap.Error(err),
		)
	}

	summary, ok := s.conversations.FindSummary(ctx, s.conversationID)
	if !ok {
		return
	}
	summary.LastMessage = latest.Text
	summary.Timestamp = model.FormatClock(time.Now())
	if err := s.conversations.UpsertSummary(ctx, summary); err != nil {
		s.logger.Warn("failed to update conversation summary",
			zap.String("conversation_id", s.conversationID),
			zap.Error(err),
		)
	}
}

// watchEntitlement applies pushed customer-info updates to the session.
// Updates that land after Close are ignored.
func (s *Session) watchEntitlement(updates <-chan entitlement.CustomerInfo) {
	for info := range updates {
		s.mu.Lock()
		if !s.closed {
			s.subscribed = entitlement.IsEntitled(info, s.oracle.EntitlementID())
		}
		s.mu.Unlock()
	}
}
