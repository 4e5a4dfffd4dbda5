// Package store provides CRUD over per-conversation message logs and the
// denormalized summary index used for list display.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/internal/kv"
	"github.com/lunatalk/lunatalk-server/internal/model"
	"github.com/lunatalk/lunatalk-server/internal/scenario"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
	"github.com/lunatalk/lunatalk-server/pkg/metrics"
)

const (
	conversationKeyPrefix = "conversation_"
	summariesKey          = "_conversationSummaries_"

	// NewConversationMessage seeds a fresh summary's last-message preview.
	NewConversationMessage = "New conversation started..."

	// FallbackTitle is used when no scenario matches.
	FallbackTitle = "Language AI"
)

// ConversationStore owns conversation logs and the summary index. Reads
// degrade to empty on persistence failures; writes the caller must react to
// (delete) surface errors.
type ConversationStore struct {
	store  kv.Store
	logger *logger.Logger
}

// New creates a conversation store over the given key-value store.
func New(store kv.Store, log *logger.Logger) *ConversationStore {
	return &ConversationStore{store: store, logger: log}
}

// Create mints a new conversation: an empty message log and a matching
// summary inserted at the head of the summary list.
func (s *ConversationStore) Create(ctx context.Context, initialPrompt string, sc scenario.Scenario) (model.ConversationSummary, error) {
	id := uuid.NewString()

	title := sc.Text
	if title == "" {
		title = FallbackTitle
	}

	summary := model.ConversationSummary{
		ID:              id,
		ParticipantName: title,
		LastMessage:     NewConversationMessage,
		Timestamp:       model.FormatClock(time.Now()),
		InitialPrompt:   initialPrompt,
		Icon:            sc.Icon,
		Text:            sc.Text,
	}

	if err := s.Save(ctx, id, []model.Message{}); err != nil {
		return model.ConversationSummary{}, fmt.Errorf("failed to store empty log: %w", err)
	}
	if err := s.UpsertSummary(ctx, summary); err != nil {
		return model.ConversationSummary{}, fmt.Errorf("failed to store summary: %w", err)
	}

	metrics.ConversationsTotal.Inc()
	return summary, nil
}

// Load returns the persisted log for id, or an empty sequence when absent or
// unparsable. Corrupt data is treated as empty, not fatal.
func (s *ConversationStore) Load(ctx context.Context, id string) []model.Message {
	raw, err := s.store.Get(ctx, conversationKeyPrefix+id)
	if err != nil {
		if err != kv.ErrNotFound {
			s.logger.Warn("failed to load conversation",
				zap.String("conversation_id", id),
				zap.Error(err),
			)
			metrics.StoreErrorsTotal.WithLabelValues("load_conversation").Inc()
		}
		return []model.Message{}
	}

	var messages []model.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		s.logger.Warn("conversation log is unreadable, treating as empty",
			zap.String("conversation_id", id),
			zap.Error(err),
		)
		return []model.Message{}
	}
	return messages
}

// Save overwrites the stored log for id with the full updated sequence.
// Callers always supply the complete log.
func (s *ConversationStore) Save(ctx context.Context, id string, messages []model.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation log: %w", err)
	}
	if err := s.store.Set(ctx, conversationKeyPrefix+id, string(data)); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("save_conversation").Inc()
		return fmt.Errorf("failed to save conversation log: %w", err)
	}
	return nil
}

// UpsertSummary replaces an existing summary in place, preserving its list
// position, or inserts a new one at the head of the list.
func (s *ConversationStore) UpsertSummary(ctx context.Context, summary model.ConversationSummary) error {
	summaries := s.loadSummaries(ctx)

	replaced := false
	for i := range summaries {
		if summaries[i].ID == summary.ID {
			summaries[i] = summary
			replaced = true
			break
		}
	}
	if !replaced {
		summaries = append([]model.ConversationSummary{summary}, summaries...)
	}

	return s.saveSummaries(ctx, summaries)
}

// FindSummary returns the summary for id, if present.
func (s *ConversationStore) FindSummary(ctx context.Context, id string) (model.ConversationSummary, bool) {
	for _, summary := range s.loadSummaries(ctx) {
		if summary.ID == id {
			return summary, true
		}
	}
	return model.ConversationSummary{}, false
}

// ListSummaries returns the full summary list, newest-created first.
func (s *ConversationStore) ListSummaries(ctx context.Context) []model.ConversationSummary {
	return s.loadSummaries(ctx)
}

// Delete removes the message log and the summary entry for id. Both removals
// must succeed or the deletion is reported failed.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, conversationKeyPrefix+id); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("delete_conversation").Inc()
		return fmt.Errorf("failed to remove conversation log: %w", err)
	}

	summaries := s.loadSummaries(ctx)
	filtered := summaries[:0]
	for _, summary := range summaries {
		if summary.ID != id {
			filtered = append(filtered, summary)
		}
	}

	if err := s.saveSummaries(ctx, filtered); err != nil {
		return fmt.Errorf("failed to remove conversation summary: %w", err)
	}
	return nil
}

func (s *ConversationStore) loadSummaries(ctx context.Context) []model.ConversationSummary {
	raw, err := s.store.Get(ctx, summariesKey)
	if err != nil {
		if err != kv.ErrNotFound {
			s.logger.Warn("failed to load summary index", zap.Error(err))
			metrics.StoreErrorsTotal.WithLabelValues("load_summaries").Inc()
		}
		return nil
	}

	var summaries []model.ConversationSummary
	if err := json.Unmarshal([]byte(raw), &summaries); err != nil {
		s.logger.Warn("summary index is unreadable, treating as empty", zap.Error(err))
		return nil
	}
	return summaries
}

func (s *ConversationStore) saveSummaries(ctx context.Context, summaries []model.ConversationSummary) error {
	data, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("failed to marshal summary index: %w", err)
	}
	if err := s.store.Set(ctx, summariesKey, string(data)); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("save_summaries").Inc()
		return fmt.Errorf("failed to save summary index: %w", err)
	}
	return nil
}
