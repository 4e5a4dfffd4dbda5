package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunatalk/lunatalk-server/internal/kv"
	"github.com/lunatalk/lunatalk-server/internal/model"
	"github.com/lunatalk/lunatalk-server/internal/scenario"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

func newTestStore() *ConversationStore {
	return New(kv.NewMemoryStore(), logger.NewNop())
}

func TestCreateSeedsLogAndSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	summary, err := s.Create(ctx, scenario.Default().Prompt, scenario.Default())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, "Free Talk", summary.ParticipantName)
	assert.Equal(t, NewConversationMessage, summary.LastMessage)
	assert.Equal(t, scenario.Default().Prompt, summary.InitialPrompt)

	assert.Empty(t, s.Load(ctx, summary.ID))

	got, ok := s.FindSummary(ctx, summary.ID)
	require.True(t, ok)
	assert.Equal(t, summary, got)
}

func TestCreateFallsBackToDefaultTitle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	summary, err := s.Create(ctx, "a custom prompt", scenario.Scenario{Prompt: "a custom prompt"})
	require.NoError(t, err)
	assert.Equal(t, FallbackTitle, summary.ParticipantName)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	messages := []model.Message{
		model.NewUserMessage("hi", time.Now()),
		model.NewAIMessage("hello", time.Now()),
	}
	require.NoError(t, s.Save(ctx, "abc", messages))
	assert.Equal(t, messages, s.Load(ctx, "abc"))
}

func TestLoadAbsentYieldsEmpty(t *testing.T) {
	s := newTestStore()
	messages := s.Load(context.Background(), "abc")
	assert.NotNil(t, messages)
	assert.Empty(t, messages)
}

func TestLoadCorruptYieldsEmpty(t *testing.T) {
	ctx := context.Background()
	base := kv.NewMemoryStore()
	require.NoError(t, base.Set(ctx, "conversation_abc", "{not json"))

	s := New(base, logger.NewNop())
	assert.Empty(t, s.Load(ctx, "abc"))
}

func TestNewSummariesInsertAtHead(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	first, err := s.Create(ctx, "p1", scenario.Scenario{Text: "One", Prompt: "p1"})
	require.NoError(t, err)
	second, err := s.Create(ctx, "p2", scenario.Scenario{Text: "Two", Prompt: "p2"})
	require.NoError(t, err)

	summaries := s.ListSummaries(ctx)
	require.Len(t, summaries, 2)
	assert.Equal(t, second.ID, summaries[0].ID)
	assert.Equal(t, first.ID, summaries[1].ID)
}

func TestUpsertPreservesListPosition(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	first, err := s.Create(ctx, "p1", scenario.Scenario{Text: "One", Prompt: "p1"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "p2", scenario.Scenario{Text: "Two", Prompt: "p2"})
	require.NoError(t, err)

	first.LastMessage = "updated"
	require.NoError(t, s.UpsertSummary(ctx, first))

	summaries := s.ListSummaries(ctx)
	require.Len(t, summaries, 2)
	assert.Equal(t, first.ID, summaries[1].ID)
	assert.Equal(t, "updated", summaries[1].LastMessage)
}

func TestDeleteRemovesLogAndSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	keep, err := s.Create(ctx, "p1", scenario.Scenario{Text: "Keep", Prompt: "p1"})
	require.NoError(t, err)
	drop, err := s.Create(ctx, "p2", scenario.Scenario{Text: "Drop", Prompt: "p2"})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, drop.ID, []model.Message{model.NewUserMessage("bye", time.Now())}))

	require.NoError(t, s.Delete(ctx, drop.ID))

	assert.Empty(t, s.Load(ctx, drop.ID))
	_, ok := s.FindSummary(ctx, drop.ID)
	assert.False(t, ok)

	summaries := s.ListSummaries(ctx)
	require.Len(t, summaries, 1)
	assert.Equal(t, keep.ID, summaries[0].ID)
}
