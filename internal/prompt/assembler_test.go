package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunatalk/lunatalk-server/internal/model"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

func TestParseLevel(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	assert.Equal(t, LevelRomaji, a.ParseLevel("Romaji"))
	assert.Equal(t, LevelKanji, a.ParseLevel("Kanji"))
	assert.Equal(t, DefaultLevel, a.ParseLevel(""))
	assert.Equal(t, DefaultLevel, a.ParseLevel("Hiragana"))
	assert.Equal(t, DefaultLevel, a.ParseLevel("romaji"))
}

func TestSystemInstructionContainsLevelText(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	instruction := a.SystemInstruction(LevelRomaji, "")
	assert.Contains(t, instruction, "Output Japanese using ONLY romaji. Do not use hiragana, katakana, or kanji.")
	assert.NotContains(t, instruction, levelPlaceholder)
}

func TestSystemInstructionUsernamePrefix(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	instruction := a.SystemInstruction(LevelRomaji, "Kenji")
	assert.Contains(t, instruction, "The user's name is Kenji. Output Japanese using ONLY romaji.")

	// The prefix rides inside the single substitution slot; it must not be
	// prepended to the whole template.
	assert.False(t, strings.HasPrefix(instruction, "The user's name is"))
}

func TestSystemInstructionNoUsername(t *testing.T) {
	a := NewAssembler(logger.NewNop())
	assert.NotContains(t, a.SystemInstruction(LevelKanji, ""), "The user's name is")
}

func TestBuildOrdering(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	history := []model.Message{
		model.NewUserMessage("Konnichiwa!", time.Now()),
		model.NewAIMessage("Konnichiwa! Genki desu ka?", time.Now()),
	}

	out := a.Build(LevelRomaji, "Kenji", "Hello!", history)
	require.Len(t, out, 4)

	assert.Contains(t, out[0].Text, `This character is "Luna"`)
	assert.Empty(t, out[0].Timestamp)
	assert.Equal(t, "Hello!", out[1].Text)
	assert.Empty(t, out[1].Timestamp)
	assert.Equal(t, history[0], out[2])
	assert.Equal(t, history[1], out[3])
}

func TestBuildDoesNotMutateHistory(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	history := []model.Message{model.NewUserMessage("hi", time.Now())}
	snapshot := history[0]

	a.Build(LevelEnglish, "", "Hello!", history)
	assert.Equal(t, snapshot, history[0])
}

func TestBuildInitialHasNoHistory(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	out := a.BuildInitial(LevelKatakana, "", "Let's practice ordering at a cafe.")
	require.Len(t, out, 2)
	assert.Contains(t, out[0].Text, "DO NOT use kanji")
	assert.Equal(t, "Let's practice ordering at a cafe.", out[1].Text)
}
