// Package prompt builds the outbound message list sent to the AI gateway:
// the persona system instruction, the conversation's anchor prompt, and the
// running message history.
package prompt

import (
	"strings"

	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/internal/model"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

// CharacterLevel is the script-complexity mode constraining the persona's
// output script.
type CharacterLevel string

const (
	LevelEnglish  CharacterLevel = "English"
	LevelRomaji   CharacterLevel = "Romaji"
	LevelKatakana CharacterLevel = "Katakana"
	LevelKanji    CharacterLevel = "Kanji"
)

// DefaultLevel is used when the stored setting is absent or unrecognized.
const DefaultLevel = LevelEnglish

// Levels lists the selectable character levels in display order.
var Levels = []CharacterLevel{LevelEnglish, LevelRomaji, LevelKatakana, LevelKanji}

var levelInstructions = map[CharacterLevel]string{
	LevelEnglish:  "Output primarily in English. When introducing Japanese words or phrases, provide immediate English translations or explanations. The primary goal is comprehension in English, with gentle introduction to Japanese.",
	LevelRomaji:   "Output Japanese using ONLY romaji. Do not use hiragana, katakana, or kanji.",
	LevelKatakana: "Output Japanese using hiragana, katakana, and romaji. DO NOT use kanji.",
	LevelKanji:    "Output Japanese using kanji, hiragana, katakana, and romaji as appropriate for a native speaker.",
}

// Instruction returns the level's literal instruction text.
func (l CharacterLevel) Instruction() string {
	if instr, ok := levelInstructions[l]; ok {
		return instr
	}
	return levelInstructions[DefaultLevel]
}

// Assembler deterministically constructs outbound message lists. It is a pure
// function of (settings, anchor prompt, history) and never mutates stored
// state.
type Assembler struct {
	logger *logger.Logger
}

// NewAssembler creates a prompt assembler.
func NewAssembler(log *logger.Logger) *Assembler {
	return &Assembler{logger: log}
}

// ParseLevel maps a stored setting value to a character level. Unrecognized
// values are logged and defaulted, not rejected.
func (a *Assembler) ParseLevel(value string) CharacterLevel {
	if value == "" {
		return DefaultLevel
	}
	for _, level := range Levels {
		if value == string(level) {
			return level
		}
	}
	a.logger.Warn("unrecognized character level, defaulting",
		zap.String("value", value),
		zap.String("default", string(DefaultLevel)),
	)
	return DefaultLevel
}

// SystemInstruction renders the persona template for the given level and
// optional username. The username prefix is composed onto the instruction
// before the single template substitution, so the output is never searched
// and re-replaced.
func (a *Assembler) SystemInstruction(level CharacterLevel, username string) string {
	instruction := strings.TrimSpace(level.Instruction())
	if username != "" {
		instruction = "The user's name is " + username + ". " + instruction
	}
	return strings.Replace(personaTemplate, levelPlaceholder, instruction, 1)
}

// Build constructs the ordered outbound list: the system instruction, the
// conversation's anchor prompt, then the persisted history in chronological
// order. Synthetic prompt messages carry empty timestamps and are never
// persisted.
func (a *Assembler) Build(level CharacterLevel, username, anchorPrompt string, history []model.Message) []model.Message {
	out := make([]model.Message, 0, len(history)+2)
	out = append(out, model.NewPromptMessage(a.SystemInstruction(level, username)))
	out = append(out, model.NewPromptMessage(anchorPrompt))
	out = append(out, history...)
	return out
}

// BuildInitial constructs the outbound list for a conversation's very first
// exchange: the system instruction plus the scenario prompt, no history.
func (a *Assembler) BuildInitial(level CharacterLevel, username, scenarioPrompt string) []model.Message {
	return a.Build(level, username, scenarioPrompt, nil)
}
