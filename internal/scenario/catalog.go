// Package scenario provides the fixed catalog of conversation scenarios and
// the per-day scenario pick.
package scenario

import (
	"context"
	"encoding/json"
	"math/rand"

	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/internal/kv"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

const dailyScenarioKeyPrefix = "dailyScenario_"

// Scenario is a predefined conversation starter: the display text shown in
// lists, the anchor prompt that seeds the persona's first reply, and a
// symbolic icon identifier.
type Scenario struct {
	Text   string `json:"text"`
	Prompt string `json:"prompt"`
	Icon   string `json:"icon,omitempty"`
}

// Catalog is the fixed scenario list. The first entry is the default used
// when a session is opened with neither a conversation id nor a prompt.
var Catalog = []Scenario{
	{
		Text:   "Free Talk",
		Prompt: "Hello! Let's have a casual chat. How are you today?",
		Icon:   "chatbubbles-outline",
	},
	{
		Text:   "Ordering at a Cafe",
		Prompt: "Let's practice ordering at a cafe. You are the staff, and I just walked in.",
		Icon:   "cafe-outline",
	},
	{
		Text:   "Asking for Directions",
		Prompt: "I'm lost in Tokyo and need to find the station. Let's practice asking for directions.",
		Icon:   "map-outline",
	},
	{
		Text:   "Talking About Hobbies",
		Prompt: "Let's talk about our hobbies. Ask me what I like to do on weekends.",
		Icon:   "game-controller-outline",
	},
	{
		Text:   "Shopping for Clothes",
		Prompt: "I'm shopping for clothes. You are the shop staff, and I'm looking for a gift.",
		Icon:   "shirt-outline",
	},
	{
		Text:   "Weekend Plans",
		Prompt: "Let's make weekend plans together. What should we do?",
		Icon:   "calendar-outline",
	},
}

// Default returns the fallback scenario.
func Default() Scenario {
	return Catalog[0]
}

// FindByPrompt looks up the scenario whose anchor prompt matches exactly.
func FindByPrompt(prompt string) (Scenario, bool) {
	for _, s := range Catalog {
		if s.Prompt == prompt {
			return s, true
		}
	}
	return Scenario{}, false
}

// Picker selects and persists the scenario of the day. A pick made on date D
// is stable for the rest of D.
type Picker struct {
	store  kv.Store
	logger *logger.Logger
}

// NewPicker creates a daily scenario picker over the given store.
func NewPicker(store kv.Store, log *logger.Logger) *Picker {
	return &Picker{store: store, logger: log}
}

// Daily returns the stored scenario for the date, picking and persisting a
// random one if none exists yet. Corrupt stored data is treated as absent.
func (p *Picker) Daily(ctx context.Context, date string) Scenario {
	key := dailyScenarioKeyPrefix + date

	if raw, err := p.store.Get(ctx, key); err == nil {
		var s Scenario
		if jsonErr := json.Unmarshal([]byte(raw), &s); jsonErr == nil && s.Prompt != "" {
			return s
		}
		p.logger.Warn("stored daily scenario is unreadable, repicking", zap.String("date", date))
	} else if err != kv.ErrNotFound {
		p.logger.Warn("failed to load daily scenario", zap.String("date", date), zap.Error(err))
	}

	picked := Catalog[rand.Intn(len(Catalog))]

	data, err := json.Marshal(picked)
	if err == nil {
		if err := p.store.Set(ctx, key, string(data)); err != nil {
			p.logger.Warn("failed to persist daily scenario", zap.String("date", date), zap.Error(err))
		}
	}
	return picked
}
