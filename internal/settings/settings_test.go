package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunatalk/lunatalk-server/internal/kv"
	"github.com/lunatalk/lunatalk-server/internal/model"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

func TestUserSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewService(kv.NewMemoryStore(), logger.NewNop())

	assert.Equal(t, model.UserSettings{}, svc.LoadUserSettings(ctx))

	saved := model.UserSettings{Username: "Kenji", ProfileImageURI: "file:///avatar.png"}
	require.NoError(t, svc.SaveUserSettings(ctx, saved))
	assert.Equal(t, saved, svc.LoadUserSettings(ctx))
}

func TestCorruptSettingsDegradeToEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "userSettings", "{broken"))

	svc := NewService(store, logger.NewNop())
	assert.Equal(t, model.UserSettings{}, svc.LoadUserSettings(ctx))
}

func TestSurveyAnswersPreserveUnknownKeys(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "surveyAnswers",
		`{"q3":"Romaji","username":"Kenji","futureQuestion":"yes"}`))

	svc := NewService(store, logger.NewNop())
	answers := svc.LoadSurveyAnswers(ctx)
	assert.Equal(t, "Romaji", answers.Q3)
	assert.Equal(t, "Kenji", answers.Username)
	require.Contains(t, answers.Extra, "futureQuestion")

	require.NoError(t, svc.SaveSurveyAnswers(ctx, answers))

	raw, err := store.Get(ctx, "surveyAnswers")
	require.NoError(t, err)
	assert.Contains(t, raw, "futureQuestion")
}

func TestUsernamePrefersProfileOverSurvey(t *testing.T) {
	ctx := context.Background()
	svc := NewService(kv.NewMemoryStore(), logger.NewNop())

	assert.Empty(t, svc.Username(ctx))

	require.NoError(t, svc.SaveSurveyAnswers(ctx, model.SurveyAnswers{Username: "survey-name"}))
	assert.Equal(t, "survey-name", svc.Username(ctx))

	require.NoError(t, svc.SaveUserSettings(ctx, model.UserSettings{Username: "profile-name"}))
	assert.Equal(t, "profile-name", svc.Username(ctx))
}

func TestCharacterLevelValue(t *testing.T) {
	ctx := context.Background()
	svc := NewService(kv.NewMemoryStore(), logger.NewNop())

	assert.Empty(t, svc.CharacterLevelValue(ctx))

	require.NoError(t, svc.SaveSurveyAnswers(ctx, model.SurveyAnswers{Q3: "Katakana"}))
	assert.Equal(t, "Katakana", svc.CharacterLevelValue(ctx))
}
