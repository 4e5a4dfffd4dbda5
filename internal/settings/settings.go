// Package settings reads and writes the user settings and survey answer
// blobs from the persisted store.
package settings

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/internal/kv"
	"github.com/lunatalk/lunatalk-server/internal/model"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

const (
	userSettingsKey  = "userSettings"
	surveyAnswersKey = "surveyAnswers"
)

// Service loads and stores user preferences. Reads degrade to zero values on
// absent or unreadable data.
type Service struct {
	store  kv.Store
	logger *logger.Logger
}

// NewService creates a settings service over the given store.
func NewService(store kv.Store, log *logger.Logger) *Service {
	return &Service{store: store, logger: log}
}

// LoadUserSettings reads the userSettings blob; absent or corrupt data yields
// an empty settings struct.
func (s *Service) LoadUserSettings(ctx context.Context) model.UserSettings {
	var settings model.UserSettings
	raw, err := s.store.Get(ctx, userSettingsKey)
	if err != nil {
		if err != kv.ErrNotFound {
			s.logger.Warn("failed to load user settings", zap.Error(err))
		}
		return settings
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.logger.Warn("user settings blob is unreadable", zap.Error(err))
		return model.UserSettings{}
	}
	return settings
}

// SaveUserSettings persists the userSettings blob.
func (s *Service) SaveUserSettings(ctx context.Context, settings model.UserSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, userSettingsKey, string(data))
}

// LoadSurveyAnswers reads the surveyAnswers blob; absent or corrupt data
// yields empty answers. Unrecognized keys survive in the Extra map.
func (s *Service) LoadSurveyAnswers(ctx context.Context) model.SurveyAnswers {
	var answers model.SurveyAnswers
	raw, err := s.store.Get(ctx, surveyAnswersKey)
	if err != nil {
		if err != kv.ErrNotFound {
			s.logger.Warn("failed to load survey answers", zap.Error(err))
		}
		return answers
	}
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		s.logger.Warn("survey answers blob is unreadable", zap.Error(err))
		return model.SurveyAnswers{}
	}
	return answers
}

// SaveSurveyAnswers persists the surveyAnswers blob, extra keys included.
func (s *Service) SaveSurveyAnswers(ctx context.Context, answers model.SurveyAnswers) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, surveyAnswersKey, string(data))
}

// CharacterLevelValue returns the stored character-level choice (survey q3),
// empty when unset.
func (s *Service) CharacterLevelValue(ctx context.Context) string {
	return s.LoadSurveyAnswers(ctx).Q3
}

// Username resolves the display name, preferring the profile setting over the
// survey answer.
func (s *Service) Username(ctx context.Context) string {
	if name := s.LoadUserSettings(ctx).Username; name != "" {
		return name
	}
	return s.LoadSurveyAnswers(ctx).Username
}
