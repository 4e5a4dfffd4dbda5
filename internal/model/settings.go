package model

import (
	"encoding/json"
)

// UserSettings holds the profile preferences stored under the userSettings key.
type UserSettings struct {
	Username        string `json:"username,omitempty"`
	ProfileImageURI string `json:"profileImageUri,omitempty"`
}

// SurveyAnswers holds the onboarding survey blob stored under the
// surveyAnswers key. Q3 carries the character-level choice. Keys the service
// does not recognize survive round-trips through Extra.
type SurveyAnswers struct {
	Q1       string   `json:"-"`
	Q2       []string `json:"-"`
	Q3       string   `json:"-"`
	Username string   `json:"-"`

	Extra map[string]json.RawMessage `json:"-"`
}

type surveyKnown struct {
	Q1       string   `json:"q1,omitempty"`
	Q2       []string `json:"q2,omitempty"`
	Q3       string   `json:"q3,omitempty"`
	Username string   `json:"username,omitempty"`
}

// UnmarshalJSON splits the blob into the named fields and the Extra map.
func (s *SurveyAnswers) UnmarshalJSON(data []byte) error {
	var known surveyKnown
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "q1")
	delete(raw, "q2")
	delete(raw, "q3")
	delete(raw, "username")

	s.Q1 = known.Q1
	s.Q2 = known.Q2
	s.Q3 = known.Q3
	s.Username = known.Username
	if len(raw) > 0 {
		s.Extra = raw
	} else {
		s.Extra = nil
	}
	return nil
}

// MarshalJSON merges the named fields back with the Extra map.
func (s SurveyAnswers) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(surveyKnown{
		Q1:       s.Q1,
		Q2:       s.Q2,
		Q3:       s.Q3,
		Username: s.Username,
	})
	if err != nil {
		return nil, err
	}

	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range s.Extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
