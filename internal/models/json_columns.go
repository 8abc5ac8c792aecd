package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON documents are stored as TEXT so the same schema runs on postgres and sqlite.

func scanJSON(src interface{}, dest interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("json column: unsupported type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func jsonValue(v interface{}) (driver.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

type StringList []string

func (l *StringList) Scan(src interface{}) error {
	*l = StringList{}
	return scanJSON(src, (*[]string)(l))
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue([]string(l))
}

type JSONMap map[string]interface{}

func (m *JSONMap) Scan(src interface{}) error {
	*m = JSONMap{}
	return scanJSON(src, (*map[string]interface{})(m))
}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return jsonValue(map[string]interface{}(m))
}

// RawJSON keeps an opaque document verbatim, e.g. upstream AI payloads.
type RawJSON json.RawMessage

func (r *RawJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append(RawJSON(nil), v...)
	case string:
		*r = RawJSON(v)
	default:
		return fmt.Errorf("json column: unsupported type %T", src)
	}
	return nil
}

func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "null", nil
	}
	if !json.Valid(r) {
		return nil, fmt.Errorf("json column: invalid document")
	}
	return string(r), nil
}

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawJSON) UnmarshalJSON(data []byte) error {
	*r = append(RawJSON(nil), data...)
	return nil
}

// FeatureSet is the entitlement document stored on a subscription.
type FeatureSet map[string]bool

func (f *FeatureSet) Scan(src interface{}) error {
	*f = FeatureSet{}
	return scanJSON(src, (*map[string]bool)(f))
}

func (f FeatureSet) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	return jsonValue(map[string]bool(f))
}

type Goals struct {
	PrimaryGoal     string `json:"primaryGoal"`
	WeeklyWorkouts  int    `json:"weeklyWorkouts"`
	ExperienceLevel string `json:"experienceLevel"`
}

type Preferences struct {
	Units         string `json:"units"`
	Notifications bool   `json:"notifications"`
	VoiceCoaching bool   `json:"voiceCoaching"`
	FormAnalysis  bool   `json:"formAnalysis"`
	Goals         Goals  `json:"goals"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Units:         "metric",
		Notifications: true,
		VoiceCoaching: true,
		FormAnalysis:  true,
		Goals: Goals{
			PrimaryGoal:     "general_fitness",
			WeeklyWorkouts:  3,
			ExperienceLevel: "beginner",
		},
	}
}

func (p *Preferences) Scan(src interface{}) error {
	*p = DefaultPreferences()
	return scanJSON(src, p)
}

func (p Preferences) Value() (driver.Value, error) {
	return jsonValue(p)
}

type UserStats struct {
	TotalWorkouts int     `json:"totalWorkouts"`
	TotalMinutes  int     `json:"totalMinutes"`
	CurrentStreak int     `json:"currentStreak"`
	LongestStreak int     `json:"longestStreak"`
	AverageRating float64 `json:"averageRating"`
}

func (s *UserStats) Scan(src interface{}) error {
	*s = UserStats{}
	return scanJSON(src, s)
}

func (s UserStats) Value() (driver.Value, error) {
	return jsonValue(s)
}
