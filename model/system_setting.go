package model //import "pagemark/model"

import (
	"encoding/json"
	"strconv"
)

const (
	SettingTypeGeneral  = "SETTINGS_GENERAL"
	SettingTypeSecurity = "SETTINGS_SECURITY"
	// SettingTypeSchema holds the progress record schema version; the legacy
	// history migration bumps it so the pass runs once.
	SettingTypeSchema = "SETTINGS_SCHEMA"
)

type SystemSetting struct {
	Name        string `json:"name,omitempty"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
}

type SystemSettingGeneral struct {
	DisableSignup bool `json:"disallow_registration"`
}

func (s *SystemSettingGeneral) ToJSON() string {
	b, _ := json.Marshal(s)
	return string(b)
}

type SystemSettingSecurity struct {
	JWTSecret string `json:"jwt_secret,omitempty"`
}

func (s *SystemSettingSecurity) ToJSON() string {
	b, _ := json.Marshal(s)
	return string(b)
}

type SystemSettingSchema struct {
	ProgressSchemaVersion int `json:"progress_schema_version"`
}

func (s *SystemSettingSchema) ToJSON() string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (s *SystemSetting) GetGeneral() (*SystemSettingGeneral, error) {
	var general SystemSettingGeneral
	err := json.Unmarshal([]byte(s.Value), &general)
	if err != nil {
		return nil, err
	}
	return &general, nil
}

func (s *SystemSetting) GetSecurity() (*SystemSettingSecurity, error) {
	var security SystemSettingSecurity
	err := json.Unmarshal([]byte(s.Value), &security)
	if err != nil {
		return nil, err
	}
	return &security, nil
}

func (s *SystemSetting) GetSchema() (*SystemSettingSchema, error) {
	var schema SystemSettingSchema
	err := json.Unmarshal([]byte(s.Value), &schema)
	if err != nil {
		return nil, err
	}
	return &schema, nil
}

func (s *SystemSettingSchema) String() string {
	return strconv.Itoa(s.ProgressSchemaVersion)
}
