package store

import (
	"database/sql"

	"pagemark/log"
	"pagemark/model"
	"pagemark/util"

	"github.com/pkg/errors"
)

func (s *Store) GetSystemSetting(name string) (*model.SystemSetting, error) {
	if cache, ok := s.SystemSettingCache.Load(name); ok {
		return cache.(*model.SystemSetting), nil
	}

	setting := &model.SystemSetting{}
	stmt := `
    SELECT * FROM system_setting WHERE name = ?
	`
	if err := s.db.QueryRow(stmt, name).Scan(&setting.Name, &setting.Value, &setting.Description); err != nil {
		return nil, errors.Wrap(err, "failed to get system setting")
	}

	return setting, nil
}

func (s *Store) GetSystemGeneralSetting() (*model.SystemSettingGeneral, error) {
	systemSetting, err := s.GetSystemSetting(model.SettingTypeGeneral)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get system general setting")
	}
	generalSetting, err := systemSetting.GetGeneral()
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal system general setting")
	}
	return generalSetting, nil
}

func (s *Store) UpsetSystemSetting(setting *model.SystemSetting) (*model.SystemSetting, error) {
	newSetting := &model.SystemSetting{
		Name:        setting.Name,
		Value:       setting.Value,
		Description: setting.Description,
	}
	switch setting.Name {
	case model.SettingTypeGeneral, model.SettingTypeSecurity, model.SettingTypeSchema:
	default:
		return nil, errors.Errorf("Unsupported system setting key: %v", setting.Name)
	}

	stmt := `
	INSERT INTO system_setting (
		name, value, description
	)
	VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE
	SET
		value = EXCLUDED.value,
		description = EXCLUDED.description
	`
	if _, err := s.db.Exec(stmt, newSetting.Name, newSetting.Value, newSetting.Description); err != nil {
		return nil, errors.Wrap(err, "failed to insert/update system setting")
	}
	s.SystemSettingCache.Store(newSetting.Name, newSetting)
	return newSetting, nil
}

// GetOrUpsetSystemSecuritySetting returns the security settings, generating
// and persisting a JWT secret on first use.
func (s *Store) GetOrUpsetSystemSecuritySetting() (*model.SystemSettingSecurity, error) {
	systemSetting, err := s.GetSystemSetting(model.SettingTypeSecurity)
	modified := false
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("SQL no rows, create security setting")
			modified = true
		} else {
			return nil, errors.Wrap(err, "failed to get security settings")
		}
	}

	securitySetting := &model.SystemSettingSecurity{}
	if systemSetting != nil {
		parsed, err := systemSetting.GetSecurity()
		if err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal security settings")
		}
		securitySetting = parsed
	}

	if securitySetting.JWTSecret == "" {
		modified = true
	}

	if modified {
		securitySetting = &model.SystemSettingSecurity{
			JWTSecret: util.GenUUID(),
		}
		_, err := s.UpsetSystemSetting(&model.SystemSetting{
			Name:        model.SettingTypeSecurity,
			Value:       securitySetting.ToJSON(),
			Description: "Security settings",
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create security settings")
		}
	}
	return securitySetting, nil
}

// GetSchemaSetting returns the stored progress schema version. Records
// written before the setting existed are version 1.
func (s *Store) GetSchemaSetting() (*model.SystemSettingSchema, error) {
	systemSetting, err := s.GetSystemSetting(model.SettingTypeSchema)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.SystemSettingSchema{ProgressSchemaVersion: 1}, nil
		}
		return nil, errors.Wrap(err, "failed to get schema setting")
	}
	schemaSetting, err := systemSetting.GetSchema()
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal schema setting")
	}
	return schemaSetting, nil
}

func (s *Store) SetSchemaSetting(progressSchemaVersion int) error {
	schemaSetting := &model.SystemSettingSchema{ProgressSchemaVersion: progressSchemaVersion}
	_, err := s.UpsetSystemSetting(&model.SystemSetting{
		Name:        model.SettingTypeSchema,
		Value:       schemaSetting.ToJSON(),
		Description: "Progress record schema version",
	})
	return err
}
