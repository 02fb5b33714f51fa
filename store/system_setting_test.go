package store

import (
	"database/sql"
	"os"
	"testing"

	_ "modernc.org/sqlite"
)

var testSysSettingDb *sql.DB
var testSysSettingDir string

func createSysSettingTestDb() error {
	testSysSettingDir = os.TempDir() + "/pagemark-test"
	// Create a directory if not exists
	if _, err := os.Stat(testSysSettingDir); os.IsNotExist(err) {
		err := os.Mkdir(testSysSettingDir, 0755)
		if err != nil {
			return err
		}
	}
	filename := testSysSettingDir + "/test_for_system_setting.db"
	os.Remove(filename)
	testSysSettingDb, _ = sql.Open("sqlite", filename)
	return nil
}

func TestGetOrUpsetSystemSetting(t *testing.T) {
	if err := createSysSettingTestDb(); err != nil {
		t.Fatalf("Failed to create db: %v", err)
	}
	defer os.Remove(testSysSettingDir)
	applyLatestSchema(testSysSettingDb)
	s := NewStore(testSysSettingDb)
	system, err := s.GetOrUpsetSystemSecuritySetting()
	if err != nil {
		t.Fatalf("Failed to create system setting: %v", err)
	}
	t.Logf("System setting: %s", system.ToJSON())
	if system.JWTSecret == "" {
		t.Fatalf("JWT secret is empty")
	}

	// The secret is stable across calls.
	again, err := s.GetOrUpsetSystemSecuritySetting()
	if err != nil {
		t.Fatalf("Failed to get system setting: %v", err)
	}
	if again.JWTSecret != system.JWTSecret {
		t.Fatalf("JWT secret changed between calls")
	}
}

func TestSchemaSettingDefaultsToVersionOne(t *testing.T) {
	if err := createSysSettingTestDb(); err != nil {
		t.Fatalf("Failed to create db: %v", err)
	}
	defer os.Remove(testSysSettingDir)
	applyLatestSchema(testSysSettingDb)
	s := NewStore(testSysSettingDb)

	schema, err := s.GetSchemaSetting()
	if err != nil {
		t.Fatalf("Failed to get schema setting: %v", err)
	}
	if schema.ProgressSchemaVersion != 1 {
		t.Fatalf("Expected version 1 before migration, got %d", schema.ProgressSchemaVersion)
	}

	if err := s.SetSchemaSetting(2); err != nil {
		t.Fatalf("Failed to set schema setting: %v", err)
	}
	schema, err = s.GetSchemaSetting()
	if err != nil {
		t.Fatalf("Failed to get schema setting: %v", err)
	}
	if schema.ProgressSchemaVersion != 2 {
		t.Fatalf("Expected version 2, got %d", schema.ProgressSchemaVersion)
	}
}
