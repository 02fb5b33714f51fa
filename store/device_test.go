package store

import (
	"database/sql"
	"os"
	"testing"

	"pagemark/model"

	_ "modernc.org/sqlite"
)

var testDeviceDb *sql.DB
var testDeviceDir string

func createDeviceTestDb() error {
	testDeviceDir = os.TempDir() + "/pagemark-test"
	if _, err := os.Stat(testDeviceDir); os.IsNotExist(err) {
		err := os.Mkdir(testDeviceDir, 0755)
		if err != nil {
			return err
		}
	}
	filename := testDeviceDir + "/test_for_device.db"
	os.Remove(filename)
	testDeviceDb, _ = sql.Open("sqlite", filename)
	return nil
}

func TestRegisterDevice(t *testing.T) {
	if createDeviceTestDb() != nil {
		t.Fatalf("Failed to create database")
	}
	defer os.Remove(testDeviceDir)
	applyLatestSchema(testDeviceDb)
	s := NewStore(testDeviceDb)

	user, err := s.CreateUser(&model.User{
		Username:     "test",
		PasswordHash: "test",
		Role:         model.RoleUser,
	})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	device, err := s.RegisterDevice(user.ID, "Pixel 8", "android")
	if err != nil {
		t.Fatalf("Failed to register device: %v", err)
	}
	if device.ID == "" {
		t.Fatal("Expected assigned device id")
	}

	// The id is stable: lookups return the same device.
	found, err := s.GetDevice(&model.FindDevice{ID: &device.ID})
	if err != nil {
		t.Fatalf("Failed to get device: %v", err)
	}
	if found == nil || found.ID != device.ID || found.Name != "Pixel 8" {
		t.Fatalf("Device mismatch: %+v", found)
	}

	// A second registration is a new installation with a new id.
	second, err := s.RegisterDevice(user.ID, "iPad", "ios")
	if err != nil {
		t.Fatalf("Failed to register device: %v", err)
	}
	if second.ID == device.ID {
		t.Fatal("Expected distinct device ids per registration")
	}

	list, err := s.ListDevices(&model.FindDevice{UserID: &user.ID})
	if err != nil {
		t.Fatalf("Failed to list devices: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 devices, got %d", len(list))
	}
}

func TestTouchDevice(t *testing.T) {
	if createDeviceTestDb() != nil {
		t.Fatalf("Failed to create database")
	}
	defer os.Remove(testDeviceDir)
	applyLatestSchema(testDeviceDb)
	s := NewStore(testDeviceDb)

	user, _ := s.CreateUser(&model.User{Username: "toucher", PasswordHash: "x", Role: model.RoleUser})
	device, _ := s.RegisterDevice(user.ID, "Kobo", "e-ink")

	if err := s.TouchDevice(device.ID); err != nil {
		t.Fatalf("Failed to touch device: %v", err)
	}
	if err := s.TouchDevice("no-such-device"); err == nil {
		t.Fatal("Expected error for unknown device")
	}
}
