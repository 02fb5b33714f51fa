package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"pagemark/config"
	"pagemark/log"
	"pagemark/model"
	"pagemark/version"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	latestSchemaFileName = "LATEST_SCHEMA.sql"
)

var testProgressDb *sql.DB
var testProgressDir string

// Initialize the logger and config
func init() {
	config.Opts = config.GetDefaultOptions()
	log.Logger = log.NewLogger()
}

//go:embed db/migration
var migrationFS embed.FS

func applyLatestSchema(db *sql.DB) error {
	// Read latest schema file
	latestSchemaPath := fmt.Sprintf("db/migration/%s", latestSchemaFileName)
	buf, err := migrationFS.ReadFile(latestSchemaPath)
	if err != nil {
		return errors.Wrapf(err, "Failed to read latest schema file: %q", latestSchemaPath)
	}

	stmt := string(buf)
	if err := execute(stmt, db); err != nil {
		return errors.Wrapf(err, "Failed to apply latest schema: %s", stmt)
	}
	return nil
}

func execute(stmt string, d *sql.DB) error {
	tx, err := d.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(stmt); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to execute statement")
	}

	return tx.Commit()
}

func createProgressTestDb(name string) error {
	testProgressDir = os.TempDir() + "/pagemark-test"
	// Create a directory if not exists
	if _, err := os.Stat(testProgressDir); os.IsNotExist(err) {
		err := os.Mkdir(testProgressDir, 0755)
		if err != nil {
			return err
		}
	}
	filename := fmt.Sprintf("%s/%s.db", testProgressDir, name)
	os.Remove(filename)
	testProgressDb, _ = sql.Open("sqlite", filename)
	return nil
}

func TestUpdateLocationCreatesRecord(t *testing.T) {
	if createProgressTestDb("test_for_location") != nil {
		t.Fatalf("Failed to create database")
	}
	defer os.RemoveAll(testProgressDir)
	applyLatestSchema(testProgressDb)
	s := NewStore(testProgressDb)

	progress, err := s.UpdateLocation("b1", "dev-a", "epubcfi(/6/14!/4/2/2/1:50)", 0.25)
	if err != nil {
		t.Fatalf("Failed to update location: %v", err)
	}
	if progress.Percentage != 0.25 || progress.CurrentCfi != "epubcfi(/6/14!/4/2/2/1:50)" {
		t.Errorf("Unexpected record: %+v", progress)
	}
	if progress.LastRead == 0 {
		t.Error("Expected last read timestamp to be set")
	}
	if len(progress.CompletedRanges) != 0 || len(progress.ReadingSessions) != 0 {
		t.Error("Location update must not touch history")
	}

	// Round trip through sqlite.
	stored, err := s.GetProgressRecord("b1", "dev-a")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if stored == nil || stored.Percentage != 0.25 {
		t.Fatalf("Stored record mismatch: %+v", stored)
	}

	// Missing records are data, not errors.
	missing, err := s.GetProgressRecord("b1", "dev-unknown")
	if err != nil {
		t.Fatalf("Expected no error for missing record, got %v", err)
	}
	if missing != nil {
		t.Fatalf("Expected nil for missing record, got %+v", missing)
	}
}

func TestUpdateReadingSessionAtomic(t *testing.T) {
	if createProgressTestDb("test_for_session") != nil {
		t.Fatalf("Failed to create database")
	}
	defer os.RemoveAll(testProgressDir)
	applyLatestSchema(testProgressDb)
	s := NewStore(testProgressDb)

	updates := []model.RangeUpdate{
		{Range: "epubcfi(/6/14!/4/2,/2/2/1:0,/2/4/1:120)", Type: model.SessionTypePage},
	}
	progress, err := s.UpdateReadingSession("b1", "dev-a", "epubcfi(/6/14!/4/2/4/1:120)", 0.12, updates)
	if err != nil {
		t.Fatalf("Failed to update reading session: %v", err)
	}
	if len(progress.ReadingSessions) != 1 || len(progress.CompletedRanges) != 1 {
		t.Fatalf("Expected session and completed range, got %+v", progress)
	}

	// Any reader sees both the location and history effects together.
	stored, err := s.GetProgressRecord("b1", "dev-a")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if stored.Percentage != 0.12 || len(stored.ReadingSessions) != 1 {
		t.Fatalf("Location and history not visible together: %+v", stored)
	}

	// Same range again within the window stays one session with one range.
	if _, err := s.UpdateReadingSession("b1", "dev-a", "epubcfi(/6/14!/4/2/4/1:120)", 0.12, updates); err != nil {
		t.Fatalf("Failed to update reading session: %v", err)
	}
	stored, _ = s.GetProgressRecord("b1", "dev-a")
	if len(stored.ReadingSessions) != 1 {
		t.Fatalf("Expected merged session, got %d", len(stored.ReadingSessions))
	}
	if ranges := stored.ReadingSessions[0].CfiRanges; len(ranges) != 1 {
		t.Fatalf("Expected deduplicated session ranges, got %v", ranges)
	}
}

func TestResolveProgressAcrossDevices(t *testing.T) {
	if createProgressTestDb("test_for_resolve") != nil {
		t.Fatalf("Failed to create database")
	}
	defer os.RemoveAll(testProgressDir)
	applyLatestSchema(testProgressDb)
	s := NewStore(testProgressDb)

	if resolved, err := s.ResolveProgress("b1", "dev-b"); err != nil || resolved != nil {
		t.Fatalf("Expected nil for unknown book, got %+v, %v", resolved, err)
	}

	// Device A reads to 50%; device B has no record: handoff to A's record.
	if _, err := s.UpdateLocation("b1", "dev-a", "X", 0.5); err != nil {
		t.Fatalf("Failed to update location: %v", err)
	}
	resolved, err := s.ResolveProgress("b1", "dev-b")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if resolved == nil || resolved.DeviceID != "dev-a" || resolved.Percentage != 0.5 {
		t.Fatalf("Expected handoff to dev-a, got %+v", resolved)
	}

	// Device B starts reading meaningfully; its own record now wins on B.
	if _, err := s.UpdateLocation("b1", "dev-b", "Y", 0.1); err != nil {
		t.Fatalf("Failed to update location: %v", err)
	}
	resolved, _ = s.ResolveProgress("b1", "dev-b")
	if resolved == nil || resolved.DeviceID != "dev-b" {
		t.Fatalf("Expected local stickiness on dev-b, got %+v", resolved)
	}
	// And dev-a keeps its own as well.
	resolved, _ = s.ResolveProgress("b1", "dev-a")
	if resolved == nil || resolved.DeviceID != "dev-a" {
		t.Fatalf("Expected local stickiness on dev-a, got %+v", resolved)
	}
}

func TestForEachDevice(t *testing.T) {
	if createProgressTestDb("test_for_each_device") != nil {
		t.Fatalf("Failed to create database")
	}
	defer os.RemoveAll(testProgressDir)
	applyLatestSchema(testProgressDb)
	s := NewStore(testProgressDb)

	s.UpdateLocation("b1", "dev-a", "X", 0.5)
	s.UpdateLocation("b1", "dev-b", "Y", 0.7)
	s.UpdateLocation("b2", "dev-a", "Z", 0.1)

	seen := map[string]bool{}
	err := s.ForEachDevice("b1", func(deviceID string, progress *model.Progress) {
		seen[deviceID] = true
	})
	if err != nil {
		t.Fatalf("Failed to iterate devices: %v", err)
	}
	if len(seen) != 2 || !seen["dev-a"] || !seen["dev-b"] {
		t.Fatalf("Expected dev-a and dev-b for b1, got %v", seen)
	}
}

func TestApplySyncRecordLastWriteWins(t *testing.T) {
	if createProgressTestDb("test_for_sync_apply") != nil {
		t.Fatalf("Failed to create database")
	}
	defer os.RemoveAll(testProgressDir)
	applyLatestSchema(testProgressDb)
	s := NewStore(testProgressDb)

	record := &model.SyncRecord{
		BookID:   "b1",
		DeviceID: "dev-remote",
		Progress: &model.Progress{
			BookID:          "b1",
			DeviceID:        "dev-remote",
			Percentage:      0.4,
			CurrentCfi:      "X",
			LastRead:        1000,
			CompletedRanges: []string{},
		},
	}
	applied, err := s.ApplySyncRecord(record)
	if err != nil || !applied {
		t.Fatalf("Expected record applied, got %v, %v", applied, err)
	}

	// An older push for the same device key is dropped.
	stale := &model.SyncRecord{
		BookID:   "b1",
		DeviceID: "dev-remote",
		Progress: &model.Progress{
			BookID:     "b1",
			DeviceID:   "dev-remote",
			Percentage: 0.2,
			CurrentCfi: "W",
			LastRead:   500,
		},
	}
	applied, err = s.ApplySyncRecord(stale)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if applied {
		t.Fatal("Expected stale record to be dropped")
	}
	stored, _ := s.GetProgressRecord("b1", "dev-remote")
	if stored.Percentage != 0.4 {
		t.Fatalf("Stale record overwrote newer state: %+v", stored)
	}

	// Mismatched keys are rejected.
	bogus := &model.SyncRecord{
		BookID:   "b1",
		DeviceID: "dev-other",
		Progress: stale.Progress,
	}
	if _, err := s.ApplySyncRecord(bogus); err == nil {
		t.Fatal("Expected key mismatch error")
	}
}

func TestListChangedRecords(t *testing.T) {
	if createProgressTestDb("test_for_changed") != nil {
		t.Fatalf("Failed to create database")
	}
	defer os.RemoveAll(testProgressDir)
	applyLatestSchema(testProgressDb)
	s := NewStore(testProgressDb)

	s.UpdateLocation("b1", "dev-a", "X", 0.5)
	s.UpdateLocation("b2", "dev-a", "Y", 0.7)

	list, err := s.ListChangedRecords(0)
	if err != nil {
		t.Fatalf("Failed to list changed records: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 changed records, got %d", len(list))
	}
	// Nothing changed after the newest update.
	newest := list[len(list)-1].UpdatedTs
	list, _ = s.ListChangedRecords(newest)
	if len(list) != 0 {
		t.Fatalf("Expected no records after newest timestamp, got %d", len(list))
	}
}

func TestMigrateAndPruneHistory(t *testing.T) {
	if createProgressTestDb("test_for_migrate") != nil {
		t.Fatalf("Failed to create database")
	}
	defer os.RemoveAll(testProgressDir)
	applyLatestSchema(testProgressDb)
	s := NewStore(testProgressDb)

	// One legacy single-timestamp session and one well-formed session.
	sessions := []*model.ReadingSession{
		{Timestamp: 1000, CfiRange: "old-range", Type: model.SessionTypePage},
		{CfiRanges: []string{"epubcfi(/6/14!/4/2,/2/2/1:0,/2/4/1:120)"}, StartTime: 2000, EndTime: 3000, Type: model.SessionTypePage},
	}
	payload, _ := json.Marshal(sessions)
	if _, err := testProgressDb.Exec(
		`INSERT INTO progress (book_id, device_id, percentage, current_cfi, last_read, completed_ranges, reading_sessions, updated_ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"b1", "dev-a", 0.5, "X", 1000, "[]", string(payload), 1000,
	); err != nil {
		t.Fatalf("Failed to insert record: %v", err)
	}

	dropped, err := s.MigrateAndPruneHistory()
	if err != nil {
		t.Fatalf("Migration failed: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("Expected 1 dropped session, got %d", dropped)
	}

	stored, _ := s.GetProgressRecord("b1", "dev-a")
	if len(stored.ReadingSessions) != 1 || stored.ReadingSessions[0].StartTime != 2000 {
		t.Fatalf("Expected only the well-formed session, got %+v", stored.ReadingSessions)
	}

	schema, err := s.GetSchemaSetting()
	if err != nil {
		t.Fatalf("Failed to get schema setting: %v", err)
	}
	if schema.ProgressSchemaVersion != version.ProgressSchemaVersion {
		t.Fatalf("Expected schema version bump to %d, got %d", version.ProgressSchemaVersion, schema.ProgressSchemaVersion)
	}

	// Second run is a no-op.
	dropped, err = s.MigrateAndPruneHistory()
	if err != nil {
		t.Fatalf("Second migration failed: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("Expected idempotent migration, dropped %d", dropped)
	}
}

func TestSyncLog(t *testing.T) {
	if createProgressTestDb("test_for_sync_log") != nil {
		t.Fatalf("Failed to create database")
	}
	defer os.RemoveAll(testProgressDir)
	applyLatestSchema(testProgressDb)
	s := NewStore(testProgressDb)

	for i := 1; i <= 3; i++ {
		if _, err := s.AddSyncLog(model.Job{
			UserID:    1,
			BookID:    "b1",
			DeviceID:  "dev-a",
			Type:      model.JobTypeSyncLog,
			UpdatedTs: int64(i * 100),
		}); err != nil {
			t.Fatalf("Failed to add sync log: %v", err)
		}
	}

	list, err := s.ListSyncLog(100)
	if err != nil {
		t.Fatalf("Failed to list sync log: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 entries after ts 100, got %d", len(list))
	}

	pruned, err := s.PruneSyncLog(250)
	if err != nil {
		t.Fatalf("Failed to prune sync log: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("Expected 2 pruned entries, got %d", pruned)
	}
}
