package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"pagemark/log"
	"pagemark/model"
	"pagemark/reconcile"
	"pagemark/util"
	"pagemark/version"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// The progress table is the local replica of the per-device progress map:
// one row per (book, device), session history and completed ranges stored as
// JSON payloads. Devices only ever write rows keyed by their own device id;
// rows for other devices arrive through the sync endpoints.

func (s *Store) GetProgressRecord(bookID, deviceID string) (*model.Progress, error) {
	stmt := `
	SELECT book_id, device_id, percentage, current_cfi, last_read, completed_ranges, reading_sessions
	FROM progress WHERE book_id = ? AND device_id = ?
	`
	progress, err := scanProgress(s.db.QueryRow(stmt, bookID, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get progress record")
	}
	return progress, nil
}

// ListBookRecords returns the full per-device map for one book, the snapshot
// the resolver runs over. Missing book means an empty map, not an error.
func (s *Store) ListBookRecords(bookID string) (map[string]*model.Progress, error) {
	stmt := `
	SELECT book_id, device_id, percentage, current_cfi, last_read, completed_ranges, reading_sessions
	FROM progress WHERE book_id = ?
	`
	rows, err := s.db.Query(stmt, bookID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list progress records")
	}
	defer rows.Close()

	records := make(map[string]*model.Progress)
	for rows.Next() {
		progress, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		records[progress.DeviceID] = progress
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate progress records")
	}
	return records, nil
}

// ForEachDevice calls fn for every device record of one book.
func (s *Store) ForEachDevice(bookID string, fn func(deviceID string, progress *model.Progress)) error {
	records, err := s.ListBookRecords(bookID)
	if err != nil {
		return err
	}
	for deviceID, progress := range records {
		fn(deviceID, progress)
	}
	return nil
}

// ResolveProgress returns the record the given device should treat as
// current for the book, or nil when no device has one.
func (s *Store) ResolveProgress(bookID, localDeviceID string) (*model.Progress, error) {
	records, err := s.ListBookRecords(bookID)
	if err != nil {
		return nil, err
	}
	return reconcile.Resolve(records, localDeviceID), nil
}

// UpdateLocation overwrites the device's resume position for a book,
// creating the record on first touch. History and completed ranges are not
// modified.
func (s *Store) UpdateLocation(bookID, deviceID, currentCfi string, percentage float64) (*model.Progress, error) {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	now := util.NowMs()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	progress, err := getProgressTx(tx, bookID, deviceID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = reconcile.NewProgress(bookID, deviceID)
	}
	reconcile.ApplyLocation(progress, currentCfi, percentage, now)

	if err := upsertProgressTx(tx, progress, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return progress, nil
}

// UpdateReadingSession performs a location update and folds the raw reading
// events into the device's session history as one transaction: a reader of
// the store sees both effects or neither.
func (s *Store) UpdateReadingSession(bookID, deviceID, currentCfi string, percentage float64, updates []model.RangeUpdate) (*model.Progress, error) {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	now := util.NowMs()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	progress, err := getProgressTx(tx, bookID, deviceID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = reconcile.NewProgress(bookID, deviceID)
	}
	reconcile.ApplyLocation(progress, currentCfi, percentage, now)
	reconcile.AppendUpdates(progress, updates, now)

	if err := upsertProgressTx(tx, progress, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return progress, nil
}

// ApplySyncRecord merges a record pushed from a device into the local
// replica. The pushing device owns its key, so whole-record last-write-wins
// on LastRead is sufficient; an older push is dropped. Returns whether the
// record was applied.
func (s *Store) ApplySyncRecord(record *model.SyncRecord) (bool, error) {
	if record.Progress == nil {
		return false, errors.New("sync record has no progress payload")
	}
	if record.Progress.DeviceID != record.DeviceID || record.Progress.BookID != record.BookID {
		return false, errors.Errorf("sync record keys do not match payload: %s/%s", record.BookID, record.DeviceID)
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	existing, err := getProgressTx(tx, record.BookID, record.DeviceID)
	if err != nil {
		return false, err
	}
	if existing != nil && existing.LastRead >= record.Progress.LastRead {
		log.Debug("Dropping stale sync record",
			zap.String("book_id", record.BookID),
			zap.String("device_id", record.DeviceID),
			zap.Int64("incoming_last_read", record.Progress.LastRead),
			zap.Int64("local_last_read", existing.LastRead),
		)
		return false, nil
	}

	if err := upsertProgressTx(tx, record.Progress, util.NowMs()); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// ListChangedRecords returns every record updated after the given timestamp,
// for incremental pulls.
func (s *Store) ListChangedRecords(sinceTs int64) ([]*model.SyncRecord, error) {
	stmt := `
	SELECT book_id, device_id, percentage, current_cfi, last_read, completed_ranges, reading_sessions, updated_ts
	FROM progress WHERE updated_ts > ? ORDER BY updated_ts
	`
	rows, err := s.db.Query(stmt, sinceTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list changed records")
	}
	defer rows.Close()

	list := make([]*model.SyncRecord, 0)
	for rows.Next() {
		progress := &model.Progress{}
		var completedRanges, readingSessions string
		var updatedTs int64
		if err := rows.Scan(
			&progress.BookID,
			&progress.DeviceID,
			&progress.Percentage,
			&progress.CurrentCfi,
			&progress.LastRead,
			&completedRanges,
			&readingSessions,
			&updatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan changed record")
		}
		if err := decodePayloads(progress, completedRanges, readingSessions); err != nil {
			return nil, err
		}
		list = append(list, &model.SyncRecord{
			BookID:    progress.BookID,
			DeviceID:  progress.DeviceID,
			UpdatedTs: updatedTs,
			Progress:  progress,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate changed records")
	}
	return list, nil
}

// MigrateAndPruneHistory drops pre-v2 single-timestamp sessions from every
// record across all books and devices, then bumps the stored progress schema
// version so the pass never runs again. Idempotent: a second call is a no-op.
// Returns the number of sessions dropped.
func (s *Store) MigrateAndPruneHistory() (int, error) {
	schema, err := s.GetSchemaSetting()
	if err != nil {
		return 0, err
	}
	if schema.ProgressSchemaVersion >= version.ProgressSchemaVersion {
		log.Debug("Progress schema already current",
			zap.Int("version", schema.ProgressSchemaVersion))
		return 0, nil
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt := `SELECT book_id, device_id, reading_sessions FROM progress`
	rows, err := tx.Query(stmt)
	if err != nil {
		return 0, errors.Wrap(err, "failed to scan progress records for migration")
	}

	type prunedRecord struct {
		bookID   string
		deviceID string
		sessions []*model.ReadingSession
	}
	var pruned []prunedRecord
	dropped := 0
	for rows.Next() {
		var bookID, deviceID, readingSessions string
		if err := rows.Scan(&bookID, &deviceID, &readingSessions); err != nil {
			rows.Close()
			return 0, errors.Wrap(err, "failed to scan record for migration")
		}
		progress := &model.Progress{}
		if err := decodePayloads(progress, "[]", readingSessions); err != nil {
			rows.Close()
			return 0, err
		}
		n := reconcile.PruneLegacySessions(progress)
		if n == 0 {
			continue
		}
		dropped += n
		pruned = append(pruned, prunedRecord{bookID, deviceID, progress.ReadingSessions})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, errors.Wrap(err, "failed to iterate records for migration")
	}
	rows.Close()

	for _, record := range pruned {
		payload, err := json.Marshal(record.sessions)
		if err != nil {
			return 0, errors.Wrap(err, "failed to marshal pruned sessions")
		}
		if _, err := tx.Exec(
			`UPDATE progress SET reading_sessions = ? WHERE book_id = ? AND device_id = ?`,
			string(payload), record.bookID, record.deviceID,
		); err != nil {
			return 0, errors.Wrap(err, "failed to write pruned sessions")
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if err := s.SetSchemaSetting(version.ProgressSchemaVersion); err != nil {
		return dropped, err
	}
	log.Info("Pruned legacy reading sessions",
		zap.Int("dropped", dropped),
		zap.Int("schema_version", version.ProgressSchemaVersion),
	)
	return dropped, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*model.Progress, error) {
	progress := &model.Progress{}
	var completedRanges, readingSessions string
	if err := row.Scan(
		&progress.BookID,
		&progress.DeviceID,
		&progress.Percentage,
		&progress.CurrentCfi,
		&progress.LastRead,
		&completedRanges,
		&readingSessions,
	); err != nil {
		return nil, err
	}
	if err := decodePayloads(progress, completedRanges, readingSessions); err != nil {
		return nil, err
	}
	return progress, nil
}

func decodePayloads(progress *model.Progress, completedRanges, readingSessions string) error {
	if err := json.Unmarshal([]byte(completedRanges), &progress.CompletedRanges); err != nil {
		return errors.Wrap(err, "failed to decode completed ranges")
	}
	if err := json.Unmarshal([]byte(readingSessions), &progress.ReadingSessions); err != nil {
		return errors.Wrap(err, "failed to decode reading sessions")
	}
	return nil
}

func getProgressTx(tx *sql.Tx, bookID, deviceID string) (*model.Progress, error) {
	stmt := `
	SELECT book_id, device_id, percentage, current_cfi, last_read, completed_ranges, reading_sessions
	FROM progress WHERE book_id = ? AND device_id = ?
	`
	progress, err := scanProgress(tx.QueryRow(stmt, bookID, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get progress record")
	}
	return progress, nil
}

func upsertProgressTx(tx *sql.Tx, progress *model.Progress, updatedTs int64) error {
	completedRanges, err := json.Marshal(progress.CompletedRanges)
	if err != nil {
		return errors.Wrap(err, "failed to marshal completed ranges")
	}
	readingSessions, err := json.Marshal(progress.ReadingSessions)
	if err != nil {
		return errors.Wrap(err, "failed to marshal reading sessions")
	}

	stmt := `
	INSERT INTO progress (
		book_id, device_id, percentage, current_cfi, last_read, completed_ranges, reading_sessions, updated_ts
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(book_id, device_id) DO UPDATE
	SET
		percentage = EXCLUDED.percentage,
		current_cfi = EXCLUDED.current_cfi,
		last_read = EXCLUDED.last_read,
		completed_ranges = EXCLUDED.completed_ranges,
		reading_sessions = EXCLUDED.reading_sessions,
		updated_ts = EXCLUDED.updated_ts
	`
	log.Debug("SQL query and args:")
	log.Fallback("Debug", fmt.Sprintf("query: %s\nargs: %s/%s\n", stmt, progress.BookID, progress.DeviceID))

	if _, err := tx.Exec(stmt,
		progress.BookID,
		progress.DeviceID,
		progress.Percentage,
		progress.CurrentCfi,
		progress.LastRead,
		string(completedRanges),
		string(readingSessions),
		updatedTs,
	); err != nil {
		return errors.Wrap(err, "failed to upsert progress record")
	}
	return nil
}
