package store

import (
	"database/sql"
	"strings"

	"pagemark/model"
	"pagemark/util"

	"github.com/pkg/errors"
)

// RegisterDevice assigns a stable id to a new installation and stores it.
// The id is the key all of the device's progress records live under, so it
// is generated exactly once here and never reused.
func (s *Store) RegisterDevice(userID int32, name, platform string) (*model.Device, error) {
	now := util.NowMs()
	device := &model.Device{
		ID:         util.GenUUID(),
		UserID:     userID,
		Name:       name,
		Platform:   platform,
		CreatedTs:  now,
		LastSeenTs: now,
	}

	stmt := `
	INSERT INTO device (id, user_id, name, platform, created_ts, last_seen_ts)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.Exec(stmt,
		device.ID, device.UserID, device.Name, device.Platform, device.CreatedTs, device.LastSeenTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to register device")
	}

	s.DeviceCache.Store(device.ID, device)
	return device, nil
}

func (s *Store) GetDevice(find *model.FindDevice) (*model.Device, error) {
	if find.ID != nil {
		if cache, ok := s.DeviceCache.Load(*find.ID); ok {
			return cache.(*model.Device), nil
		}
	}

	list, err := s.ListDevices(find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	device := list[0]
	s.DeviceCache.Store(device.ID, device)
	return device, nil
}

func (s *Store) ListDevices(find *model.FindDevice) ([]*model.Device, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = ?"), append(args, *v)
	}

	query := `
	SELECT
		id,
		user_id,
		name,
		platform,
		created_ts,
		last_seen_ts
	FROM device
	WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}
	defer rows.Close()

	list := make([]*model.Device, 0)
	for rows.Next() {
		var device model.Device
		if err := rows.Scan(
			&device.ID,
			&device.UserID,
			&device.Name,
			&device.Platform,
			&device.CreatedTs,
			&device.LastSeenTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan device")
		}
		list = append(list, &device)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate devices")
	}
	return list, nil
}

// TouchDevice bumps the device's last-seen timestamp.
func (s *Store) TouchDevice(deviceID string) error {
	stmt := `UPDATE device SET last_seen_ts = ? WHERE id = ?`
	result, err := s.db.Exec(stmt, util.NowMs(), deviceID)
	if err != nil {
		return errors.Wrap(err, "failed to touch device")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	s.DeviceCache.Delete(deviceID)
	return nil
}
