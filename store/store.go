package store // import "pagemark/store"

import (
	"database/sql"
	"sync"
)

type Store struct {
	db *sql.DB
	// dbLock serializes read-modify-write cycles on progress records. Each
	// device only ever writes its own record, so this is coarse but cheap;
	// cross-device conflict freedom comes from the per-device keying, not
	// from locking.
	dbLock sync.Mutex

	UserCache          sync.Map // map[int32]*User
	DeviceCache        sync.Map // map[string]*Device
	SystemSettingCache sync.Map // map[string]*SystemSetting
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) DBStats() sql.DBStats {
	return s.db.Stats()
}

func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) Close() {
	//
}
