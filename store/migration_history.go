package store

// MigrationHistory is a record of an applied schema migration of the sqlite
// database. Not to be confused with the progress record schema version in
// system settings, which tracks the shape of replicated progress payloads.
type MigrationHistory struct {
	Version   string
	CreatedTs int64
}

type UpsertMigrationHistory struct {
	Version string
}

type FindMigrationHistory struct {
}
