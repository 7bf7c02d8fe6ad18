package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection for the vault database, which holds both
// the live chat/message tables and the archive tables so an archive
// operation can move rows between them in one transaction.
type DB struct {
	*sql.DB
	mapper *Mapper
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string, mapper *Mapper) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db, mapper: mapper}, nil
}
