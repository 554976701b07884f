// Package sqlite stores tasks in an SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	sqlitedb "github.com/agalitsyn/sqlite"

	"github.com/agalitsyn/tareas/internal/storage/sqlite/migrations"
)

const MemoryPath = ":memory:"

// busyTimeout makes a connection wait for the write lock instead of failing with SQLITE_BUSY.
const busyTimeout = "_pragma=busy_timeout(5000)"

// Open connects to the database at path and applies pending migrations.
func Open(path string) (*sql.DB, error) {
	memory := path == MemoryPath || strings.Contains(path, "mode=memory")
	dsn := path
	if !memory {
		dsn = withParam(path, busyTimeout)
	}

	db, err := sqlitedb.Connect(dsn)
	if err != nil {
		return nil, err
	}

	// every connection to :memory: gets its own empty database
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := sqlitedb.MigrateUp(db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}
	return db, nil
}

func withParam(dsn, param string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}
