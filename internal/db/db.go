package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// TimeLayout is the storage format for every timestamp column. It matches
// CURRENT_TIMESTAMP, so stored values compare correctly as text.
const TimeLayout = "2006-01-02 15:04:05"

// pragmas are applied by the driver to every new connection in the pool.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

// DSN builds the modernc sqlite connection string for path. Transactions
// begin IMMEDIATE so a writer takes the lock up front and waits on
// busy_timeout instead of failing when another connection holds it.
func DSN(path string) string {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	params := url.Values{"_pragma": pragmas, "_txlock": {"immediate"}}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}

// Open opens a SQLite database with the connection pragmas set.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// Timestamp formats t for storage in UTC with second precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NullTimestamp is Timestamp for optional values.
func NullTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return Timestamp(*t)
}
