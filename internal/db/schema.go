package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS locations (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    kind       TEXT NOT NULL CHECK (kind IN ('room', 'closet', 'storage')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS items (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    description   TEXT,
    season        TEXT NOT NULL CHECK (season IN ('WINTER', 'SPRING_AUTUMN', 'SUMMER')),
    status        TEXT NOT NULL DEFAULT 'AVAILABLE'
                  CHECK (status IN ('AVAILABLE', 'IN_USE', 'STORAGE', 'MAINTENANCE')),
    weight_grams  REAL NOT NULL DEFAULT 0 CHECK (weight_grams >= 0),
    fill_material TEXT,
    color         TEXT,
    location_id   INTEGER REFERENCES locations(id),
    image         BLOB,
    image_mime    TEXT,
    thumbnail     BLOB,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE TABLE IF NOT EXISTS moves (
    id               INTEGER PRIMARY KEY,
    item_id          INTEGER NOT NULL REFERENCES items(id),
    from_location_id INTEGER REFERENCES locations(id),
    to_location_id   INTEGER NOT NULL REFERENCES locations(id),
    notes            TEXT,
    moved_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS open_usages (
    id           INTEGER PRIMARY KEY,
    item_id      INTEGER NOT NULL REFERENCES items(id),
    started_at   DATETIME NOT NULL,
    usage_type   TEXT NOT NULL,
    notes        TEXT,
    location     TEXT,
    temperature  REAL,
    humidity     REAL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_open_usages_item ON open_usages(item_id);

CREATE TABLE IF NOT EXISTS usage_periods (
    id            INTEGER PRIMARY KEY,
    item_id       INTEGER NOT NULL REFERENCES items(id),
    started_at    DATETIME NOT NULL,
    ended_at      DATETIME NOT NULL,
    duration_days INTEGER NOT NULL CHECK (duration_days >= 0),
    season_used   TEXT NOT NULL,
    usage_type    TEXT NOT NULL,
    condition     TEXT,
    satisfaction  INTEGER CHECK (satisfaction BETWEEN 1 AND 5),
    notes         TEXT,
    location      TEXT,
    temperature   REAL,
    humidity      REAL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (ended_at >= started_at)
);

CREATE INDEX IF NOT EXISTS idx_usage_periods_item ON usage_periods(item_id, started_at);

CREATE TABLE IF NOT EXISTS daily_snapshots (
    date                 TEXT PRIMARY KEY,
    total_in_use         INTEGER NOT NULL,
    total_available      INTEGER NOT NULL,
    winter_in_use        INTEGER NOT NULL,
    spring_autumn_in_use INTEGER NOT NULL,
    summer_in_use        INTEGER NOT NULL,
    new_usage_started    INTEGER NOT NULL,
    usage_ended          INTEGER NOT NULL,
    updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notifications (
    id         INTEGER PRIMARY KEY,
    type       TEXT NOT NULL CHECK (type IN ('weather_change', 'maintenance_reminder', 'disposal_suggestion')),
    priority   TEXT NOT NULL CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
    title      TEXT NOT NULL,
    message    TEXT NOT NULL,
    item_id    INTEGER REFERENCES items(id),
    is_read    INTEGER NOT NULL DEFAULT 0,
    metadata   TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_dedup ON notifications(type, item_id, created_at);

CREATE TABLE IF NOT EXISTS weather_readings (
    id          INTEGER PRIMARY KEY,
    temperature REAL NOT NULL,
    humidity    REAL NOT NULL CHECK (humidity BETWEEN 0 AND 100),
    recorded_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: recommendation lookups filter available items by season.
	`CREATE INDEX IF NOT EXISTS idx_items_status_season
	     ON items(status, season) WHERE deleted_at IS NULL`,
}

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
