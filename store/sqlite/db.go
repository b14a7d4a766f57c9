// Package sqlite implements the local store interfaces on an embedded
// sqlite database. The store is constructed once at process start and passed
// to every collaborator; there is no package-level instance.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tours (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    guide_id      TEXT NOT NULL,
    status        TEXT NOT NULL,
    start_time    INTEGER NOT NULL,
    end_time      INTEGER NOT NULL,
    meeting_name  TEXT NOT NULL DEFAULT '',
    meeting_lat   REAL NOT NULL DEFAULT 0,
    meeting_lon   REAL NOT NULL DEFAULT 0,
    capacity      INTEGER,
    route_id      TEXT NOT NULL DEFAULT '',
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tours_guide ON tours(guide_id);
CREATE INDEX IF NOT EXISTS idx_tours_status ON tours(status);

CREATE TABLE IF NOT EXISTS tour_participants (
    id            TEXT NOT NULL,
    tour_id       TEXT NOT NULL,
    user_id       TEXT NOT NULL,
    status        TEXT NOT NULL,
    user_name     TEXT NOT NULL DEFAULT '',
    user_email    TEXT NOT NULL DEFAULT '',
    user_phone    TEXT NOT NULL DEFAULT '',
    requested_at  INTEGER NOT NULL,
    processed_at  INTEGER,
    PRIMARY KEY (tour_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_participants_user ON tour_participants(user_id);

CREATE TABLE IF NOT EXISTS sync_tasks (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    type            TEXT NOT NULL,
    payload_id      TEXT NOT NULL DEFAULT '',
    payload         TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    attempts        INTEGER NOT NULL DEFAULT 0,
    max_attempts    INTEGER NOT NULL DEFAULT 5,
    next_attempt_at INTEGER,
    last_error      TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_tasks_status ON sync_tasks(status, created_at);

CREATE TABLE IF NOT EXISTS user_profiles (
    id              TEXT PRIMARY KEY,
    external_id     TEXT NOT NULL UNIQUE,
    email           TEXT NOT NULL DEFAULT '',
    name            TEXT NOT NULL DEFAULT '',
    phone           TEXT NOT NULL DEFAULT '',
    role            TEXT NOT NULL,
    needs_sync      INTEGER NOT NULL DEFAULT 0,
    revision        INTEGER NOT NULL DEFAULT 0,
    last_sign_in_at INTEGER,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bird_species (
    id              TEXT PRIMARY KEY,
    common_name     TEXT NOT NULL,
    scientific_name TEXT NOT NULL DEFAULT '',
    category_id     TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    image_url       TEXT NOT NULL DEFAULT '',
    audio_url       TEXT NOT NULL DEFAULT '',
    cached_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_species_category ON bird_species(category_id);

CREATE TABLE IF NOT EXISTS bird_categories (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sightings (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    species_id  TEXT NOT NULL,
    latitude    REAL NOT NULL,
    longitude   REAL NOT NULL,
    note        TEXT NOT NULL DEFAULT '',
    observed_at INTEGER NOT NULL,
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sightings_user ON sightings(user_id);
CREATE INDEX IF NOT EXISTS idx_sightings_geo ON sightings(latitude, longitude);

CREATE TABLE IF NOT EXISTS media_records (
    id          TEXT PRIMARY KEY,
    owner_id    TEXT NOT NULL,
    sighting_id TEXT NOT NULL DEFAULT '',
    kind        TEXT NOT NULL,
    local_path  TEXT NOT NULL,
    storage_key TEXT NOT NULL DEFAULT '',
    uploaded    INTEGER NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL
);
`

// DB wraps the sqlite connection shared by the store implementations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the local database at path and applies the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	// sqlite allows a single writer; a second connection would only block.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping local store: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the raw connection for transactions inside this package.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Healthcheck pings the store.
func (db *DB) Healthcheck(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
