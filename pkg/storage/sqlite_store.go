// Package storage implements a non-authoritative SQLite mirror of events
// and applications, queried by moderation-review slash commands without
// contending for the cache store's mutex. The decision engine never
// depends on this package for correctness.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps an embedded SQLite database mirroring the cache store's
// events and applications for operational querying. It uses
// modernc.org/sqlite for CGO-less builds.
type Store struct {
	dbPath string
	db     *sql.DB
}

// NewStore creates a new Store pointing to dbPath. Call Init() before using it.
func NewStore(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

// Init opens the SQLite database, configures pragmas, and ensures the schema exists.
func (s *Store) Init() error {
	if s.db != nil {
		return nil
	}
	if s.dbPath == "" {
		return fmt.Errorf("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return fmt.Errorf("set WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return fmt.Errorf("enable FKs: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL;`); err != nil {
		_ = db.Close()
		return fmt.Errorf("set synchronous: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureSchema(db *sql.DB) error {
	const createEventsMirror = `
CREATE TABLE IF NOT EXISTS events_mirror (
  id                 INTEGER PRIMARY KEY AUTOINCREMENT,
  event_type         TEXT NOT NULL,
  target_uuid        TEXT,
  target_discord_id  INTEGER,
  actor_discord_id   INTEGER,
  message            TEXT,
  until_epoch_millis INTEGER,
  at_epoch_millis    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_mirror_target_uuid ON events_mirror(target_uuid);
CREATE INDEX IF NOT EXISTS idx_events_mirror_type_at ON events_mirror(event_type, at_epoch_millis);`

	const createApplicationsMirror = `
CREATE TABLE IF NOT EXISTS applications_mirror (
  id                       TEXT PRIMARY KEY,
  discord_id               INTEGER NOT NULL,
  mc_name                  TEXT NOT NULL,
  resolved_uuid            TEXT,
  status                   TEXT NOT NULL,
  reason                   TEXT,
  submitted_at_epoch_millis INTEGER NOT NULL,
  decided_at_epoch_millis   INTEGER,
  decided_by_discord_id     INTEGER
);
CREATE INDEX IF NOT EXISTS idx_applications_mirror_status ON applications_mirror(status, submitted_at_epoch_millis);`

	const createHeartbeats = `
CREATE TABLE IF NOT EXISTS heartbeats (
  key TEXT PRIMARY KEY,
  ts  TIMESTAMP NOT NULL
);`

	for _, stmt := range []string{createEventsMirror, createApplicationsMirror, createHeartbeats} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// EventMirrorRow is the durable mirror of one model.EventEntry.
type EventMirrorRow struct {
	Type            string
	TargetUUID      *string
	TargetDiscordID *uint64
	ActorDiscordID  *uint64
	Message         *string
	UntilEpochMs    *int64
	AtEpochMs       int64
}

// InsertEvent appends a mirrored event row. Best-effort: callers should
// log and discard errors rather than fail the authoritative operation.
func (s *Store) InsertEvent(e EventMirrorRow) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := s.db.Exec(
		`INSERT INTO events_mirror (event_type, target_uuid, target_discord_id, actor_discord_id, message, until_epoch_millis, at_epoch_millis)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Type, e.TargetUUID, uint64PtrToAny(e.TargetDiscordID), uint64PtrToAny(e.ActorDiscordID), e.Message, e.UntilEpochMs, e.AtEpochMs,
	)
	return err
}

// EventsForTarget returns mirrored events for a player UUID, newest first,
// backing the "/whitelist review" command.
func (s *Store) EventsForTarget(targetUUID string, limit int) ([]EventMirrorRow, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT event_type, target_uuid, target_discord_id, actor_discord_id, message, until_epoch_millis, at_epoch_millis
         FROM events_mirror WHERE target_uuid = ? ORDER BY at_epoch_millis DESC LIMIT ?`,
		targetUUID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventMirrorRow
	for rows.Next() {
		var e EventMirrorRow
		var targetDiscordID, actorDiscordID sql.NullInt64
		if err := rows.Scan(&e.Type, &e.TargetUUID, &targetDiscordID, &actorDiscordID, &e.Message, &e.UntilEpochMs, &e.AtEpochMs); err != nil {
			return nil, err
		}
		if targetDiscordID.Valid {
			v := uint64(targetDiscordID.Int64)
			e.TargetDiscordID = &v
		}
		if actorDiscordID.Valid {
			v := uint64(actorDiscordID.Int64)
			e.ActorDiscordID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ApplicationMirrorRow is the durable mirror of one model.WhitelistApplication.
type ApplicationMirrorRow struct {
	ID                 string
	DiscordID          uint64
	MCName             string
	ResolvedUUID       *string
	Status             string
	Reason             *string
	SubmittedAtEpochMs int64
	DecidedAtEpochMs   *int64
	DecidedByDiscordID *uint64
}

// UpsertApplication writes the current state of an application, used to
// keep the mirror in sync with submit/approve/deny transitions.
func (s *Store) UpsertApplication(a ApplicationMirrorRow) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := s.db.Exec(
		`INSERT INTO applications_mirror
           (id, discord_id, mc_name, resolved_uuid, status, reason, submitted_at_epoch_millis, decided_at_epoch_millis, decided_by_discord_id)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
           status=excluded.status,
           reason=excluded.reason,
           decided_at_epoch_millis=excluded.decided_at_epoch_millis,
           decided_by_discord_id=excluded.decided_by_discord_id`,
		a.ID, a.DiscordID, a.MCName, a.ResolvedUUID, a.Status, a.Reason, a.SubmittedAtEpochMs,
		a.DecidedAtEpochMs, uint64PtrToAny(a.DecidedByDiscordID),
	)
	return err
}

// PendingApplications mirrors engine.ListPendingApplications for read
// paths that should not contend with the cache store's mutex.
func (s *Store) PendingApplications() ([]ApplicationMirrorRow, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	rows, err := s.db.Query(
		`SELECT id, discord_id, mc_name, resolved_uuid, status, reason, submitted_at_epoch_millis, decided_at_epoch_millis, decided_by_discord_id
         FROM applications_mirror WHERE status = 'pending' ORDER BY submitted_at_epoch_millis ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApplicationMirrorRow
	for rows.Next() {
		var a ApplicationMirrorRow
		var decidedBy sql.NullInt64
		if err := rows.Scan(&a.ID, &a.DiscordID, &a.MCName, &a.ResolvedUUID, &a.Status, &a.Reason,
			&a.SubmittedAtEpochMs, &a.DecidedAtEpochMs, &decidedBy); err != nil {
			return nil, err
		}
		if decidedBy.Valid {
			v := uint64(decidedBy.Int64)
			a.DecidedByDiscordID = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetHeartbeat records the last-known "process is running" timestamp,
// used on restart to decide whether a full Discord role re-sync pass is
// warranted.
func (s *Store) SetHeartbeat(t time.Time) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO heartbeats (key, ts) VALUES ('heartbeat', ?)
         ON CONFLICT(key) DO UPDATE SET ts=excluded.ts`,
		t.UTC(),
	)
	return err
}

// LastHeartbeat returns the last recorded heartbeat timestamp, if any.
func (s *Store) LastHeartbeat() (time.Time, bool, error) {
	if s.db == nil {
		return time.Time{}, false, fmt.Errorf("store not initialized")
	}
	row := s.db.QueryRow(`SELECT ts FROM heartbeats WHERE key = 'heartbeat'`)
	var ts time.Time
	if err := row.Scan(&ts); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return ts, true, nil
}

// DowntimeSince reports how long the process was down, given the last
// recorded heartbeat, for the startup re-sync heuristic.
func DowntimeSince(lastHeartbeat time.Time, now time.Time) time.Duration {
	if lastHeartbeat.IsZero() {
		return 0
	}
	return now.Sub(lastHeartbeat)
}

func uint64PtrToAny(v *uint64) any {
	if v == nil {
		return nil
	}
	return *v
}
