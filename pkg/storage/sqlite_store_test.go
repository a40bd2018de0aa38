package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSchemaInitialized(t *testing.T) {
	store := newTempStore(t)
	rows, err := store.db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	if err != nil {
		t.Fatalf("query schema: %v", err)
	}
	defer rows.Close()

	required := map[string]bool{
		"events_mirror":       false,
		"applications_mirror": false,
		"heartbeats":          false,
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if _, ok := required[name]; ok {
			required[name] = true
		}
	}
	for k, ok := range required {
		if !ok {
			t.Fatalf("expected table %s to exist", k)
		}
	}
}

func TestInsertAndQueryEvents(t *testing.T) {
	store := newTempStore(t)
	target := "11111111-1111-1111-1111-111111111111"

	if err := store.InsertEvent(EventMirrorRow{Type: "ban", TargetUUID: &target, AtEpochMs: 100}); err != nil {
		t.Fatalf("insert1: %v", err)
	}
	if err := store.InsertEvent(EventMirrorRow{Type: "warn", TargetUUID: &target, AtEpochMs: 200}); err != nil {
		t.Fatalf("insert2: %v", err)
	}

	events, err := store.EventsForTarget(target, 10)
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != "warn" {
		t.Fatalf("expected newest event first, got %s", events[0].Type)
	}
}

func TestUpsertApplicationTransitions(t *testing.T) {
	store := newTempStore(t)
	row := ApplicationMirrorRow{
		ID:                 "app-1",
		DiscordID:          42,
		MCName:             "Steve",
		Status:             "pending",
		SubmittedAtEpochMs: 1000,
	}
	if err := store.UpsertApplication(row); err != nil {
		t.Fatalf("insert: %v", err)
	}

	pending, err := store.PendingApplications()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "app-1" {
		t.Fatalf("expected one pending application, got %+v", pending)
	}

	decidedAt := int64(2000)
	actor := uint64(7)
	row.Status = "approved"
	row.DecidedAtEpochMs = &decidedAt
	row.DecidedByDiscordID = &actor
	if err := store.UpsertApplication(row); err != nil {
		t.Fatalf("update: %v", err)
	}

	pending, err = store.PendingApplications()
	if err != nil {
		t.Fatalf("pending after approve: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending applications after approval, got %d", len(pending))
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	store := newTempStore(t)

	if _, ok, err := store.LastHeartbeat(); err != nil {
		t.Fatalf("last heartbeat: %v", err)
	} else if ok {
		t.Fatalf("expected no heartbeat before first SetHeartbeat")
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := store.SetHeartbeat(now); err != nil {
		t.Fatalf("set heartbeat: %v", err)
	}

	got, ok, err := store.LastHeartbeat()
	if err != nil {
		t.Fatalf("last heartbeat: %v", err)
	}
	if !ok {
		t.Fatalf("expected heartbeat to be recorded")
	}
	if !got.Equal(now) {
		t.Fatalf("expected heartbeat %v, got %v", now, got)
	}
}

func TestDowntimeSince(t *testing.T) {
	base := time.Now()
	if d := DowntimeSince(time.Time{}, base); d != 0 {
		t.Fatalf("expected zero downtime for zero heartbeat, got %v", d)
	}
	last := base.Add(-5 * time.Minute)
	if d := DowntimeSince(last, base); d != 5*time.Minute {
		t.Fatalf("expected 5m downtime, got %v", d)
	}
}
