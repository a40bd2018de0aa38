package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/small-frappuccino/argus/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	t.Cleanup(s.Stop)
	return s
}

func TestUpsertAndGetClonesRecords(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()
	name := "Alice"
	s.Upsert(id, model.PlayerRecord{MCName: &name})

	got, ok := s.Get(id)
	if !ok {
		t.Fatal("expected the record to be found")
	}
	*got.MCName = "mutated"

	got2, _ := s.Get(id)
	if *got2.MCName != "Alice" {
		t.Fatalf("expected Get to return an isolated clone, got %q", *got2.MCName)
	}
}

func TestFindByDiscordID(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()
	discordID := uint64(42)
	s.Upsert(id, model.PlayerRecord{DiscordID: &discordID})

	gotID, _, ok := s.FindByDiscordID(42)
	if !ok || gotID != id {
		t.Fatalf("expected to find uuid %v, got %v, %v", id, gotID, ok)
	}

	if _, _, ok := s.FindByDiscordID(999); ok {
		t.Fatal("expected no match for an unknown discord id")
	}
}

func TestFindByNameCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()
	name := "Steve"
	s.Upsert(id, model.PlayerRecord{MCName: &name})

	gotID, _, ok := s.FindByName("STEVE")
	if !ok || gotID != id {
		t.Fatalf("expected case-insensitive match, got %v, %v", gotID, ok)
	}
}

func TestHasEventForUUID(t *testing.T) {
	s := newTestStore(t)
	target := uuid.New().String()
	s.AppendEvent(model.EventEntry{Type: model.EventFirstAllow, TargetUUID: &target})

	if !s.HasEventForUUID(model.EventFirstAllow, target) {
		t.Fatal("expected an existing event to be found")
	}
	if s.HasEventForUUID(model.EventFirstLegacyKick, target) {
		t.Fatal("expected a different event type to not match")
	}
}

func TestUpdateApplicationRejectsUnknownAndMutatorVeto(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.UpdateApplication("missing", func(a model.WhitelistApplication) (model.WhitelistApplication, bool) {
		return a, true
	}); ok {
		t.Fatal("expected update on an unknown application id to fail")
	}

	app := model.WhitelistApplication{ID: "app-1", Status: model.ApplicationPending}
	s.AddApplication(app)

	if _, ok := s.UpdateApplication("app-1", func(a model.WhitelistApplication) (model.WhitelistApplication, bool) {
		return a, false
	}); ok {
		t.Fatal("expected a mutator veto to propagate as failure")
	}

	got, ok := s.GetApplication("app-1")
	if !ok || got.Status != model.ApplicationPending {
		t.Fatal("expected the vetoed update to leave the application unchanged")
	}

	next, ok := s.UpdateApplication("app-1", func(a model.WhitelistApplication) (model.WhitelistApplication, bool) {
		a.Status = model.ApplicationApproved
		return a, true
	})
	if !ok || next.Status != model.ApplicationApproved {
		t.Fatal("expected the mutator's change to apply")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()
	name := "Alice"
	s.Upsert(id, model.PlayerRecord{MCName: &name})
	target := id.String()
	s.AppendEvent(model.EventEntry{Type: model.EventWhitelistAdd, TargetUUID: &target, AtEpochMs: 1000})
	s.AddApplication(model.WhitelistApplication{ID: "app-1", MCName: "Alice"})

	path := filepath.Join(t.TempDir(), "cache.json")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := New()
	t.Cleanup(loaded.Stop)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, ok := loaded.Get(id)
	if !ok || got.MCName == nil || *got.MCName != "Alice" {
		t.Fatal("expected the loaded store to contain the saved player")
	}
	if len(loaded.EventsSnapshot()) != 1 {
		t.Fatal("expected the loaded store to contain the saved event")
	}
	if _, ok := loaded.GetApplication("app-1"); !ok {
		t.Fatal("expected the loaded store to contain the saved application")
	}
}

func TestSaveRotatesPrimaryToBackup(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "cache.json")

	if err := s.Save(path); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read first save: %v", err)
	}

	id := uuid.New()
	s.Upsert(id, model.PlayerRecord{})
	if err := s.Save(path); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	backup, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("expected a .bak file after the second save: %v", err)
	}
	if string(backup) != string(first) {
		t.Fatal("expected the .bak file to hold the prior snapshot")
	}
}

func TestLoadFallsBackToBackupOnCorruptPrimary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")

	good := New()
	id := uuid.New()
	name := "Alice"
	good.Upsert(id, model.PlayerRecord{MCName: &name})
	if err := good.Save(path); err != nil {
		t.Fatalf("Save good: %v", err)
	}
	good.Stop()

	if err := os.Rename(path, path+".bak"); err != nil {
		t.Fatalf("rename to .bak: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt primary: %v", err)
	}

	loaded := New()
	t.Cleanup(loaded.Stop)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, ok := loaded.Get(id)
	if !ok || got.MCName == nil || *got.MCName != "Alice" {
		t.Fatal("expected Load to recover state from the .bak file")
	}
}

func TestLoadStartsEmptyWhenBothFilesUnreadable(t *testing.T) {
	s := newTestStore(t)
	if err := s.Load(filepath.Join(t.TempDir(), "does-not-exist.json")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Snapshot()) != 0 {
		t.Fatal("expected an empty store when neither file exists")
	}
}

func TestEnqueueSaveDebouncesAndFlushSavesWaits(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "cache.json")

	id := uuid.New()
	s.Upsert(id, model.PlayerRecord{})

	s.EnqueueSave(path)
	s.EnqueueSave(path)
	s.EnqueueSave(path)

	if !s.FlushSaves(2 * time.Second) {
		t.Fatal("expected FlushSaves to complete within the timeout")
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected the debounced save to have written the file: %v", err)
	}
}
