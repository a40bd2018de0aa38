// Package store implements the Cache Store component: the in-memory
// authoritative player/event/application state plus its file-backed JSON
// snapshot with coalesced debounced saves and a ".bak" fallback on load.
// Saves are coalesced through a single-shot debounce channel loop; the
// file handling uses plain os.ReadFile/os.WriteFile with directory
// creation and primary-to-.bak rotation.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/small-frappuccino/argus/pkg/arguserr"
	"github.com/small-frappuccino/argus/pkg/log"
	"github.com/small-frappuccino/argus/pkg/model"
)

// SaveDebounce is how long enqueue_save waits before actually writing,
// coalescing any further enqueues in that window into a single save.
const SaveDebounce = 200 * time.Millisecond

// fileShape is the on-disk JSON representation. Unknown keys on input
// are tolerated because json.Unmarshal ignores them by default.
type fileShape struct {
	Players      map[string]model.PlayerRecord     `json:"players"`
	Events       []model.EventEntry                `json:"events"`
	Applications []model.WhitelistApplication       `json:"applications"`
}

// Store is the cache store's authoritative in-memory state plus its
// durable snapshot machinery. The zero value is not usable; use New.
type Store struct {
	playersMu sync.RWMutex
	players   map[uuid.UUID]model.PlayerRecord

	eventsMu sync.Mutex
	events   []model.EventEntry

	appsMu       sync.Mutex
	applications map[string]model.WhitelistApplication

	fileMu sync.Mutex // serializes actual file writes/reads against concurrent Save/Load callers

	saveRequests  chan string
	flushRequests chan chan struct{}
	stopCh        chan struct{}
	wg            sync.WaitGroup
	startOnce     sync.Once
	stopOnce      sync.Once
}

// New constructs an empty Store and starts its save worker goroutine.
func New() *Store {
	s := &Store{
		players:       make(map[uuid.UUID]model.PlayerRecord),
		applications:  make(map[string]model.WhitelistApplication),
		saveRequests:  make(chan string, 1),
		flushRequests: make(chan chan struct{}),
		stopCh:        make(chan struct{}),
	}
	s.Start()
	return s
}

// Start launches the save worker goroutine. Safe to call multiple times;
// only the first call has effect.
func (s *Store) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.saveWorker()
	})
}

// Stop halts the save worker, flushing any pending save first.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
	})
}

// --- Players ---

// Get returns a copy of the player record for id, or (zero, false) if absent.
func (s *Store) Get(id uuid.UUID) (model.PlayerRecord, bool) {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()
	rec, ok := s.players[id]
	if !ok {
		return model.PlayerRecord{}, false
	}
	return rec.Clone(), true
}

// Upsert atomically replaces the record for id.
func (s *Store) Upsert(id uuid.UUID, rec model.PlayerRecord) {
	s.playersMu.Lock()
	defer s.playersMu.Unlock()
	s.players[id] = rec.Clone()
}

// FindByDiscordID returns the first (uuid, record) pair whose DiscordID
// matches id. Map iteration order is unspecified; see DESIGN.md.
func (s *Store) FindByDiscordID(id uint64) (uuid.UUID, model.PlayerRecord, bool) {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()
	for u, rec := range s.players {
		if rec.DiscordID != nil && *rec.DiscordID == id {
			return u, rec.Clone(), true
		}
	}
	return uuid.UUID{}, model.PlayerRecord{}, false
}

// FindByName returns the first (uuid, record) pair whose MCName matches
// name case-insensitively. See DESIGN.md Open Question resolution: first
// hit in (unspecified) map iteration order.
func (s *Store) FindByName(name string) (uuid.UUID, model.PlayerRecord, bool) {
	lower := toLower(name)
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()
	for u, rec := range s.players {
		if rec.MCName != nil && toLower(*rec.MCName) == lower {
			return u, rec.Clone(), true
		}
	}
	return uuid.UUID{}, model.PlayerRecord{}, false
}

// Snapshot returns an immutable copy of the full players map.
func (s *Store) Snapshot() map[uuid.UUID]model.PlayerRecord {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()
	out := make(map[uuid.UUID]model.PlayerRecord, len(s.players))
	for k, v := range s.players {
		out[k] = v.Clone()
	}
	return out
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// --- Events ---

// AppendEvent appends an event to the durable audit trail.
func (s *Store) AppendEvent(e model.EventEntry) {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	s.events = append(s.events, e)
}

// EventsSnapshot returns an immutable copy of the event log in insertion order.
func (s *Store) EventsSnapshot() []model.EventEntry {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	out := make([]model.EventEntry, len(s.events))
	copy(out, s.events)
	return out
}

// HasEventForUUID reports whether an event of the given type already
// exists for targetUUID (used for the first_allow / first_legacy_kick
// once-only checks).
func (s *Store) HasEventForUUID(eventType model.EventType, targetUUID string) bool {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	for _, e := range s.events {
		if e.Type == eventType && e.TargetUUID != nil && *e.TargetUUID == targetUUID {
			return true
		}
	}
	return false
}

// --- Applications ---

// AddApplication stores a new application record.
func (s *Store) AddApplication(app model.WhitelistApplication) {
	s.appsMu.Lock()
	defer s.appsMu.Unlock()
	s.applications[app.ID] = app.Clone()
}

// UpdateApplication applies mutator to the current application state and
// stores the result, returning the new value. Returns (zero, false) if the
// id is unknown or mutator returns (zero, false) to reject the transition.
func (s *Store) UpdateApplication(id string, mutator func(model.WhitelistApplication) (model.WhitelistApplication, bool)) (model.WhitelistApplication, bool) {
	s.appsMu.Lock()
	defer s.appsMu.Unlock()
	cur, ok := s.applications[id]
	if !ok {
		return model.WhitelistApplication{}, false
	}
	next, ok := mutator(cur.Clone())
	if !ok {
		return model.WhitelistApplication{}, false
	}
	s.applications[id] = next.Clone()
	return next.Clone(), true
}

// GetApplication returns a copy of the application, or (zero, false) if unknown.
func (s *Store) GetApplication(id string) (model.WhitelistApplication, bool) {
	s.appsMu.Lock()
	defer s.appsMu.Unlock()
	app, ok := s.applications[id]
	if !ok {
		return model.WhitelistApplication{}, false
	}
	return app.Clone(), true
}

// ApplicationsSnapshot returns an immutable copy of all applications.
func (s *Store) ApplicationsSnapshot() []model.WhitelistApplication {
	s.appsMu.Lock()
	defer s.appsMu.Unlock()
	out := make([]model.WhitelistApplication, 0, len(s.applications))
	for _, a := range s.applications {
		out = append(out, a.Clone())
	}
	return out
}

// --- Persistence ---

// Load reads cachePath into memory, replacing all current state
// atomically. On any read/parse failure it tries cachePath+".bak"; if
// that also fails, the store starts empty.
func (s *Store) Load(cachePath string) error {
	shape, err := s.readFile(cachePath)
	if err != nil {
		log.Warn().Storef("primary cache file %s unreadable (%v); trying backup", cachePath, err)
		backupShape, backupErr := s.readFile(cachePath + ".bak")
		if backupErr != nil {
			log.Error().Errorf("backup cache file also unreadable (%v); starting with empty state", backupErr)
			s.replaceState(fileShape{})
			return nil
		}
		shape = backupShape
	}

	s.replaceState(shape)
	log.Info().Storef("cache loaded: %d players, %d events, %d applications",
		len(shape.Players), len(shape.Events), len(shape.Applications))
	return nil
}

func (s *Store) readFile(path string) (fileShape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileShape{}, err
	}
	var shape fileShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return fileShape{}, err
	}
	return shape, nil
}

func (s *Store) replaceState(shape fileShape) {
	players := make(map[uuid.UUID]model.PlayerRecord, len(shape.Players))
	for k, v := range shape.Players {
		id, err := uuid.Parse(k)
		if err != nil {
			continue
		}
		players[id] = v
	}

	apps := make(map[string]model.WhitelistApplication, len(shape.Applications))
	for _, a := range shape.Applications {
		apps[a.ID] = a
	}

	s.playersMu.Lock()
	s.players = players
	s.playersMu.Unlock()

	s.eventsMu.Lock()
	s.events = append([]model.EventEntry(nil), shape.Events...)
	s.eventsMu.Unlock()

	s.appsMu.Lock()
	s.applications = apps
	s.appsMu.Unlock()
}

// Save writes a consistent snapshot of the full state to cachePath. If a
// primary file already exists, it is rotated to cachePath+".bak" before
// the new snapshot is written.
func (s *Store) Save(cachePath string) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	shape := fileShape{
		Players:      make(map[string]model.PlayerRecord),
		Events:       s.EventsSnapshot(),
		Applications: s.ApplicationsSnapshot(),
	}
	for id, rec := range s.Snapshot() {
		shape.Players[id.String()] = rec
	}

	data, err := json.MarshalIndent(shape, "", "  ")
	if err != nil {
		return arguserr.NewStoreError("marshal", cachePath, err)
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return arguserr.NewStoreError("mkdir", cachePath, err)
	}

	if _, err := os.Stat(cachePath); err == nil {
		if err := os.Rename(cachePath, cachePath+".bak"); err != nil {
			log.Warn().Storef("failed to rotate %s to .bak: %v", cachePath, err)
		}
	}

	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		log.Error().Errorf("failed to write cache file %s: %v", cachePath, err)
		return arguserr.NewStoreError("write", cachePath, err)
	}

	log.Info().Storef("cache saved: %d players, %d events, %d applications",
		len(shape.Players), len(shape.Events), len(shape.Applications))
	return nil
}

// EnqueueSave schedules a debounced save ~200ms out. Repeated calls before
// the timer fires are coalesced into a single save of the latest state.
// Non-blocking: safe to call from login/request goroutines.
func (s *Store) EnqueueSave(cachePath string) {
	select {
	case s.saveRequests <- cachePath:
	default:
		select {
		case <-s.saveRequests:
		default:
		}
		select {
		case s.saveRequests <- cachePath:
		default:
		}
	}
}

// FlushSaves forces any pending debounced save to run immediately and
// waits up to timeout for it to complete. Returns true on completion
// within timeout, false on timeout.
func (s *Store) FlushSaves(timeout time.Duration) bool {
	waiter := make(chan struct{})
	select {
	case s.flushRequests <- waiter:
	case <-time.After(timeout):
		return false
	}
	select {
	case <-waiter:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *Store) saveWorker() {
	defer s.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	var pendingPath string
	hasPending := false

	runPending := func() {
		if !hasPending {
			return
		}
		hasPending = false
		if timer != nil {
			timer.Stop()
			timerC = nil
		}
		if err := s.Save(pendingPath); err != nil {
			log.Warn().Storef("debounced save failed: %v", err)
		}
	}

	for {
		select {
		case path, ok := <-s.saveRequests:
			if !ok {
				runPending()
				return
			}
			pendingPath = path
			if !hasPending {
				hasPending = true
				timer = time.NewTimer(SaveDebounce)
				timerC = timer.C
			}

		case <-timerC:
			timerC = nil
			path := pendingPath
			hasPending = false
			if err := s.Save(path); err != nil {
				log.Warn().Storef("debounced save failed: %v", err)
			}

		case waiter := <-s.flushRequests:
			runPending()
			close(waiter)

		case <-s.stopCh:
			runPending()
			return
		}
	}
}
