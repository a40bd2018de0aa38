// Package linktoken implements the Link-Token Service: a short-TTL
// bidirectional map between a one-time hex token and the (uuid, mcName)
// it was issued to, with lazy expiry on read. A single mutex guards both
// directions as a unit so the mapping never desyncs.
package linktoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TTL is the lifetime of an issued link token.
const TTL = 30 * time.Minute

// Entry is a live link-token registration.
type Entry struct {
	Token        string
	UUID         uuid.UUID
	MCName       *string
	IssuedAtMs   int64
}

func (e Entry) expired(now time.Time) bool {
	return now.UnixMilli()-e.IssuedAtMs >= TTL.Milliseconds()
}

// ActiveEntry is the read-only projection returned by ListActive.
type ActiveEntry struct {
	Token        string
	UUID         uuid.UUID
	MCName       *string
	IssuedAtMs   int64
	ExpiresInMs  int64
}

// Service is the bidirectional token store. The zero value is not usable;
// construct with New.
type Service struct {
	mu      sync.Mutex
	byToken map[string]*Entry
	byUUID  map[uuid.UUID]*Entry
	now     func() time.Time
}

// New constructs an empty link-token Service.
func New() *Service {
	return &Service{
		byToken: make(map[string]*Entry),
		byUUID:  make(map[uuid.UUID]*Entry),
		now:     time.Now,
	}
}

// IssueToken returns the token for uuid, creating one if none is live.
// If a live entry exists and mcName is nil or unchanged, its token is
// returned as-is. If mcName differs, the entry is replaced in place
// (same token, new name). Otherwise a fresh 6-byte hex token is minted.
func (s *Service) IssueToken(id uuid.UUID, mcName *string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked()

	if existing, ok := s.byUUID[id]; ok {
		if mcName == nil || (existing.MCName != nil && *existing.MCName == *mcName) {
			return existing.Token, nil
		}
		existing.MCName = mcName
		return existing.Token, nil
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	entry := &Entry{
		Token:      token,
		UUID:       id,
		MCName:     mcName,
		IssuedAtMs: s.now().UnixMilli(),
	}
	s.byToken[token] = entry
	s.byUUID[id] = entry
	return token, nil
}

// Consume atomically removes and returns the entry for token if present
// and not expired. Returns (Entry{}, false) for unknown or expired tokens.
func (s *Service) Consume(token string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked()

	entry, ok := s.byToken[token]
	if !ok {
		return Entry{}, false
	}
	delete(s.byToken, entry.Token)
	delete(s.byUUID, entry.UUID)
	return *entry, true
}

// ListActive returns all live, non-expired entries sorted by ascending
// remaining TTL.
func (s *Service) ListActive() []ActiveEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked()

	now := s.now()
	out := make([]ActiveEntry, 0, len(s.byToken))
	for _, e := range s.byToken {
		remaining := e.IssuedAtMs + TTL.Milliseconds() - now.UnixMilli()
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, ActiveEntry{
			Token:       e.Token,
			UUID:        e.UUID,
			MCName:      e.MCName,
			IssuedAtMs:  e.IssuedAtMs,
			ExpiresInMs: remaining,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresInMs < out[j].ExpiresInMs })
	return out
}

// purgeExpiredLocked removes entries whose TTL has elapsed. Callers must
// hold s.mu.
func (s *Service) purgeExpiredLocked() {
	now := s.now()
	for token, entry := range s.byToken {
		if entry.expired(now) {
			delete(s.byToken, token)
			delete(s.byUUID, entry.UUID)
		}
	}
}

// Sweep periodically forces expiry of stale entries so a token that is
// never looked up again is not held in memory past its TTL. Expiry
// itself is already lazy on every read path; this loop exists only to
// bound worst-case memory for tokens nobody ever redeems or lists.
// Blocks until ctx is done.
func (s *Service) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.purgeExpiredLocked()
			s.mu.Unlock()
		}
	}
}

func generateToken() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
