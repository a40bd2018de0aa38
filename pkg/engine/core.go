// Package engine implements the Decision Engine component: Core owns
// Settings, the Cache Store, the Link-Token Service, the Discord Bridge
// contract, the Audit Log, and the Profile Resolver, and exposes the
// login/join decision algorithm plus the moderation mutators. Core is a
// value type constructed once at startup and passed by reference to its
// collaborators, rather than exposed through process-wide globals.
package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/small-frappuccino/argus/pkg/audit"
	"github.com/small-frappuccino/argus/pkg/bridge"
	"github.com/small-frappuccino/argus/pkg/config"
	"github.com/small-frappuccino/argus/pkg/linktoken"
	"github.com/small-frappuccino/argus/pkg/model"
	"github.com/small-frappuccino/argus/pkg/profile"
	"github.com/small-frappuccino/argus/pkg/store"
)

// BanMirror propagates a ban to the host's own platform-level ban list.
// Optional, late-bound.
type BanMirror func(id uuid.UUID, mcName, reason string, until *int64) error

// UnbanMirror propagates an unban to the host. Optional, late-bound.
type UnbanMirror func(id uuid.UUID) error

// Messenger delivers an in-game message to a connected player, used by
// the link flow to confirm a successful link. Optional, late-bound.
type Messenger func(id uuid.UUID, message string)

// BridgeOpener connects the Discord Bridge session. Late-bound by
// cmd/argus/main.go once the concrete bridge has been constructed, so
// that Core itself never imports the discordgo-backed implementation.
type BridgeOpener func() error

// BridgeCloser disconnects the Discord Bridge session.
type BridgeCloser func() error

// Core is the decision engine. The zero value is not usable; construct
// with NewCore.
type Core struct {
	Settings *config.Manager
	Store    *store.Store
	Tokens   *linktoken.Service
	Audit    *audit.Log
	Profile  *profile.Resolver

	bridgeChecker bridge.RoleStatusChecker

	discordStarted         atomic.Bool
	discordStartedOverride *bool // testing hook; overrides isDiscordUp when set

	messenger   Messenger
	banMirror   BanMirror
	unbanMirror UnbanMirror

	bridgeOpener BridgeOpener
	bridgeCloser BridgeCloser

	now func() time.Time
}

// NewCore constructs a Core with its own Settings manager, Cache Store,
// Link-Token Service, and Audit Log. Call Initialize before first use
// and SetBridge once the Discord Bridge has been constructed.
func NewCore(settingsPath string) *Core {
	return &Core{
		Settings: config.NewManager(settingsPath),
		Store:    store.New(),
		Tokens:   linktoken.New(),
		Audit:    audit.New(),
		Profile:  profile.New(),
		now:      time.Now,
	}
}

// SetBridge wires the live role-status query capability.
func (c *Core) SetBridge(checker bridge.RoleStatusChecker) {
	c.bridgeChecker = checker
}

// SetMessenger wires the late-bound in-game messaging hook.
func (c *Core) SetMessenger(m Messenger) { c.messenger = m }

// SetBanMirror wires the late-bound host ban-propagation hook.
func (c *Core) SetBanMirror(m BanMirror) { c.banMirror = m }

// SetUnbanMirror wires the late-bound host unban-propagation hook.
func (c *Core) SetUnbanMirror(m UnbanMirror) { c.unbanMirror = m }

// SetBridgeLifecycle wires the late-bound connect/disconnect hooks used
// by StartDiscord/StopDiscord.
func (c *Core) SetBridgeLifecycle(opener BridgeOpener, closer BridgeCloser) {
	c.bridgeOpener = opener
	c.bridgeCloser = closer
}

// SetDiscordStartedOverride is a testing hook: when non-nil, it takes
// precedence over the real discordStarted flag.
func (c *Core) SetDiscordStartedOverride(v *bool) { c.discordStartedOverride = v }

// SetClock overrides the Core's notion of "now", for deterministic tests.
func (c *Core) SetClock(now func() time.Time) { c.now = now }

func (c *Core) isDiscordUp() bool {
	if c.discordStartedOverride != nil {
		return *c.discordStartedOverride
	}
	return c.discordStarted.Load()
}

func (c *Core) enqueueSave() {
	c.Store.EnqueueSave(c.Settings.Current().CacheFile)
}

// detachCollidingDiscordID enforces that at most one player record may
// carry a given non-null discord_id. Any record other than keepUUID
// currently holding newID has its discord_id cleared before the caller
// assigns it elsewhere.
func (c *Core) detachCollidingDiscordID(newID uint64, keepUUID uuid.UUID) {
	existingUUID, existingRec, ok := c.Store.FindByDiscordID(newID)
	if !ok || existingUUID == keepUUID {
		return
	}
	cleared := existingRec.Clone()
	cleared.DiscordID = nil
	c.Store.Upsert(existingUUID, cleared)
}

func (c *Core) argusPrefixed(msg string) string {
	return "[argus] " + msg
}

func (c *Core) withInvite(msg string, settings config.Settings) string {
	if settings.DiscordInviteURL != nil && *settings.DiscordInviteURL != "" {
		return fmt.Sprintf("%s (Join: %s)", msg, *settings.DiscordInviteURL)
	}
	return msg
}

func optionalString(s *string) string {
	if s == nil {
		return "<none>"
	}
	return *s
}

func containsRoleID(ids []uint64, target *uint64) bool {
	if target == nil {
		return false
	}
	for _, id := range ids {
		if id == *target {
			return true
		}
	}
	return false
}
