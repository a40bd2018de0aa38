// Package bridge defines the Discord Bridge contract: the narrow surface
// the decision engine depends on to query live role status, dispatch
// audit entries, and receive identity/role/command events.
// pkg/discordbridge provides the concrete discordgo-backed
// implementation; pkg/engine depends only on the interfaces here so it
// can be exercised with fakes in tests.
package bridge

import "context"

// RoleStatus is the four-valued verdict of a live Discord role query.
// Deliberately not a nullable bool: NotInGuild and MissingRole are
// distinct authoritative negatives, and Indeterminate is distinct from
// both.
type RoleStatus int

const (
	// HasRole means the user currently holds the configured whitelist role.
	HasRole RoleStatus = iota
	// MissingRole means the user is in the guild but lacks the role.
	MissingRole
	// NotInGuild means the user is not a member of the configured guild.
	NotInGuild
	// Indeterminate means the query could not be answered authoritatively
	// (timeout, transient API failure); callers must leave cached state
	// untouched.
	Indeterminate
)

func (s RoleStatus) String() string {
	switch s {
	case HasRole:
		return "HasRole"
	case MissingRole:
		return "MissingRole"
	case NotInGuild:
		return "NotInGuild"
	case Indeterminate:
		return "Indeterminate"
	default:
		return "Unknown"
	}
}

// RoleStatusChecker is the live-query capability. Implementations must
// honor ctx's deadline and never block past it.
type RoleStatusChecker interface {
	CheckWhitelistStatus(ctx context.Context, discordID uint64) RoleStatus
}

// AuditEntry mirrors audit.Entry without importing pkg/audit, keeping
// the bridge contract free of a dependency on the audit package's
// dispatcher plumbing.
type AuditEntry struct {
	Action      string
	Subject     string
	Actor       string
	Description string
	Metadata    map[string]string
}

// AuditDispatcher forwards an audit entry to the configured log channel.
// Implementations must never return a panic to the caller; Dispatch
// errors are logged by pkg/audit, never propagated further.
type AuditDispatcher interface {
	Dispatch(entry AuditEntry) error
}

// IdentityChange describes a Discord-side rename or nickname change for
// fan-in into the decision engine.
type IdentityChange struct {
	DiscordID uint64
	NewName   *string
	NewNick   *string
}

// RoleSetChange describes a Discord-side role membership change for
// fan-in into the decision engine.
type RoleSetChange struct {
	DiscordID uint64
	RoleIDs   []uint64
}

// EventSink receives events the bridge observes and must forward into
// the decision engine. pkg/engine.Core implements this interface; the
// concrete bridge implementation calls it from discordgo handlers.
type EventSink interface {
	OnIdentityChange(change IdentityChange)
	OnRoleSetChange(change RoleSetChange)
}
