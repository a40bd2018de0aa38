// Package model holds the value types that flow through the cache store:
// PlayerRecord, EventEntry, WhitelistApplication and their JSON wire
// shapes. Mutation is always "produce a replacement record and upsert" —
// none of these types expose in-place setters.
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the closed set of audit event kinds.
type EventType string

const (
	EventLink            EventType = "link"
	EventWhitelistAdd    EventType = "whitelist_add"
	EventWhitelistRemove EventType = "whitelist_remove"
	EventApplySubmit     EventType = "apply_submit"
	EventApplyApprove    EventType = "apply_approve"
	EventApplyDeny       EventType = "apply_deny"
	EventWarn            EventType = "warn"
	EventBan             EventType = "ban"
	EventUnban           EventType = "unban"
	EventComment         EventType = "comment"
	EventFirstAllow      EventType = "first_allow"
	EventFirstLegacyKick EventType = "first_legacy_kick"
)

// ApplicationStatus enumerates the three states of the whitelist
// application workflow.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationDenied   ApplicationStatus = "denied"
)

// PlayerRecord is keyed by game UUID. It is an immutable value: every
// mutation in the decision engine builds a new PlayerRecord and hands it
// to Store.Upsert.
type PlayerRecord struct {
	DiscordID        *uint64 `json:"discordId"`
	HasAccess        *bool   `json:"hasAccess"`
	IsAdmin          bool    `json:"isAdmin"`
	MCName           *string `json:"mcName"`
	DiscordName      *string `json:"discordName"`
	DiscordNick      *string `json:"discordNick"`
	BanReason        *string `json:"banReason"`
	BanUntilEpochMs  *int64  `json:"banUntilEpochMillis"`
	WarnCount        int     `json:"warnCount"`
}

// Clone returns a deep copy so callers can build a modified replacement
// without aliasing the fields of the record currently in the store.
func (p PlayerRecord) Clone() PlayerRecord {
	out := p
	out.DiscordID = clonePtr(p.DiscordID)
	out.HasAccess = clonePtr(p.HasAccess)
	out.MCName = clonePtr(p.MCName)
	out.DiscordName = clonePtr(p.DiscordName)
	out.DiscordNick = clonePtr(p.DiscordNick)
	out.BanReason = clonePtr(p.BanReason)
	out.BanUntilEpochMs = clonePtr(p.BanUntilEpochMs)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IsBanActive reports whether the record carries an active ban at the
// given instant. A nil until with a non-nil reason is treated as
// permanent (see DESIGN.md Open Question resolution).
func (p PlayerRecord) IsBanActive(now time.Time) bool {
	if p.BanReason == nil {
		return false
	}
	if p.BanUntilEpochMs == nil {
		return true
	}
	return *p.BanUntilEpochMs > now.UnixMilli()
}

// EventEntry is an append-only audit record. Events are never mutated
// after creation.
type EventEntry struct {
	Type             EventType `json:"type"`
	TargetUUID       *string   `json:"targetUuid"`
	TargetDiscordID  *uint64   `json:"targetDiscordId"`
	ActorDiscordID   *uint64   `json:"actorDiscordId"`
	Message          *string   `json:"message"`
	UntilEpochMs     *int64    `json:"untilEpochMillis"`
	AtEpochMs        int64     `json:"atEpochMillis"`
}

// WhitelistApplication is the mutable-by-replacement workflow record for
// a pending/approved/denied Discord whitelist application.
type WhitelistApplication struct {
	ID                 string            `json:"id"`
	DiscordID          uint64            `json:"discordId"`
	MCName             string            `json:"mcName"`
	ResolvedUUID       *string           `json:"resolvedUuid"`
	Status             ApplicationStatus `json:"status"`
	Reason             *string           `json:"reason"`
	SubmittedAtEpochMs int64             `json:"submittedAtEpochMillis"`
	DecidedAtEpochMs   *int64            `json:"decidedAtEpochMillis"`
	DecidedByDiscordID *uint64           `json:"decidedByDiscordId"`
}

// Clone returns a deep copy for safe external consumption from snapshots.
func (a WhitelistApplication) Clone() WhitelistApplication {
	out := a
	out.ResolvedUUID = clonePtr(a.ResolvedUUID)
	out.Reason = clonePtr(a.Reason)
	out.DecidedAtEpochMs = clonePtr(a.DecidedAtEpochMs)
	out.DecidedByDiscordID = clonePtr(a.DecidedByDiscordID)
	return out
}

// NewApplicationID mints a globally unique application identifier.
func NewApplicationID() string {
	return uuid.NewString()
}

// Ptr is a small helper for building optional-field literals in call sites
// and tests: Ptr(uint64(7)) instead of a throwaway local variable.
func Ptr[T any](v T) *T { return &v }
