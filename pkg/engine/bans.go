package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/small-frappuccino/argus/pkg/model"
)

// BanPlayer records a ban on the player, optionally mirroring it to the
// host's ban list through the ban mirror hook, and logs the action.
func (c *Core) BanPlayer(id uuid.UUID, actorID uint64, reason string, until *int64) string {
	pdata, exists := c.Store.Get(id)
	updated := model.PlayerRecord{}
	if exists {
		updated = pdata.Clone()
	}
	updated.BanReason = model.Ptr(reason)
	updated.BanUntilEpochMs = until
	updated.HasAccess = model.Ptr(false)
	c.Store.Upsert(id, updated)

	if c.banMirror != nil {
		mcName := ""
		if updated.MCName != nil {
			mcName = *updated.MCName
		}
		if err := c.banMirror(id, mcName, reason, until); err != nil {
			c.Audit.LogAction("ban_mirror_error", id.String(), fmt.Sprintf("%d", actorID), fmt.Sprintf("ban mirror failed: %v", err), nil)
		}
	}

	c.Store.AppendEvent(model.EventEntry{
		Type:           model.EventBan,
		TargetUUID:     model.Ptr(id.String()),
		ActorDiscordID: model.Ptr(actorID),
		Message:        model.Ptr(reason),
		UntilEpochMs:   until,
		AtEpochMs:      c.now().UnixMilli(),
	})
	c.Audit.LogAction("ban", id.String(), fmt.Sprintf("%d", actorID), "Banned "+id.String()+": "+reason, nil)
	c.enqueueSave()
	return "Banned " + id.String()
}

// UnbanPlayer clears a player's ban, optionally mirroring it to the
// host's ban list through the unban mirror hook, and logs the action.
func (c *Core) UnbanPlayer(id uuid.UUID, actorID uint64, reason *string) string {
	pdata, exists := c.Store.Get(id)
	updated := model.PlayerRecord{}
	if exists {
		updated = pdata.Clone()
	}
	updated.BanReason = nil
	updated.BanUntilEpochMs = nil
	c.Store.Upsert(id, updated)

	if c.unbanMirror != nil {
		if err := c.unbanMirror(id); err != nil {
			c.Audit.LogAction("unban_mirror_error", id.String(), fmt.Sprintf("%d", actorID), fmt.Sprintf("unban mirror failed: %v", err), nil)
		}
	}

	c.Store.AppendEvent(model.EventEntry{
		Type:           model.EventUnban,
		TargetUUID:     model.Ptr(id.String()),
		ActorDiscordID: model.Ptr(actorID),
		Message:        reason,
		AtEpochMs:      c.now().UnixMilli(),
	})
	c.Audit.LogAction("unban", id.String(), fmt.Sprintf("%d", actorID), "Unbanned "+id.String(), nil)
	c.enqueueSave()
	return "Unbanned " + id.String()
}

// WarnPlayer increments a player's warn count and logs the action.
func (c *Core) WarnPlayer(id uuid.UUID, actorID uint64, reason string) string {
	pdata, exists := c.Store.Get(id)
	updated := model.PlayerRecord{}
	if exists {
		updated = pdata.Clone()
	}
	updated.WarnCount++
	c.Store.Upsert(id, updated)

	c.Store.AppendEvent(model.EventEntry{
		Type:           model.EventWarn,
		TargetUUID:     model.Ptr(id.String()),
		ActorDiscordID: model.Ptr(actorID),
		Message:        model.Ptr(reason),
		AtEpochMs:      c.now().UnixMilli(),
	})
	c.Audit.LogAction("warn", id.String(), fmt.Sprintf("%d", actorID), "Warned "+id.String()+": "+reason, nil)
	c.enqueueSave()
	return fmt.Sprintf("Warned %s (warnCount=%d)", id, updated.WarnCount)
}

// CommentOnPlayer logs a free-form note about a player. Comments are
// audit-only; they never mutate the player record itself.
func (c *Core) CommentOnPlayer(id uuid.UUID, actorID uint64, note string) string {
	c.Store.AppendEvent(model.EventEntry{
		Type:           model.EventComment,
		TargetUUID:     model.Ptr(id.String()),
		ActorDiscordID: model.Ptr(actorID),
		Message:        model.Ptr(note),
		AtEpochMs:      c.now().UnixMilli(),
	})
	c.Audit.LogAction("comment", id.String(), fmt.Sprintf("%d", actorID), note, nil)
	c.enqueueSave()
	return "Comment added to " + id.String()
}
