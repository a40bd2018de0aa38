package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/small-frappuccino/argus/pkg/model"
)

// WhitelistAdd grants a player access and logs the action.
func (c *Core) WhitelistAdd(id uuid.UUID, mcName *string, actorLabel string) string {
	pdata, exists := c.Store.Get(id)
	updated := model.PlayerRecord{}
	if exists {
		updated = pdata.Clone()
	}
	updated.HasAccess = model.Ptr(true)
	if mcName != nil {
		updated.MCName = mcName
	}
	c.Store.Upsert(id, updated)

	c.Store.AppendEvent(model.EventEntry{
		Type:       model.EventWhitelistAdd,
		TargetUUID: model.Ptr(id.String()),
		Message:    model.Ptr(fmt.Sprintf("by %s", actorLabel)),
		AtEpochMs:  c.now().UnixMilli(),
	})
	c.Audit.LogAction("whitelist_add", id.String(), actorLabel, "Whitelisted "+id.String(), nil)
	c.enqueueSave()
	return "Whitelisted " + id.String()
}

// WhitelistRemove revokes a player's access and logs the action.
func (c *Core) WhitelistRemove(id uuid.UUID, actorLabel string) string {
	pdata, exists := c.Store.Get(id)
	updated := model.PlayerRecord{}
	if exists {
		updated = pdata.Clone()
	}
	updated.HasAccess = model.Ptr(false)
	c.Store.Upsert(id, updated)

	c.Store.AppendEvent(model.EventEntry{
		Type:       model.EventWhitelistRemove,
		TargetUUID: model.Ptr(id.String()),
		Message:    model.Ptr(fmt.Sprintf("by %s", actorLabel)),
		AtEpochMs:  c.now().UnixMilli(),
	})
	c.Audit.LogAction("whitelist_remove", id.String(), actorLabel, "Removed "+id.String()+" from whitelist", nil)
	c.enqueueSave()
	return "Removed " + id.String() + " from whitelist"
}

// WhitelistStatus renders a player's current access state as a string.
func (c *Core) WhitelistStatus(id uuid.UUID) string {
	pdata, exists := c.Store.Get(id)
	if !exists {
		return fmt.Sprintf("No entry for %s", id)
	}

	parts := []string{fmt.Sprintf("hasAccess=%s", boolPtrString(pdata.HasAccess))}
	if pdata.MCName != nil {
		parts = append(parts, "mcName="+*pdata.MCName)
	}
	if pdata.DiscordID != nil {
		parts = append(parts, fmt.Sprintf("discordId=%d", *pdata.DiscordID))
	}
	if pdata.IsBanActive(c.now()) {
		parts = append(parts, "banned=true")
	}
	return strings.Join(parts, " ")
}

func boolPtrString(b *bool) string {
	if b == nil {
		return "unknown"
	}
	if *b {
		return "true"
	}
	return "false"
}
