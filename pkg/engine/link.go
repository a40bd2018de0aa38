package engine

import (
	"fmt"

	"github.com/small-frappuccino/argus/pkg/arguserr"
	"github.com/small-frappuccino/argus/pkg/model"
)

// LinkDiscordUser consumes a one-time link token, attaching the Discord
// identity to the linked player record.
func (c *Core) LinkDiscordUser(token string, discordID uint64, discordName string, discordNick *string) (string, error) {
	entry, ok := c.Tokens.Consume(token)
	if !ok {
		return "", arguserr.ErrInvalidOrExpiredToken
	}

	c.detachCollidingDiscordID(discordID, entry.UUID)

	pdata, exists := c.Store.Get(entry.UUID)
	updated := model.PlayerRecord{}
	if exists {
		updated = pdata.Clone()
	}
	updated.DiscordID = model.Ptr(discordID)
	updated.DiscordName = model.Ptr(discordName)
	updated.DiscordNick = discordNick
	updated.HasAccess = model.Ptr(true)
	if updated.MCName == nil && entry.MCName != nil {
		updated.MCName = entry.MCName
	}
	c.Store.Upsert(entry.UUID, updated)

	c.Store.AppendEvent(model.EventEntry{
		Type:            model.EventLink,
		TargetUUID:      model.Ptr(entry.UUID.String()),
		TargetDiscordID: model.Ptr(discordID),
		AtEpochMs:       c.now().UnixMilli(),
	})
	c.Audit.LogAction("link", entry.UUID.String(), fmt.Sprintf("%d", discordID),
		fmt.Sprintf("Linked minecraft user %s to Discord user %d", entry.UUID, discordID), nil)

	if c.messenger != nil {
		c.messenger(entry.UUID, fmt.Sprintf("Linked Discord user: %s", discordName))
	}

	c.enqueueSave()
	return "Linked successfully.", nil
}
