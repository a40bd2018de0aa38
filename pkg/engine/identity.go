package engine

import (
	"fmt"

	"github.com/small-frappuccino/argus/pkg/bridge"
	"github.com/small-frappuccino/argus/pkg/model"
)

// OnIdentityChange handles a Discord display-name or nickname change,
// updating the linked player record and logging it. Satisfies
// bridge.EventSink.
func (c *Core) OnIdentityChange(change bridge.IdentityChange) {
	id, pdata, exists := c.Store.FindByDiscordID(change.DiscordID)

	oldName, oldNick := "", ""
	if exists {
		oldName = optionalString(pdata.DiscordName)
		oldNick = optionalString(pdata.DiscordNick)
	}

	renamed := change.NewName != nil && optionalString(change.NewName) != oldName
	renicked := change.NewNick != nil && optionalString(change.NewNick) != oldNick
	if !renamed && !renicked {
		return
	}

	if exists {
		updated := pdata.Clone()
		if renamed {
			updated.DiscordName = change.NewName
		}
		if renicked {
			updated.DiscordNick = change.NewNick
		}
		c.Store.Upsert(id, updated)
		c.enqueueSave()
	}

	if renamed {
		c.Audit.LogAction("identity_name_change", fmt.Sprintf("%d", change.DiscordID), "",
			fmt.Sprintf("Discord name changed: %s -> %s", oldName, optionalString(change.NewName)), nil)
	}
	if renicked {
		c.Audit.LogAction("identity_nick_change", fmt.Sprintf("%d", change.DiscordID), "",
			fmt.Sprintf("Discord nick changed: %s -> %s", oldNick, optionalString(change.NewNick)), nil)
	}
}

// OnRoleSetChange handles a membership/role-set update. The upsert is
// keyed by game UUID, so a role update for a Discord user with no linked
// player record has nothing to persist against and is skipped. Satisfies
// bridge.EventSink.
func (c *Core) OnRoleSetChange(change bridge.RoleSetChange) {
	id, pdata, exists := c.Store.FindByDiscordID(change.DiscordID)
	if !exists {
		return
	}

	settings := c.Settings.Current()
	updated := pdata.Clone()
	updated.HasAccess = model.Ptr(containsRoleID(change.RoleIDs, settings.WhitelistRoleID))
	updated.IsAdmin = containsRoleID(change.RoleIDs, settings.AdminRoleID)

	c.Store.Upsert(id, updated)
	c.Audit.LogAction("role_update", fmt.Sprintf("%d", change.DiscordID), "", "Role update", nil)
	c.enqueueSave()
}
