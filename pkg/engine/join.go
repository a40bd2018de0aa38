package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/small-frappuccino/argus/pkg/bridge"
	"github.com/small-frappuccino/argus/pkg/config"
	"github.com/small-frappuccino/argus/pkg/model"
)

// OnPlayerJoin decides what, if anything, to tell a player as they join.
// The returned string, when non-nil, is a disconnect reason if it begins
// with "[argus] Access revoked" or "Link required", otherwise a chat greeting.
func (c *Core) OnPlayerJoin(ctx context.Context, id uuid.UUID, isOp, whitelistEnabled bool, mcNameHint *string) *string {
	settings := c.Settings.Current()
	pdata, exists := c.Store.Get(id)

	if isOp {
		if settings.IsConfigured() && (!exists || pdata.DiscordID == nil) {
			token, err := c.Tokens.IssueToken(id, mcNameHint)
			if err != nil {
				return nil
			}
			msg := fmt.Sprintf("Please link your Discord account: /link %s in Discord", token)
			return &msg
		}
		if exists && pdata.DiscordName != nil {
			msg := fmt.Sprintf("Welcome %s", *pdata.DiscordName)
			return &msg
		}
		return nil
	}

	if whitelistEnabled && settings.IsConfigured() {
		if !exists || pdata.DiscordID == nil {
			token, err := c.Tokens.IssueToken(id, mcNameHint)
			if err != nil {
				return nil
			}
			msg := c.linkRequiredMessage(token, settings)
			return &msg
		}
		return c.refreshAccessOnJoin(ctx, id, pdata, settings)
	}

	if exists && (pdata.HasAccess == nil || *pdata.HasAccess) {
		name := "player"
		switch {
		case pdata.DiscordName != nil:
			name = *pdata.DiscordName
		case pdata.MCName != nil:
			name = *pdata.MCName
		case mcNameHint != nil:
			name = *mcNameHint
		}
		msg := fmt.Sprintf("Welcome %s", name)
		return &msg
	}

	return nil
}

func (c *Core) linkRequiredMessage(token string, settings config.Settings) string {
	if settings.EnforcementEnabled {
		return c.withInvite(fmt.Sprintf("Link required: /link %s in Discord", token), settings)
	}
	return fmt.Sprintf("Please link your Discord account: /link %s in Discord", token)
}

// refreshAccessOnJoin re-checks a linked player's live Discord role
// status and reconciles the cached access flag against it.
func (c *Core) refreshAccessOnJoin(ctx context.Context, id uuid.UUID, pdata model.PlayerRecord, settings config.Settings) *string {
	queryCtx, cancel := context.WithTimeout(ctx, liveQueryTimeout)
	defer cancel()
	status := c.bridgeChecker.CheckWhitelistStatus(queryCtx, *pdata.DiscordID)

	if status == bridge.Indeterminate {
		return nil
	}

	updated := pdata.Clone()
	switch status {
	case bridge.HasRole:
		updated.HasAccess = model.Ptr(true)
	case bridge.MissingRole, bridge.NotInGuild:
		updated.HasAccess = model.Ptr(false)
	}
	c.Store.Upsert(id, updated)
	c.enqueueSave()

	switch status {
	case bridge.NotInGuild:
		c.Audit.LogAction("access_revoked", id.String(), "", "Access revoked: left Discord guild", nil)
		if settings.EnforcementEnabled {
			msg := c.argusPrefixed("Access revoked: left Discord guild")
			return &msg
		}
		return nil
	case bridge.MissingRole:
		if !settings.EnforcementEnabled {
			c.Audit.LogAction("dry_run_access_loss", id.String(), "", "[DRY-RUN] Access would be revoked: missing Discord whitelist role", nil)
			return nil
		}
		msg := c.argusPrefixed("Access revoked: missing Discord whitelist role")
		return &msg
	default:
		return nil
	}
}
