package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/small-frappuccino/argus/pkg/bridge"
	"github.com/small-frappuccino/argus/pkg/config"
	"github.com/small-frappuccino/argus/pkg/model"
)

const liveQueryTimeout = 2 * time.Second

// OnPlayerLogin decides whether a logging-in player is allowed through.
// The login path is cache-first and never blocks on the Discord gateway
// beyond a single bounded live-role query.
func (c *Core) OnPlayerLogin(ctx context.Context, id uuid.UUID, name string, isOp, isLegacyWhitelisted, whitelistEnabled bool) LoginResult {
	if isOp || !whitelistEnabled {
		return AllowResult()
	}

	settings := c.Settings.Current()
	discordUp := c.isDiscordUp()
	configured := settings.IsConfigured()

	pdata, exists := c.Store.Get(id)

	if !configured || !discordUp {
		if exists && pdata.IsBanActive(c.now()) {
			return c.banDenial(pdata)
		}
		return AllowResult()
	}

	pdata, exists = c.syncMCName(id, pdata, exists, name)

	var liveStatus *bridge.RoleStatus
	if exists && pdata.DiscordID != nil && (pdata.HasAccess == nil || !*pdata.HasAccess) {
		queryCtx, cancel := context.WithTimeout(ctx, liveQueryTimeout)
		status := c.bridgeChecker.CheckWhitelistStatus(queryCtx, *pdata.DiscordID)
		cancel()
		liveStatus = &status
	}

	if exists && liveStatus != nil {
		pdata = c.reconcileLoginAccess(id, pdata, *liveStatus, settings)
	}

	if exists && pdata.IsBanActive(c.now()) {
		return c.banDenial(pdata)
	}

	if isLegacyWhitelisted && (!exists || pdata.DiscordID == nil) {
		return c.legacyKick(id, name, settings)
	}

	if exists && pdata.HasAccess != nil && *pdata.HasAccess {
		c.markFirstAllow(id)
		return AllowResult()
	}

	if exists && pdata.HasAccess != nil && !*pdata.HasAccess {
		c.Audit.LogAction("access_denied_vanilla", id.String(), "", "No Discord whitelist access; falling back to host whitelist", nil)
		return AllowResult()
	}

	return AllowResult()
}

func (c *Core) syncMCName(id uuid.UUID, pdata model.PlayerRecord, exists bool, name string) (model.PlayerRecord, bool) {
	if !exists {
		return pdata, false
	}
	if pdata.MCName == nil {
		updated := pdata.Clone()
		updated.MCName = model.Ptr(name)
		c.Store.Upsert(id, updated)
		return updated, true
	}
	if *pdata.MCName != name {
		old := *pdata.MCName
		updated := pdata.Clone()
		updated.MCName = model.Ptr(name)
		c.Store.Upsert(id, updated)
		c.Audit.LogAction("mc_name_change", id.String(), "", fmt.Sprintf("MC name changed: %s -> %s (%s)", old, name, id), nil)
		c.enqueueSave()
		return updated, true
	}
	return pdata, true
}

// reconcileLoginAccess updates a player's cached access flag to match a
// freshly observed live role status, logging the transition.
func (c *Core) reconcileLoginAccess(id uuid.UUID, pdata model.PlayerRecord, status bridge.RoleStatus, settings config.Settings) model.PlayerRecord {
	if status == bridge.Indeterminate {
		return pdata
	}

	var newAccess bool
	var lossReason string
	switch status {
	case bridge.HasRole:
		newAccess = true
	case bridge.MissingRole:
		newAccess = false
		lossReason = "missing Discord whitelist role"
	case bridge.NotInGuild:
		newAccess = false
		lossReason = "left Discord guild"
	}

	if status == bridge.NotInGuild {
		c.Audit.LogAction("access_revoked", id.String(), "", "Access revoked: left Discord guild", nil)
	}

	updated := pdata.Clone()
	updated.HasAccess = model.Ptr(newAccess)

	if settings.EnforcementEnabled {
		c.Store.Upsert(id, updated)
		c.enqueueSave()
		return updated
	}

	if lossReason != "" {
		c.Audit.LogAction("dry_run_access_loss", id.String(), "", fmt.Sprintf("[DRY-RUN] Access would be revoked: %s", lossReason), nil)
	}
	return pdata
}

func (c *Core) legacyKick(id uuid.UUID, name string, settings config.Settings) LoginResult {
	token, err := c.Tokens.IssueToken(id, model.Ptr(name))
	if err != nil {
		// Token generation failure must never escalate the login path;
		// fall back to the conservative default.
		c.Audit.LogAction("legacy_kick_error", id.String(), "", fmt.Sprintf("failed to issue link token: %v", err), nil)
		return AllowResult()
	}

	if !c.Store.HasEventForUUID(model.EventFirstLegacyKick, id.String()) {
		c.Store.AppendEvent(model.EventEntry{
			Type:       model.EventFirstLegacyKick,
			TargetUUID: model.Ptr(id.String()),
			AtEpochMs:  c.now().UnixMilli(),
		})
		c.enqueueSave()
		c.Audit.LogAction("first_legacy_kick", id.String(), "", "Previously whitelisted but unlinked -- kicked with link token", nil)
	}

	if settings.EnforcementEnabled {
		msg := c.argusPrefixed(c.withInvite(fmt.Sprintf("Verification Required: /link %s in Discord", token), settings))
		return DenyResult(msg, true)
	}

	c.Audit.LogAction("dry_run_legacy_kick", id.String(), "", "[DRY-RUN] Would deny legacy-unlinked "+id.String(), nil)
	return AllowResult()
}

func (c *Core) markFirstAllow(id uuid.UUID) {
	if c.Store.HasEventForUUID(model.EventFirstAllow, id.String()) {
		return
	}
	c.Store.AppendEvent(model.EventEntry{
		Type:       model.EventFirstAllow,
		TargetUUID: model.Ptr(id.String()),
		AtEpochMs:  c.now().UnixMilli(),
	})
	c.enqueueSave()
	c.Audit.LogAction("first_allow", id.String(), "", "First login seen (allow): "+id.String(), nil)
}

// banDenial builds the deny result for a player with an active ban.
func (c *Core) banDenial(pdata model.PlayerRecord) LoginResult {
	reason := "Banned"
	if pdata.BanReason != nil {
		reason = *pdata.BanReason
	}
	if pdata.BanUntilEpochMs == nil {
		return DenyResult(c.argusPrefixed(fmt.Sprintf("%s (permanently banned)", reason)), false)
	}
	remaining := (*pdata.BanUntilEpochMs - c.now().UnixMilli()) / 1000
	if remaining < 0 {
		remaining = 0
	}
	return DenyResult(c.argusPrefixed(fmt.Sprintf("%s (%ds remaining)", reason, remaining)), false)
}
