package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/small-frappuccino/argus/pkg/arguserr"
	"github.com/small-frappuccino/argus/pkg/model"
)

// SubmitApplication resolves the given Minecraft username and records a
// pending whitelist application for it. Profile Resolver failures
// propagate verbatim to the caller.
func (c *Core) SubmitApplication(ctx context.Context, discordID uint64, mcName string) (string, error) {
	prof, err := c.Profile.Resolve(ctx, mcName)
	if err != nil {
		return "", err
	}

	id := model.NewApplicationID()
	app := model.WhitelistApplication{
		ID:                 id,
		DiscordID:          discordID,
		MCName:             prof.CanonicalName,
		ResolvedUUID:       model.Ptr(prof.UUID.String()),
		Status:             model.ApplicationPending,
		SubmittedAtEpochMs: c.now().UnixMilli(),
	}
	c.Store.AddApplication(app)

	c.Store.AppendEvent(model.EventEntry{
		Type:            model.EventApplySubmit,
		TargetDiscordID: model.Ptr(discordID),
		Message:         model.Ptr("Applied as " + prof.CanonicalName),
		AtEpochMs:       app.SubmittedAtEpochMs,
	})
	c.Audit.LogAction("apply_submit", prof.CanonicalName, fmt.Sprintf("%d", discordID), "Applied as "+prof.CanonicalName, nil)
	c.enqueueSave()
	return id, nil
}

// ListPendingApplications returns pending applications ordered oldest
// first.
func (c *Core) ListPendingApplications() []model.WhitelistApplication {
	all := c.Store.ApplicationsSnapshot()
	pending := make([]model.WhitelistApplication, 0, len(all))
	for _, a := range all {
		if a.Status == model.ApplicationPending {
			pending = append(pending, a)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].SubmittedAtEpochMs < pending[j].SubmittedAtEpochMs
	})
	return pending
}

// ApproveApplication grants access to the applicant and marks the
// application approved.
func (c *Core) ApproveApplication(id string, actorDiscordID uint64, reason *string) (string, error) {
	app, ok := c.Store.GetApplication(id)
	if !ok {
		return "", arguserr.NewNotFoundError("application", id)
	}
	if app.Status != model.ApplicationPending {
		return "", arguserr.NewInvalidStateError("Application already decided")
	}
	if app.ResolvedUUID == nil {
		return "", arguserr.NewInvalidStateError("Application missing resolved UUID")
	}
	playerID, err := uuid.Parse(*app.ResolvedUUID)
	if err != nil {
		return "", arguserr.NewInvalidStateError("Application has invalid resolved UUID")
	}

	c.detachCollidingDiscordID(app.DiscordID, playerID)

	pdata, exists := c.Store.Get(playerID)
	updated := model.PlayerRecord{}
	if exists {
		updated = pdata.Clone()
	}
	updated.HasAccess = model.Ptr(true)
	updated.MCName = model.Ptr(app.MCName)
	updated.DiscordID = model.Ptr(app.DiscordID)
	c.Store.Upsert(playerID, updated)

	decidedAt := c.now().UnixMilli()
	if _, ok := c.Store.UpdateApplication(id, func(cur model.WhitelistApplication) (model.WhitelistApplication, bool) {
		if cur.Status != model.ApplicationPending {
			return model.WhitelistApplication{}, false
		}
		cur.Status = model.ApplicationApproved
		cur.DecidedAtEpochMs = model.Ptr(decidedAt)
		cur.DecidedByDiscordID = model.Ptr(actorDiscordID)
		cur.Reason = reason
		return cur, true
	}); !ok {
		return "", arguserr.NewInvalidStateError("Application already decided")
	}

	c.Store.AppendEvent(model.EventEntry{
		Type:            model.EventApplyApprove,
		TargetUUID:      model.Ptr(playerID.String()),
		TargetDiscordID: model.Ptr(app.DiscordID),
		ActorDiscordID:  model.Ptr(actorDiscordID),
		Message:         reason,
		AtEpochMs:       decidedAt,
	})
	c.Audit.LogAction("apply_approve", app.MCName, fmt.Sprintf("%d", actorDiscordID), "Approved "+app.MCName, nil)
	c.enqueueSave()
	return "Approved " + app.MCName, nil
}

// DenyApplication marks a pending application denied without granting
// access.
func (c *Core) DenyApplication(id string, actorDiscordID uint64, reason *string) (string, error) {
	app, ok := c.Store.GetApplication(id)
	if !ok {
		return "", arguserr.NewNotFoundError("application", id)
	}

	decidedAt := c.now().UnixMilli()
	if _, ok := c.Store.UpdateApplication(id, func(cur model.WhitelistApplication) (model.WhitelistApplication, bool) {
		if cur.Status != model.ApplicationPending {
			return model.WhitelistApplication{}, false
		}
		cur.Status = model.ApplicationDenied
		cur.DecidedAtEpochMs = model.Ptr(decidedAt)
		cur.DecidedByDiscordID = model.Ptr(actorDiscordID)
		cur.Reason = reason
		return cur, true
	}); !ok {
		return "", arguserr.NewInvalidStateError("Application already decided")
	}

	c.Store.AppendEvent(model.EventEntry{
		Type:            model.EventApplyDeny,
		TargetDiscordID: model.Ptr(app.DiscordID),
		ActorDiscordID:  model.Ptr(actorDiscordID),
		Message:         reason,
		AtEpochMs:       decidedAt,
	})
	c.Audit.LogAction("apply_deny", app.MCName, fmt.Sprintf("%d", actorDiscordID), "Denied application "+app.MCName, nil)
	c.enqueueSave()
	return "Denied application " + app.MCName, nil
}
