package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/small-frappuccino/argus/pkg/bridge"
	"github.com/small-frappuccino/argus/pkg/model"
)

type fakeChecker struct{ status bridge.RoleStatus }

func (f fakeChecker) CheckWhitelistStatus(_ context.Context, _ uint64) bridge.RoleStatus {
	return f.status
}

func newFullCore(t *testing.T, configured, enforcement bool) *Core {
	t.Helper()
	c := NewCore(t.TempDir() + "/settings.json")
	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.Settings.Update("enforcementEnabled", boolString(enforcement)); err != nil {
		t.Fatalf("Update enforcementEnabled: %v", err)
	}
	if err := c.Settings.Update("cacheFile", t.TempDir()+"/cache.json"); err != nil {
		t.Fatalf("Update cacheFile: %v", err)
	}
	t.Cleanup(func() { c.Store.Stop() })
	if configured {
		for field, value := range map[string]string{
			"botToken":        "x",
			"guildId":         "1",
			"whitelistRoleId": "2",
			"adminRoleId":     "3",
		} {
			if err := c.Settings.Update(field, value); err != nil {
				t.Fatalf("Update %s: %v", field, err)
			}
		}
	}
	c.discordStarted.Store(configured)
	return c
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestOnPlayerLoginOpBypassesEverything(t *testing.T) {
	c := newFullCore(t, false, true)
	result := c.OnPlayerLogin(context.Background(), uuid.New(), "Steve", true, false, true)
	if !result.Allowed() {
		t.Fatal("expected op to always be allowed")
	}
}

func TestOnPlayerLoginWhitelistDisabledAllows(t *testing.T) {
	c := newFullCore(t, false, true)
	result := c.OnPlayerLogin(context.Background(), uuid.New(), "Steve", false, false, false)
	if !result.Allowed() {
		t.Fatal("expected allow when whitelist enforcement is globally off")
	}
}

func TestOnPlayerLoginNotConfiguredFallsBackToHostBan(t *testing.T) {
	c := newFullCore(t, false, true)
	id := uuid.New()
	reason := "griefing"
	until := time.Now().Add(time.Hour).UnixMilli()
	c.Store.Upsert(id, model.PlayerRecord{BanReason: &reason, BanUntilEpochMs: &until})

	result := c.OnPlayerLogin(context.Background(), id, "Steve", false, false, true)
	if result.Allowed() {
		t.Fatal("expected an active ban to deny login even with Discord unconfigured")
	}
}

func TestOnPlayerLoginLegacyUnlinkedIsKicked(t *testing.T) {
	c := newFullCore(t, true, true)
	c.SetBridge(fakeChecker{status: bridge.Indeterminate})
	id := uuid.New()

	result := c.OnPlayerLogin(context.Background(), id, "Steve", false, true, true)
	if result.Allowed() {
		t.Fatal("expected legacy-whitelisted but unlinked player to be denied with a link token")
	}
	if result.Message() == "" {
		t.Fatal("expected a denial message containing the link instructions")
	}
}

func TestOnPlayerLoginHasRoleGrantsAccess(t *testing.T) {
	c := newFullCore(t, true, true)
	c.SetBridge(fakeChecker{status: bridge.HasRole})
	id := uuid.New()
	discordID := uint64(555)
	c.Store.Upsert(id, model.PlayerRecord{DiscordID: &discordID})

	result := c.OnPlayerLogin(context.Background(), id, "Steve", false, false, true)
	if !result.Allowed() {
		t.Fatalf("expected access to be granted once the live role check reports HasRole, got deny: %s", result.Message())
	}

	pdata, ok := c.Store.Get(id)
	if !ok || pdata.HasAccess == nil || !*pdata.HasAccess {
		t.Fatal("expected HasAccess to be persisted true after reconciliation")
	}
}

func TestOnPlayerLoginMissingRoleRevokesAccessWhenEnforced(t *testing.T) {
	c := newFullCore(t, true, true)
	c.SetBridge(fakeChecker{status: bridge.MissingRole})
	id := uuid.New()
	discordID := uint64(555)
	c.Store.Upsert(id, model.PlayerRecord{DiscordID: &discordID, HasAccess: model.Ptr(false)})

	c.OnPlayerLogin(context.Background(), id, "Steve", false, false, true)

	pdata, ok := c.Store.Get(id)
	if !ok || pdata.HasAccess == nil || *pdata.HasAccess {
		t.Fatal("expected HasAccess to remain/become false when the live check reports MissingRole")
	}
}

func TestReconcileLoginAccessDryRunDoesNotPersist(t *testing.T) {
	c := newFullCore(t, true, false)
	id := uuid.New()
	original := model.PlayerRecord{HasAccess: model.Ptr(true)}
	c.Store.Upsert(id, original)

	c.reconcileLoginAccess(id, original, bridge.NotInGuild, c.Settings.Current())

	pdata, _ := c.Store.Get(id)
	if pdata.HasAccess == nil || !*pdata.HasAccess {
		t.Fatal("expected dry-run mode to leave the stored access flag untouched")
	}
}

func TestWhitelistAddThenRemove(t *testing.T) {
	c := newFullCore(t, false, true)
	id := uuid.New()
	name := "Alice"

	c.WhitelistAdd(id, &name, "admin#1")
	pdata, ok := c.Store.Get(id)
	if !ok || pdata.HasAccess == nil || !*pdata.HasAccess {
		t.Fatal("expected WhitelistAdd to grant access")
	}
	if pdata.MCName == nil || *pdata.MCName != "Alice" {
		t.Fatal("expected WhitelistAdd to record the mc name")
	}

	c.WhitelistRemove(id, "admin#1")
	pdata, ok = c.Store.Get(id)
	if !ok || pdata.HasAccess == nil || *pdata.HasAccess {
		t.Fatal("expected WhitelistRemove to revoke access")
	}
}

func TestBanDenialPermanentVsTimed(t *testing.T) {
	c := newFullCore(t, false, true)

	reason := "cheating"
	permanent := model.PlayerRecord{BanReason: &reason}
	result := c.banDenial(permanent)
	if result.Allowed() {
		t.Fatal("expected a ban to deny")
	}

	until := c.now().Add(10 * time.Second).UnixMilli()
	timed := model.PlayerRecord{BanReason: &reason, BanUntilEpochMs: &until}
	result = c.banDenial(timed)
	if result.Allowed() {
		t.Fatal("expected a timed ban still in effect to deny")
	}
}
