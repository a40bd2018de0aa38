package discordcmd

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/small-frappuccino/argus/pkg/engine"
	"github.com/small-frappuccino/argus/pkg/model"
)

func newTestCore(t *testing.T) *engine.Core {
	t.Helper()
	c := engine.NewCore(t.TempDir() + "/settings.json")
	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.Settings.Update("cacheFile", t.TempDir()+"/cache.json"); err != nil {
		t.Fatalf("Update cacheFile: %v", err)
	}
	t.Cleanup(func() { c.Store.Stop() })
	return c
}

func TestResolvePlayerByUUID(t *testing.T) {
	c := newTestCore(t)
	id := uuid.New()

	got, ok := resolvePlayer(c, id.String())
	if !ok || got != id {
		t.Fatalf("expected resolvePlayer to parse a raw UUID, got %v, %v", got, ok)
	}
}

func TestResolvePlayerByCachedName(t *testing.T) {
	c := newTestCore(t)
	id := uuid.New()
	name := "Steve"
	c.Store.Upsert(id, model.PlayerRecord{MCName: &name})

	got, ok := resolvePlayer(c, "steve")
	if !ok || got != id {
		t.Fatalf("expected resolvePlayer to find the cached player by name case-insensitively, got %v, %v", got, ok)
	}
}

func TestResolvePlayerUnknown(t *testing.T) {
	c := newTestCore(t)
	if _, ok := resolvePlayer(c, "nobody"); ok {
		t.Fatal("expected resolvePlayer to fail for an unknown name")
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(0); got != nil {
		t.Fatalf("expected nil for non-positive minutes, got %v", *got)
	}
	if got := formatDuration(-5); got != nil {
		t.Fatalf("expected nil for negative minutes, got %v", *got)
	}

	got := formatDuration(10)
	if got == nil {
		t.Fatal("expected a non-nil epoch offset for positive minutes")
	}
	if *got != 10*60*1000 {
		t.Fatalf("expected 600000ms, got %d", *got)
	}
}

func TestAdminCheckerForUsesConfiguredAdminRole(t *testing.T) {
	c := newTestCore(t)
	if err := c.Settings.Update("adminRoleId", "999"); err != nil {
		t.Fatalf("Update adminRoleId: %v", err)
	}

	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("discordgo.New: %v", err)
	}
	session.State = discordgo.NewState()

	guildID := "1"
	if err := session.State.GuildAdd(&discordgo.Guild{ID: guildID}); err != nil {
		t.Fatalf("GuildAdd: %v", err)
	}
	if err := session.State.MemberAdd(&discordgo.Member{
		GuildID: guildID,
		User:    &discordgo.User{ID: "42"},
		Roles:   []string{"999"},
	}); err != nil {
		t.Fatalf("MemberAdd: %v", err)
	}
	if err := session.State.MemberAdd(&discordgo.Member{
		GuildID: guildID,
		User:    &discordgo.User{ID: "7"},
		Roles:   []string{"111"},
	}); err != nil {
		t.Fatalf("MemberAdd: %v", err)
	}

	checker := AdminCheckerFor(c, session, guildID)
	if !checker(42) {
		t.Fatal("expected the member holding the admin role to pass")
	}
	if checker(7) {
		t.Fatal("expected the member without the admin role to fail")
	}
}
