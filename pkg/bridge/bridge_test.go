package bridge

import (
	"context"
	"testing"
)

func TestRoleStatusString(t *testing.T) {
	cases := []struct {
		status RoleStatus
		want   string
	}{
		{HasRole, "HasRole"},
		{MissingRole, "MissingRole"},
		{NotInGuild, "NotInGuild"},
		{Indeterminate, "Indeterminate"},
		{RoleStatus(99), "Unknown"},
	}
	for _, c := range cases {
		if got := c.status.String(); got != c.want {
			t.Errorf("RoleStatus(%d).String() = %q, want %q", c.status, got, c.want)
		}
	}
}

// fakeChecker and fakeSink exist only to document that the interfaces are
// satisfiable by a minimal type, the same contract pkg/engine relies on
// when it is exercised with fakes instead of the real Discord bridge.
type fakeChecker struct{ status RoleStatus }

func (f fakeChecker) CheckWhitelistStatus(_ context.Context, _ uint64) RoleStatus {
	return f.status
}

var _ RoleStatusChecker = fakeChecker{}

type fakeSink struct {
	identities []IdentityChange
	roleSets   []RoleSetChange
}

func (f *fakeSink) OnIdentityChange(change IdentityChange) { f.identities = append(f.identities, change) }
func (f *fakeSink) OnRoleSetChange(change RoleSetChange)   { f.roleSets = append(f.roleSets, change) }

func TestEventSinkRecordsEvents(t *testing.T) {
	sink := &fakeSink{}
	var s EventSink = sink

	name := "Alice"
	s.OnIdentityChange(IdentityChange{DiscordID: 42, NewName: &name})
	s.OnRoleSetChange(RoleSetChange{DiscordID: 42, RoleIDs: []uint64{1, 2}})

	if len(sink.identities) != 1 || sink.identities[0].DiscordID != 42 {
		t.Fatalf("expected one recorded identity change for 42, got %+v", sink.identities)
	}
	if len(sink.roleSets) != 1 || len(sink.roleSets[0].RoleIDs) != 2 {
		t.Fatalf("expected one recorded role-set change with 2 roles, got %+v", sink.roleSets)
	}
}
