package audit

import (
	"errors"
	"testing"
)

type recordingDispatcher struct {
	entries []Entry
	err     error
}

func (d *recordingDispatcher) Dispatch(entry Entry) error {
	d.entries = append(d.entries, entry)
	return d.err
}

func TestLogActionWithNoDispatcherDoesNotPanic(t *testing.T) {
	l := New()
	l.LogAction("ban", "player-1", "admin#1", "cheating", nil)
}

func TestSetDispatcherForwardsEntries(t *testing.T) {
	l := New()
	d := &recordingDispatcher{}
	l.SetDispatcher(d)

	l.LogAction("ban", "player-1", "admin#1", "cheating", map[string]string{"reason": "cheating"})

	if len(d.entries) != 1 {
		t.Fatalf("expected 1 dispatched entry, got %d", len(d.entries))
	}
	if d.entries[0].Action != "ban" || d.entries[0].Subject != "player-1" {
		t.Fatalf("unexpected entry: %+v", d.entries[0])
	}
}

func TestClearDispatcherStopsForwarding(t *testing.T) {
	l := New()
	d := &recordingDispatcher{}
	l.SetDispatcher(d)
	l.ClearDispatcher()

	l.LogMessage("hello")

	if len(d.entries) != 0 {
		t.Fatal("expected no entries once the dispatcher is cleared")
	}
}

func TestDispatchErrorDoesNotPropagate(t *testing.T) {
	l := New()
	d := &recordingDispatcher{err: errors.New("discord unavailable")}
	l.SetDispatcher(d)

	l.LogMessage("still logs locally")

	if len(d.entries) != 1 {
		t.Fatal("expected the dispatcher to still be invoked despite returning an error")
	}
}

type panickingDispatcher struct{}

func (panickingDispatcher) Dispatch(Entry) error { panic("boom") }

func TestDispatchPanicIsRecovered(t *testing.T) {
	l := New()
	l.SetDispatcher(panickingDispatcher{})

	l.LogMessage("should not crash the caller")
}
