// Package audit implements the Audit Log component: an append-only
// stream of structured entries mirrored to the process logger, with a
// pluggable dispatcher that best-effort forwards entries to the Discord
// bridge without ever propagating a dispatch failure to the caller.
package audit

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/small-frappuccino/argus/pkg/log"
)

// Entry is a structured audit record.
type Entry struct {
	Action      string
	Subject     string
	Actor       string
	Description string
	Metadata    map[string]string
}

// Dispatcher forwards an audit entry to an external sink (typically the
// Discord log channel). Dispatch failures must never propagate to the
// caller of Log; the Log package catches and logs them itself.
type Dispatcher interface {
	Dispatch(entry Entry) error
}

// Log is the process-wide audit sink. The zero value is usable; call
// SetDispatcher once the Discord bridge has finished starting.
type Log struct {
	dispatcher atomic.Pointer[Dispatcher]
}

// New constructs an audit Log with no dispatcher configured.
func New() *Log {
	return &Log{}
}

// SetDispatcher installs (or replaces) the dispatcher used to forward
// entries. Swaps are atomic so concurrent Log calls never observe a torn
// dispatcher pointer.
func (l *Log) SetDispatcher(d Dispatcher) {
	l.dispatcher.Store(&d)
}

// ClearDispatcher removes the current dispatcher, e.g. during bridge shutdown.
func (l *Log) ClearDispatcher() {
	l.dispatcher.Store(nil)
}

// LogEntry records a fully structured entry.
func (l *Log) LogEntry(entry Entry) {
	l.mirrorToLogger(entry)
	l.dispatch(entry)
}

// LogAction is the convenience form used throughout the decision engine:
// action plus optional subject/actor/description/metadata.
func (l *Log) LogAction(action, subject, actor, description string, metadata map[string]string) {
	l.LogEntry(Entry{
		Action:      action,
		Subject:     subject,
		Actor:       actor,
		Description: description,
		Metadata:    metadata,
	})
}

// LogMessage is the legacy form: an unstructured message logged under the
// generic "audit" action.
func (l *Log) LogMessage(message string) {
	l.LogEntry(Entry{Action: "audit", Description: message})
}

func (l *Log) mirrorToLogger(entry Entry) {
	parts := make([]string, 0, 4)
	parts = append(parts, entry.Action)
	if entry.Subject != "" {
		parts = append(parts, entry.Subject)
	}
	if entry.Actor != "" {
		parts = append(parts, fmt.Sprintf("by %s", entry.Actor))
	}
	if entry.Description != "" {
		parts = append(parts, entry.Description)
	}
	log.DiscordLogger().Info(strings.Join(parts, " -- "))
}

func (l *Log) dispatch(entry Entry) {
	ptr := l.dispatcher.Load()
	if ptr == nil {
		return
	}
	d := *ptr
	if d == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Applicationf("audit dispatcher panicked: %v", r)
		}
	}()

	if err := d.Dispatch(entry); err != nil {
		log.Warn().Applicationf("audit dispatch failed: %v", err)
	}
}
