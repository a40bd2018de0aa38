package errutil

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/small-frappuccino/argus/pkg/log"
)

// Small dependency-light helpers that run an operation and consistently log
// any error it returns, so call sites don't duplicate logging boilerplate.
//
// Provides:
// - InitializeGlobalErrorHandler(logger *log.Logger) error
// - HandleDiscordError(operation string, fn func() error) error
// - HandleConfigError(operation, path string, fn func() error) error
// - HandleStoreError(operation, path string, fn func() error) error

var (
	mu     sync.RWMutex
	logger *log.Logger
)

// InitializeGlobalErrorHandler records the package-level logger. The error
// helpers themselves log through slog's default logger, which
// log.SetupLogger points at the application logger.
// It is safe to call multiple times; the last non-nil logger wins.
// Returns an error if the supplied logger is nil.
func InitializeGlobalErrorHandler(l *log.Logger) error {
	if l == nil {
		return fmt.Errorf("nil logger provided")
	}
	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

// HandleDiscordError executes fn and logs any error that occurs as a
// Discord-bridge-related error. It returns whatever error fn returns
// (unmodified), after logging it.
func HandleDiscordError(operation string, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("nil function provided")
	}

	err := fn()
	if err == nil {
		return nil
	}

	slog.Error("discord operation failed", "operation", operation, "error", err)
	return err
}

// HandleConfigError executes fn and logs any error that occurs as a
// configuration-related error. It returns a wrapped error with context
// about the operation and path.
func HandleConfigError(operation, path string, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("nil function provided")
	}

	err := fn()
	if err == nil {
		return nil
	}

	slog.Error("config operation failed", "operation", operation, "path", path, "error", err)
	return fmt.Errorf("config %s %s: %w", operation, path, err)
}

// HandleStoreError executes fn and logs any error that occurs as a
// cache-store/durable-storage error. It returns a wrapped error with
// context about the operation and path.
func HandleStoreError(operation, path string, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("nil function provided")
	}

	err := fn()
	if err == nil {
		return nil
	}

	slog.Error("store operation failed", "operation", operation, "path", path, "error", err)
	return fmt.Errorf("store %s %s: %w", operation, path, err)
}
