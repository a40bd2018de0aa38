package errutil

import (
	"errors"
	"testing"
)

func TestInitializeGlobalErrorHandlerRejectsNil(t *testing.T) {
	if err := InitializeGlobalErrorHandler(nil); err == nil {
		t.Fatal("expected a nil logger to be rejected")
	}
}

func TestHandleDiscordErrorPassesThroughResult(t *testing.T) {
	if err := HandleDiscordError("noop", func() error { return nil }); err != nil {
		t.Fatalf("expected nil passthrough, got %v", err)
	}

	cause := errors.New("gateway closed")
	err := HandleDiscordError("connect", func() error { return cause })
	if !errors.Is(err, cause) {
		t.Fatal("expected the original error to be returned unmodified")
	}
}

func TestHandleConfigErrorWrapsWithContext(t *testing.T) {
	cause := errors.New("disk full")
	err := HandleConfigError("write", "/tmp/settings.json", func() error { return cause })
	if !errors.Is(err, cause) {
		t.Fatal("expected the wrapped error to unwrap to the cause")
	}
}

func TestHandleStoreErrorWrapsWithContext(t *testing.T) {
	cause := errors.New("permission denied")
	err := HandleStoreError("write", "/tmp/cache.json", func() error { return cause })
	if !errors.Is(err, cause) {
		t.Fatal("expected the wrapped error to unwrap to the cause")
	}
}

func TestHandlersRejectNilFunc(t *testing.T) {
	if err := HandleDiscordError("op", nil); err == nil {
		t.Fatal("expected a nil fn to be rejected")
	}
	if err := HandleConfigError("op", "path", nil); err == nil {
		t.Fatal("expected a nil fn to be rejected")
	}
	if err := HandleStoreError("op", "path", nil); err == nil {
		t.Fatal("expected a nil fn to be rejected")
	}
}
