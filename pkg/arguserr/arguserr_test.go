package arguserr

import (
	"errors"
	"testing"
)

func TestConfigErrorUnwrapAndErrorsIs(t *testing.T) {
	cause := errors.New("disk full")
	err := NewConfigError("write", "/tmp/settings.json", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to see through ConfigError to its cause")
	}
	if err.Error() == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestConfigErrorWithoutPathOmitsIt(t *testing.T) {
	err := NewConfigError("validate", "", errors.New("bad field"))
	if got := err.Error(); got != "config validate: bad field" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestStoreErrorUnwraps(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewStoreError("mkdir", "/var/argus", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to see through StoreError to its cause")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("application", "app-1")
	if err.Error() != "application not found: app-1" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestInvalidStateError(t *testing.T) {
	err := NewInvalidStateError("application already decided")
	if err.Error() != "application already decided" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestProfileLookupErrorUnwrapsAndClassifiesMessage(t *testing.T) {
	cause := errors.New("no such player")
	err := &ProfileLookupError{Name: "Steve", StatusCode: 204, Class: ProfileLookupNotFound, Cause: cause}

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to see through ProfileLookupError to its cause")
	}
	if got := err.Error(); got == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestErrInvalidOrExpiredTokenIsATokenError(t *testing.T) {
	var target *TokenError
	if !errors.As(ErrInvalidOrExpiredToken, &target) {
		t.Fatal("expected ErrInvalidOrExpiredToken to be a *TokenError")
	}
}
