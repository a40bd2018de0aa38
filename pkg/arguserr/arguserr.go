// Package arguserr defines the closed error taxonomy the decision engine
// and its components use: ConfigError, StoreError, NotFoundError,
// InvalidStateError, ProfileLookupError, and TokenError. Engine
// operations report their domain failures with these types; the Discord
// bridge's own open/close errors are wrapped with fmt.Errorf instead.
package arguserr

import "fmt"

// ConfigError wraps a configuration load/save/parse/validate failure.
type ConfigError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("config %s %s: %v", e.Operation, e.Path, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

func NewConfigError(operation, path string, cause error) *ConfigError {
	return &ConfigError{Operation: operation, Path: path, Cause: cause}
}

// StoreError wraps a cache-store or durable-storage I/O/deserialization failure.
type StoreError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Operation, e.Path, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

func NewStoreError(operation, path string, cause error) *StoreError {
	return &StoreError{Operation: operation, Path: path, Cause: cause}
}

// NotFoundError reports that a referenced entity (application, UUID, token)
// does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// InvalidStateError reports an operation that is well-formed but
// inapplicable given the current state of the target entity (e.g. an
// application that has already been decided).
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string { return e.Message }

func NewInvalidStateError(message string) *InvalidStateError {
	return &InvalidStateError{Message: message}
}

// ProfileLookupErrorClass classifies why a Mojang profile lookup failed.
type ProfileLookupErrorClass string

const (
	ProfileLookupNotFound    ProfileLookupErrorClass = "not_found"
	ProfileLookupRateLimited ProfileLookupErrorClass = "rate_limited"
	ProfileLookupUnavailable ProfileLookupErrorClass = "mojang_unavailable"
	ProfileLookupUnknown     ProfileLookupErrorClass = "unknown"
)

// ProfileLookupError reports why a Mojang profile lookup failed; it
// propagates verbatim out of SubmitApplication.
type ProfileLookupError struct {
	Name       string
	StatusCode int
	Class      ProfileLookupErrorClass
	Temporary  bool
	Cause      error
}

func (e *ProfileLookupError) Error() string {
	status := "status unknown"
	if e.StatusCode > 0 {
		status = fmt.Sprintf("status %d", e.StatusCode)
	}
	switch e.Class {
	case ProfileLookupNotFound:
		return fmt.Sprintf("profile lookup for %q failed (%s: no such player)", e.Name, status)
	case ProfileLookupRateLimited:
		return fmt.Sprintf("profile lookup for %q failed (%s: rate limited; temporary)", e.Name, status)
	case ProfileLookupUnavailable:
		return fmt.Sprintf("profile lookup for %q failed (%s: Mojang unavailable; temporary)", e.Name, status)
	default:
		return fmt.Sprintf("profile lookup for %q failed (%s)", e.Name, status)
	}
}

func (e *ProfileLookupError) Unwrap() error { return e.Cause }

// TokenError reports an invalid or expired link-token presentation.
type TokenError struct {
	Message string
}

func (e *TokenError) Error() string { return e.Message }

// ErrInvalidOrExpiredToken is returned by Core.LinkDiscordUser for unknown/expired tokens.
var ErrInvalidOrExpiredToken = &TokenError{Message: "Invalid or expired token"}
