package engine

// LoginResult is the closed two-arm variant returned by OnPlayerLogin
// (spec Design Notes: a prior iteration had a third AllowWithKick arm,
// superseded by Deny and not reintroduced here). Unexported fields plus
// constructors stand in for Go's lack of a native sum type.
type LoginResult struct {
	allow           bool
	message         string
	revokeWhitelist bool
}

// AllowResult is the Allow arm.
func AllowResult() LoginResult { return LoginResult{allow: true} }

// DenyResult is the Deny arm.
func DenyResult(message string, revokeWhitelist bool) LoginResult {
	return LoginResult{allow: false, message: message, revokeWhitelist: revokeWhitelist}
}

// Allowed reports whether the login should proceed.
func (r LoginResult) Allowed() bool { return r.allow }

// Message is the denial message; empty for Allow.
func (r LoginResult) Message() string { return r.message }

// RevokeWhitelist reports whether the host should also drop the
// player from its own vanilla whitelist; meaningless for Allow.
func (r LoginResult) RevokeWhitelist() bool { return r.revokeWhitelist }
