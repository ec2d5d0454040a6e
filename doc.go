// Package authkeep provides a credential and session lifecycle engine with JWT
// access tokens, rotating JWT refresh tokens, and a Redis-backed bounded
// per-user session list.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkeep is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (Identity, TokenPair, SessionInfo, MetricsSnapshot). Credential
// storage is delegated to a caller-supplied [UserProvider]; session state lives
// in Redis behind the session package and is never exposed directly.
//
// # What this package must NOT do
//
//   - Return refresh token material from session listing operations.
//   - Distinguish "unknown email" from "wrong password" in login errors.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//
// # Performance contract
//
// Authenticate is the hot path. It verifies the access token signature and
// resolves the user through the provider, without Redis round-trips. Login,
// Register, Refresh, Logout, LogoutAll, and ActiveSessions are allowed one
// Redis round-trip per call; every session list mutation is a single atomic
// Lua script.
package authkeep
