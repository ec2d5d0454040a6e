// Package middleware provides net/http integration for authkeep: a guard
// that authenticates requests, plus helpers for the cookie-first token
// transport contract.
package middleware
