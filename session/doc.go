// Package session implements the Redis-backed per-user session list.
//
// Each user owns one Redis LIST of JSON-encoded entries, insertion ordered
// with the oldest entry at index 0. Every mutation runs as a single Lua
// script, so the cap, the one-time-use property of refresh hashes, and
// eviction order hold under arbitrary concurrency without client-side
// read-modify-write cycles.
package session
