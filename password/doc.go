// Package password hashes and verifies user passwords with Argon2id. Hashes
// are emitted as PHC strings so parameters travel with the hash and can be
// upgraded over time.
package password
