// Package internal holds helpers shared by the authkeep packages that must
// not become part of the public API.
package internal
