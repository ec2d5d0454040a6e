// Package jwt mints and verifies the two token classes used by authkeep:
// short-lived access tokens carrying identity claims, and longer-lived
// refresh tokens carrying only the user ID. The classes are signed with
// independent secrets; a token of one class never verifies as the other.
package jwt
