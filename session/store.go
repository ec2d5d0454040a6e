package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any Redis transport failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrEntryNotFound is returned by Rotate when no entry matches the presented
// token hash. For a structurally valid token this is the reuse signal: the
// entry was already rotated away, logged out, or evicted.
var ErrEntryNotFound = errors.New("session entry not found")

// appendScript pushes a new entry and enforces the per-user cap by evicting
// from the head (oldest first). Returns the number of evicted entries.
const appendScript = `
redis.call("RPUSH", KEYS[1], ARGV[1])
local evicted = 0
while redis.call("LLEN", KEYS[1]) > tonumber(ARGV[2]) do
  redis.call("LPOP", KEYS[1])
  evicted = evicted + 1
end
if tonumber(ARGV[3]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
return evicted
`

var appendLua = redis.NewScript(appendScript)

// rotateScript is the one-time-use CAS at the core of refresh rotation. It
// locates the entry holding the presented hash, removes it, and appends the
// replacement in a single atomic step. Concurrent rotations of the same hash
// have exactly one winner; the losers see status 0.
//
// Entries are matched on the literal `"h":"<hash>"` substring. The hash
// alphabet is base64 raw-URL, so neither JSON escaping nor Lua plain find
// can be confused by it.
const rotateScript = `
local needle = '"h":"' .. ARGV[1] .. '"'
local entries = redis.call("LRANGE", KEYS[1], 0, -1)
local old = nil
for i = 1, #entries do
  if string.find(entries[i], needle, 1, true) then
    old = entries[i]
    break
  end
end
if not old then
  return 0
end
redis.call("LREM", KEYS[1], 1, old)
redis.call("RPUSH", KEYS[1], ARGV[2])
local evicted = 0
while redis.call("LLEN", KEYS[1]) > tonumber(ARGV[3]) do
  redis.call("LPOP", KEYS[1])
  evicted = evicted + 1
end
if tonumber(ARGV[4]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[4])
end
return 1 + evicted
`

var rotateLua = redis.NewScript(rotateScript)

// removeScript deletes at most one entry matching the presented hash.
// Returns 1 when an entry existed, 0 otherwise.
const removeScript = `
local needle = '"h":"' .. ARGV[1] .. '"'
local entries = redis.call("LRANGE", KEYS[1], 0, -1)
for i = 1, #entries do
  if string.find(entries[i], needle, 1, true) then
    redis.call("LREM", KEYS[1], 1, entries[i])
    return 1
  end
end
return 0
`

var removeLua = redis.NewScript(removeScript)

// Store is the Redis-backed session list. One key per user, all mutations
// atomic via Lua.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	cap    int
	ttl    time.Duration
}

// NewStore creates a Store. prefix namespaces the Redis keys, cap bounds the
// list length per user, and ttl is the key expiry refreshed on every
// mutation (pass 0 to disable expiry).
func NewStore(redis redis.UniversalClient, prefix string, cap int, ttl time.Duration) *Store {
	if cap < 1 {
		cap = 1
	}
	return &Store{
		redis:  redis,
		prefix: prefix,
		cap:    cap,
		ttl:    ttl,
	}
}

func (s *Store) key(userID string) string {
	return s.prefix + ":" + userID
}

// Append adds a new entry, evicting oldest entries when the cap is exceeded.
// Returns the number of entries evicted.
func (s *Store) Append(ctx context.Context, userID string, e Entry) (int, error) {
	data, err := Encode(e)
	if err != nil {
		return 0, err
	}

	evicted, err := appendLua.Run(
		ctx,
		s.redis,
		[]string{s.key(userID)},
		data,
		s.cap,
		s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return evicted, nil
}

// Rotate atomically replaces the entry holding oldHash with next. Exactly one
// concurrent caller presenting the same hash succeeds; all others receive
// ErrEntryNotFound.
func (s *Store) Rotate(ctx context.Context, userID, oldHash string, next Entry) error {
	data, err := Encode(next)
	if err != nil {
		return err
	}

	status, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.key(userID)},
		oldHash,
		data,
		s.cap,
		s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if status == 0 {
		return ErrEntryNotFound
	}

	return nil
}

// Remove deletes the entry holding hash. Idempotent: removing an absent entry
// is not an error. Returns whether an entry existed.
func (s *Store) Remove(ctx context.Context, userID, hash string) (bool, error) {
	existed, err := removeLua.Run(
		ctx,
		s.redis,
		[]string{s.key(userID)},
		hash,
	).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return existed == 1, nil
}

// Clear drops every session for the user.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// List returns all entries in insertion order, oldest first.
func (s *Store) List(ctx context.Context, userID string) ([]Entry, error) {
	raw, err := s.redis.LRange(ctx, s.key(userID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		e, decErr := Decode([]byte(item))
		if decErr != nil {
			return nil, decErr
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// Count returns the number of live entries for the user.
func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	n, err := s.redis.LLen(ctx, s.key(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}
