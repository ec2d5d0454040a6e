package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, cap int, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client, "ak", cap, ttl), mr
}

func entry(hash, device string, at int64) Entry {
	return Entry{
		TokenHash:  hash,
		DeviceInfo: device,
		CreatedAt:  at,
		LastUsedAt: at,
	}
}

func TestAppendAndList(t *testing.T) {
	store, _ := newTestStore(t, 5, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		evicted, err := store.Append(ctx, "u1", entry(fmt.Sprintf("hash-%d", i), fmt.Sprintf("device-%d", i), int64(1000+i)))
		if err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
		if evicted != 0 {
			t.Fatalf("Append %d: unexpected eviction %d", i, evicted)
		}
	}

	entries, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.TokenHash != fmt.Sprintf("hash-%d", i) {
			t.Fatalf("position %d: expected hash-%d, got %q", i, i, e.TokenHash)
		}
	}
}

func TestAppendEvictsOldest(t *testing.T) {
	store, _ := newTestStore(t, 3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Append(ctx, "u1", entry(fmt.Sprintf("hash-%d", i), "d", 1000)); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	evicted, err := store.Append(ctx, "u1", entry("hash-3", "d", 1000))
	if err != nil {
		t.Fatalf("Append over cap failed: %v", err)
	}
	if evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}

	entries, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries at cap, got %d", len(entries))
	}
	if entries[0].TokenHash != "hash-1" {
		t.Fatalf("expected hash-0 evicted, head is %q", entries[0].TokenHash)
	}
	if entries[2].TokenHash != "hash-3" {
		t.Fatalf("expected hash-3 at tail, got %q", entries[2].TokenHash)
	}
}

func TestRotateReplacesEntry(t *testing.T) {
	store, _ := newTestStore(t, 5, time.Hour)
	ctx := context.Background()

	if _, err := store.Append(ctx, "u1", entry("old-hash", "d", 1000)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := store.Rotate(ctx, "u1", "old-hash", entry("new-hash", "d", 2000)); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	entries, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after rotation, got %d", len(entries))
	}
	if entries[0].TokenHash != "new-hash" {
		t.Fatalf("expected new-hash, got %q", entries[0].TokenHash)
	}

	// The old hash is spent.
	if err := store.Rotate(ctx, "u1", "old-hash", entry("another", "d", 3000)); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound on spent hash, got %v", err)
	}
}

func TestRotateUnknownHash(t *testing.T) {
	store, _ := newTestStore(t, 5, time.Hour)
	ctx := context.Background()

	if err := store.Rotate(ctx, "u1", "never-stored", entry("new", "d", 1000)); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestRotateOnlyTouchesMatchingEntry(t *testing.T) {
	store, _ := newTestStore(t, 5, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Append(ctx, "u1", entry(fmt.Sprintf("hash-%d", i), fmt.Sprintf("device-%d", i), 1000)); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	if err := store.Rotate(ctx, "u1", "hash-1", entry("hash-1b", "device-1", 2000)); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	entries, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// hash-0 and hash-2 untouched, rotated entry moved to the tail.
	if entries[0].TokenHash != "hash-0" || entries[1].TokenHash != "hash-2" || entries[2].TokenHash != "hash-1b" {
		t.Fatalf("unexpected order: %q %q %q", entries[0].TokenHash, entries[1].TokenHash, entries[2].TokenHash)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	store, _ := newTestStore(t, 5, time.Hour)
	ctx := context.Background()

	if _, err := store.Append(ctx, "u1", entry("hash-0", "d", 1000)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	existed, err := store.Remove(ctx, "u1", "hash-0")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !existed {
		t.Fatal("expected entry to exist on first remove")
	}

	existed, err = store.Remove(ctx, "u1", "hash-0")
	if err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
	if existed {
		t.Fatal("expected entry to be gone on second remove")
	}

	if _, err := store.Remove(ctx, "unknown-user", "hash-0"); err != nil {
		t.Fatalf("Remove for unknown user failed: %v", err)
	}
}

func TestClear(t *testing.T) {
	store, _ := newTestStore(t, 5, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Append(ctx, "u1", entry(fmt.Sprintf("hash-%d", i), "d", 1000)); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	if err := store.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	n, err := store.Count(ctx, "u1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty list after Clear, got %d", n)
	}

	// Clearing an empty list is fine.
	if err := store.Clear(ctx, "u1"); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}
}

func TestListEmptyUser(t *testing.T) {
	store, _ := newTestStore(t, 5, time.Hour)

	entries, err := store.List(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestMutationsRefreshTTL(t *testing.T) {
	store, mr := newTestStore(t, 5, time.Hour)
	ctx := context.Background()

	if _, err := store.Append(ctx, "u1", entry("hash-0", "d", 1000)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	ttl := mr.TTL("ak:u1")
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected TTL in (0, 1h], got %v", ttl)
	}

	// Age the key, then rotate; the TTL must be pushed back out.
	mr.FastForward(30 * time.Minute)
	if err := store.Rotate(ctx, "u1", "hash-0", entry("hash-1", "d", 2000)); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if ttl := mr.TTL("ak:u1"); ttl <= 30*time.Minute {
		t.Fatalf("expected TTL refreshed by rotation, got %v", ttl)
	}
}

func TestEntryCodec(t *testing.T) {
	e := entry("hash-0", "Firefox on Linux", 1700000000)

	data, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded != e {
		t.Fatalf("roundtrip mismatch: %+v vs %+v", decoded, e)
	}

	if _, err := Decode([]byte("{not json")); !errors.Is(err, ErrEntryCorrupt) {
		t.Fatalf("expected ErrEntryCorrupt, got %v", err)
	}
}
