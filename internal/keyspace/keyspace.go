// Package keyspace implements one logical database: the key→Item map, its
// expiration index, per-key versions consulted by the transaction engine,
// and the glob-pattern and eviction machinery that sit on top of it.
//
// A Keyspace is a plain, single-writer data structure — it holds no locks
// of its own. Concurrency safety comes from the server running every
// command for a given database on that database's own executor goroutine
// (see internal/server), never from synchronization inside this package.
package keyspace

import (
	"time"

	"github.com/echojfree/mini-redis/internal/store"
)

// Stats tracks basic hit/miss/expiration counters surfaced by INFO/DBSIZE-
// adjacent introspection.
type Stats struct {
	Hits        int64
	Misses      int64
	ExpiredKeys int64
	EvictedKeys int64
}

// Keyspace is one numbered database.
type Keyspace struct {
	ID int

	data     map[string]*store.Item
	expiring map[string]struct{}
	versions map[string]uint64

	Stats Stats
}

func New(id int) *Keyspace {
	return &Keyspace{
		ID:       id,
		data:     make(map[string]*store.Item),
		expiring: make(map[string]struct{}),
		versions: make(map[string]uint64),
	}
}

func nowMs() int64 { return time.Now().UnixMilli() }

// bumpVersion increments the monotone per-key counter the transaction
// engine's WATCH/EXEC consult; every write path funnels through it.
func (ks *Keyspace) bumpVersion(key string) {
	ks.versions[key]++
}

// Touch bumps key's version without replacing its item, for handlers that
// mutate an existing container (list/hash/set/zset/string) in place rather
// than calling Set. Every write path — in-place or whole-item replacement —
// must end in a version bump, or WATCH goes blind to it.
func (ks *Keyspace) Touch(key string) {
	ks.bumpVersion(key)
}

// Version returns the current per-key version (0 for a never-written key;
// WATCH still records it, and any first write makes it observably differ
// only once incremented — absence and version 0 are distinguished by the
// caller checking Exists alongside Version when needed).
func (ks *Keyspace) Version(key string) uint64 {
	return ks.versions[key]
}

// isExpired reports whether item carries an expiration that has passed.
func isExpired(it *store.Item, now int64) bool {
	return it.HasExpire && it.ExpireAtMs <= now
}

// expireIfNeeded deletes key if its item has expired, bumping its version
// and the expired-key counter. Returns true if key was (or already was)
// absent after the check.
func (ks *Keyspace) expireIfNeeded(key string) bool {
	it, ok := ks.data[key]
	if !ok {
		return true
	}
	if !isExpired(it, nowMs()) {
		return false
	}
	ks.deleteKey(key)
	ks.Stats.ExpiredKeys++
	return true
}

func (ks *Keyspace) deleteKey(key string) {
	delete(ks.data, key)
	delete(ks.expiring, key)
	ks.bumpVersion(key)
}

// Get returns the item for key, or (nil, false) if it is absent or expired.
// A successful get records an access for LRU/LFU bookkeeping.
func (ks *Keyspace) Get(key string) (*store.Item, bool) {
	if ks.expireIfNeeded(key) {
		ks.Stats.Misses++
		return nil, false
	}
	it := ks.data[key]
	it.Touch()
	ks.Stats.Hits++
	return it, true
}

// Peek returns the item without recording an access or expiring it; used by
// read-only introspection (TYPE, snapshot producers) that must not disturb
// LRU/LFU state.
func (ks *Keyspace) Peek(key string) (*store.Item, bool) {
	it, ok := ks.data[key]
	if !ok || isExpired(it, nowMs()) {
		return nil, false
	}
	return it, true
}

// Set installs item under key, replacing any prior value and clearing or
// setting the expiration index according to item's expiration.
func (ks *Keyspace) Set(key string, item *store.Item) {
	ks.data[key] = item
	if item.HasExpire {
		ks.expiring[key] = struct{}{}
	} else {
		delete(ks.expiring, key)
	}
	ks.bumpVersion(key)
}

// DeleteEmptyIfCollection removes key if its item is a collection type that
// has become empty, per the invariant that keys never point to empty
// collections. Returns true if the key was removed.
func (ks *Keyspace) DeleteEmptyIfCollection(key string) bool {
	it, ok := ks.data[key]
	if !ok || !it.IsEmptyCollection() {
		return false
	}
	ks.deleteKey(key)
	return true
}

// Del removes the named keys (after expiring them if needed), returning the
// count actually removed.
func (ks *Keyspace) Del(keys ...string) int {
	n := 0
	for _, k := range keys {
		if ks.expireIfNeeded(k) {
			continue
		}
		if _, ok := ks.data[k]; ok {
			ks.deleteKey(k)
			n++
		}
	}
	return n
}

// Exists counts how many of the given keys are present and unexpired,
// counting repeats if a key is named more than once.
func (ks *Keyspace) Exists(keys ...string) int {
	n := 0
	for _, k := range keys {
		if ks.expireIfNeeded(k) {
			continue
		}
		if _, ok := ks.data[k]; ok {
			n++
		}
	}
	return n
}

// ExpireAbsoluteMs sets key's expiration to an absolute millisecond
// timestamp. Returns false if the key is absent.
func (ks *Keyspace) ExpireAbsoluteMs(key string, atMs int64) bool {
	if ks.expireIfNeeded(key) {
		return false
	}
	it, ok := ks.data[key]
	if !ok {
		return false
	}
	it.HasExpire = true
	it.ExpireAtMs = atMs
	ks.expiring[key] = struct{}{}
	ks.bumpVersion(key)
	return true
}

// Persist clears key's expiration. Returns false if the key was absent or
// already persistent.
func (ks *Keyspace) Persist(key string) bool {
	if ks.expireIfNeeded(key) {
		return false
	}
	it, ok := ks.data[key]
	if !ok || !it.HasExpire {
		return false
	}
	it.HasExpire = false
	it.ExpireAtMs = 0
	delete(ks.expiring, key)
	ks.bumpVersion(key)
	return true
}

// TTLMs returns remaining milliseconds, -1 if persistent, -2 if absent.
func (ks *Keyspace) TTLMs(key string) int64 {
	if ks.expireIfNeeded(key) {
		return -2
	}
	it, ok := ks.data[key]
	if !ok {
		return -2
	}
	if !it.HasExpire {
		return -1
	}
	remaining := it.ExpireAtMs - nowMs()
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Rename moves the value at old to newKey, preserving any expiration.
// Returns false if old is absent.
func (ks *Keyspace) Rename(old, newKey string) bool {
	if ks.expireIfNeeded(old) {
		return false
	}
	it, ok := ks.data[old]
	if !ok {
		return false
	}
	ks.deleteKey(old)
	ks.Set(newKey, it)
	return true
}

// Flush removes every key.
func (ks *Keyspace) Flush() {
	for k := range ks.data {
		ks.bumpVersion(k)
	}
	ks.data = make(map[string]*store.Item)
	ks.expiring = make(map[string]struct{})
}

// Size returns the number of keys, including expired-but-not-yet-swept ones
// (matching DBSIZE's documented semantics of counting the raw map).
func (ks *Keyspace) Size() int { return len(ks.data) }

// KeysMatching returns every live key matching the glob pattern.
func (ks *Keyspace) KeysMatching(pattern string) []string {
	var out []string
	now := nowMs()
	for k, it := range ks.data {
		if isExpired(it, now) {
			continue
		}
		if Match(pattern, k) {
			out = append(out, k)
		}
	}
	return out
}

// RandomKey returns an arbitrary live key, or "" if the keyspace is empty.
func (ks *Keyspace) RandomKey() (string, bool) {
	now := nowMs()
	for k, it := range ks.data {
		if !isExpired(it, now) {
			return k, true
		}
	}
	return "", false
}

// ExpiringKeys returns the keys currently carrying an expiration, used by
// the sweeper and by TTL-based eviction.
func (ks *Keyspace) ExpiringKeys() []string {
	out := make([]string, 0, len(ks.expiring))
	for k := range ks.expiring {
		out = append(out, k)
	}
	return out
}

// AllItems exposes the raw map for snapshot/AOF-rewrite producers, which
// need a consistent point-in-time view; callers must not mutate it.
func (ks *Keyspace) AllItems() map[string]*store.Item {
	return ks.data
}
