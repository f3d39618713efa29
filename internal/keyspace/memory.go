package keyspace

import "github.com/echojfree/mini-redis/internal/store"

// ApproxMemoryBytes estimates the keyspace's resident size by summing key
// and payload byte lengths. The teacher tracks a running DB.mem counter
// incrementally on every command; this module computes the same quantity
// on demand instead, since the background memory-budget check (§4.3) only
// needs a periodic estimate, not a per-write-path invariant.
func (ks *Keyspace) ApproxMemoryBytes() int64 {
	var total int64
	for k, it := range ks.data {
		total += int64(len(k))
		total += itemBytes(it)
	}
	return total
}

func itemBytes(it *store.Item) int64 {
	switch it.Kind {
	case store.KindString:
		return int64(len(it.Str))
	case store.KindList:
		var n int64
		for _, m := range it.List.All() {
			n += int64(len(m))
		}
		return n
	case store.KindHash:
		var n int64
		for k, v := range it.Hash.GetAll() {
			n += int64(len(k)) + int64(len(v))
		}
		return n
	case store.KindSet:
		var n int64
		for _, m := range it.Set.Members() {
			n += int64(len(m))
		}
		return n
	case store.KindZSet:
		var n int64
		for _, e := range it.ZSet.All() {
			n += int64(len(e.Member)) + 8
		}
		return n
	default:
		return 0
	}
}
