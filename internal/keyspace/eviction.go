package keyspace

import (
	"errors"
	"math/rand"

	"github.com/echojfree/mini-redis/internal/config"
)

// ErrOutOfMemory is returned by EvictOne when the eviction policy is
// NO_EVICTION or no victim could be found. Client writes are not rejected
// with it: the server's background evictor stops evicting on this error, and
// usage can stay over the budget.
var ErrOutOfMemory = errors.New("OOM command not allowed when used memory > 'maxmemory'")

// evictionSampleSize bounds how many candidates a single eviction call
// compares. Building the sample still copies (and, above this size,
// shuffles) every key or every expiring key, so each call is O(keyspace);
// eviction runs from the server's periodic background evictor, not on the
// write path.
const evictionSampleSize = 20

// EvictOne runs policy against ks and deletes one victim key, reporting its
// name. It returns ErrOutOfMemory if policy is NoEviction or no eligible
// candidate exists (e.g. a Volatile* policy with no keys carrying a TTL).
func (ks *Keyspace) EvictOne(policy config.Eviction) (string, error) {
	switch policy {
	case config.NoEviction, "":
		return "", ErrOutOfMemory
	case config.AllKeysRandom:
		return ks.evictRandom(ks.sampleAll(evictionSampleSize))
	case config.VolatileRandom:
		return ks.evictRandom(ks.sampleExpiring(evictionSampleSize))
	case config.AllKeysLRU:
		return ks.evictBy(ks.sampleAll(evictionSampleSize), lessLRU)
	case config.VolatileLRU:
		return ks.evictBy(ks.sampleExpiring(evictionSampleSize), lessLRU)
	case config.AllKeysLFU:
		return ks.evictBy(ks.sampleAll(evictionSampleSize), lessLFU)
	case config.VolatileLFU:
		return ks.evictBy(ks.sampleExpiring(evictionSampleSize), lessLFU)
	case config.AllKeysTTL, config.VolatileTTL:
		return ks.evictBy(ks.sampleExpiring(evictionSampleSize), lessTTL)
	default:
		return "", ErrOutOfMemory
	}
}

func (ks *Keyspace) sampleAll(n int) []string {
	if len(ks.data) == 0 {
		return nil
	}
	all := make([]string, 0, len(ks.data))
	for k := range ks.data {
		all = append(all, k)
	}
	if len(all) <= n {
		return all
	}
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:n]
}

func (ks *Keyspace) evictRandom(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrOutOfMemory
	}
	k := candidates[rand.Intn(len(candidates))]
	ks.deleteKey(k)
	ks.Stats.EvictedKeys++
	return k, nil
}

// lessFn reports whether candidate a is a better eviction target than b.
type lessFn func(ks *Keyspace, a, b string) bool

func (ks *Keyspace) evictBy(candidates []string, less lessFn) (string, error) {
	if len(candidates) == 0 {
		return "", ErrOutOfMemory
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if less(ks, c, best) {
			best = c
		}
	}
	ks.deleteKey(best)
	ks.Stats.EvictedKeys++
	return best, nil
}

func lessLRU(ks *Keyspace, a, b string) bool {
	ia, ib := ks.data[a], ks.data[b]
	if ia == nil || ib == nil {
		return ia == nil
	}
	return ia.LastAccess.Before(ib.LastAccess)
}

func lessLFU(ks *Keyspace, a, b string) bool {
	ia, ib := ks.data[a], ks.data[b]
	if ia == nil || ib == nil {
		return ia == nil
	}
	if ia.AccessCount != ib.AccessCount {
		return ia.AccessCount < ib.AccessCount
	}
	return ia.LastAccess.Before(ib.LastAccess)
}

func lessTTL(ks *Keyspace, a, b string) bool {
	ia, ib := ks.data[a], ks.data[b]
	if ia == nil || ib == nil {
		return ia == nil
	}
	return ia.ExpireAtMs < ib.ExpireAtMs
}
