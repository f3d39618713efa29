package keyspace

import "math/rand"

// SweepSampleSize is the candidate count sampled each sweeper pass.
const SweepSampleSize = 20

// SweepExpiredFractionThreshold triggers an immediate extra pass when a
// sweep finds more than this fraction of its sample already expired,
// adaptively amortizing catch-up after a burst of short TTLs.
const SweepExpiredFractionThreshold = 0.25

// maxSweepPasses bounds the adaptive-reschedule loop so a pathological
// keyspace (nearly everything expired) cannot starve the executor.
const maxSweepPasses = 16

// SweepOnce samples up to SweepSampleSize keys from the expiring-keys index,
// deletes those that have expired, and if more than
// SweepExpiredFractionThreshold of the sample was expired, runs again
// immediately (bounded by maxSweepPasses). It returns the total keys
// examined and the total deleted across every pass.
func (ks *Keyspace) SweepOnce() (examined, expired int) {
	for pass := 0; pass < maxSweepPasses; pass++ {
		candidates := ks.sampleExpiring(SweepSampleSize)
		if len(candidates) == 0 {
			return examined, expired
		}
		examined += len(candidates)
		deletedThisPass := 0
		now := nowMs()
		for _, k := range candidates {
			it, ok := ks.data[k]
			if !ok {
				delete(ks.expiring, k)
				continue
			}
			if isExpired(it, now) {
				ks.deleteKey(k)
				ks.Stats.ExpiredKeys++
				deletedThisPass++
			}
		}
		expired += deletedThisPass
		if float64(deletedThisPass)/float64(len(candidates)) <= SweepExpiredFractionThreshold {
			return examined, expired
		}
	}
	return examined, expired
}

// sampleExpiring returns up to n keys drawn from the expiring-keys index.
func (ks *Keyspace) sampleExpiring(n int) []string {
	if len(ks.expiring) == 0 {
		return nil
	}
	all := make([]string, 0, len(ks.expiring))
	for k := range ks.expiring {
		all = append(all, k)
	}
	if len(all) <= n {
		return all
	}
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:n]
}
