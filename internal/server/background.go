package server

import (
	"time"

	"github.com/echojfree/mini-redis/internal/resp"
)

// sweepInterval matches the teacher's ActiveExpire cadence (100ms flat tick,
// with SweepOnce itself handling the adaptive immediate-rerun behavior).
const sweepInterval = 100 * time.Millisecond

// saveCheckInterval is how often background save-rule thresholds are
// polled; independent of the sweeper so a slow save check never delays
// expiration.
const saveCheckInterval = time.Second

// runSweeper periodically active-expires a sample of keys in every
// database, stopping when stop is closed.
func (s *Server) runSweeper(stop <-chan struct{}) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for i := 0; i < s.manager.NumDBs(); i++ {
				dbID := i
				s.manager.Submit(dbID, func() resp.Value {
					s.manager.DB(dbID).SweepOnce()
					return resp.Value{}
				})
			}
		case <-stop:
			return
		}
	}
}

// runEvictor periodically evicts keys from any database whose approximate
// memory usage exceeds the configured maxmemory budget.
func (s *Server) runEvictor(stop <-chan struct{}) {
	if s.cfg.MaxMemory <= 0 {
		return
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for i := 0; i < s.manager.NumDBs(); i++ {
				dbID := i
				s.manager.Submit(dbID, func() resp.Value {
					db := s.manager.DB(dbID)
					for db.ApproxMemoryBytes() > s.cfg.MaxMemory {
						if _, err := db.EvictOne(s.cfg.Eviction); err != nil {
							break
						}
					}
					return resp.Value{}
				})
			}
		case <-stop:
			return
		}
	}
}

// runSaveScheduler periodically checks the configured save rules and
// triggers a background RDB save when a threshold has been crossed.
func (s *Server) runSaveScheduler(stop <-chan struct{}) {
	if len(s.cfg.SaveRules) == 0 {
		return
	}
	ticker := time.NewTicker(saveCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.persist.ShouldSave() {
				s.persist.BGSave()
			}
		case <-stop:
			return
		}
	}
}
