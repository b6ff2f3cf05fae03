package mempool

import (
	"context"
	"time"

	"github.com/btcnode/core/pkg/monitoring"
)

// RelayTrickleInterval is the cadence at which an (external) relay layer
// would be notified of pool deltas. The core does not implement relay
// itself — P2P is an external collaborator — but it owns the constant so
// a future relay layer shares this scheduler's cadence.
const RelayTrickleInterval = 5 * time.Second

// Scheduler owns the mempool's periodic tasks: orphan sweeping and
// interval-based persistence. Both run under context cancellation so the
// process can shut down without losing in-flight writes, the same
// ctx.Done()/ticker.C idiom used for periodic workers elsewhere in the
// ecosystem.
type Scheduler struct {
	pool *Mempool
	log  *monitoring.Logger
}

func NewScheduler(pool *Mempool) *Scheduler {
	return &Scheduler{pool: pool, log: monitoring.NewLogger(monitoring.INFO).WithField("component", "mempool.scheduler")}
}

// Run blocks until ctx is cancelled, driving the orphan sweep and periodic
// save loops. On cancellation it performs one final save if
// SaveOnShutdown is set, then returns.
func (s *Scheduler) Run(ctx context.Context) {
	orphanTicker := time.NewTicker(s.pool.cfg.OrphanSweepInterval)
	defer orphanTicker.Stop()

	saveTicker := time.NewTicker(s.pool.cfg.PersistInterval)
	defer saveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.pool.cfg.SaveOnShutdown {
				if err := s.pool.Save(DefaultPath(s.pool.cfg.DataDir)); err != nil {
					s.log.Errorf("final save failed: %v", err)
				}
			}
			return

		case <-orphanTicker.C:
			n := s.pool.SweepOrphans(time.Now())
			if n > 0 {
				s.log.Debugf("orphan sweep removed %d entries", n)
			}

		case <-saveTicker.C:
			if err := s.pool.Save(DefaultPath(s.pool.cfg.DataDir)); err != nil {
				s.log.Errorf("periodic save failed: %v", err)
			}
			s.log.Infof("metrics: %+v", s.pool.Metrics().Summary())
		}
	}
}
