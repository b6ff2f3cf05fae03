package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects counters and timing averages for a running mempool. It
// is safe for concurrent use: counters are atomic, and sums that feed an
// average (admission timing) and the reject-reason map are guarded by mu.
type Metrics struct {
	mu sync.RWMutex

	// Admission
	txAdmitted       uint64
	txRejected       uint64
	admissionTime    time.Duration
	avgAdmissionTime time.Duration

	rejectReasons map[string]uint64

	// Orphan pool
	orphansAdded   uint64
	orphansExpired uint64

	// Size / eviction
	poolSize       int32
	poolBytes      uint64
	evictedTx      uint64
	rollingFeeBump uint64

	// Block sync
	blocksConnected    uint64
	blocksDisconnected uint64
}

// NewMetrics creates an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		rejectReasons: make(map[string]uint64),
	}
}

// RecordAdmitted records a successful Accept and the wall time its
// validation pipeline took.
func (m *Metrics) RecordAdmitted(validationTime time.Duration) {
	atomic.AddUint64(&m.txAdmitted, 1)

	m.mu.Lock()
	m.admissionTime += validationTime
	if m.txAdmitted > 0 {
		m.avgAdmissionTime = m.admissionTime / time.Duration(m.txAdmitted)
	}
	m.mu.Unlock()
}

// RecordRejected records an Accept failure tagged by error kind.
func (m *Metrics) RecordRejected(reason string) {
	atomic.AddUint64(&m.txRejected, 1)

	m.mu.Lock()
	m.rejectReasons[reason]++
	m.mu.Unlock()
}

// GetAdmitted returns total successful admissions.
func (m *Metrics) GetAdmitted() uint64 {
	return atomic.LoadUint64(&m.txAdmitted)
}

// GetRejected returns total rejected admissions.
func (m *Metrics) GetRejected() uint64 {
	return atomic.LoadUint64(&m.txRejected)
}

// GetAvgAdmissionTime returns the running average Accept latency.
func (m *Metrics) GetAvgAdmissionTime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.avgAdmissionTime
}

// RejectReasons returns a snapshot of rejection counts by error kind.
func (m *Metrics) RejectReasons() map[string]uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]uint64, len(m.rejectReasons))
	for k, v := range m.rejectReasons {
		out[k] = v
	}
	return out
}

// RecordOrphanAdded records a transaction buffered in the orphan pool.
func (m *Metrics) RecordOrphanAdded() {
	atomic.AddUint64(&m.orphansAdded, 1)
}

// RecordOrphanExpired records n orphans dropped by a sweep (TTL or
// capacity eviction).
func (m *Metrics) RecordOrphanExpired(n int) {
	atomic.AddUint64(&m.orphansExpired, uint64(n))
}

// GetOrphansAdded returns total orphans ever buffered.
func (m *Metrics) GetOrphansAdded() uint64 {
	return atomic.LoadUint64(&m.orphansAdded)
}

// GetOrphansExpired returns total orphans dropped by sweeps.
func (m *Metrics) GetOrphansExpired() uint64 {
	return atomic.LoadUint64(&m.orphansExpired)
}

// SetPoolSize records the current entry count and byte size of the pool.
func (m *Metrics) SetPoolSize(size int, bytes uint64) {
	atomic.StoreInt32(&m.poolSize, int32(size))
	atomic.StoreUint64(&m.poolBytes, bytes)
}

// GetPoolSize returns the current entry count.
func (m *Metrics) GetPoolSize() int {
	return int(atomic.LoadInt32(&m.poolSize))
}

// GetPoolBytes returns the current byte size.
func (m *Metrics) GetPoolBytes() uint64 {
	return atomic.LoadUint64(&m.poolBytes)
}

// RecordEviction records n transactions removed by TrimToSize.
func (m *Metrics) RecordEviction(n int) {
	atomic.AddUint64(&m.evictedTx, uint64(n))
}

// GetEvicted returns total transactions removed by TrimToSize.
func (m *Metrics) GetEvicted() uint64 {
	return atomic.LoadUint64(&m.evictedTx)
}

// RecordRollingFeeBump records one RollingMinFee increase.
func (m *Metrics) RecordRollingFeeBump() {
	atomic.AddUint64(&m.rollingFeeBump, 1)
}

// GetRollingFeeBumps returns total RollingMinFee increases.
func (m *Metrics) GetRollingFeeBumps() uint64 {
	return atomic.LoadUint64(&m.rollingFeeBump)
}

// RecordBlockConnected records a RemoveForBlock call.
func (m *Metrics) RecordBlockConnected() {
	atomic.AddUint64(&m.blocksConnected, 1)
}

// RecordBlockDisconnected records a ReorgDisconnect call.
func (m *Metrics) RecordBlockDisconnected() {
	atomic.AddUint64(&m.blocksDisconnected, 1)
}

// GetBlocksConnected returns total RemoveForBlock calls.
func (m *Metrics) GetBlocksConnected() uint64 {
	return atomic.LoadUint64(&m.blocksConnected)
}

// GetBlocksDisconnected returns total ReorgDisconnect calls.
func (m *Metrics) GetBlocksDisconnected() uint64 {
	return atomic.LoadUint64(&m.blocksDisconnected)
}

// Summary returns a point-in-time snapshot suitable for periodic logging.
func (m *Metrics) Summary() map[string]interface{} {
	return map[string]interface{}{
		"tx_admitted":          m.GetAdmitted(),
		"tx_rejected":          m.GetRejected(),
		"avg_admission_time_us": m.GetAvgAdmissionTime().Microseconds(),
		"reject_reasons":       m.RejectReasons(),
		"orphans_added":        m.GetOrphansAdded(),
		"orphans_expired":      m.GetOrphansExpired(),
		"pool_size":            m.GetPoolSize(),
		"pool_bytes":           m.GetPoolBytes(),
		"evicted_tx":           m.GetEvicted(),
		"rolling_fee_bumps":    m.GetRollingFeeBumps(),
		"blocks_connected":     m.GetBlocksConnected(),
		"blocks_disconnected":  m.GetBlocksDisconnected(),
	}
}
