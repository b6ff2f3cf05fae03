package mempool

import (
	"context"
	"sync"
	"time"

	"github.com/btcnode/core/pkg/monitoring"
	"github.com/btcnode/core/pkg/serialization"
	"github.com/btcnode/core/pkg/types"
)

// ChainIndexer is the external collaborator that reports the chain's
// current tip; BlockSync validates that a connected block's prev_hash
// matches it.
type ChainIndexer interface {
	Tip() (types.Hash, int64)
}

// Mempool is the top-level single-writer pool: TxGraph plus OrphanPool,
// RecentRejects, FeeEstimator and the operator delta map, all guarded by
// one RWMutex (mutations hold the write lock for their entire body; no
// blocking I/O happens while it is held).
type Mempool struct {
	mu sync.RWMutex

	graph     *TxGraph
	orphans   *OrphanPool
	rejects   *RecentRejects
	fee       *FeeEstimator
	deltas    map[types.Hash]int64
	cfg       *Config
	validator Validator
	indexer   ChainIndexer

	blocksSinceRollingFeeBump int64

	onTxReceived func(*types.Transaction)
	log          *monitoring.Logger
	metrics      *monitoring.Metrics
}

// New builds an empty Mempool wired to the given validator and chain
// indexer.
func New(cfg *Config, validator Validator, indexer ChainIndexer) *Mempool {
	return &Mempool{
		graph:     newTxGraph(),
		orphans:   newOrphanPool(),
		rejects:   newRecentRejects(),
		fee:       newFeeEstimator(cfg.MinRelayFee, cfg.RollingFeeHalflife),
		deltas:    make(map[types.Hash]int64),
		cfg:       cfg,
		validator: validator,
		indexer:   indexer,
		log:       monitoring.NewLogger(monitoring.INFO).WithField("component", "mempool"),
		metrics:   monitoring.NewMetrics(),
	}
}

// Metrics exposes the pool's running counters for periodic logging or an
// external status endpoint.
func (m *Mempool) Metrics() *monitoring.Metrics {
	return m.metrics
}

// OnTransactionReceived registers a callback invoked after every
// successful admission (direct or orphan replay).
func (m *Mempool) OnTransactionReceived(fn func(*types.Transaction)) {
	m.onTxReceived = fn
}

func (m *Mempool) hashTx(tx *types.Transaction) (types.Hash, error) {
	return serialization.HashTransaction(tx)
}

// Accept is the public admission entrypoint: it runs the full pipeline,
// and on a MissingInputs result buffers tx as an orphan instead of
// rejecting outright. On success it replays any orphans newly unblocked
// by tx before returning.
func (m *Mempool) Accept(ctx context.Context, tx *types.Transaction, from PeerID) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acceptLocked(ctx, tx, from, time.Now())
}

func (m *Mempool) acceptLocked(ctx context.Context, tx *types.Transaction, from PeerID, now time.Time) (*Entry, error) {
	if tip, _ := m.currentTip(); tip != (types.Hash{}) {
		m.rejects.Clear(tip)
	}

	txid, err := m.hashTx(tx)
	if err != nil {
		return nil, wrapErr(IOError, "hash transaction", err)
	}
	if AlreadyHave(txid, m.graph, m.orphans, m.rejects) {
		switch {
		case m.graph.Exists(txid):
			return nil, newErr(DuplicateEntry, txid.String())
		case m.orphans.Exists(txid):
			return nil, newErr(MissingInputs, "already held as orphan")
		default:
			return nil, newErr(PolicyRejected, "recently rejected")
		}
	}

	start := time.Now()
	e, err := m.accept(ctx, tx, now)
	if err != nil {
		var kind Kind
		if me, ok := err.(*Error); ok {
			kind = me.Kind
		}
		if IsKind(err, MissingInputs) {
			if txid != (types.Hash{}) {
				m.orphans.Add(tx, txid, from, now)
				m.orphans.Limit(m.cfg.MaxOrphanTx, now)
				m.metrics.RecordOrphanAdded()
			}
			return nil, err
		}
		if !IsKind(err, DuplicateEntry) && txid != (types.Hash{}) {
			m.rejects.Add(txid)
		}
		m.metrics.RecordRejected(kind.String())
		return nil, err
	}
	m.metrics.RecordAdmitted(time.Since(start))
	m.metrics.SetPoolSize(m.graph.Size(), uint64(m.graph.DynamicMemoryUsage()))

	if m.onTxReceived != nil {
		m.onTxReceived(tx)
	}

	m.orphans.ProcessNewTx(e.Txid, uint32(len(tx.Outputs)), func(child *types.Transaction) (*Entry, error) {
		ce, cerr := m.accept(ctx, child, now)
		if cerr == nil {
			m.metrics.RecordAdmitted(time.Since(start))
			m.metrics.SetPoolSize(m.graph.Size(), uint64(m.graph.DynamicMemoryUsage()))
			if m.onTxReceived != nil {
				m.onTxReceived(child)
			}
		}
		return ce, cerr
	})

	return e, nil
}

func (m *Mempool) currentTip() (types.Hash, int64) {
	if m.indexer == nil {
		return types.Hash{}, 0
	}
	return m.indexer.Tip()
}

// ApplyDelta applies an operator fee-priority adjustment. It is recorded
// in the delta map regardless of whether txid is currently in the pool,
// so it takes effect if/when the transaction (re)enters.
func (m *Mempool) ApplyDelta(txid types.Hash, feeDelta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deltas[txid] = feeDelta
	m.graph.ApplyDelta(txid, feeDelta)
}

// SweepOrphans runs the orphan pool's expiry/eviction sweep under the
// write lock.
func (m *Mempool) SweepOrphans(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.orphans.Limit(m.cfg.MaxOrphanTx, now)
	if n > 0 {
		m.metrics.RecordOrphanExpired(n)
	}
	return n
}

// Get, Exists, Size, DynamicMemoryUsage, IterBy are read paths sharing the
// lock in shared mode.
func (m *Mempool) Get(txid types.Hash) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph.Get(txid)
}

func (m *Mempool) Exists(txid types.Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph.Exists(txid)
}

func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph.Size()
}

func (m *Mempool) DynamicMemoryUsage() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph.DynamicMemoryUsage()
}

func (m *Mempool) IterBy(order Order) []*Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph.IterBy(order)
}

// TrimToSize trims the pool to cfg.MaxMempoolSize under the write lock.
func (m *Mempool) TrimToSize() []types.Hash {
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := TrimToSize(m.graph, m.fee, m.cfg.MaxMempoolSize, m.cfg.MinRelayFee, time.Now())
	if len(evicted) > 0 {
		m.metrics.RecordEviction(len(evicted))
		m.metrics.RecordRollingFeeBump()
		m.metrics.SetPoolSize(m.graph.Size(), uint64(m.graph.DynamicMemoryUsage()))
	}
	return evicted
}

// GetMinFee returns the current effective admission floor. It takes the
// write lock because it applies the rolling minimum's decay.
func (m *Mempool) GetMinFee() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fee.GetMinFee(m.cfg.MaxMempoolSize, m.graph.DynamicMemoryUsage(), time.Now())
}

// LoadFromDisk replays a persisted snapshot through normal admission,
// skipping peer attribution.
func (m *Mempool) LoadFromDisk(path string) (int, error) {
	return Load(path, func(tx *types.Transaction, entryTime time.Time, feeDelta int64) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if feeDelta != 0 {
			txid, err := m.hashTx(tx)
			if err == nil {
				m.deltas[txid] = feeDelta
			}
		}
		_, err := m.accept(context.Background(), tx, entryTime)
		return err
	})
}
