package mempool

import (
	"context"
	"time"

	"github.com/btcnode/core/pkg/types"
	"github.com/btcnode/core/pkg/utxo"
)

// RemoveForBlock removes every transaction confirmed in a connected
// block, then removes any surviving transaction that now double-spends a
// confirmed input. FeeEstimator is notified (via ProcessBlock) before the
// mutation, so a confirmed transaction's fee history is credited before its
// entry disappears from the graph.
//
// prevHash must match the pool's cached tip (via ChainIndexer.Tip()) or the
// call is refused: a mismatched prevHash means the caller is handing the
// pool a block that does not connect to the chain it thinks it's tracking,
// which is the caller's protocol error to fix, not something the pool can
// silently paper over.
func (m *Mempool) RemoveForBlock(blockTxs []*types.Transaction, height int64, prevHash types.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tip, _ := m.currentTip(); tip != (types.Hash{}) && tip != prevHash {
		return newErr(PolicyRejected, "block prev_hash does not match mempool's current tip")
	}

	confirmed := make([]*Entry, 0, len(blockTxs))
	confirmedIDs := make(map[types.Hash]struct{}, len(blockTxs))
	for _, tx := range blockTxs {
		txid, err := m.hashTx(tx)
		if err != nil {
			return wrapErr(IOError, "hash block transaction", err)
		}
		confirmedIDs[txid] = struct{}{}
		if e, ok := m.graph.Get(txid); ok {
			confirmed = append(confirmed, e)
		}
	}

	m.fee.ProcessBlock(height, confirmed)

	for _, e := range confirmed {
		m.graph.RemoveRecursive(e.Txid)
	}

	// Any remaining entry that spends an input now consumed by the block
	// conflicts with a confirmed transaction and must go too.
	conflicting := make(map[types.Hash]struct{})
	for _, tx := range blockTxs {
		for _, in := range tx.Inputs {
			op := utxo.NewOutPoint(in.PrevTxHash, in.OutputIndex)
			if e, ok := m.graph.Spends(op); ok {
				if _, isConfirmed := confirmedIDs[e.Txid]; !isConfirmed {
					conflicting[e.Txid] = struct{}{}
				}
			}
		}
	}
	for txid := range conflicting {
		m.graph.RemoveRecursive(txid)
	}

	m.blocksSinceRollingFeeBump++
	m.metrics.RecordBlockConnected()
	m.metrics.SetPoolSize(m.graph.Size(), uint64(m.graph.DynamicMemoryUsage()))
	return nil
}

// ReorgDisconnect re-admits the transactions of a disconnected block
// through normal admission (skipping peer attribution), then reconciles
// descendant links and aggregates across the whole re-added batch, since
// AddUnchecked assumes no children and that assumption is false once
// siblings from the same disconnected block land back in the pool.
func (m *Mempool) ReorgDisconnect(ctx context.Context, blockTxs []*types.Transaction, height int64, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := make(map[types.Hash]*Entry)
	for _, tx := range blockTxs {
		e, err := m.accept(ctx, tx, now)
		if err != nil {
			continue
		}
		added[e.Txid] = e
	}
	m.graph.UpdateTransactionsFromBlock(added, m.cfg.MaxReconciliationWork)
	m.metrics.RecordBlockDisconnected()
	m.metrics.SetPoolSize(m.graph.Size(), uint64(m.graph.DynamicMemoryUsage()))
}

// Expire removes every entry with entry_time before cutoff, along with
// its descendants, iterating in entry_time order.
func (m *Mempool) Expire(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for {
		ordered := m.graph.IterBy(OrderEntryTime)
		progressed := false
		for _, e := range ordered {
			if !e.Time.Before(cutoff) {
				break
			}
			r := m.graph.RemoveRecursive(e.Txid)
			if len(r) > 0 {
				removed += len(r)
				progressed = true
				break // set mutated; restart the scan
			}
		}
		if !progressed {
			break
		}
	}
	return removed
}
