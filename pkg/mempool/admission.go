package mempool

import (
	"context"
	"time"

	"github.com/btcnode/core/pkg/types"
	"github.com/btcnode/core/pkg/utxo"
)

// Accept runs the full admission pipeline for tx: standardness policy,
// consensus validation, ancestor-limit computation, RBF conflict
// resolution, and finally TxGraph.AddUnchecked. It does not take the pool
// lock itself — callers (Mempool.Accept) hold the write lock for the
// duration, since nothing else may observe or mutate the graph concurrently.
func (m *Mempool) accept(ctx context.Context, tx *types.Transaction, now time.Time) (*Entry, error) {
	size := CalculateTransactionSize(tx)
	if size > m.cfg.MaxStandardTxWeight {
		return nil, newErr(PolicyRejected, "transaction exceeds max standard weight")
	}

	if m.cfg.RequireStandard {
		if err := isStandard(tx, m.cfg.DustThreshold); err != nil {
			return nil, err
		}
	}

	result, err := m.validator.Validate(ctx, tx, m.graph)
	if err != nil {
		return nil, err
	}

	feeRate := CalculateFeeRate(result.Fee, size)
	if feeRate < m.cfg.MinRelayFee {
		return nil, newErr(PolicyRejected, "fee rate below min_relay_fee")
	}
	minFee := m.fee.GetMinFee(m.cfg.MaxMempoolSize, m.graph.DynamicMemoryUsage(), now)
	if feeRate < minFee {
		return nil, newErr(PolicyRejected, "fee rate below rolling minimum")
	}

	txid, err := m.hashTx(tx)
	if err != nil {
		return nil, wrapErr(IOError, "hash transaction", err)
	}
	if m.graph.Exists(txid) {
		return nil, newErr(DuplicateEntry, txid.String())
	}

	conflicts := m.findConflicts(tx, txid)
	if len(conflicts) > 0 {
		if !m.cfg.AllowRBF {
			return nil, newErr(PolicyRejected, "conflicts with existing unconfirmed transaction")
		}
		if err := m.validateReplacement(result.Fee, feeRate, size, conflicts); err != nil {
			return nil, err
		}
	}

	ancestors, err := m.graph.CalculateMempoolAncestors(tx, m.cfg.limits())
	if err != nil {
		return nil, err
	}

	for _, c := range conflicts {
		m.graph.RemoveRecursive(c.Txid)
	}

	height := result.Height
	if height == 0 {
		_, height = m.currentTip()
	}
	e := newEntry(txid, txid, tx, result.Fee, size, result.SigOpCost, height, now, result.SpendsCoinbase)
	if delta, ok := m.deltas[txid]; ok {
		e.FeeDelta = delta
	}
	if err := m.graph.AddUnchecked(e, ancestors); err != nil {
		return nil, err
	}

	m.fee.ProcessTransaction(e, len(conflicts) == 0)

	if m.graph.DynamicMemoryUsage() > m.cfg.MaxMempoolSize {
		evicted := TrimToSize(m.graph, m.fee, m.cfg.MaxMempoolSize, m.cfg.MinRelayFee, now)
		for _, ev := range evicted {
			if ev == txid {
				return nil, newErr(PolicyRejected, "evicted immediately after admission (fee too low for current pool)")
			}
		}
	}

	return e, nil
}

// findConflicts returns the set of in-mempool entries that spend an
// outpoint tx also spends (excluding tx itself).
func (m *Mempool) findConflicts(tx *types.Transaction, txid types.Hash) []*Entry {
	seen := make(map[types.Hash]*Entry)
	for _, in := range tx.Inputs {
		op := utxo.NewOutPoint(in.PrevTxHash, in.OutputIndex)
		if e, ok := m.graph.Spends(op); ok && e.Txid != txid {
			seen[e.Txid] = e
		}
	}
	out := make([]*Entry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	return out
}

// validateReplacement applies BIP-125-style RBF rules: the replacement
// must pay a strictly higher absolute fee, a strictly higher fee rate, and
// cover the relay bandwidth cost of the transactions it evicts.
func (m *Mempool) validateReplacement(newFee, newFeeRate, newSize int64, conflicts []*Entry) error {
	for _, c := range conflicts {
		if newFee <= c.ModifiedFee() {
			return newErr(PolicyRejected, "replacement fee not higher than conflicting transaction")
		}
		if newFeeRate <= c.FeeRate() {
			return newErr(PolicyRejected, "replacement fee rate not higher than conflicting transaction")
		}
		additional := newFee - c.ModifiedFee()
		if additional < m.cfg.MinRelayFee*c.Size/1000 {
			return newErr(PolicyRejected, "replacement fee does not cover relay bandwidth of evicted transaction")
		}
	}
	return nil
}
