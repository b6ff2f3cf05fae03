package mempool

import "github.com/btcnode/core/pkg/types"

const coinbaseReserve = 200 // approximate coinbase size, reserved from the block budget

// BuildBlockTemplate selects transactions for a candidate block, walking
// entries in ancestor_score order and including a candidate only once all
// of its in-mempool parents are already selected — the same shape as the
// teacher's PriorityQueue.SelectTransactions, replacing its O(n^2)
// insertion sort with one sort of the pool by ancestor_score (IterBy).
func (m *Mempool) BuildBlockTemplate(maxBlockSize int64) []*types.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	budget := maxBlockSize - coinbaseReserve
	ordered := m.graph.IterBy(OrderAncestorScore)

	selected := make([]*types.Transaction, 0, len(ordered))
	included := make(map[types.Hash]struct{}, len(ordered))
	var used int64

	for _, e := range ordered {
		if used+e.Size > budget {
			continue
		}
		allParentsIn := true
		for pid := range e.Parents {
			if _, ok := included[pid]; !ok {
				allParentsIn = false
				break
			}
		}
		if !allParentsIn {
			continue
		}
		selected = append(selected, e.Tx)
		included[e.Txid] = struct{}{}
		used += e.Size
	}

	return selected
}
