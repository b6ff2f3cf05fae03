package mempool

import (
	"time"

	"github.com/btcnode/core/pkg/types"
)

// TrimToSize reduces graph's dynamic memory usage to at most sizeLimit by
// repeatedly evicting the package (an entry plus its descendants) with the
// lowest descendant_score, bumping the fee estimator's rolling minimum fee
// after each eviction. It returns the txids removed, evicting whole packages
// (an entry plus its descendants) rather than single entries so an
// ancestor is never left with a higher-value child it depends on.
func TrimToSize(graph *TxGraph, fe *FeeEstimator, sizeLimit, minRelayFee int64, now time.Time) []types.Hash {
	var evicted []types.Hash

	for graph.Size() > 0 && graph.DynamicMemoryUsage() > sizeLimit {
		worst := pickWorstPackageRoot(graph)
		if worst == nil {
			break
		}

		packageFeeRate := worst.DescendantFeeRate()
		removed := graph.RemoveRecursive(worst.Txid)
		if len(removed) == 0 {
			break // no progress possible; stop rather than loop forever
		}
		for _, e := range removed {
			evicted = append(evicted, e.Txid)
		}
		fe.BumpRollingMinFee(packageFeeRate, now)
	}

	return evicted
}

// pickWorstPackageRoot returns the entry with the lowest descendant_score
// (the package least worth keeping).
func pickWorstPackageRoot(graph *TxGraph) *Entry {
	ordered := graph.IterBy(OrderDescendantScore)
	if len(ordered) == 0 {
		return nil
	}
	return ordered[len(ordered)-1]
}
