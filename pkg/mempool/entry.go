package mempool

import (
	"time"

	"github.com/btcnode/core/pkg/types"
)

// Entry is a transaction held in the mempool together with the aggregate
// bookkeeping TxGraph needs to answer ancestor/descendant queries in
// constant time instead of walking the graph on every lookup.
type Entry struct {
	Txid  types.Hash
	Wtxid types.Hash
	Tx    *types.Transaction

	Fee      int64 // satoshis paid by this transaction alone
	Size     int64 // virtual size in bytes
	SigOps   int
	Time     time.Time
	Height   int64 // chain height when this entry was admitted
	FeeDelta int64 // prioritisetransaction-style adjustment, persisted

	SpendsCoinbase bool
	Dirty          bool // set when reorg reconciliation gave up on exact aggregates

	Parents  map[types.Hash]struct{}
	Children map[types.Hash]struct{}

	// Aggregates over this entry plus all of its ancestors.
	CountWithAncestors  int64
	SizeWithAncestors   int64
	ModFeesWithAncestors int64
	SigOpsWithAncestors int64

	// Aggregates over this entry plus all of its descendants.
	CountWithDescendants  int64
	SizeWithDescendants   int64
	ModFeesWithDescendants int64
}

func newEntry(txid, wtxid types.Hash, tx *types.Transaction, fee, size int64, sigOps int, height int64, now time.Time, spendsCoinbase bool) *Entry {
	e := &Entry{
		Txid:           txid,
		Wtxid:          wtxid,
		Tx:             tx,
		Fee:            fee,
		Size:           size,
		SigOps:         sigOps,
		Time:           now,
		Height:         height,
		SpendsCoinbase: spendsCoinbase,
		Parents:        make(map[types.Hash]struct{}),
		Children:       make(map[types.Hash]struct{}),
	}
	e.CountWithAncestors, e.SizeWithAncestors = 1, size
	e.ModFeesWithAncestors, e.SigOpsWithAncestors = fee, int64(sigOps)
	e.CountWithDescendants, e.SizeWithDescendants, e.ModFeesWithDescendants = 1, size, fee
	return e
}

// ModifiedFee is Fee adjusted by any fee-delta a caller applied via
// ApplyDelta (e.g. prioritisetransaction).
func (e *Entry) ModifiedFee() int64 {
	return e.Fee + e.FeeDelta
}

// FeeRate returns the entry's own fee rate in satoshis per kilo-vbyte.
func (e *Entry) FeeRate() int64 {
	if e.Size == 0 {
		return 0
	}
	return (e.ModifiedFee() * 1000) / e.Size
}

// AncestorFeeRate returns the fee rate over the entry plus all ancestors,
// in satoshis per kilo-vbyte. This is the ratio ancestor_score orders by.
func (e *Entry) AncestorFeeRate() int64 {
	if e.SizeWithAncestors == 0 {
		return 0
	}
	return (e.ModFeesWithAncestors * 1000) / e.SizeWithAncestors
}

// DescendantFeeRate returns the fee rate over the entry plus all
// descendants, in satoshis per kilo-vbyte. This is the with-descendants
// rate that descendant_score weighs against the solo rate.
func (e *Entry) DescendantFeeRate() int64 {
	if e.SizeWithDescendants == 0 {
		return 0
	}
	return (e.ModFeesWithDescendants * 1000) / e.SizeWithDescendants
}
