package mempool

import (
	"sort"

	"github.com/btcnode/core/pkg/types"
	"github.com/btcnode/core/pkg/utxo"
)

// Limits bounds the ancestor/descendant closures admission is willing to
// accept, per spec.md's four-limit rule.
type Limits struct {
	MaxAncestorCount    int64
	MaxAncestorSize     int64
	MaxDescendantCount  int64
	MaxDescendantSize   int64
}

// TxGraph is the canonical in-memory store of unconfirmed entries: an
// indexed set with parent/child links and ancestor/descendant aggregates
// maintained as invariants on every mutation. Handles are txids, which are
// content-addressed and therefore stable without a separate arena.
type TxGraph struct {
	entries      map[types.Hash]*Entry
	prevoutIndex map[utxo.OutPoint]types.Hash
}

func newTxGraph() *TxGraph {
	return &TxGraph{
		entries:      make(map[types.Hash]*Entry),
		prevoutIndex: make(map[utxo.OutPoint]types.Hash),
	}
}

func (g *TxGraph) Get(txid types.Hash) (*Entry, bool) {
	e, ok := g.entries[txid]
	return e, ok
}

func (g *TxGraph) Exists(txid types.Hash) bool {
	_, ok := g.entries[txid]
	return ok
}

// Spends returns the entry that consumes op, if any.
func (g *TxGraph) Spends(op utxo.OutPoint) (*Entry, bool) {
	txid, ok := g.prevoutIndex[op]
	if !ok {
		return nil, false
	}
	return g.Get(txid)
}

func (g *TxGraph) Size() int {
	return len(g.entries)
}

// DynamicMemoryUsage is a consistent, if rough, accounting of pool memory:
// transaction virtual size plus a fixed per-entry bookkeeping overhead.
// Per Design Note (c), any definition is acceptable as long as TrimToSize
// makes monotone progress against it.
func (g *TxGraph) DynamicMemoryUsage() int64 {
	const perEntryOverhead = 300
	var total int64
	for _, e := range g.entries {
		total += e.Size + perEntryOverhead
	}
	return total
}

// IterBy returns every entry sorted by order.
func (g *TxGraph) IterBy(order Order) []*Entry {
	out := make([]*Entry, 0, len(g.entries))
	for _, e := range g.entries {
		out = append(out, e)
	}
	less := lessFor(order)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func outpointsOf(tx *types.Transaction) []utxo.OutPoint {
	ops := make([]utxo.OutPoint, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		ops = append(ops, utxo.NewOutPoint(in.PrevTxHash, in.OutputIndex))
	}
	return ops
}

// CalculateMempoolAncestors walks parents transitively, honoring the four
// ancestor/descendant limits (ancestor count, ancestor size, descendant
// count, descendant size). Returns the ancestor set (not including tx's
// own eventual entry).
func (g *TxGraph) CalculateMempoolAncestors(tx *types.Transaction, limits Limits) (map[types.Hash]*Entry, error) {
	ancestors := make(map[types.Hash]*Entry)
	queue := make([]types.Hash, 0)

	for _, op := range outpointsOf(tx) {
		if parent, ok := g.Get(op.Hash); ok {
			if _, seen := ancestors[parent.Txid]; !seen {
				ancestors[parent.Txid] = parent
				queue = append(queue, parent.Txid)
			}
		}
	}

	var ancestorSize int64
	for len(queue) > 0 {
		txid := queue[0]
		queue = queue[1:]
		e := ancestors[txid]
		ancestorSize += e.Size

		// +1 counts the candidate itself, which is not yet in ancestors:
		// a chain of exactly MaxAncestorCount existing txs plus the
		// candidate must fit within the limit.
		if int64(len(ancestors))+1 > limits.MaxAncestorCount {
			return nil, newErr(LimitExceeded, "too many ancestors (limit_ancestor_count)")
		}
		if ancestorSize > limits.MaxAncestorSize {
			return nil, newErr(LimitExceeded, "ancestor package too large (limit_ancestor_size)")
		}
		// e.CountWithDescendants already counts e itself, so it equals
		// "descendants of e including the candidate" once the candidate
		// is added as a new descendant of e.
		if e.CountWithDescendants > limits.MaxDescendantCount {
			return nil, newErr(LimitExceeded, "ancestor already at descendant count limit (limit_descendant_count)")
		}
		if e.SizeWithDescendants+tx_sizeHint(tx) > limits.MaxDescendantSize {
			return nil, newErr(LimitExceeded, "ancestor already at descendant size limit (limit_descendant_size)")
		}

		for pid := range e.Parents {
			if _, seen := ancestors[pid]; !seen {
				p := g.entries[pid]
				ancestors[pid] = p
				queue = append(queue, pid)
			}
		}
	}

	return ancestors, nil
}

// tx_sizeHint supplies the candidate's size for the descendant-size limit
// check while walking ancestors, before the candidate's own Entry exists.
// It uses the same CalculateTransactionSize as Admission, so it equals the
// Size the candidate's Entry will carry.
func tx_sizeHint(tx *types.Transaction) int64 {
	return CalculateTransactionSize(tx)
}

// AddUnchecked installs e into the graph given its precomputed ancestor
// set: insert with solo aggregates, link parents/children, bump every
// ancestor's descendant aggregates, then set e's own ancestor aggregates
// from the sums over the ancestor set. It never fails due to graph state —
// limit checks already happened in Admission.
func (g *TxGraph) AddUnchecked(e *Entry, ancestors map[types.Hash]*Entry) error {
	if _, exists := g.entries[e.Txid]; exists {
		return newErr(DuplicateEntry, e.Txid.String())
	}

	// 1. insert with solo aggregates (done in newEntry). Refresh the
	// solo descendant-fee aggregate in case a fee delta was assigned to e
	// between newEntry and this call (e.g. a pre-recorded DeltaMap entry).
	e.ModFeesWithDescendants = e.ModifiedFee()
	g.entries[e.Txid] = e

	// 2. link parents/children.
	for _, op := range outpointsOf(e.Tx) {
		if parent, ok := ancestors[op.Hash]; ok {
			parent.Children[e.Txid] = struct{}{}
			e.Parents[op.Hash] = struct{}{}
		}
	}

	// 3. bump every ancestor's descendant aggregates.
	for _, a := range ancestors {
		a.CountWithDescendants++
		a.SizeWithDescendants += e.Size
		a.ModFeesWithDescendants += e.ModifiedFee()
	}

	// 4. set e's ancestor aggregates from the sums over the ancestor set.
	var cnt, size, fee, sigops int64 = 1, e.Size, e.ModifiedFee(), int64(e.SigOps)
	for _, a := range ancestors {
		cnt++
		size += a.Size
		fee += a.ModifiedFee()
		sigops += int64(a.SigOps)
	}
	e.CountWithAncestors, e.SizeWithAncestors = cnt, size
	e.ModFeesWithAncestors, e.SigOpsWithAncestors = fee, sigops

	// prevout index.
	for _, op := range outpointsOf(e.Tx) {
		g.prevoutIndex[op] = e.Txid
	}

	return nil
}

// ApplyDelta bumps e's fee_delta and propagates it into every ancestor's
// descendant aggregates and every descendant's ancestor aggregates, per
// step 5 of the AddUnchecked algorithm (applied retroactively here since
// deltas may also be applied post-admission).
func (g *TxGraph) ApplyDelta(txid types.Hash, feeDelta int64) {
	e, ok := g.entries[txid]
	if !ok {
		return
	}
	delta := feeDelta - e.FeeDelta
	e.FeeDelta = feeDelta
	if delta == 0 {
		return
	}
	e.ModFeesWithAncestors += delta
	// e's own descendant aggregate includes e itself (reflexive closure),
	// so it moves with the delta exactly like every ancestor's does.
	e.ModFeesWithDescendants += delta
	for _, a := range g.ancestorsOf(e) {
		a.ModFeesWithDescendants += delta
	}
	for id, d := range g.CalculateDescendants(e) {
		if id != txid {
			d.ModFeesWithAncestors += delta
		}
	}
}

// ancestorsOf returns the live in-pool ancestor entries of e by walking
// e.Parents transitively (used by ApplyDelta and invariant checks).
func (g *TxGraph) ancestorsOf(e *Entry) map[types.Hash]*Entry {
	out := make(map[types.Hash]*Entry)
	queue := make([]types.Hash, 0, len(e.Parents))
	for pid := range e.Parents {
		queue = append(queue, pid)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := out[id]; seen {
			continue
		}
		p, ok := g.entries[id]
		if !ok {
			continue
		}
		out[id] = p
		for pid := range p.Parents {
			queue = append(queue, pid)
		}
	}
	return out
}

// CalculateDescendants returns e plus every transitive child, via BFS over
// Children links.
func (g *TxGraph) CalculateDescendants(e *Entry) map[types.Hash]*Entry {
	out := map[types.Hash]*Entry{e.Txid: e}
	queue := make([]types.Hash, 0, len(e.Children))
	for cid := range e.Children {
		queue = append(queue, cid)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := out[id]; seen {
			continue
		}
		c, ok := g.entries[id]
		if !ok {
			continue
		}
		out[id] = c
		for cid := range c.Children {
			queue = append(queue, cid)
		}
	}
	return out
}

// RemoveRecursive removes txid and every in-mempool descendant, updating
// every surviving ancestor's descendant aggregates in a single pass so the
// pool is never observed violating invariants 3-4 mid-removal.
func (g *TxGraph) RemoveRecursive(txid types.Hash) []*Entry {
	root, ok := g.entries[txid]
	if !ok {
		return nil
	}
	removeSet := g.CalculateDescendants(root)
	return g.removeSet(removeSet)
}

// removeSet removes every entry in set, decrementing the descendant
// aggregates of any surviving ancestor exactly once per removed entry,
// then severing links and freeing the entries.
func (g *TxGraph) removeSet(set map[types.Hash]*Entry) []*Entry {
	removed := make([]*Entry, 0, len(set))

	for _, e := range set {
		for _, a := range g.ancestorsOf(e) {
			if _, inSet := set[a.Txid]; inSet {
				continue
			}
			a.CountWithDescendants--
			a.SizeWithDescendants -= e.Size
			a.ModFeesWithDescendants -= e.ModifiedFee()
		}
	}

	for _, e := range set {
		for pid := range e.Parents {
			if p, ok := g.entries[pid]; ok {
				delete(p.Children, e.Txid)
			}
		}
		for cid := range e.Children {
			if c, ok := g.entries[cid]; ok {
				delete(c.Parents, e.Txid)
			}
		}
		for _, op := range outpointsOf(e.Tx) {
			if g.prevoutIndex[op] == e.Txid {
				delete(g.prevoutIndex, op)
			}
		}
		delete(g.entries, e.Txid)
		removed = append(removed, e)
	}

	return removed
}

// UpdateTransactionsFromBlock reconciles descendant links and aggregates
// for a batch of entries re-added after a reorg (they were inserted
// assuming no children, which is false once siblings from the same batch
// land). Entries whose reconciliation work would exceed budget are marked
// Dirty instead of recomputed exactly.
func (g *TxGraph) UpdateTransactionsFromBlock(added map[types.Hash]*Entry, maxWork int64) {
	var work int64
	for _, e := range added {
		for _, op := range outpointsOf(e.Tx) {
			if parent, ok := g.Get(op.Hash); ok && parent.Txid != e.Txid {
				parent.Children[e.Txid] = struct{}{}
				e.Parents[parent.Txid] = struct{}{}
			}
		}
	}
	for _, e := range added {
		desc := g.CalculateDescendants(e)
		work += int64(len(desc))
		if work > maxWork {
			e.Dirty = true
			continue
		}
		var cnt, size, fee int64
		for _, d := range desc {
			cnt++
			size += d.Size
			fee += d.ModifiedFee()
		}
		e.CountWithDescendants, e.SizeWithDescendants, e.ModFeesWithDescendants = cnt, size, fee

		anc := g.ancestorsOf(e)
		var acnt, asize, afee, asig int64 = 1, e.Size, e.ModifiedFee(), int64(e.SigOps)
		for _, a := range anc {
			acnt++
			asize += a.Size
			afee += a.ModifiedFee()
			asig += int64(a.SigOps)
		}
		e.CountWithAncestors, e.SizeWithAncestors = acnt, asize
		e.ModFeesWithAncestors, e.SigOpsWithAncestors = afee, asig
	}
}
