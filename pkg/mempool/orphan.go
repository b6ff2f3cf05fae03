package mempool

import (
	"math/rand"
	"time"

	"github.com/btcnode/core/pkg/types"
	"github.com/btcnode/core/pkg/utxo"
)

const orphanExpiry = 20 * time.Minute

// PeerID identifies the peer an orphan arrived from, used only to evict
// orphans when that peer disconnects. The P2P layer itself is an external
// collaborator.
type PeerID string

type orphanEntry struct {
	tx         *types.Transaction
	txid       types.Hash
	fromPeer   PeerID
	expiryTime time.Time
}

// OrphanPool holds transactions that failed admission only for missing
// inputs, indexed both by txid and by every prevout they consume so a
// newly-accepted parent can find its waiting children in constant time.
type OrphanPool struct {
	byTxid   map[types.Hash]*orphanEntry
	byPrevout map[utxo.OutPoint]map[types.Hash]struct{}
	nextSweep time.Time
}

func newOrphanPool() *OrphanPool {
	return &OrphanPool{
		byTxid:    make(map[types.Hash]*orphanEntry),
		byPrevout: make(map[utxo.OutPoint]map[types.Hash]struct{}),
	}
}

// Add stores tx as an orphan if it is not already present. Size limits are
// enforced by the caller (Mempool.Accept) before this is reached.
func (p *OrphanPool) Add(tx *types.Transaction, txid types.Hash, fromPeer PeerID, now time.Time) bool {
	if _, exists := p.byTxid[txid]; exists {
		return false
	}
	e := &orphanEntry{tx: tx, txid: txid, fromPeer: fromPeer, expiryTime: now.Add(orphanExpiry)}
	p.byTxid[txid] = e
	for _, in := range tx.Inputs {
		op := utxo.NewOutPoint(in.PrevTxHash, in.OutputIndex)
		set, ok := p.byPrevout[op]
		if !ok {
			set = make(map[types.Hash]struct{})
			p.byPrevout[op] = set
		}
		set[txid] = struct{}{}
	}
	return true
}

func (p *OrphanPool) remove(txid types.Hash) {
	e, ok := p.byTxid[txid]
	if !ok {
		return
	}
	for _, in := range e.tx.Inputs {
		op := utxo.NewOutPoint(in.PrevTxHash, in.OutputIndex)
		if set, ok := p.byPrevout[op]; ok {
			delete(set, txid)
			if len(set) == 0 {
				delete(p.byPrevout, op)
			}
		}
	}
	delete(p.byTxid, txid)
}

// ProcessNewTx replays orphans that consume an output of a newly accepted
// parent transaction. admit is called for each candidate; orphans it
// accepts are removed from the pool and their own children are tried in
// turn. A per-call visited set guarantees each orphan is attempted at most
// once even if reachable through more than one of the parent's outputs.
func (p *OrphanPool) ProcessNewTx(parentTxid types.Hash, numOutputs uint32, admit func(*types.Transaction) (*Entry, error)) []*Entry {
	var accepted []*Entry
	visited := make(map[types.Hash]struct{})
	queue := make([]types.Hash, 0)

	enqueue := func(parent types.Hash, outs uint32) {
		for i := uint32(0); i < outs; i++ {
			op := utxo.NewOutPoint(parent, i)
			for txid := range p.byPrevout[op] {
				if _, seen := visited[txid]; seen {
					continue
				}
				visited[txid] = struct{}{}
				queue = append(queue, txid)
			}
		}
	}

	enqueue(parentTxid, numOutputs)

	for len(queue) > 0 {
		txid := queue[0]
		queue = queue[1:]
		orphan, ok := p.byTxid[txid]
		if !ok {
			continue
		}
		entry, err := admit(orphan.tx)
		if err != nil {
			continue
		}
		p.remove(txid)
		accepted = append(accepted, entry)
		enqueue(txid, uint32(len(orphan.tx.Outputs)))
	}

	return accepted
}

// EraseForPeer removes every orphan that arrived from peer (used on
// disconnect).
func (p *OrphanPool) EraseForPeer(peer PeerID) {
	for txid, e := range p.byTxid {
		if e.fromPeer == peer {
			p.remove(txid)
		}
	}
}

// Limit first sweeps expired orphans when a sweep is due (on the first
// call, then no earlier than nextSweep), then randomly evicts until at most
// max remain, and returns the number removed.
func (p *OrphanPool) Limit(max int, now time.Time) int {
	removed := 0

	if p.nextSweep.IsZero() || !now.Before(p.nextSweep) {
		earliest := now.Add(orphanExpiry)
		for txid, e := range p.byTxid {
			if now.After(e.expiryTime) || now.Equal(e.expiryTime) {
				p.remove(txid)
				removed++
				continue
			}
			if e.expiryTime.Before(earliest) {
				earliest = e.expiryTime
			}
		}
		p.nextSweep = earliest.Add(5 * time.Minute)
	}

	ids := make([]types.Hash, 0, len(p.byTxid))
	for txid := range p.byTxid {
		ids = append(ids, txid)
	}
	for len(ids) > max {
		i := rand.Intn(len(ids))
		p.remove(ids[i])
		removed++
		ids[i] = ids[len(ids)-1]
		ids = ids[:len(ids)-1]
	}

	return removed
}

// Exists reports whether txid is held as an orphan.
func (p *OrphanPool) Exists(txid types.Hash) bool {
	_, ok := p.byTxid[txid]
	return ok
}

func (p *OrphanPool) Size() int { return len(p.byTxid) }

// RecentRejects caches txids that recently failed admission for a reason
// other than missing inputs, keyed to the chain tip at the time they were
// recorded. It is cleared whenever the tip changes since a reorg can make
// a previously-invalid transaction valid again.
type RecentRejects struct {
	tip  types.Hash
	seen map[types.Hash]struct{}
}

func newRecentRejects() *RecentRejects {
	return &RecentRejects{seen: make(map[types.Hash]struct{})}
}

func (r *RecentRejects) Clear(newTip types.Hash) {
	if newTip == r.tip {
		return
	}
	r.tip = newTip
	r.seen = make(map[types.Hash]struct{})
}

func (r *RecentRejects) Add(txid types.Hash) { r.seen[txid] = struct{}{} }

func (r *RecentRejects) Contains(txid types.Hash) bool {
	_, ok := r.seen[txid]
	return ok
}

// AlreadyHave consults the orphan index, RecentRejects, and the mempool
// itself, so a peer relaying the same transaction twice is short-circuited
// before it reaches admission.
func AlreadyHave(txid types.Hash, graph *TxGraph, orphans *OrphanPool, rejects *RecentRejects) bool {
	return graph.Exists(txid) || orphans.Exists(txid) || rejects.Contains(txid)
}
