package mempool

import (
	"context"
	"testing"

	"github.com/btcnode/core/pkg/types"
)

// TestOrphanReplayOnParentArrival is boundary scenario 5: a child
// submitted before its parent is held as an orphan, and admitting the
// parent triggers replay of the child, in that order.
func TestOrphanReplayOnParentArrival(t *testing.T) {
	m, fundingHash := newTestMempool(t, 100000, nil)
	ctx := context.Background()

	parentTx := buildTx(fundingHash, 0, 90000, p2pkhLikeScript(1), 1)
	parentID := txHash(parentTx)
	childTx := buildTx(parentID, 0, 80000, p2pkhLikeScript(2), 2)

	var received []types.Hash
	m.OnTransactionReceived(func(tx *types.Transaction) {
		received = append(received, txHash(tx))
	})

	if _, err := m.Accept(ctx, childTx, PeerID("peer1")); !IsKind(err, MissingInputs) {
		t.Fatalf("expected child to be held as orphan (MissingInputs), got %v", err)
	}
	if !m.orphans.Exists(txHash(childTx)) {
		t.Fatal("child was not buffered as an orphan")
	}

	if _, err := m.Accept(ctx, parentTx, PeerID("peer2")); err != nil {
		t.Fatalf("parent Accept failed: %v", err)
	}

	if !m.Exists(parentID) {
		t.Error("parent missing from pool after admission")
	}
	if !m.Exists(txHash(childTx)) {
		t.Error("child was not replayed into the pool once the parent arrived")
	}
	if m.orphans.Exists(txHash(childTx)) {
		t.Error("child should have been removed from the orphan pool after replay")
	}

	if len(received) != 2 || received[0] != parentID || received[1] != txHash(childTx) {
		t.Errorf("TransactionReceived order = %v, want [parent, child]", received)
	}
}

func TestOrphanDedupWithinSingleReplayPass(t *testing.T) {
	m, fundingHash := newTestMempool(t, 100000, nil)
	ctx := context.Background()

	parentTx := buildTxMultiOut(fundingHash, 0, 2, 40000, 1)
	parentID := txHash(parentTx)

	// childTx spends both of the parent's outputs, so a replay pass that
	// iterated every output naively would try to admit it twice.
	childTx := &types.Transaction{
		Version: 1,
		Inputs: []types.TxInput{
			{PrevTxHash: parentID, OutputIndex: 0, SignatureScript: []byte{9}, Sequence: 0xffffffff},
			{PrevTxHash: parentID, OutputIndex: 1, SignatureScript: []byte{9}, Sequence: 0xffffffff},
		},
		Outputs: []types.TxOutput{{Value: 70000, PubKeyScript: p2pkhLikeScript(9)}},
	}

	admitAttempts := 0
	orig := m.onTxReceived
	m.OnTransactionReceived(func(tx *types.Transaction) {
		if txHash(tx) == txHash(childTx) {
			admitAttempts++
		}
		if orig != nil {
			orig(tx)
		}
	})

	if _, err := m.Accept(ctx, childTx, PeerID("peer1")); !IsKind(err, MissingInputs) {
		t.Fatalf("expected child to be orphaned, got %v", err)
	}
	if _, err := m.Accept(ctx, parentTx, PeerID("peer2")); err != nil {
		t.Fatalf("parent Accept failed: %v", err)
	}

	if admitAttempts != 1 {
		t.Errorf("child was admitted %d times via replay, want exactly 1", admitAttempts)
	}
}

func TestOrphanLimitSweepsExpiredFirst(t *testing.T) {
	p := newOrphanPool()
	now := fixedNow()

	tx1 := buildTx(types.Hash{1}, 0, 1000, p2pkhLikeScript(1), 1)
	tx2 := buildTx(types.Hash{2}, 0, 1000, p2pkhLikeScript(2), 2)

	p.Add(tx1, txHash(tx1), PeerID("a"), now.Add(-30*orphanExpiry))
	p.Add(tx2, txHash(tx2), PeerID("b"), now)

	removed := p.Limit(10, now)
	if removed != 1 {
		t.Fatalf("expected exactly the expired entry to be swept, removed=%d", removed)
	}
	if p.Exists(txHash(tx1)) {
		t.Error("expired orphan should have been swept")
	}
	if !p.Exists(txHash(tx2)) {
		t.Error("fresh orphan should have survived the sweep")
	}
}

func TestRecentRejectsClearsOnTipChange(t *testing.T) {
	r := newRecentRejects()
	id := types.Hash{0x01}
	r.Add(id)
	if !r.Contains(id) {
		t.Fatal("expected rejected id to be tracked")
	}
	r.Clear(types.Hash{0x02})
	if r.Contains(id) {
		t.Error("RecentRejects should clear when the chain tip changes")
	}
}
