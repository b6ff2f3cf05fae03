package mempool

import (
	"testing"
	"time"

	"github.com/btcnode/core/pkg/types"
)

// TestApplyDeltaChangesDescendantScoreOrdering is boundary scenario 4: a
// fee-delta bump must move an entry ahead of an equally-sized, equally-fee
// peer under descendant_score.
func TestApplyDeltaChangesDescendantScoreOrdering(t *testing.T) {
	g := newTxGraph()

	txA := buildTx(types.Hash{0x01}, 0, 1000, p2pkhLikeScript(1), 1)
	txB := buildTx(types.Hash{0x02}, 0, 1000, p2pkhLikeScript(2), 2)
	idA, idB := txHash(txA), txHash(txB)

	a := newEntry(idA, idA, txA, 1000, 1000, 1, 100, fixedNow(), false)
	b := newEntry(idB, idB, txB, 1000, 1000, 1, 100, fixedNow().Add(time.Second), false)
	if err := g.AddUnchecked(a, map[types.Hash]*Entry{}); err != nil {
		t.Fatalf("AddUnchecked(a): %v", err)
	}
	if err := g.AddUnchecked(b, map[types.Hash]*Entry{}); err != nil {
		t.Fatalf("AddUnchecked(b): %v", err)
	}

	before := g.IterBy(OrderDescendantScore)
	if before[0].Txid != idA {
		t.Fatalf("before delta: expected a (older, equal fee) first, got %s", before[0].Txid)
	}

	g.ApplyDelta(idB, 5000)
	if b.ModifiedFee() != 6000 {
		t.Fatalf("ModifiedFee after delta = %d, want 6000", b.ModifiedFee())
	}
	if b.ModFeesWithDescendants != 6000 {
		t.Errorf("ModFeesWithDescendants after delta = %d, want 6000 (reflexive self-inclusion)", b.ModFeesWithDescendants)
	}

	after := g.IterBy(OrderDescendantScore)
	if after[0].Txid != idB {
		t.Fatalf("after delta: expected b to sort first, order=%v", []types.Hash{after[0].Txid, after[1].Txid})
	}
}

// TestApplyDeltaPropagatesToAncestors checks that a delta applied to a
// child is reflected in its parent's descendant aggregates, per the
// AddUnchecked algorithm's step 5 generalized to post-hoc deltas.
func TestApplyDeltaPropagatesToAncestors(t *testing.T) {
	g := newTxGraph()
	parentTx := buildTx(types.Hash{0x01}, 0, 1000, p2pkhLikeScript(1), 1)
	parentID := txHash(parentTx)
	parent := newEntry(parentID, parentID, parentTx, 1000, 1000, 1, 100, fixedNow(), false)
	if err := g.AddUnchecked(parent, map[types.Hash]*Entry{}); err != nil {
		t.Fatalf("AddUnchecked(parent): %v", err)
	}

	childTx := buildTx(parentID, 0, 900, p2pkhLikeScript(2), 2)
	childID := txHash(childTx)
	ancestors, err := g.CalculateMempoolAncestors(childTx, testLimits())
	if err != nil {
		t.Fatalf("CalculateMempoolAncestors: %v", err)
	}
	child := newEntry(childID, childID, childTx, 500, 500, 1, 100, fixedNow(), false)
	if err := g.AddUnchecked(child, ancestors); err != nil {
		t.Fatalf("AddUnchecked(child): %v", err)
	}

	wantBefore := parent.ModFeesWithDescendants
	g.ApplyDelta(childID, 1000)
	if parent.ModFeesWithDescendants != wantBefore+1000 {
		t.Errorf("parent ModFeesWithDescendants=%d, want %d", parent.ModFeesWithDescendants, wantBefore+1000)
	}
}

func TestFeeEstimatorConfirmedWithinThreshold(t *testing.T) {
	fe := newFeeEstimator(1000, time.Hour)

	for i := 0; i < 100; i++ {
		tx := buildTx(types.Hash{byte(i), byte(i >> 8)}, 0, 1000, p2pkhLikeScript(byte(i)), byte(i))
		id := txHash(tx)
		e := newEntry(id, id, tx, 5000, 1000, 1, 100, fixedNow(), false) // 5000 sat/kvB
		fe.ProcessTransaction(e, true)
	}

	confirmedAtHeight102 := make([]*Entry, 0, 90)
	for i := 0; i < 90; i++ {
		tx := buildTx(types.Hash{byte(i), byte(i >> 8)}, 0, 1000, p2pkhLikeScript(byte(i)), byte(i))
		id := txHash(tx)
		confirmedAtHeight102 = append(confirmedAtHeight102, newEntry(id, id, tx, 5000, 1000, 1, 100, fixedNow(), false))
	}
	fe.ProcessBlock(102, confirmedAtHeight102) // 90/100 confirmed within 2 blocks

	rate, ok := fe.EstimateFee(2)
	if !ok {
		t.Fatal("expected a fee estimate for target 2 given 90% confirmation")
	}
	if rate <= 0 {
		t.Errorf("estimated fee rate = %d, want positive", rate)
	}
}

func TestEstimateSmartFeeScansUpward(t *testing.T) {
	fe := newFeeEstimator(1000, time.Hour)

	var confirmed []*Entry
	for i := 0; i < 5; i++ {
		tx := buildTx(types.Hash{byte(i)}, 0, 1000, p2pkhLikeScript(byte(i)), byte(i))
		id := txHash(tx)
		e := newEntry(id, id, tx, 2000, 1000, 1, 100, fixedNow(), false)
		fe.ProcessTransaction(e, true)
		confirmed = append(confirmed, e)
	}
	fe.ProcessBlock(103, confirmed) // confirmed 3 blocks after admission, so targets 1 and 2 do not qualify

	rate, blocksNeeded, ok := fe.EstimateSmartFee(1)
	if !ok {
		t.Fatal("expected EstimateSmartFee to find a qualifying bucket")
	}
	if blocksNeeded != 3 {
		t.Errorf("blocksNeeded=%d, want 3", blocksNeeded)
	}
	if rate <= 0 {
		t.Errorf("rate=%d, want positive", rate)
	}
}

func TestInvalidFeeEstimateIsNotCounted(t *testing.T) {
	fe := newFeeEstimator(1000, time.Hour)
	tx := buildTx(types.Hash{0x01}, 0, 1000, p2pkhLikeScript(1), 1)
	id := txHash(tx)
	e := newEntry(id, id, tx, 2000, 1000, 1, 100, fixedNow(), false)

	fe.ProcessTransaction(e, false) // e.g. an RBF replacement
	idx := fe.bucketIndex(e.FeeRate())
	if fe.stats[idx].observations != 0 {
		t.Errorf("observations=%v, want 0 when validFeeEstimate=false", fe.stats[idx].observations)
	}
}
