package mempool

import (
	"testing"

	"github.com/btcnode/core/pkg/types"
)

// TestTrimToSizeReachesLimitOrEmpty is invariant 7: after TrimToSize the
// pool is either empty or at or under the size limit.
func TestTrimToSizeReachesLimitOrEmpty(t *testing.T) {
	g := newTxGraph()
	for i := 0; i < 10; i++ {
		tx := buildTx(types.Hash{byte(i)}, 0, 1000, p2pkhLikeScript(byte(i)), byte(i))
		id := txHash(tx)
		e := newEntry(id, id, tx, int64(100*(i+1)), 1000, 1, 100, fixedNow(), false)
		if err := g.AddUnchecked(e, map[types.Hash]*Entry{}); err != nil {
			t.Fatalf("entry %d: AddUnchecked: %v", i, err)
		}
	}

	fe := newFeeEstimator(0, 0)
	limit := g.DynamicMemoryUsage() / 2
	TrimToSize(g, fe, limit, 0, fixedNow())

	if g.Size() > 0 && g.DynamicMemoryUsage() > limit {
		t.Errorf("after TrimToSize: size=%d usage=%d, want usage <= %d or empty pool", g.Size(), g.DynamicMemoryUsage(), limit)
	}
}

// TestTrimToSizeEvictsLowestScoreFirst checks that TrimToSize removes the
// cheapest fee-rate entries before touching higher-paying ones.
func TestTrimToSizeEvictsLowestScoreFirst(t *testing.T) {
	g := newTxGraph()

	cheap := buildTx(types.Hash{0x01}, 0, 1000, p2pkhLikeScript(1), 1)
	cheapID := txHash(cheap)
	cheapEntry := newEntry(cheapID, cheapID, cheap, 100, 1000, 1, 100, fixedNow(), false) // 100 sat/kvB
	if err := g.AddUnchecked(cheapEntry, map[types.Hash]*Entry{}); err != nil {
		t.Fatalf("AddUnchecked(cheap): %v", err)
	}

	rich := buildTx(types.Hash{0x02}, 0, 1000, p2pkhLikeScript(2), 2)
	richID := txHash(rich)
	richEntry := newEntry(richID, richID, rich, 10000, 1000, 1, 100, fixedNow(), false) // 10000 sat/kvB
	if err := g.AddUnchecked(richEntry, map[types.Hash]*Entry{}); err != nil {
		t.Fatalf("AddUnchecked(rich): %v", err)
	}

	fe := newFeeEstimator(0, 0)
	limitForOne := (cheapEntry.Size + 300) // exactly one entry's DynamicMemoryUsage share
	evicted := TrimToSize(g, fe, limitForOne, 0, fixedNow())

	if len(evicted) != 1 || evicted[0] != cheapID {
		t.Fatalf("evicted=%v, want [cheap]", evicted)
	}
	if !g.Exists(richID) {
		t.Error("higher fee-rate entry should have survived")
	}
}

// TestTrimToSizeBumpsRollingMinFee is boundary scenario 6: trimming bumps
// the rolling minimum fee to at least the evicted package's fee rate, so
// GetMinFee immediately reflects it.
func TestTrimToSizeBumpsRollingMinFee(t *testing.T) {
	g := newTxGraph()
	tx := buildTx(types.Hash{0x01}, 0, 1000, p2pkhLikeScript(1), 1)
	id := txHash(tx)
	e := newEntry(id, id, tx, 2000, 1000, 1, 100, fixedNow(), false) // 2000 sat/kvB
	if err := g.AddUnchecked(e, map[types.Hash]*Entry{}); err != nil {
		t.Fatalf("AddUnchecked: %v", err)
	}

	fe := newFeeEstimator(0, 0)
	if fe.GetMinFee(0, 0, fixedNow()) != 0 {
		t.Fatal("expected GetMinFee to start at 0 with minRelayFee 0")
	}

	evicted := TrimToSize(g, fe, 0, 0, fixedNow())
	if len(evicted) != 1 {
		t.Fatalf("evicted=%v, want exactly the one entry", evicted)
	}

	got := fe.GetMinFee(0, 0, fixedNow())
	if got <= 0 {
		t.Fatalf("GetMinFee after trim = %d, want > 0", got)
	}
	if got < e.DescendantFeeRate() {
		t.Errorf("GetMinFee=%d, want >= evicted package fee rate %d", got, e.DescendantFeeRate())
	}
}

func TestTrimToSizeStopsOnEmptyPool(t *testing.T) {
	g := newTxGraph()
	fe := newFeeEstimator(0, 0)
	evicted := TrimToSize(g, fe, 0, 0, fixedNow())
	if len(evicted) != 0 {
		t.Errorf("evicted=%v on an empty pool, want none", evicted)
	}
}
