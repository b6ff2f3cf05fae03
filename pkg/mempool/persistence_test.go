package mempool

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/btcnode/core/pkg/types"
	"github.com/btcnode/core/pkg/utxo"
)

// TestSaveLoadRoundTrip is invariant 6: loading a saved snapshot into a
// fresh pool reproduces the same entries (modulo entry_time, which Load
// restores exactly anyway since it is part of the saved tuple).
func TestSaveLoadRoundTrip(t *testing.T) {
	set := utxo.NewUTXOSet()
	fundingHash := types.Hash{0xaa}
	if err := set.Add(utxo.NewUTXO(fundingHash, 0, types.TxOutput{Value: 100000, PubKeyScript: p2pkhLikeScript(1)}, 0, false)); err != nil {
		t.Fatalf("fund set: %v", err)
	}
	validator := NewUTXOValidator(set)
	cfg := testConfig()
	m1 := New(cfg, validator, &fakeIndexer{})
	ctx := context.Background()

	tx1 := buildTx(fundingHash, 0, 90000, p2pkhLikeScript(2), 2)
	e1, err := m1.Accept(ctx, tx1, PeerID("p"))
	if err != nil {
		t.Fatalf("Accept(tx1): %v", err)
	}
	tx2 := buildTx(e1.Txid, 0, 80000, p2pkhLikeScript(3), 3)
	if _, err := m1.Accept(ctx, tx2, PeerID("p")); err != nil {
		t.Fatalf("Accept(tx2): %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "mempool.dat")
	if err := m1.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m2 := New(cfg, NewUTXOValidator(set), &fakeIndexer{})
	n, err := m2.LoadFromDisk(path)
	if err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	if n != 2 {
		t.Fatalf("loaded %d entries, want 2", n)
	}
	if m2.Size() != m1.Size() {
		t.Fatalf("m2.Size()=%d, want %d", m2.Size(), m1.Size())
	}

	for _, want := range m1.IterBy(OrderEntryTime) {
		got, ok := m2.Get(want.Txid)
		if !ok {
			t.Fatalf("entry %s missing after reload", want.Txid)
		}
		if got.Fee != want.Fee || got.Size != want.Size {
			t.Errorf("entry %s: fee/size = %d/%d, want %d/%d", want.Txid, got.Fee, got.Size, want.Fee, want.Size)
		}
		if got.Time.Unix() != want.Time.Unix() {
			t.Errorf("entry %s: entry_time = %v, want %v", want.Txid, got.Time, want.Time)
		}
	}
}

func TestSaveLoadPreservesFeeDelta(t *testing.T) {
	set := utxo.NewUTXOSet()
	fundingHash := types.Hash{0xbb}
	if err := set.Add(utxo.NewUTXO(fundingHash, 0, types.TxOutput{Value: 100000, PubKeyScript: p2pkhLikeScript(1)}, 0, false)); err != nil {
		t.Fatalf("fund set: %v", err)
	}
	cfg := testConfig()
	m1 := New(cfg, NewUTXOValidator(set), &fakeIndexer{})
	ctx := context.Background()

	tx := buildTx(fundingHash, 0, 90000, p2pkhLikeScript(2), 2)
	e, err := m1.Accept(ctx, tx, PeerID("p"))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	m1.ApplyDelta(e.Txid, 2500)

	dir := t.TempDir()
	path := filepath.Join(dir, "mempool.dat")
	if err := m1.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m2 := New(cfg, NewUTXOValidator(set), &fakeIndexer{})
	if _, err := m2.LoadFromDisk(path); err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	got, ok := m2.Get(e.Txid)
	if !ok {
		t.Fatal("entry missing after reload")
	}
	if got.FeeDelta != 2500 {
		t.Errorf("FeeDelta after reload = %d, want 2500", got.FeeDelta)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	m := New(testConfig(), NewUTXOValidator(utxo.NewUTXOSet()), &fakeIndexer{})
	n, err := m.LoadFromDisk(filepath.Join(t.TempDir(), "does-not-exist.dat"))
	if err != nil {
		t.Fatalf("LoadFromDisk on missing file: %v", err)
	}
	if n != 0 {
		t.Errorf("loaded %d entries from a missing file, want 0", n)
	}
}
