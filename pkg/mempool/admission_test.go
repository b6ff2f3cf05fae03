package mempool

import (
	"context"
	"testing"

	"github.com/btcnode/core/pkg/types"
)

func newTestMempool(t *testing.T, fundingValue int64, cfgFn func(*Config)) (*Mempool, types.Hash) {
	t.Helper()
	validator, _, fundingHash := newFundedValidator(fundingValue)
	cfg := testConfig()
	if cfgFn != nil {
		cfgFn(cfg)
	}
	return New(cfg, validator, &fakeIndexer{}), fundingHash
}

func TestAcceptChainOfFiveAllSucceed(t *testing.T) {
	m, fundingHash := newTestMempool(t, 100000, nil)
	ctx := context.Background()

	prev := fundingHash
	var prevIdx uint32
	for i := 0; i < 5; i++ {
		value := int64(90000 - i*1000)
		tx := buildTx(prev, prevIdx, value, p2pkhLikeScript(byte(i)), byte(i))
		e, err := m.Accept(ctx, tx, PeerID("peer1"))
		if err != nil {
			t.Fatalf("link %d: Accept failed: %v", i, err)
		}
		prev = e.Txid
		prevIdx = 0
	}
	if m.Size() != 5 {
		t.Errorf("pool size=%d, want 5", m.Size())
	}
}

func TestAcceptDuplicateIsIdempotent(t *testing.T) {
	m, fundingHash := newTestMempool(t, 100000, nil)
	ctx := context.Background()

	tx := buildTx(fundingHash, 0, 90000, p2pkhLikeScript(1), 1)
	if _, err := m.Accept(ctx, tx, PeerID("peer1")); err != nil {
		t.Fatalf("first Accept failed: %v", err)
	}
	_, err := m.Accept(ctx, tx, PeerID("peer1"))
	if !IsKind(err, DuplicateEntry) {
		t.Fatalf("expected DuplicateEntry on resubmission, got %v", err)
	}
	if m.Size() != 1 {
		t.Errorf("pool size=%d after duplicate resubmission, want 1", m.Size())
	}
}

func TestAcceptRejectsNonStandardOutput(t *testing.T) {
	m, fundingHash := newTestMempool(t, 100000, func(c *Config) { c.RequireStandard = true })
	ctx := context.Background()

	tx := buildTx(fundingHash, 0, 90000, []byte{0x51, 0x52}, 1) // not P2PKH, not OP_RETURN
	_, err := m.Accept(ctx, tx, PeerID("peer1"))
	if !IsKind(err, PolicyRejected) {
		t.Fatalf("expected PolicyRejected for non-standard output, got %v", err)
	}
}

func TestAcceptRejectsBelowDustThreshold(t *testing.T) {
	m, fundingHash := newTestMempool(t, 100000, func(c *Config) {
		c.RequireStandard = true
		c.DustThreshold = 546
	})
	ctx := context.Background()

	tx := buildTx(fundingHash, 0, 100, p2pkhLikeScript(1), 1) // below dust threshold
	_, err := m.Accept(ctx, tx, PeerID("peer1"))
	if !IsKind(err, PolicyRejected) {
		t.Fatalf("expected PolicyRejected for dust output, got %v", err)
	}
}

func TestAcceptRejectsMissingInputsAsOrphanCandidate(t *testing.T) {
	m, _ := newTestMempool(t, 100000, nil)
	ctx := context.Background()

	tx := buildTx(types.Hash{0x99}, 0, 90000, p2pkhLikeScript(1), 1)
	_, err := m.Accept(ctx, tx, PeerID("peer1"))
	if !IsKind(err, MissingInputs) {
		t.Fatalf("expected MissingInputs, got %v", err)
	}
	id := txHash(tx)
	if !m.orphans.Exists(id) {
		t.Errorf("transaction with missing inputs was not buffered as an orphan")
	}
}
