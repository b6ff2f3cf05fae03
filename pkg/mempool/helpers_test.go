package mempool

import (
	"time"

	"github.com/btcnode/core/pkg/serialization"
	"github.com/btcnode/core/pkg/types"
	"github.com/btcnode/core/pkg/utxo"
)

// testLimits returns generous limits unless a test needs to exercise the
// boundary itself.
func testLimits() Limits {
	return Limits{
		MaxAncestorCount:   25,
		MaxAncestorSize:    101000,
		MaxDescendantCount: 25,
		MaxDescendantSize:  101000,
	}
}

// testConfig mirrors DefaultConfig but with policy knobs relaxed so
// admission-level tests can focus on the behavior under test instead of
// incidentally tripping standardness or min-fee checks.
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.MinRelayFee = 0
	cfg.RequireStandard = false
	cfg.MaxOrphanTx = 100
	return cfg
}

// p2pkhLikeScript returns a script shaped like a standard P2PKH output
// (0x76 OP_DUP, 0xa9 OP_HASH160, push 20, ..., 0x88 OP_EQUALVERIFY, 0xac
// OP_CHECKSIG) so tests exercising RequireStandard=true see a standard
// output.
func p2pkhLikeScript(seed byte) []byte {
	s := make([]byte, 25)
	s[0] = 0x76
	s[1] = 0xa9
	s[2] = 20
	for i := 0; i < 20; i++ {
		s[3+i] = seed
	}
	s[23] = 0x88
	s[24] = 0xac
	return s
}

// buildTx builds a single-input, single-output transaction spending
// (prevHash, prevIndex). seed perturbs the signature script so
// otherwise-identical transactions hash to distinct txids.
func buildTx(prevHash types.Hash, prevIndex uint32, value int64, script []byte, seed byte) *types.Transaction {
	return &types.Transaction{
		Version: 1,
		Inputs: []types.TxInput{{
			PrevTxHash:      prevHash,
			OutputIndex:     prevIndex,
			SignatureScript: []byte{seed},
			Sequence:        0xffffffff,
		}},
		Outputs: []types.TxOutput{{Value: value, PubKeyScript: script}},
	}
}

// buildTxMultiOut builds a transaction with n outputs, used for fan-out
// scenarios where several children each spend a distinct output index.
func buildTxMultiOut(prevHash types.Hash, prevIndex uint32, n int, valuePerOutput int64, seed byte) *types.Transaction {
	outs := make([]types.TxOutput, n)
	for i := range outs {
		outs[i] = types.TxOutput{Value: valuePerOutput, PubKeyScript: p2pkhLikeScript(byte(i))}
	}
	return &types.Transaction{
		Version: 1,
		Inputs: []types.TxInput{{
			PrevTxHash:      prevHash,
			OutputIndex:     prevIndex,
			SignatureScript: []byte{seed},
			Sequence:        0xffffffff,
		}},
		Outputs: outs,
	}
}

func txHash(tx *types.Transaction) types.Hash {
	h, err := serialization.HashTransaction(tx)
	if err != nil {
		panic(err)
	}
	return h
}

// newFundedValidator returns a UTXOValidator whose UTXO set has a single
// spendable coin at (fundingHash, 0) worth value satoshis, plus the set
// itself so a test can add further confirmed coins later.
func newFundedValidator(value int64) (*UTXOValidator, *utxo.UTXOSet, types.Hash) {
	set := utxo.NewUTXOSet()
	fundingHash := types.Hash{0xaa, 0xbb, 0xcc}
	coin := utxo.NewUTXO(fundingHash, 0, types.TxOutput{Value: value, PubKeyScript: p2pkhLikeScript(0x01)}, 0, false)
	if err := set.Add(coin); err != nil {
		panic(err)
	}
	return NewUTXOValidator(set), set, fundingHash
}

type fakeIndexer struct {
	tip    types.Hash
	height int64
}

func (f *fakeIndexer) Tip() (types.Hash, int64) { return f.tip, f.height }

func fixedNow() time.Time {
	return time.Unix(1_700_000_000, 0)
}
