package mempool

import (
	"context"

	"github.com/btcnode/core/pkg/script"
	"github.com/btcnode/core/pkg/types"
	"github.com/btcnode/core/pkg/utxo"
	"github.com/btcnode/core/pkg/validation"
)

// ErrMissingInputs is returned by a Validator when at least one consumed
// outpoint is neither in the UTXO set nor in the mempool.
var ErrMissingInputs = newErr(MissingInputs, "input not found in UTXO set or mempool")

// ViewProvider is the mempool view a Validator consults besides the UTXO
// set: Get looks up an in-mempool entry (whose outputs an input may spend)
// and Spends reports which in-mempool entry already consumes an outpoint.
type ViewProvider interface {
	Get(txid types.Hash) (*Entry, bool)
	Spends(op utxo.OutPoint) (*Entry, bool)
}

// ValidationResult is what a consensus validator reports back for a
// transaction it accepts. Full script verification lives outside this
// package; this is only the contract Admission needs.
type ValidationResult struct {
	Fee            int64
	Height         int64
	SizeVBytes     int64
	SigOpCost      int
	SpendsCoinbase bool
}

// Validator is the external consensus-validator collaborator. Script
// verification, full consensus rules, and UTXO maintenance live elsewhere;
// Admission only depends on this contract.
type Validator interface {
	Validate(ctx context.Context, tx *types.Transaction, view ViewProvider) (ValidationResult, error)
}

// UTXOValidator is a reference Validator backed by an in-memory UTXO set.
// It is sufficient for tests and the sample CLI;
// a production node would plug in full script execution here instead.
type UTXOValidator struct {
	utxos *utxo.UTXOSet
}

func NewUTXOValidator(utxos *utxo.UTXOSet) *UTXOValidator {
	return &UTXOValidator{utxos: utxos}
}

func (v *UTXOValidator) Validate(ctx context.Context, tx *types.Transaction, view ViewProvider) (ValidationResult, error) {
	if len(tx.Inputs) == 0 {
		return ValidationResult{}, newErr(ConsensusInvalid, "transaction has no inputs")
	}

	var totalIn, totalOut int64
	spendsCoinbase := false

	for _, in := range tx.Inputs {
		op := utxo.NewOutPoint(in.PrevTxHash, in.OutputIndex)

		if v.utxos.Exists(op) {
			spent, err := v.utxos.Get(op)
			if err != nil {
				return ValidationResult{}, wrapErr(IOError, "utxo lookup", err)
			}
			totalIn += spent.Value()
			if spent.IsCoinbase {
				spendsCoinbase = true
			}
			continue
		}

		if parent, ok := view.Get(in.PrevTxHash); ok && int(in.OutputIndex) < len(parent.Tx.Outputs) {
			// Output of an in-mempool parent: value is not yet knowable
			// from the confirmed UTXO set alone, but the input is not
			// "missing" — it resolves once the parent's own fee/size
			// were already validated at its own admission.
			continue
		}

		return ValidationResult{}, ErrMissingInputs
	}

	for _, out := range tx.Outputs {
		if err := validation.CheckMoneyRange(out.Value); err != nil {
			return ValidationResult{}, wrapErr(ConsensusInvalid, "output value", err)
		}
		totalOut += out.Value
	}

	fee := totalIn - totalOut
	if totalIn > 0 && fee < 0 {
		return ValidationResult{}, newErr(ConsensusInvalid, "outputs exceed inputs")
	}
	if fee < 0 {
		fee = 0 // unresolved ancestor value; Admission will not rely on this being exact.
	}

	return ValidationResult{
		Fee:            fee,
		Height:         0,
		SizeVBytes:     CalculateTransactionSize(tx),
		SigOpCost:      len(tx.Inputs) * 2,
		SpendsCoinbase: spendsCoinbase,
	}, nil
}

// isStandard applies the mempool's standardness policy: P2PKH-shaped
// outputs and at most one small OP_RETURN. Any other output script,
// including P2SH, is rejected as non-standard.
func isStandard(tx *types.Transaction, dustThreshold int64) error {
	if tx.Version < 1 || tx.Version > 2 {
		return newErr(PolicyRejected, "non-standard version")
	}

	nullData := 0
	for _, out := range tx.Outputs {
		if len(out.PubKeyScript) > 0 && out.PubKeyScript[0] == 0x6a {
			nullData++
			if nullData > 1 {
				return newErr(PolicyRejected, "multiple OP_RETURN outputs")
			}
			if len(out.PubKeyScript) > 83 {
				return newErr(PolicyRejected, "OP_RETURN output too large")
			}
			continue
		}
		if !script.IsP2PKH(out.PubKeyScript) {
			return newErr(PolicyRejected, "non-standard output script")
		}
		if out.Value < dustThreshold {
			return newErr(PolicyRejected, "output below dust threshold")
		}
	}
	return nil
}
