package mempool

import "fmt"

// Kind classifies a mempool error so callers can branch on category
// instead of matching error strings.
type Kind int

const (
	// MissingInputs means the validator could not find one or more
	// referenced outputs — the transaction is a candidate orphan.
	MissingInputs Kind = iota
	// PolicyRejected means the transaction is consensus-valid but
	// violates local relay/acceptance policy (standardness, dust, fee).
	PolicyRejected
	// ConsensusInvalid means the validator rejected the transaction outright.
	ConsensusInvalid
	// LimitExceeded means an ancestor or descendant package limit was hit.
	LimitExceeded
	// DuplicateEntry means the transaction is already present in the pool.
	DuplicateEntry
	// IOError wraps a persistence failure.
	IOError
	// InvariantViolation marks internal bookkeeping corruption. Callers
	// should treat this as unrecoverable.
	InvariantViolation
)

func (k Kind) String() string {
	switch k {
	case MissingInputs:
		return "missing_inputs"
	case PolicyRejected:
		return "policy_rejected"
	case ConsensusInvalid:
		return "consensus_invalid"
	case LimitExceeded:
		return "limit_exceeded"
	case DuplicateEntry:
		return "duplicate_entry"
	case IOError:
		return "io_error"
	case InvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Error is the mempool's typed error. Wrap an inner cause with Err when
// one exists so errors.Unwrap / errors.Is keep working.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapErr(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether err (or any error it wraps) is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	var me *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			me = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return me != nil && me.Kind == k
}
