package mempool

import "bytes"

// Order selects one of the mempool's four orderings over entries. Entries
// that tie on every key (e.g. equal entry times under entry_time) have no
// defined relative order. spends_coinbase is a filter predicate, not an ordering,
// and is exposed separately via Entry.SpendsCoinbase.
type Order int

const (
	OrderDescendantScore Order = iota
	OrderEntryTime
	OrderMiningScore
	OrderAncestorScore
)

// effectiveScore picks the larger of an entry's solo fee-rate and its
// with-descendants fee-rate, returned as a (numerator, denominator) pair
// so callers can cross-multiply instead of dividing. A dirty entry (reorg
// reconciliation gave up on exact descendant aggregates for it) always
// uses the solo score, since its with-descendants aggregates are no
// longer trustworthy.
func effectiveScore(e *Entry) (num, denom int64) {
	soloNum, soloDenom := e.ModifiedFee(), e.Size
	if e.Dirty {
		return soloNum, soloDenom
	}
	wdNum, wdDenom := e.ModFeesWithDescendants, e.SizeWithDescendants
	if soloDenom == 0 {
		return wdNum, wdDenom
	}
	if wdDenom == 0 {
		return soloNum, soloDenom
	}
	// soloNum/soloDenom < wdNum/wdDenom  <=>  soloNum*wdDenom < wdNum*soloDenom
	if soloNum*wdDenom < wdNum*soloDenom {
		return wdNum, wdDenom
	}
	return soloNum, soloDenom
}

// lessDescendantScore reports whether a sorts before b under
// descendant_score (higher effective fee rate first, oldest entry_time
// breaks ties).
func lessDescendantScore(a, b *Entry) bool {
	aNum, aDenom := effectiveScore(a)
	bNum, bDenom := effectiveScore(b)
	if aDenom == 0 || bDenom == 0 {
		return aNum*bDenom > bNum*aDenom
	}
	lhs := aNum * bDenom
	rhs := bNum * aDenom
	if lhs != rhs {
		return lhs > rhs
	}
	return a.Time.Before(b.Time)
}

// lessMiningScore reports whether a sorts before b under mining_score:
// modified_fee/size descending, higher txid breaks ties.
func lessMiningScore(a, b *Entry) bool {
	lhs := a.ModifiedFee() * b.Size
	rhs := b.ModifiedFee() * a.Size
	if lhs != rhs {
		return lhs > rhs
	}
	return bytes.Compare(a.Txid[:], b.Txid[:]) > 0
}

// lessAncestorScore reports whether a sorts before b under ancestor_score:
// fee/size over ancestor aggregates descending, txid breaks ties.
func lessAncestorScore(a, b *Entry) bool {
	lhs := a.ModFeesWithAncestors * b.SizeWithAncestors
	rhs := b.ModFeesWithAncestors * a.SizeWithAncestors
	if lhs != rhs {
		return lhs > rhs
	}
	return bytes.Compare(a.Txid[:], b.Txid[:]) < 0
}

// lessEntryTime reports whether a sorts before b under entry_time (ascending).
func lessEntryTime(a, b *Entry) bool {
	return a.Time.Before(b.Time)
}

func lessFor(order Order) func(a, b *Entry) bool {
	switch order {
	case OrderMiningScore:
		return lessMiningScore
	case OrderAncestorScore:
		return lessAncestorScore
	case OrderEntryTime:
		return lessEntryTime
	default:
		return lessDescendantScore
	}
}
