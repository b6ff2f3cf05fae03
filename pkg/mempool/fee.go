package mempool

import (
	"math"
	"time"

	"github.com/btcnode/core/pkg/types"
)

// CalculateTransactionSize estimates the virtual size of tx in bytes.
// Witness discounting is a consensus-layer concern and out of scope here.
func CalculateTransactionSize(tx *types.Transaction) int64 {
	size := int64(4 + 1 + 1 + 4) // version + input-count varint + output-count varint + locktime
	for _, in := range tx.Inputs {
		size += 32 + 4 + 1 + int64(len(in.SignatureScript)) + 4
	}
	for _, out := range tx.Outputs {
		size += 8 + 1 + int64(len(out.PubKeyScript))
	}
	return size
}

// CalculateFeeRate returns fee in satoshis per kilo-vbyte.
func CalculateFeeRate(fee, size int64) int64 {
	if size == 0 {
		return 0
	}
	return (fee * 1000) / size
}

const (
	maxConfirmTarget = 25
	decayPerBlock    = 0.998 // ~0.2% decay per block so recent blocks
	// dominate the estimate without discarding history outright
	estimateThreshold = 0.85
)

// feeBuckets returns geometrically-spaced fee-rate bucket boundaries
// (satoshis per kilo-vbyte) so estimates stay smooth across fee ranges
// instead of jumping between a handful of fixed tiers.
func feeBuckets() []int64 {
	buckets := make([]int64, 0, 40)
	rate := 1000.0
	for rate < 1e7 {
		buckets = append(buckets, int64(rate))
		rate *= 1.1
	}
	return buckets
}

type bucketStats struct {
	observations    float64
	confirmedWithin [maxConfirmTarget + 1]float64 // index N: observations confirmed within N blocks
}

// FeeEstimator maintains, per fee-rate bucket, exponentially-decayed
// counts of observations and of how many of those confirmed within each
// confirmation-target horizon. It also owns the rolling minimum relay fee
// that Eviction bumps on every TrimToSize pass.
type FeeEstimator struct {
	buckets     []int64
	stats       []bucketStats
	lastDecayed int64 // height of last ProcessBlock call

	rollingMinFee     int64
	rollingFeeHalflife time.Duration
	lastRollingUpdate time.Time
	minRelayFee       int64
}

func newFeeEstimator(minRelayFee int64, halflife time.Duration) *FeeEstimator {
	b := feeBuckets()
	return &FeeEstimator{
		buckets:            b,
		stats:              make([]bucketStats, len(b)),
		rollingFeeHalflife: halflife,
		minRelayFee:        minRelayFee,
	}
}

func (fe *FeeEstimator) bucketIndex(feeRate int64) int {
	for i, b := range fe.buckets {
		if feeRate <= b {
			return i
		}
	}
	return len(fe.buckets) - 1
}

// ProcessTransaction records an admitted entry's fee-rate observation.
// Entries excluded from fee estimation (e.g. RBF replacements) pass
// validFeeEstimate=false and are not counted.
func (fe *FeeEstimator) ProcessTransaction(e *Entry, validFeeEstimate bool) {
	if !validFeeEstimate {
		return
	}
	idx := fe.bucketIndex(e.FeeRate())
	fe.stats[idx].observations++
}

// ProcessBlock credits each confirmed entry's bucket with a
// confirmed-within-N observation for every N it qualifies for, then
// applies exponential decay to every bucket so recent blocks dominate.
func (fe *FeeEstimator) ProcessBlock(height int64, confirmed []*Entry) {
	for _, e := range confirmed {
		blocksToConfirm := height - e.Height
		if blocksToConfirm < 0 {
			blocksToConfirm = 0
		}
		idx := fe.bucketIndex(e.FeeRate())
		for n := int(blocksToConfirm); n <= maxConfirmTarget; n++ {
			fe.stats[idx].confirmedWithin[n]++
		}
	}

	for i := range fe.stats {
		fe.stats[i].observations *= decayPerBlock
		for n := range fe.stats[i].confirmedWithin {
			fe.stats[i].confirmedWithin[n] *= decayPerBlock
		}
	}
	fe.lastDecayed = height
}

// EstimateFee returns the smallest bucket's fee rate whose
// confirmed-within-target fraction exceeds estimateThreshold.
func (fe *FeeEstimator) EstimateFee(targetBlocks int) (int64, bool) {
	if targetBlocks < 1 {
		targetBlocks = 1
	}
	if targetBlocks > maxConfirmTarget {
		targetBlocks = maxConfirmTarget
	}
	for i, b := range fe.buckets {
		s := fe.stats[i]
		if s.observations < 1 {
			continue
		}
		frac := s.confirmedWithin[targetBlocks] / s.observations
		if frac > estimateThreshold {
			return b, true
		}
	}
	return 0, false
}

// EstimateSmartFee scans upward from targetBlocks until a bucket
// qualifies, returning the fee rate and how many blocks were actually
// needed to find one.
func (fe *FeeEstimator) EstimateSmartFee(targetBlocks int) (rate int64, blocksNeeded int, ok bool) {
	for n := targetBlocks; n <= maxConfirmTarget; n++ {
		if r, found := fe.EstimateFee(n); found {
			return r, n, true
		}
	}
	return 0, 0, false
}

// BumpRollingMinFee raises the rolling minimum fee to at least
// packageFeeRate + minRelayFee, called by TrimToSize after every package
// eviction.
func (fe *FeeEstimator) BumpRollingMinFee(packageFeeRate int64, now time.Time) {
	candidate := packageFeeRate + fe.minRelayFee
	if candidate > fe.rollingMinFee {
		fe.rollingMinFee = candidate
	}
	fe.lastRollingUpdate = now
}

// RollingMinFee returns the current rolling minimum fee after applying
// halflife decay, falling to zero once it drops below half of
// minRelayFee.
func (fe *FeeEstimator) RollingMinFee(now time.Time) int64 {
	return fe.decayRollingMinFee(fe.rollingFeeHalflife, now)
}

// decayRollingMinFee applies exponential decay over the given halflife,
// the shared implementation behind RollingMinFee and GetMinFee's
// occupancy-scaled variant.
func (fe *FeeEstimator) decayRollingMinFee(halflife time.Duration, now time.Time) int64 {
	if fe.rollingMinFee == 0 {
		return 0
	}
	if fe.lastRollingUpdate.IsZero() {
		return fe.rollingMinFee
	}
	elapsed := now.Sub(fe.lastRollingUpdate)
	if elapsed <= 0 {
		return fe.rollingMinFee
	}
	if halflife <= 0 {
		halflife = fe.rollingFeeHalflife
	}
	halvings := float64(elapsed) / float64(halflife)
	decayed := float64(fe.rollingMinFee) * math.Pow(0.5, halvings)
	if decayed < float64(fe.minRelayFee)/2 {
		fe.rollingMinFee = 0
		return 0
	}
	fe.rollingMinFee = int64(decayed)
	fe.lastRollingUpdate = now
	return fe.rollingMinFee
}

// GetMinFee returns the effective admission floor: the greater of the
// rolling minimum and minRelayFee. When the pool sits far below
// sizeLimit, there is no pressure to keep turning away low-fee
// transactions, so the halflife is scaled down in proportion to
// occupancy (pool at a quarter of its limit decays four times as fast),
// letting the rolling minimum fall back toward minRelayFee quickly
// instead of lingering at whatever peak it reached during a fee spike.
func (fe *FeeEstimator) GetMinFee(sizeLimit, poolSize int64, now time.Time) int64 {
	halflife := fe.rollingFeeHalflife
	if sizeLimit > 0 && poolSize < sizeLimit {
		occupancy := float64(poolSize) / float64(sizeLimit)
		if occupancy < 0.1 {
			occupancy = 0.1 // floor: never shrink the halflife past 1/10th
		}
		halflife = time.Duration(float64(fe.rollingFeeHalflife) * occupancy)
	}
	rolling := fe.decayRollingMinFee(halflife, now)
	if rolling > fe.minRelayFee {
		return rolling
	}
	return fe.minRelayFee
}
