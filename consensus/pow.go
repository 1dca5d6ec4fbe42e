package consensus

import (
	"math/big"
	"sort"
)

const (
	// RetargetInterval is the number of blocks between difficulty adjustments.
	RetargetInterval = 2016
	// TargetSpacing is the intended number of seconds between blocks.
	TargetSpacing = 10 * 60
	// TargetTimespan is the intended duration of one retarget interval.
	TargetTimespan = RetargetInterval * TargetSpacing // 1209600
	// RetargetClamp bounds the timespan to [TargetTimespan/4, TargetTimespan*4].
	RetargetClamp = 4
	// MinDifficultyGap is how late a header must be, relative to its parent,
	// to use the pow limit when min-difficulty blocks are allowed.
	MinDifficultyGap = 2 * TargetSpacing

	// MedianTimeSpan is the number of ancestors used for median-time-past.
	MedianTimeSpan = 11
)

var (
	// UnroundedMaxTarget is the main network pow limit,
	// 0x00000000FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF.
	UnroundedMaxTarget = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 224), big.NewInt(1))

	// RegressionPowLimit is the regression-test pow limit, 2^255-1.
	RegressionPowLimit = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))

	twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)
)

// IsRetargetHeight reports whether a header at height opens a new difficulty interval.
func IsRetargetHeight(height uint32) bool {
	return height%RetargetInterval == 0
}

// VerifyProofOfWork checks that the header hash, read as a little-endian
// integer, does not exceed the header's own target.
func VerifyProofOfWork(h BlockHeader) error {
	if h.Target == nil || h.Target.Sign() <= 0 {
		return cerr(POW_ERR_TARGET_ZERO, "target is zero")
	}
	if HashToBig(h.Hash).Cmp(h.Target) > 0 {
		return cerrf(POW_ERR_INSUFFICIENT_WORK, "hash %s above target for bits %08x", h.Hash, h.Bits)
	}
	return nil
}

// CheckTargetRange rejects targets that are zero or easier than powLimit.
func CheckTargetRange(target, powLimit *big.Int) error {
	if target == nil || target.Sign() <= 0 {
		return cerr(POW_ERR_TARGET_ZERO, "target is zero")
	}
	if powLimit != nil && target.Cmp(powLimit) > 0 {
		return cerr(POW_ERR_TARGET_ABOVE_LIMIT, "target above pow limit")
	}
	return nil
}

// CalculateNextWorkRequired returns the compact bits a header opening a new
// interval must carry, given the target the closing interval opened with and
// the timestamps of its first and last headers.
func CalculateNextWorkRequired(prevTarget *big.Int, firstBlockTime, lastBlockTime uint32, powLimit *big.Int) (uint32, error) {
	if prevTarget == nil || prevTarget.Sign() <= 0 {
		return 0, cerr(POW_ERR_TARGET_ZERO, "previous target is zero")
	}
	if powLimit == nil {
		powLimit = UnroundedMaxTarget
	}

	var actual int64
	if lastBlockTime > firstBlockTime {
		actual = int64(lastBlockTime - firstBlockTime)
	}
	if actual < TargetTimespan/RetargetClamp {
		actual = TargetTimespan / RetargetClamp
	}
	if actual > TargetTimespan*RetargetClamp {
		actual = TargetTimespan * RetargetClamp
	}

	next := new(big.Int).Mul(prevTarget, big.NewInt(actual))
	next.Quo(next, big.NewInt(TargetTimespan))
	if next.Cmp(powLimit) > 0 {
		next.Set(powLimit)
	}
	return BigToCompact(next)
}

// WorkFromTarget returns the expected number of hashes for a target,
// 2^256 / (target+1). Non-positive targets carry no work.
func WorkFromTarget(target *big.Int) *big.Int {
	if target == nil || target.Sign() <= 0 {
		return new(big.Int)
	}
	denom := new(big.Int).Add(target, big.NewInt(1))
	return denom.Quo(twoTo256, denom)
}

// MedianTimePast returns the median of the given timestamps. The input is not modified.
func MedianTimePast(timestamps []uint32) uint32 {
	if len(timestamps) == 0 {
		return 0
	}
	sorted := append([]uint32(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2]
}

// WorkFromBits is WorkFromTarget over the expanded compact field.
func WorkFromBits(bits uint32) (*big.Int, error) {
	target, err := ExtractTarget(bits)
	if err != nil {
		return nil, err
	}
	return WorkFromTarget(target), nil
}
