package consensus

import (
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ExtractTarget expands the compact "bits" field into the 256-bit target.
//
// The encoding is a base-256 float: the high byte is the size in bytes, the
// low 23 bits the mantissa and bit 23 a sign. Negative values and values that
// do not fit in 256 bits are rejected, matching arith_uint256::SetCompact.
func ExtractTarget(bits uint32) (*big.Int, error) {
	size := bits >> 24
	word := bits & 0x007fffff

	var target *big.Int
	if size <= 3 {
		word >>= 8 * (3 - size)
		target = new(big.Int).SetUint64(uint64(word))
	} else {
		target = new(big.Int).Lsh(new(big.Int).SetUint64(uint64(word)), uint(8*(size-3)))
	}

	if word != 0 && bits&0x00800000 != 0 {
		return nil, cerrf(POW_ERR_COMPACT_NEGATIVE, "bits %08x", bits)
	}
	if word != 0 && (size > 34 || (word > 0xff && size > 33) || (word > 0xffff && size > 32)) {
		return nil, cerrf(POW_ERR_COMPACT_OVERFLOW, "bits %08x", bits)
	}
	return target, nil
}

// BigToCompact is the inverse of ExtractTarget (arith_uint256::GetCompact).
// Precision below the top three mantissa bytes is truncated.
func BigToCompact(n *big.Int) (uint32, error) {
	if n == nil || n.Sign() < 0 {
		return 0, cerr(POW_ERR_COMPACT_NEGATIVE, "negative target")
	}
	size := uint32((n.BitLen() + 7) / 8)
	var compact uint32
	if size <= 3 {
		compact = uint32(n.Uint64() << (8 * (3 - size)))
	} else {
		compact = uint32(new(big.Int).Rsh(n, uint(8*(size-3))).Uint64())
	}
	// The sign bit is reserved; move one byte into the exponent instead.
	if compact&0x00800000 != 0 {
		compact >>= 8
		size++
	}
	if size > 0xff {
		return 0, cerr(POW_ERR_COMPACT_OVERFLOW, "target does not fit compact form")
	}
	return compact | size<<24, nil
}

// HashToBig interprets a block hash as a little-endian 256-bit integer.
func HashToBig(h chainhash.Hash) *big.Int {
	return new(big.Int).SetBytes(reverseBytes(h[:]))
}
