package consensus

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // ripemd160 is consensus for Bitcoin addresses
)

// DoubleSHA256 is the hash Bitcoin uses for block ids, txids and merkle nodes.
func DoubleSHA256(b []byte) chainhash.Hash {
	return chainhash.DoubleHashH(b)
}

// Hash160 returns RIPEMD160(SHA256(b)).
func Hash160(b []byte) [20]byte {
	s := sha256.Sum256(b)
	h := ripemd160.New()
	_, _ = h.Write(s[:])
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// MustHashFromHex parses a hash in the usual reversed display order. It panics
// on malformed input and is meant for constants and tests.
func MustHashFromHex(s string) chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return *h
}

func merkleParent(left, right chainhash.Hash) chainhash.Hash {
	var buf [2 * chainhash.HashSize]byte
	copy(buf[:chainhash.HashSize], left[:])
	copy(buf[chainhash.HashSize:], right[:])
	return chainhash.DoubleHashH(buf[:])
}
