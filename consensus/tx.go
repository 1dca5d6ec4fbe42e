package consensus

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// MaxScriptSize bounds output scripts accepted by the parser.
	MaxScriptSize = 10_000
	// MaxSatoshi is the total supply cap; no output may exceed it.
	MaxSatoshi int64 = 21_000_000 * 100_000_000
	// LockTimeThreshold separates height-based from time-based lock times.
	LockTimeThreshold = 500_000_000

	CoinbasePrevIndex    uint32 = 0xffffffff
	MinCoinbaseScriptLen        = 2
	MaxCoinbaseScriptLen        = 100

	witnessMarker byte = 0x00
	witnessFlag   byte = 0x01

	// Smallest possible encodings, used to bound declared counts.
	minTxInSize  = chainhash.HashSize + 4 + 1 + 4
	minTxOutSize = 8 + 1
)

type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// IsNull reports whether o is the coinbase "spends nothing" outpoint.
func (o OutPoint) IsNull() bool {
	return o.Hash == (chainhash.Hash{}) && o.Index == CoinbasePrevIndex
}

type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Witness          [][]byte
	Sequence         uint32
}

type TxOut struct {
	Value    int64
	PkScript []byte
}

type Transaction struct {
	Version  int32
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32
}

// HasWitness reports whether any input carries a non-empty witness stack.
// It decides between the legacy and the BIP144 serialization.
func (tx *Transaction) HasWitness() bool {
	for i := range tx.Inputs {
		if len(tx.Inputs[i].Witness) != 0 {
			return true
		}
	}
	return false
}

func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].PreviousOutPoint.IsNull()
}

// TxID is the legacy transaction id (witness data excluded).
func (tx *Transaction) TxID() chainhash.Hash {
	return DoubleSHA256(SerializeTxNoWitness(tx))
}

// WitnessHash is the wtxid; equal to TxID for transactions without witness data.
func (tx *Transaction) WitnessHash() chainhash.Hash {
	return DoubleSHA256(SerializeTx(tx))
}

type LockTimeKind uint8

const (
	LockTimeBlockHeight LockTimeKind = iota
	LockTimeTimestamp
)

func (k LockTimeKind) String() string {
	if k == LockTimeTimestamp {
		return "timestamp"
	}
	return "block_height"
}

func (tx *Transaction) LockTimeKind() LockTimeKind {
	if tx.LockTime < LockTimeThreshold {
		return LockTimeBlockHeight
	}
	return LockTimeTimestamp
}

// CoinbaseHeight extracts the BIP34 block height from the first push of a
// coinbase script.
func (tx *Transaction) CoinbaseHeight() (uint32, bool) {
	if !tx.IsCoinbase() {
		return 0, false
	}
	script := tx.Inputs[0].SignatureScript
	if len(script) == 0 {
		return 0, false
	}
	op := script[0]
	switch {
	case op == OP_0:
		return 0, true
	case op >= OP_1 && op <= OP_16:
		return uint32(op-OP_1) + 1, true
	case op >= 1 && op <= 4:
		n := int(op)
		if len(script) < 1+n {
			return 0, false
		}
		data := script[1 : 1+n]
		if data[n-1]&0x80 != 0 {
			return 0, false
		}
		var buf [4]byte
		copy(buf[:], data)
		return binary.LittleEndian.Uint32(buf[:]), true
	default:
		return 0, false
	}
}
