package consensus

import (
	"encoding/binary"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BlockHeaderSize is the size of a serialized Bitcoin block header.
const BlockHeaderSize = 80

// RawHeader is a serialized block header. All fields are little-endian.
type RawHeader [BlockHeaderSize]byte

// NewRawHeader copies b into a RawHeader; b must be exactly 80 bytes.
func NewRawHeader(b []byte) (RawHeader, error) {
	var raw RawHeader
	if len(b) != BlockHeaderSize {
		return raw, cerrf(PARSE_ERR_HEADER_SIZE, "header is %d bytes, want %d", len(b), BlockHeaderSize)
	}
	copy(raw[:], b)
	return raw, nil
}

// Hash returns the block id, the double-SHA256 of the raw bytes.
func (r RawHeader) Hash() chainhash.Hash {
	return DoubleSHA256(r[:])
}

type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32

	// Target is derived from Bits.
	Target *big.Int
	// Hash is derived from the raw bytes.
	Hash chainhash.Hash
}

// ParseBlockHeader decodes a raw header. The block hash is always recomputed
// from raw and the target is expanded from the compact field.
func ParseBlockHeader(raw RawHeader) (BlockHeader, error) {
	b := raw[:]
	h := BlockHeader{
		Version:   int32(binary.LittleEndian.Uint32(b[0:4])),
		Timestamp: binary.LittleEndian.Uint32(b[68:72]),
		Bits:      binary.LittleEndian.Uint32(b[72:76]),
		Nonce:     binary.LittleEndian.Uint32(b[76:80]),
		Hash:      raw.Hash(),
	}
	copy(h.PrevBlock[:], b[4:36])
	copy(h.MerkleRoot[:], b[36:68])

	target, err := ExtractTarget(h.Bits)
	if err != nil {
		return BlockHeader{}, err
	}
	h.Target = target
	return h, nil
}

func ParseBlockHeaderBytes(b []byte) (BlockHeader, error) {
	raw, err := NewRawHeader(b)
	if err != nil {
		return BlockHeader{}, err
	}
	return ParseBlockHeader(raw)
}

// ParseHeaders decodes a concatenation of raw headers.
func ParseHeaders(b []byte) ([]BlockHeader, error) {
	if len(b)%BlockHeaderSize != 0 {
		return nil, cerrf(PARSE_ERR_HEADER_SIZE, "headers payload is %d bytes, not a multiple of %d", len(b), BlockHeaderSize)
	}
	out := make([]BlockHeader, 0, len(b)/BlockHeaderSize)
	for off := 0; off < len(b); off += BlockHeaderSize {
		h, err := ParseBlockHeaderBytes(b[off : off+BlockHeaderSize])
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// BlockHeaderBytes serializes the consensus fields of h. Target and Hash are ignored.
func BlockHeaderBytes(h BlockHeader) RawHeader {
	var raw RawHeader
	binary.LittleEndian.PutUint32(raw[0:4], uint32(h.Version))
	copy(raw[4:36], h.PrevBlock[:])
	copy(raw[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(raw[68:72], h.Timestamp)
	binary.LittleEndian.PutUint32(raw[72:76], h.Bits)
	binary.LittleEndian.PutUint32(raw[76:80], h.Nonce)
	return raw
}

// Raw re-serializes h.
func (h BlockHeader) Raw() RawHeader {
	return BlockHeaderBytes(h)
}
