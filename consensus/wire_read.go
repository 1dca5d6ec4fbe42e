package consensus

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func readU8(b []byte, off *int) (uint8, error) {
	if *off+1 > len(b) {
		return 0, cerr(PARSE_ERR_EOF, "unexpected EOF (u8)")
	}
	v := b[*off]
	*off++
	return v, nil
}

func readU32le(b []byte, off *int) (uint32, error) {
	if *off+4 > len(b) {
		return 0, cerr(PARSE_ERR_EOF, "unexpected EOF (u32le)")
	}
	v := binary.LittleEndian.Uint32(b[*off : *off+4])
	*off += 4
	return v, nil
}

func readU64le(b []byte, off *int) (uint64, error) {
	if *off+8 > len(b) {
		return 0, cerr(PARSE_ERR_EOF, "unexpected EOF (u64le)")
	}
	v := binary.LittleEndian.Uint64(b[*off : *off+8])
	*off += 8
	return v, nil
}

func readBytes(b []byte, off *int, n int) ([]byte, error) {
	if n < 0 {
		return nil, cerr(PARSE_ERR_EOF, "negative length")
	}
	if n > len(b)-*off {
		return nil, cerr(PARSE_ERR_EOF, "unexpected EOF (bytes)")
	}
	v := b[*off : *off+n]
	*off += n
	return v, nil
}

func readHash(b []byte, off *int) (chainhash.Hash, error) {
	var h chainhash.Hash
	v, err := readBytes(b, off, chainhash.HashSize)
	if err != nil {
		return h, err
	}
	copy(h[:], v)
	return h, nil
}

func readCompactSize(b []byte, off *int) (uint64, error) {
	if *off > len(b) {
		return 0, cerr(PARSE_ERR_EOF, "unexpected EOF (compactsize)")
	}
	v, n, err := DecodeCompactSize(b[*off:])
	if err != nil {
		return 0, err
	}
	*off += n
	return uint64(v), nil
}

// readCount reads a compact-size element count and rejects it when the
// remaining input cannot hold count elements of at least minSize bytes each.
func readCount(b []byte, off *int, minSize int, name string) (int, error) {
	n, err := readCompactSize(b, off)
	if err != nil {
		return 0, err
	}
	remaining := uint64(len(b) - *off)
	if minSize > 0 && n > remaining/uint64(minSize) {
		return 0, cerrf(PARSE_ERR_EOF, "%s count %d exceeds remaining %d bytes", name, n, remaining)
	}
	return toIntLen(n, name)
}

// readVarBytes reads a compact-size length prefix followed by that many bytes.
func readVarBytes(b []byte, off *int, name string) ([]byte, error) {
	n, err := readCompactSize(b, off)
	if err != nil {
		return nil, err
	}
	if n > uint64(len(b)-*off) {
		return nil, cerrf(PARSE_ERR_EOF, "%s length %d exceeds remaining %d bytes", name, n, len(b)-*off)
	}
	return readBytes(b, off, int(n))
}
