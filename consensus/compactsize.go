package consensus

import "encoding/binary"

// CompactSize is Bitcoin's variable-length integer ("varint" in the P2P docs).
type CompactSize uint64

func (c CompactSize) Encode() []byte {
	n := uint64(c)
	if n < 0xfd {
		return []byte{byte(n)}
	}
	if n <= 0xffff {
		var b2 [2]byte
		binary.LittleEndian.PutUint16(b2[:], uint16(n))
		return []byte{0xfd, b2[0], b2[1]}
	}
	if n <= 0xffffffff {
		var b4 [4]byte
		binary.LittleEndian.PutUint32(b4[:], uint32(n))
		return []byte{
			0xfe,
			b4[0], b4[1], b4[2], b4[3],
		}
	}
	var b8 [8]byte
	binary.LittleEndian.PutUint64(b8[:], n)
	return []byte{
		0xff,
		b8[0], b8[1], b8[2], b8[3],
		b8[4], b8[5], b8[6], b8[7],
	}
}

// EncodedLen returns the number of bytes Encode produces.
func (c CompactSize) EncodedLen() int {
	switch n := uint64(c); {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// DecodeCompactSize decodes a varint prefix of b and returns the value and the
// number of bytes consumed. Non-minimal encodings are rejected.
func DecodeCompactSize(b []byte) (CompactSize, int, error) {
	if len(b) < 1 {
		return 0, 0, cerr(PARSE_ERR_EOF, "compactsize: empty")
	}
	tag := b[0]
	switch {
	case tag < 0xfd:
		return CompactSize(tag), 1, nil
	case tag == 0xfd:
		if len(b) < 3 {
			return 0, 0, cerr(PARSE_ERR_EOF, "compactsize: truncated u16")
		}
		n := uint64(binary.LittleEndian.Uint16(b[1:3]))
		if n < 0xfd {
			return 0, 0, cerr(PARSE_ERR_VARINT_NONMINIMAL, "compactsize: non-minimal u16")
		}
		return CompactSize(n), 3, nil
	case tag == 0xfe:
		if len(b) < 5 {
			return 0, 0, cerr(PARSE_ERR_EOF, "compactsize: truncated u32")
		}
		n := uint64(binary.LittleEndian.Uint32(b[1:5]))
		if n < 0x1_0000 {
			return 0, 0, cerr(PARSE_ERR_VARINT_NONMINIMAL, "compactsize: non-minimal u32")
		}
		return CompactSize(n), 5, nil
	default: // 0xff
		if len(b) < 9 {
			return 0, 0, cerr(PARSE_ERR_EOF, "compactsize: truncated u64")
		}
		n := binary.LittleEndian.Uint64(b[1:9])
		if n < 0x1_0000_0000 {
			return 0, 0, cerr(PARSE_ERR_VARINT_NONMINIMAL, "compactsize: non-minimal u64")
		}
		return CompactSize(n), 9, nil
	}
}
