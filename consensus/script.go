package consensus

import "encoding/binary"

// Opcodes needed for standard output templates and scriptSig walking.
const (
	OP_0             byte = 0x00
	OP_DATA_20       byte = 0x14
	OP_DATA_32       byte = 0x20
	OP_DATA_75       byte = 0x4b
	OP_PUSHDATA1     byte = 0x4c
	OP_PUSHDATA2     byte = 0x4d
	OP_PUSHDATA4     byte = 0x4e
	OP_1NEGATE       byte = 0x4f
	OP_1             byte = 0x51
	OP_16            byte = 0x60
	OP_RETURN        byte = 0x6a
	OP_DUP           byte = 0x76
	OP_EQUAL         byte = 0x87
	OP_EQUALVERIFY   byte = 0x88
	OP_HASH160       byte = 0xa9
	OP_CHECKSIG      byte = 0xac
	OP_CHECKMULTISIG byte = 0xae
)

// MaxOpReturnSize is the standardness cap on a whole OP_RETURN script
// (MAX_OP_RETURN_RELAY in Bitcoin Core).
const MaxOpReturnSize = 83

// ScriptClass is the closed set of output templates the relay recognizes.
type ScriptClass uint8

const (
	ScriptNonstandard ScriptClass = iota
	ScriptP2PKH
	ScriptP2SH
	ScriptP2WPKHv0
	ScriptP2WSHv0
	ScriptOpReturn
)

func (c ScriptClass) String() string {
	switch c {
	case ScriptP2PKH:
		return "p2pkh"
	case ScriptP2SH:
		return "p2sh"
	case ScriptP2WPKHv0:
		return "p2wpkh_v0"
	case ScriptP2WSHv0:
		return "p2wsh_v0"
	case ScriptOpReturn:
		return "op_return"
	default:
		return "nonstandard"
	}
}

// IsPayment reports whether the class pays an address.
func (c ScriptClass) IsPayment() bool {
	switch c {
	case ScriptP2PKH, ScriptP2SH, ScriptP2WPKHv0, ScriptP2WSHv0:
		return true
	default:
		return false
	}
}

// ClassifyScript matches a locking script against the fixed templates by
// length and opcode positions only; nothing is executed.
func ClassifyScript(script []byte) ScriptClass {
	switch {
	case isP2PKH(script):
		return ScriptP2PKH
	case isP2SH(script):
		return ScriptP2SH
	case isP2WPKHv0(script):
		return ScriptP2WPKHv0
	case isP2WSHv0(script):
		return ScriptP2WSHv0
	case len(script) > 0 && script[0] == OP_RETURN:
		return ScriptOpReturn
	default:
		return ScriptNonstandard
	}
}

// 76 a9 14 <20 bytes> 88 ac
func isP2PKH(s []byte) bool {
	return len(s) == 25 &&
		s[0] == OP_DUP &&
		s[1] == OP_HASH160 &&
		s[2] == OP_DATA_20 &&
		s[23] == OP_EQUALVERIFY &&
		s[24] == OP_CHECKSIG
}

// a9 14 <20 bytes> 87
func isP2SH(s []byte) bool {
	return len(s) == 23 &&
		s[0] == OP_HASH160 &&
		s[1] == OP_DATA_20 &&
		s[22] == OP_EQUAL
}

// 00 14 <20 bytes>
func isP2WPKHv0(s []byte) bool {
	return len(s) == 22 && s[0] == OP_0 && s[1] == OP_DATA_20
}

// 00 20 <32 bytes>
func isP2WSHv0(s []byte) bool {
	return len(s) == 34 && s[0] == OP_0 && s[1] == OP_DATA_32
}

// ExtractOpReturnData returns the payload of an OP_RETURN output under the
// default size cap.
func ExtractOpReturnData(script []byte) ([]byte, error) {
	return ExtractOpReturnDataLimit(script, MaxOpReturnSize)
}

// ExtractOpReturnDataLimit returns the payload of `OP_RETURN <len> <data>`.
// The whole script may be at most maxSize bytes and the single length byte
// must equal the number of bytes that follow it.
func ExtractOpReturnDataLimit(script []byte, maxSize int) ([]byte, error) {
	if len(script) == 0 || script[0] != OP_RETURN {
		return nil, cerr(SCRIPT_ERR_NOT_OPRETURN, "script does not start with OP_RETURN")
	}
	if len(script) > maxSize {
		return nil, cerrf(SCRIPT_ERR_OPRETURN_MALFORMED, "script is %d bytes, max %d", len(script), maxSize)
	}
	if len(script) < 2 {
		return nil, cerr(SCRIPT_ERR_OPRETURN_MALFORMED, "missing push length")
	}
	data := script[2:]
	if int(script[1]) != len(data) {
		return nil, cerrf(SCRIPT_ERR_OPRETURN_MALFORMED, "push declares %d bytes, %d remain", script[1], len(data))
	}
	return append([]byte{}, data...), nil
}

// OpReturnScript builds `OP_RETURN <len> <data>`; data must be at most 255 bytes.
func OpReturnScript(data []byte) []byte {
	out := make([]byte, 0, 2+len(data))
	out = append(out, OP_RETURN, byte(len(data)))
	return append(out, data...)
}

// scriptPushes splits a push-only script into its data pushes. Small-integer
// opcodes yield empty pushes; any other opcode fails.
func scriptPushes(script []byte) ([][]byte, error) {
	var out [][]byte
	off := 0
	for off < len(script) {
		op := script[off]
		off++
		var n int
		switch {
		case op == OP_0:
			out = append(out, nil)
			continue
		case op >= 1 && op <= OP_DATA_75:
			n = int(op)
		case op == OP_PUSHDATA1:
			if off+1 > len(script) {
				return nil, cerr(SCRIPT_ERR_UNSUPPORTED_INPUT, "truncated OP_PUSHDATA1")
			}
			n = int(script[off])
			off++
		case op == OP_PUSHDATA2:
			if off+2 > len(script) {
				return nil, cerr(SCRIPT_ERR_UNSUPPORTED_INPUT, "truncated OP_PUSHDATA2")
			}
			n = int(binary.LittleEndian.Uint16(script[off : off+2]))
			off += 2
		case op == OP_PUSHDATA4:
			if off+4 > len(script) {
				return nil, cerr(SCRIPT_ERR_UNSUPPORTED_INPUT, "truncated OP_PUSHDATA4")
			}
			v := binary.LittleEndian.Uint32(script[off : off+4])
			off += 4
			if uint64(v) > uint64(len(script)-off) {
				return nil, cerr(SCRIPT_ERR_UNSUPPORTED_INPUT, "push exceeds script")
			}
			n = int(v)
		case op == OP_1NEGATE || (op >= OP_1 && op <= OP_16):
			out = append(out, nil)
			continue
		default:
			return nil, cerrf(SCRIPT_ERR_UNSUPPORTED_INPUT, "non-push opcode %#02x", op)
		}
		if n > len(script)-off {
			return nil, cerr(SCRIPT_ERR_UNSUPPORTED_INPUT, "push exceeds script")
		}
		out = append(out, script[off:off+n])
		off += n
	}
	return out, nil
}
