package consensus

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorCode string

const (
	PARSE_ERR_EOF               ErrorCode = "PARSE_ERR_EOF"
	PARSE_ERR_HEADER_SIZE       ErrorCode = "PARSE_ERR_HEADER_SIZE"
	PARSE_ERR_VARINT_NONMINIMAL ErrorCode = "PARSE_ERR_VARINT_NONMINIMAL"
	PARSE_ERR_TRAILING_BYTES    ErrorCode = "PARSE_ERR_TRAILING_BYTES"
	PARSE_ERR_WITNESS_FLAG      ErrorCode = "PARSE_ERR_WITNESS_FLAG"
	PARSE_ERR_TX_MALFORMED      ErrorCode = "PARSE_ERR_TX_MALFORMED"

	POW_ERR_COMPACT_NEGATIVE   ErrorCode = "POW_ERR_COMPACT_NEGATIVE"
	POW_ERR_COMPACT_OVERFLOW   ErrorCode = "POW_ERR_COMPACT_OVERFLOW"
	POW_ERR_TARGET_ZERO        ErrorCode = "POW_ERR_TARGET_ZERO"
	POW_ERR_TARGET_ABOVE_LIMIT ErrorCode = "POW_ERR_TARGET_ABOVE_LIMIT"
	POW_ERR_INSUFFICIENT_WORK  ErrorCode = "POW_ERR_INSUFFICIENT_WORK"
	POW_ERR_BAD_RETARGET       ErrorCode = "POW_ERR_BAD_RETARGET"

	MERKLE_ERR_MALFORMED ErrorCode = "MERKLE_ERR_MALFORMED"
	MERKLE_ERR_INVALID   ErrorCode = "MERKLE_ERR_INVALID"

	SCRIPT_ERR_NONSTANDARD        ErrorCode = "SCRIPT_ERR_NONSTANDARD"
	SCRIPT_ERR_NOT_OPRETURN       ErrorCode = "SCRIPT_ERR_NOT_OPRETURN"
	SCRIPT_ERR_OPRETURN_MALFORMED ErrorCode = "SCRIPT_ERR_OPRETURN_MALFORMED"
	SCRIPT_ERR_UNSUPPORTED_INPUT  ErrorCode = "SCRIPT_ERR_UNSUPPORTED_INPUT"

	ADDRESS_ERR_INVALID ErrorCode = "ADDRESS_ERR_INVALID"
)

// ErrorClass groups error codes by how a caller is expected to react.
type ErrorClass uint8

const (
	// ClassFormat covers malformed bytes. Always fatal to the call.
	ClassFormat ErrorClass = iota + 1
	// ClassConsensus covers PoW and chain rule violations.
	ClassConsensus
	// ClassProof covers invalid or malformed inclusion proofs.
	ClassProof
	// ClassPolicy covers outcomes a caller may retry with other inputs.
	ClassPolicy
)

func (c ErrorClass) String() string {
	switch c {
	case ClassFormat:
		return "format"
	case ClassConsensus:
		return "consensus"
	case ClassProof:
		return "proof"
	case ClassPolicy:
		return "policy"
	default:
		return "unknown"
	}
}

func (c ErrorCode) Class() ErrorClass {
	switch c {
	case PARSE_ERR_EOF, PARSE_ERR_HEADER_SIZE, PARSE_ERR_VARINT_NONMINIMAL,
		PARSE_ERR_TRAILING_BYTES, PARSE_ERR_WITNESS_FLAG, PARSE_ERR_TX_MALFORMED,
		ADDRESS_ERR_INVALID:
		return ClassFormat
	case POW_ERR_COMPACT_NEGATIVE, POW_ERR_COMPACT_OVERFLOW, POW_ERR_TARGET_ZERO,
		POW_ERR_TARGET_ABOVE_LIMIT, POW_ERR_INSUFFICIENT_WORK, POW_ERR_BAD_RETARGET:
		return ClassConsensus
	case MERKLE_ERR_MALFORMED, MERKLE_ERR_INVALID:
		return ClassProof
	default:
		return ClassPolicy
	}
}

type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func cerr(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}

func cerrf(code ErrorCode, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}

// ClassOf returns the class of err's code, or 0 when err carries none.
func ClassOf(err error) ErrorClass {
	code, ok := CodeOf(err)
	if !ok {
		return 0
	}
	return code.Class()
}
