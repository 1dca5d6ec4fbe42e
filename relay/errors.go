package relay

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/interlay/interbtc-sub005/consensus"
)

type ErrorCode string

const (
	RELAY_ERR_ALREADY_INITIALIZED  ErrorCode = "RELAY_ERR_ALREADY_INITIALIZED"
	RELAY_ERR_NOT_INITIALIZED      ErrorCode = "RELAY_ERR_NOT_INITIALIZED"
	RELAY_ERR_INVALID_START_HEIGHT ErrorCode = "RELAY_ERR_INVALID_START_HEIGHT"
	RELAY_ERR_HEADER_FORMAT        ErrorCode = "RELAY_ERR_HEADER_FORMAT"
	RELAY_ERR_DUPLICATE_BLOCK      ErrorCode = "RELAY_ERR_DUPLICATE_BLOCK"
	RELAY_ERR_PREV_BLOCK           ErrorCode = "RELAY_ERR_PREV_BLOCK"
	RELAY_ERR_BLOCK_VERSION        ErrorCode = "RELAY_ERR_BLOCK_VERSION"
	RELAY_ERR_LOW_DIFF             ErrorCode = "RELAY_ERR_LOW_DIFF"
	RELAY_ERR_DIFF_TARGET_HEADER   ErrorCode = "RELAY_ERR_DIFF_TARGET_HEADER"
	RELAY_ERR_TIME_TOO_OLD         ErrorCode = "RELAY_ERR_TIME_TOO_OLD"
	RELAY_ERR_HEIGHT_NOT_FOUND     ErrorCode = "RELAY_ERR_HEIGHT_NOT_FOUND"

	RELAY_ERR_BLOCK_NOT_FOUND      ErrorCode = "RELAY_ERR_BLOCK_NOT_FOUND"
	RELAY_ERR_INVALID              ErrorCode = "RELAY_ERR_INVALID"
	RELAY_ERR_NO_DATA              ErrorCode = "RELAY_ERR_NO_DATA"
	RELAY_ERR_NOT_MAIN_CHAIN       ErrorCode = "RELAY_ERR_NOT_MAIN_CHAIN"
	RELAY_ERR_ONGOING_FORK         ErrorCode = "RELAY_ERR_ONGOING_FORK"
	RELAY_ERR_CONFIRMATIONS        ErrorCode = "RELAY_ERR_CONFIRMATIONS"
	RELAY_ERR_LEDGER_CONFIRMATIONS ErrorCode = "RELAY_ERR_LEDGER_CONFIRMATIONS"
	RELAY_ERR_INVALID_MERKLE_PROOF ErrorCode = "RELAY_ERR_INVALID_MERKLE_PROOF"
	RELAY_ERR_TX_FORMAT            ErrorCode = "RELAY_ERR_TX_FORMAT"
	RELAY_ERR_INVALID_OPRETURN     ErrorCode = "RELAY_ERR_INVALID_OPRETURN"
	RELAY_ERR_INVALID_PAYMENTS     ErrorCode = "RELAY_ERR_INVALID_PAYMENTS"
	RELAY_ERR_WRONG_RECIPIENT      ErrorCode = "RELAY_ERR_WRONG_RECIPIENT"
	RELAY_ERR_INSUFFICIENT_VALUE   ErrorCode = "RELAY_ERR_INSUFFICIENT_VALUE"

	RELAY_ERR_STORAGE ErrorCode = "RELAY_ERR_STORAGE"
)

// Class maps relay codes onto the shared error classes.
func (c ErrorCode) Class() consensus.ErrorClass {
	switch c {
	case RELAY_ERR_HEADER_FORMAT, RELAY_ERR_TX_FORMAT, RELAY_ERR_STORAGE:
		return consensus.ClassFormat
	case RELAY_ERR_DUPLICATE_BLOCK, RELAY_ERR_PREV_BLOCK, RELAY_ERR_BLOCK_VERSION,
		RELAY_ERR_LOW_DIFF, RELAY_ERR_DIFF_TARGET_HEADER, RELAY_ERR_TIME_TOO_OLD,
		RELAY_ERR_ALREADY_INITIALIZED, RELAY_ERR_NOT_INITIALIZED, RELAY_ERR_INVALID_START_HEIGHT:
		return consensus.ClassConsensus
	case RELAY_ERR_INVALID_MERKLE_PROOF:
		return consensus.ClassProof
	default:
		return consensus.ClassPolicy
	}
}

// Error is returned by every fallible relay operation. Err, when set, is the
// underlying consensus or storage failure.
type Error struct {
	Code ErrorCode
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := string(e.Code)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

func rerr(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}

func rerrf(code ErrorCode, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func wrapErr(code ErrorCode, err error, msg string) error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

func IsCode(err error, code ErrorCode) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}
