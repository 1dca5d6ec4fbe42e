package store

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/interlay/interbtc-sub005/consensus"
)

// RecordKind is the relay operation a journal record replays.
type RecordKind uint8

const (
	RecordInitialize RecordKind = iota + 1
	RecordHeader
	RecordMarkNoData
	RecordMarkInvalid
)

func (k RecordKind) String() string {
	switch k {
	case RecordInitialize:
		return "initialize"
	case RecordHeader:
		return "header"
	case RecordMarkNoData:
		return "mark_no_data"
	case RecordMarkInvalid:
		return "mark_invalid"
	default:
		return "unknown"
	}
}

func (k RecordKind) hasHeader() bool {
	return k == RecordInitialize || k == RecordHeader
}

// Record is one accepted relay mutation.
//
//	u8      kind
//	u32 BE  height (initialize and marks)
//	u64 BE  ledger height
//	80      raw header (initialize and header only)
type Record struct {
	Kind         RecordKind
	Header       consensus.RawHeader
	Height       uint32
	LedgerHeight uint64
}

const recordPrefixSize = 1 + 4 + 8

var ErrBadRecord = errors.New("malformed journal record")

func (r Record) Encode() []byte {
	n := recordPrefixSize
	if r.Kind.hasHeader() {
		n += consensus.BlockHeaderSize
	}
	out := make([]byte, n)
	out[0] = byte(r.Kind)
	binary.BigEndian.PutUint32(out[1:5], r.Height)
	binary.BigEndian.PutUint64(out[5:13], r.LedgerHeight)
	if r.Kind.hasHeader() {
		copy(out[recordPrefixSize:], r.Header[:])
	}
	return out
}

func DecodeRecord(b []byte) (Record, error) {
	if len(b) < recordPrefixSize {
		return Record{}, errors.Wrapf(ErrBadRecord, "%d bytes", len(b))
	}
	r := Record{
		Kind:         RecordKind(b[0]),
		Height:       binary.BigEndian.Uint32(b[1:5]),
		LedgerHeight: binary.BigEndian.Uint64(b[5:13]),
	}
	switch r.Kind {
	case RecordInitialize, RecordHeader:
		raw, err := consensus.NewRawHeader(b[recordPrefixSize:])
		if err != nil {
			return Record{}, errors.Wrap(ErrBadRecord, err.Error())
		}
		r.Header = raw
	case RecordMarkNoData, RecordMarkInvalid:
		if len(b) != recordPrefixSize {
			return Record{}, errors.Wrapf(ErrBadRecord, "%s record has %d trailing bytes", r.Kind, len(b)-recordPrefixSize)
		}
	default:
		return Record{}, errors.Wrapf(ErrBadRecord, "unknown kind %d", b[0])
	}
	return r, nil
}

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}
