package store

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var journalPrefix = []byte("j/")

// levelJournal keeps records under journalPrefix followed by the
// big-endian sequence number.
type levelJournal struct {
	db   *leveldb.DB
	next uint64
}

func openLevel(path string) (*levelJournal, error) {
	ldb, err := leveldb.OpenFile(path, &opt.Options{
		ErrorIfMissing: false,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open leveldb")
	}
	j := &levelJournal{db: ldb}

	it := ldb.NewIterator(util.BytesPrefix(journalPrefix), nil)
	if it.Last() {
		j.next = binary.BigEndian.Uint64(it.Key()[len(journalPrefix):]) + 1
	}
	it.Release()
	if err := it.Error(); err != nil {
		_ = ldb.Close()
		return nil, errors.Wrap(err, "scan leveldb journal")
	}
	return j, nil
}

func (j *levelJournal) key(seq uint64) []byte {
	return append(append([]byte{}, journalPrefix...), seqKey(seq)...)
}

func (j *levelJournal) Append(rec Record) error {
	if err := j.db.Put(j.key(j.next), rec.Encode(), &opt.WriteOptions{Sync: true}); err != nil {
		return errors.Wrap(err, "journal put")
	}
	j.next++
	return nil
}

func (j *levelJournal) Replay(fn func(seq uint64, rec Record) error) error {
	it := j.db.NewIterator(util.BytesPrefix(journalPrefix), nil)
	defer it.Release()
	var n uint64
	for it.Next() {
		rec, err := DecodeRecord(it.Value())
		if err != nil {
			return errors.Wrapf(err, "record %x", it.Key())
		}
		if err := fn(n, rec); err != nil {
			return err
		}
		n++
	}
	return errors.Wrap(it.Error(), "iterate leveldb journal")
}

func (j *levelJournal) Len() (uint64, error) {
	return j.next, nil
}

func (j *levelJournal) Close() error {
	return j.db.Close()
}
