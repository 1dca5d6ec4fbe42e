package store

import (
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var bucketJournal = []byte("relay_journal")

// boltJournal keeps records in one bucket keyed by the big-endian bucket
// sequence, so cursor order is append order.
type boltJournal struct {
	db *bolt.DB
}

func openBolt(path string) (*boltJournal, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open bbolt")
	}
	if err := bdb.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketJournal); err != nil {
			return errors.Wrapf(err, "create bucket %s", string(bucketJournal))
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return &boltJournal{db: bdb}, nil
}

func (j *boltJournal) Append(rec Record) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJournal)
		seq, err := b.NextSequence()
		if err != nil {
			return errors.Wrap(err, "journal sequence")
		}
		return errors.Wrap(b.Put(seqKey(seq), rec.Encode()), "journal put")
	})
}

func (j *boltJournal) Replay(fn func(seq uint64, rec Record) error) error {
	return j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketJournal).Cursor()
		var n uint64
		for k, v := c.First(); k != nil; k, v = c.Next() {
			rec, err := DecodeRecord(v)
			if err != nil {
				return errors.Wrapf(err, "record %x", k)
			}
			if err := fn(n, rec); err != nil {
				return err
			}
			n++
		}
		return nil
	})
}

func (j *boltJournal) Len() (uint64, error) {
	var n int
	err := j.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketJournal).Stats().KeyN
		return nil
	})
	return uint64(n), err
}

func (j *boltJournal) Close() error {
	return j.db.Close()
}
