package store

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

// Journal is an append-only log of accepted relay mutations. Replay visits
// records in append order.
type Journal interface {
	Append(rec Record) error
	Replay(fn func(seq uint64, rec Record) error) error
	Len() (uint64, error)
	Close() error
}

type Backend string

const (
	BackendBolt    Backend = "bolt"
	BackendLevelDB Backend = "leveldb"
)

func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackendBolt, "bbolt":
		return BackendBolt, nil
	case BackendLevelDB, "level":
		return BackendLevelDB, nil
	default:
		return "", errors.Errorf("unknown db type %q", s)
	}
}

// DB is a relay data directory: a manifest plus a journal in one of the
// supported backends.
type DB struct {
	dir      string
	journal  Journal
	manifest *Manifest
}

var _ Journal = (*DB)(nil)

// Open opens or creates datadir/<network>/. An existing directory must have
// been created for the same network and backend.
func Open(datadir string, network string, backend Backend) (*DB, error) {
	if datadir == "" {
		return nil, errors.New("datadir required")
	}
	if network == "" {
		return nil, errors.New("network required")
	}
	dir := NetworkDir(datadir, network)
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	m, err := readManifest(dir)
	switch {
	case err == nil:
		if m.SchemaVersion > SchemaVersionV1 {
			return nil, errors.Errorf("manifest schema_version %d > supported %d", m.SchemaVersion, SchemaVersionV1)
		}
		if m.Network != network {
			return nil, errors.Errorf("datadir holds network %q, not %q", m.Network, network)
		}
		if m.Backend != backend {
			return nil, errors.Errorf("datadir uses backend %q, not %q", m.Backend, backend)
		}
	case os.IsNotExist(err):
		m = &Manifest{SchemaVersion: SchemaVersionV1, Network: network, Backend: backend}
		if err := writeManifestAtomic(dir, m); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrap(err, "read manifest")
	}

	var j Journal
	switch backend {
	case BackendBolt:
		j, err = openBolt(filepath.Join(dir, "journal.db"))
	case BackendLevelDB:
		j, err = openLevel(filepath.Join(dir, "journal"))
	default:
		return nil, errors.Errorf("unknown backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	return &DB{dir: dir, journal: j, manifest: m}, nil
}

func (d *DB) Dir() string { return d.dir }

func (d *DB) Manifest() Manifest {
	return *d.manifest
}

func (d *DB) Append(rec Record) error {
	return d.journal.Append(rec)
}

func (d *DB) Replay(fn func(seq uint64, rec Record) error) error {
	return d.journal.Replay(fn)
}

func (d *DB) Len() (uint64, error) {
	return d.journal.Len()
}

// SetTip records the current best header in the manifest.
func (d *DB) SetTip(hash chainhash.Hash, height uint32, work *big.Int) error {
	n, err := d.journal.Len()
	if err != nil {
		return err
	}
	m := *d.manifest
	m.TipHashHex = hash.String()
	m.TipHeight = height
	m.TipCumulativeWorkDec = work.String()
	m.Records = n
	if err := writeManifestAtomic(d.dir, &m); err != nil {
		return err
	}
	d.manifest = &m
	return nil
}

func (d *DB) Close() error {
	if d == nil || d.journal == nil {
		return nil
	}
	return d.journal.Close()
}
