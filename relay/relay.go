package relay

import (
	"io"
	"log/slog"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"github.com/interlay/interbtc-sub005/consensus"
	"github.com/interlay/interbtc-sub005/relay/store"
)

// LedgerClock reports the height of the embedding ledger. It stamps stored
// headers and drives the ledger-side confirmation check.
type LedgerClock interface {
	LedgerHeight() uint64
}

// FixedClock is a LedgerClock that always reports the same height.
type FixedClock uint64

func (c FixedClock) LedgerHeight() uint64 { return uint64(c) }

type Options struct {
	// Journal, when set, receives every accepted mutation before it is
	// committed in memory.
	Journal store.Journal
	// Clock may be nil, in which case the ledger height is always 0.
	Clock  LedgerClock
	Logger *slog.Logger
}

// Relay verifies Bitcoin headers and payments. It is not safe for
// concurrent use; the host serializes calls.
type Relay struct {
	cfg     Config
	params  *chaincfg.Params
	chain   *HeaderChain
	journal store.Journal
	clock   LedgerClock
	logger  *slog.Logger

	replaying bool
}

// New returns an empty relay. The journal, if any, is not read; use Open to
// restore state from it.
func New(cfg Config, opts Options) (*Relay, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid relay config")
	}
	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	powLimit, err := cfg.PowLimit()
	if err != nil {
		return nil, err
	}
	chain, err := newHeaderChain(cfg, powLimit)
	if err != nil {
		return nil, errors.Wrap(err, "pow limit")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Relay{
		cfg:     cfg,
		params:  params,
		chain:   chain,
		journal: opts.Journal,
		clock:   opts.Clock,
		logger:  logger,
	}, nil
}

// Open builds a relay and replays opts.Journal through the same validation
// used for live submissions.
func Open(cfg Config, opts Options) (*Relay, error) {
	r, err := New(cfg, opts)
	if err != nil {
		return nil, err
	}
	if r.journal == nil {
		return r, nil
	}
	r.replaying = true
	var n uint64
	err = r.journal.Replay(func(seq uint64, rec store.Record) error {
		if err := r.apply(rec); err != nil {
			return errors.Wrapf(err, "replay record %d (%s)", seq, rec.Kind)
		}
		n++
		return nil
	})
	r.replaying = false
	if err != nil {
		return nil, err
	}
	r.logger.Info("replayed journal", "records", n, "height", r.chain.BestHeight())
	return r, nil
}

func (r *Relay) Config() Config { return r.cfg }

func (r *Relay) Params() *chaincfg.Params { return r.params }

// View exposes the header index read-only.
func (r *Relay) View() ChainView { return r.chain }

func (r *Relay) ledgerHeight() uint64 {
	if r.clock == nil {
		return 0
	}
	return r.clock.LedgerHeight()
}

// Initialize seeds the relay with a trusted header at height.
func (r *Relay) Initialize(raw consensus.RawHeader, height uint32) error {
	return r.apply(store.Record{
		Kind:         store.RecordInitialize,
		Header:       raw,
		Height:       height,
		LedgerHeight: r.ledgerHeight(),
	})
}

// StoreBlockHeader validates raw against its parent and indexes it.
func (r *Relay) StoreBlockHeader(raw consensus.RawHeader) error {
	return r.apply(store.Record{
		Kind:         store.RecordHeader,
		Header:       raw,
		LedgerHeight: r.ledgerHeight(),
	})
}

// StoreBlockHeaders stores headers in order and stops at the first failure.
// It returns how many were stored; those stay stored.
func (r *Relay) StoreBlockHeaders(raws []consensus.RawHeader) (int, error) {
	for i, raw := range raws {
		if err := r.StoreBlockHeader(raw); err != nil {
			return i, err
		}
	}
	return len(raws), nil
}

// MarkNoData flags the main-chain header at height as lacking block data.
func (r *Relay) MarkNoData(height uint32) error {
	return r.apply(store.Record{Kind: store.RecordMarkNoData, Height: height, LedgerHeight: r.ledgerHeight()})
}

// MarkInvalid flags the main-chain header at height as invalid.
func (r *Relay) MarkInvalid(height uint32) error {
	return r.apply(store.Record{Kind: store.RecordMarkInvalid, Height: height, LedgerHeight: r.ledgerHeight()})
}

func (r *Relay) BestHeight() uint32 { return r.chain.BestHeight() }

func (r *Relay) BestHeader() (RichHeader, bool) { return r.chain.BestHeader() }

func (r *Relay) ChainIDAt(height uint32) (ChainID, bool) { return r.chain.ChainIDAt(height) }

// apply stages rec, journals it unless replaying, then commits it.
func (r *Relay) apply(rec store.Record) error {
	switch rec.Kind {
	case store.RecordInitialize, store.RecordHeader:
		h, err := consensus.ParseBlockHeader(rec.Header)
		if err != nil {
			return wrapErr(RELAY_ERR_HEADER_FORMAT, err, "parse header")
		}
		var s *stagedHeader
		if rec.Kind == store.RecordInitialize {
			s, err = r.chain.stageInitialize(h, rec.Height, rec.LedgerHeight)
		} else {
			s, err = r.chain.stageHeader(h, rec.LedgerHeight)
		}
		if err != nil {
			return err
		}
		if err := r.persist(rec); err != nil {
			return err
		}
		r.commitHeader(s)
		return nil

	case store.RecordMarkNoData, store.RecordMarkInvalid:
		kind := markNoData
		if rec.Kind == store.RecordMarkInvalid {
			kind = markInvalid
		}
		m, err := r.chain.stageMark(kind, rec.Height)
		if err != nil {
			return err
		}
		if err := r.persist(rec); err != nil {
			return err
		}
		r.chain.commitMark(m)
		if kind == markInvalid {
			r.logger.Warn("marked invalid", "height", m.height, "chain_id", m.chain)
		} else {
			r.logger.Warn("marked no-data", "height", m.height, "chain_id", m.chain)
		}
		return nil

	default:
		return rerrf(RELAY_ERR_STORAGE, "unknown record kind %d", rec.Kind)
	}
}

func (r *Relay) persist(rec store.Record) error {
	if r.journal == nil || r.replaying {
		return nil
	}
	if err := r.journal.Append(rec); err != nil {
		return wrapErr(RELAY_ERR_STORAGE, err, "journal append")
	}
	return nil
}

func (r *Relay) commitHeader(s *stagedHeader) {
	wasInitialized := r.chain.IsInitialized()
	reorgFrom := r.chain.commitHeader(s)
	h := s.rich
	if wasInitialized && r.replaying {
		return
	}

	switch {
	case !wasInitialized:
		r.logger.Info("initialized", "height", h.Height, "hash", h.Hash)
	case reorgFrom != nil:
		r.logger.Info("chain reorg",
			"old_tip", *reorgFrom,
			"new_tip", h.Hash,
			"height", h.Height,
			"chain_id", h.ChainRef,
			"fork_height", r.forkHeight(*reorgFrom))
	case r.chain.IsMainChain(h.Hash):
		r.logger.Debug("stored main chain header", "height", h.Height, "hash", h.Hash, "chain_id", h.ChainRef)
	default:
		r.logger.Debug("stored fork header", "height", h.Height, "hash", h.Hash, "chain_id", h.ChainRef)
	}
}

// forkHeight is the height of the last header the old tip shares with the
// main chain.
func (r *Relay) forkHeight(oldTip chainhash.Hash) uint32 {
	cur, ok := r.chain.headers[oldTip]
	for ok && !r.chain.IsMainChain(cur.Hash) {
		cur, ok = r.chain.headers[cur.Header.PrevBlock]
	}
	if !ok {
		return r.chain.StartHeight()
	}
	return cur.Height
}
