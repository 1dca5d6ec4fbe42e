package relay

import (
	"math/big"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/interlay/interbtc-sub005/consensus"
)

// ChainID identifies a chain segment. The chain created at initialization is 0.
type ChainID uint32

// ChainState is derived from the administrative marks on a chain.
type ChainState uint8

const (
	ChainTrackedComplete ChainState = iota
	ChainTrackedNoData
	ChainFlaggedInvalid
)

func (s ChainState) String() string {
	switch s {
	case ChainTrackedComplete:
		return "complete"
	case ChainTrackedNoData:
		return "no_data"
	case ChainFlaggedInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// RichHeader is an accepted header with its position in the index.
type RichHeader struct {
	Hash         chainhash.Hash
	Header       consensus.BlockHeader
	Height       uint32
	ChainRef     ChainID
	LedgerHeight uint64
	// ChainWork is the cumulative work from the initial header up to and
	// including this one.
	ChainWork *big.Int
	// Seq is the submission order, starting at 0 for the initial header.
	Seq uint64
}

// Chain is a contiguous run of headers. A fork chain starts at the child of
// a header that belongs to another chain.
type Chain struct {
	ID          ChainID
	StartHeight uint32
	MaxHeight   uint32
	Tip         chainhash.Hash
	Work        *big.Int
	TipSeq      uint64
	NoData      []uint32
	Invalid     []uint32
}

func (c Chain) State() ChainState {
	switch {
	case len(c.Invalid) > 0:
		return ChainFlaggedInvalid
	case len(c.NoData) > 0:
		return ChainTrackedNoData
	default:
		return ChainTrackedComplete
	}
}

// ChainView is the read-only query surface of a HeaderChain.
type ChainView interface {
	IsInitialized() bool
	BestHeight() uint32
	BestHeader() (RichHeader, bool)
	ChainIDAt(height uint32) (ChainID, bool)
	HeaderByHash(hash chainhash.Hash) (RichHeader, bool)
	HeaderAt(height uint32) (RichHeader, bool)
	Chain(id ChainID) (Chain, bool)
	Chains() []Chain
	ChainsAtHeight(height uint32) []ChainID
	IsMainChain(hash chainhash.Hash) bool
	BlockLocator() []chainhash.Hash
}

type chainEntry struct {
	Chain
	// hashes[i] is the header at StartHeight+i.
	hashes []chainhash.Hash
}

// HeaderChain is the flat header index. All mutation goes through Relay,
// which stages a change, journals it and then commits it.
type HeaderChain struct {
	cfg       Config
	powLimit  *big.Int
	limitBits uint32

	initialized bool
	startHeight uint32

	headers  map[chainhash.Hash]*RichHeader
	chains   map[ChainID]*chainEntry
	byHeight map[uint32]map[ChainID]struct{}
	main     map[uint32]chainhash.Hash

	best        chainhash.Hash
	bestHeight  uint32
	nextChainID ChainID
	nextSeq     uint64
}

var _ ChainView = (*HeaderChain)(nil)

func newHeaderChain(cfg Config, powLimit *big.Int) (*HeaderChain, error) {
	limitBits, err := consensus.BigToCompact(powLimit)
	if err != nil {
		return nil, err
	}
	return &HeaderChain{
		cfg:       cfg,
		powLimit:  powLimit,
		limitBits: limitBits,
		headers:   make(map[chainhash.Hash]*RichHeader),
		chains:    make(map[ChainID]*chainEntry),
		byHeight:  make(map[uint32]map[ChainID]struct{}),
		main:      make(map[uint32]chainhash.Hash),
	}, nil
}

func (c *HeaderChain) IsInitialized() bool { return c.initialized }

func (c *HeaderChain) StartHeight() uint32 { return c.startHeight }

func (c *HeaderChain) BestHeight() uint32 { return c.bestHeight }

func (c *HeaderChain) BestHeader() (RichHeader, bool) {
	if !c.initialized {
		return RichHeader{}, false
	}
	return c.HeaderByHash(c.best)
}

// ChainIDAt returns the chain holding the main-chain header at height.
func (c *HeaderChain) ChainIDAt(height uint32) (ChainID, bool) {
	h, ok := c.HeaderAt(height)
	if !ok {
		return 0, false
	}
	return h.ChainRef, true
}

func (c *HeaderChain) HeaderByHash(hash chainhash.Hash) (RichHeader, bool) {
	h, ok := c.headers[hash]
	if !ok {
		return RichHeader{}, false
	}
	return copyRich(h), true
}

// HeaderAt returns the main-chain header at height.
func (c *HeaderChain) HeaderAt(height uint32) (RichHeader, bool) {
	hash, ok := c.main[height]
	if !ok {
		return RichHeader{}, false
	}
	return c.HeaderByHash(hash)
}

func (c *HeaderChain) Chain(id ChainID) (Chain, bool) {
	e, ok := c.chains[id]
	if !ok {
		return Chain{}, false
	}
	return copyChain(&e.Chain), true
}

// Chains returns every chain ordered by id.
func (c *HeaderChain) Chains() []Chain {
	out := make([]Chain, 0, len(c.chains))
	for _, e := range c.chains {
		out = append(out, copyChain(&e.Chain))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *HeaderChain) ChainsAtHeight(height uint32) []ChainID {
	set := c.byHeight[height]
	out := make([]ChainID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *HeaderChain) IsMainChain(hash chainhash.Hash) bool {
	h, ok := c.headers[hash]
	if !ok {
		return false
	}
	return c.main[h.Height] == hash
}

// BlockLocator lists main-chain hashes from the tip backwards, dense for the
// first ten and then doubling the step, always ending with the initial header.
func (c *HeaderChain) BlockLocator() []chainhash.Hash {
	if !c.initialized {
		return nil
	}
	var out []chainhash.Hash
	step := uint32(1)
	height := c.bestHeight
	for {
		out = append(out, c.main[height])
		if height == c.startHeight {
			return out
		}
		if len(out) >= 10 {
			step *= 2
		}
		if height-c.startHeight < step {
			height = c.startHeight
		} else {
			height -= step
		}
	}
}

// mainChainMarks returns the invalid (or no-data) marks on headers that are
// currently on the main chain, in ascending height order.
func (c *HeaderChain) mainChainMarks(invalid bool) []uint32 {
	var out []uint32
	for _, e := range c.chains {
		marks := e.NoData
		if invalid {
			marks = e.Invalid
		}
		for _, height := range marks {
			if c.main[height] == e.hashes[height-e.StartHeight] {
				out = append(out, height)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// bestForkHeight returns the highest tip among chains whose tip is off the
// main chain and that are not flagged invalid.
func (c *HeaderChain) bestForkHeight() (uint32, bool) {
	var (
		best  uint32
		found bool
	)
	for _, e := range c.chains {
		if c.main[e.MaxHeight] == e.Tip || e.State() == ChainFlaggedInvalid {
			continue
		}
		if !found || e.MaxHeight > best {
			best, found = e.MaxHeight, true
		}
	}
	return best, found
}

func (c *HeaderChain) ancestor(h *RichHeader, height uint32) (*RichHeader, bool) {
	cur := h
	for cur.Height > height {
		p, ok := c.headers[cur.Header.PrevBlock]
		if !ok {
			return nil, false
		}
		cur = p
	}
	return cur, cur.Height == height
}

// medianTimePast is taken over the parent and up to ten of its ancestors.
func (c *HeaderChain) medianTimePast(parent *RichHeader) uint32 {
	times := make([]uint32, 0, consensus.MedianTimeSpan)
	cur := parent
	for len(times) < consensus.MedianTimeSpan {
		times = append(times, cur.Header.Timestamp)
		p, ok := c.headers[cur.Header.PrevBlock]
		if !ok {
			break
		}
		cur = p
	}
	return consensus.MedianTimePast(times)
}

// nextWorkRequired returns the bits a child of parent must carry.
func (c *HeaderChain) nextWorkRequired(parent *RichHeader, h consensus.BlockHeader) (uint32, error) {
	height := parent.Height + 1
	if !consensus.IsRetargetHeight(height) {
		if !c.cfg.AllowMinDifficultyBlocks {
			return parent.Header.Bits, nil
		}
		if h.Timestamp > parent.Header.Timestamp+consensus.MinDifficultyGap {
			return c.limitBits, nil
		}
		cur := parent
		for !consensus.IsRetargetHeight(cur.Height) && cur.Header.Bits == c.limitBits {
			p, ok := c.headers[cur.Header.PrevBlock]
			if !ok {
				break
			}
			cur = p
		}
		return cur.Header.Bits, nil
	}

	first, ok := c.ancestor(parent, height-consensus.RetargetInterval)
	if !ok {
		return 0, rerrf(RELAY_ERR_DIFF_TARGET_HEADER, "interval start at height %d is not stored", height-consensus.RetargetInterval)
	}
	// The interval is scaled from the target it opened with, so a closing
	// min-difficulty header does not leak into the next interval.
	bits, err := consensus.CalculateNextWorkRequired(first.Header.Target, first.Header.Timestamp, parent.Header.Timestamp, c.powLimit)
	if err != nil {
		return 0, wrapErr(RELAY_ERR_DIFF_TARGET_HEADER, err, "retarget")
	}
	return bits, nil
}

func (c *HeaderChain) verifyDifficulty(parent *RichHeader, h consensus.BlockHeader) error {
	if err := consensus.CheckTargetRange(h.Target, c.powLimit); err != nil {
		return wrapErr(RELAY_ERR_DIFF_TARGET_HEADER, err, "target out of range")
	}
	if err := consensus.VerifyProofOfWork(h); err != nil {
		return wrapErr(RELAY_ERR_LOW_DIFF, err, "proof of work")
	}
	want, err := c.nextWorkRequired(parent, h)
	if err != nil {
		return err
	}
	if h.Bits != want {
		return rerrf(RELAY_ERR_DIFF_TARGET_HEADER, "bits %08x at height %d, want %08x", h.Bits, parent.Height+1, want)
	}
	if mtp := c.medianTimePast(parent); h.Timestamp <= mtp {
		return rerrf(RELAY_ERR_TIME_TOO_OLD, "timestamp %d not after median time past %d", h.Timestamp, mtp)
	}
	return nil
}

// stagedHeader is a validated header that has not been committed yet.
type stagedHeader struct {
	rich     RichHeader
	newChain bool
}

func (c *HeaderChain) stageInitialize(h consensus.BlockHeader, height uint32, ledgerHeight uint64) (*stagedHeader, error) {
	if c.initialized {
		return nil, rerr(RELAY_ERR_ALREADY_INITIALIZED, "relay is already initialized")
	}
	if !c.cfg.DisableDifficultyCheck && !consensus.IsRetargetHeight(height) {
		return nil, rerrf(RELAY_ERR_INVALID_START_HEIGHT, "height %d is not a retarget height", height)
	}
	return &stagedHeader{
		rich: RichHeader{
			Hash:         h.Hash,
			Header:       h,
			Height:       height,
			ChainRef:     0,
			LedgerHeight: ledgerHeight,
			ChainWork:    consensus.WorkFromTarget(h.Target),
			Seq:          0,
		},
		newChain: true,
	}, nil
}

func (c *HeaderChain) stageHeader(h consensus.BlockHeader, ledgerHeight uint64) (*stagedHeader, error) {
	if !c.initialized {
		return nil, rerr(RELAY_ERR_NOT_INITIALIZED, "relay is not initialized")
	}
	if _, ok := c.headers[h.Hash]; ok {
		return nil, rerrf(RELAY_ERR_DUPLICATE_BLOCK, "header %s already stored", h.Hash)
	}
	parent, ok := c.headers[h.PrevBlock]
	if !ok {
		return nil, rerrf(RELAY_ERR_PREV_BLOCK, "previous block %s not found", h.PrevBlock)
	}
	if parent.Height == ^uint32(0) {
		return nil, rerr(RELAY_ERR_PREV_BLOCK, "height overflow")
	}
	if h.Version < c.cfg.MinHeaderVersion {
		return nil, rerrf(RELAY_ERR_BLOCK_VERSION, "version %d below %d", h.Version, c.cfg.MinHeaderVersion)
	}
	if !c.cfg.DisableDifficultyCheck {
		if err := c.verifyDifficulty(parent, h); err != nil {
			return nil, err
		}
	}

	s := &stagedHeader{
		rich: RichHeader{
			Hash:         h.Hash,
			Header:       h,
			Height:       parent.Height + 1,
			LedgerHeight: ledgerHeight,
			ChainWork:    new(big.Int).Add(parent.ChainWork, consensus.WorkFromTarget(h.Target)),
			Seq:          c.nextSeq,
		},
	}
	if pc := c.chains[parent.ChainRef]; pc.Tip == parent.Hash {
		s.rich.ChainRef = pc.ID
	} else {
		s.rich.ChainRef = c.nextChainID
		s.newChain = true
	}
	return s, nil
}

// commitHeader applies a staged header. It returns the previous best hash
// when the header moved the main designation off the old tip.
func (c *HeaderChain) commitHeader(s *stagedHeader) (reorgFrom *chainhash.Hash) {
	rich := s.rich
	rich.ChainWork = new(big.Int).Set(s.rich.ChainWork)
	c.headers[rich.Hash] = &rich

	if s.newChain {
		c.chains[rich.ChainRef] = &chainEntry{
			Chain: Chain{
				ID:          rich.ChainRef,
				StartHeight: rich.Height,
			},
		}
		c.nextChainID = rich.ChainRef + 1
	}
	e := c.chains[rich.ChainRef]
	e.hashes = append(e.hashes, rich.Hash)
	e.MaxHeight = rich.Height
	e.Tip = rich.Hash
	e.Work = rich.ChainWork
	e.TipSeq = rich.Seq

	ids, ok := c.byHeight[rich.Height]
	if !ok {
		ids = make(map[ChainID]struct{})
		c.byHeight[rich.Height] = ids
	}
	ids[rich.ChainRef] = struct{}{}
	c.nextSeq = rich.Seq + 1

	if !c.initialized {
		c.initialized = true
		c.startHeight = rich.Height
		c.best = rich.Hash
		c.bestHeight = rich.Height
		c.main[rich.Height] = rich.Hash
		return nil
	}

	old := c.headers[c.best]
	if rich.ChainWork.Cmp(old.ChainWork) <= 0 {
		return nil
	}
	prev := c.best
	c.setBest(&rich)
	if rich.Header.PrevBlock == prev {
		return nil
	}
	return &prev
}

// setBest points the main chain at tip, rewriting heights back to the
// common ancestor and dropping heights above the new tip.
func (c *HeaderChain) setBest(tip *RichHeader) {
	for height := tip.Height + 1; height <= c.bestHeight; height++ {
		delete(c.main, height)
	}
	cur := tip
	for c.main[cur.Height] != cur.Hash {
		c.main[cur.Height] = cur.Hash
		p, ok := c.headers[cur.Header.PrevBlock]
		if !ok {
			break
		}
		cur = p
	}
	c.best = tip.Hash
	c.bestHeight = tip.Height
}

type markKind uint8

const (
	markNoData markKind = iota + 1
	markInvalid
)

type stagedMark struct {
	kind   markKind
	height uint32
	chain  ChainID
}

func (c *HeaderChain) stageMark(kind markKind, height uint32) (*stagedMark, error) {
	if !c.initialized {
		return nil, rerr(RELAY_ERR_NOT_INITIALIZED, "relay is not initialized")
	}
	h, ok := c.HeaderAt(height)
	if !ok {
		return nil, rerrf(RELAY_ERR_HEIGHT_NOT_FOUND, "no main chain header at height %d", height)
	}
	return &stagedMark{kind: kind, height: height, chain: h.ChainRef}, nil
}

func (c *HeaderChain) commitMark(m *stagedMark) {
	e := c.chains[m.chain]
	if m.kind == markInvalid {
		e.Invalid = insertHeight(e.Invalid, m.height)
	} else {
		e.NoData = insertHeight(e.NoData, m.height)
	}
}

// insertHeight adds height to a sorted set.
func insertHeight(set []uint32, height uint32) []uint32 {
	i := sort.Search(len(set), func(i int) bool { return set[i] >= height })
	if i < len(set) && set[i] == height {
		return set
	}
	set = append(set, 0)
	copy(set[i+1:], set[i:])
	set[i] = height
	return set
}

func copyRich(h *RichHeader) RichHeader {
	out := *h
	out.ChainWork = new(big.Int).Set(h.ChainWork)
	out.Header.Target = new(big.Int).Set(h.Header.Target)
	return out
}

func copyChain(c *Chain) Chain {
	out := *c
	out.Work = new(big.Int).Set(c.Work)
	out.NoData = append([]uint32(nil), c.NoData...)
	out.Invalid = append([]uint32(nil), c.Invalid...)
	return out
}
