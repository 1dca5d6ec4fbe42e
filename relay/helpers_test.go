package relay

import (
	"encoding/binary"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/interlay/interbtc-sub005/consensus"
)

const (
	regtestBits    uint32 = 0x207fffff
	regtestVersion int32  = 0x20000000
	// regtestGenesisTime is the regression network genesis timestamp.
	regtestGenesisTime uint32 = 1296688602
)

func regtestConfig() Config {
	cfg := DefaultConfig()
	cfg.Network = "regtest"
	return cfg
}

// ledgerClock is a settable LedgerClock.
type ledgerClock struct{ height uint64 }

func (c *ledgerClock) LedgerHeight() uint64 { return c.height }

// mine searches nonces until h meets its own target.
func mine(t *testing.T, h consensus.BlockHeader) consensus.RawHeader {
	t.Helper()
	target, err := consensus.ExtractTarget(h.Bits)
	require.NoError(t, err)
	for nonce := uint32(0); nonce < 1<<20; nonce++ {
		h.Nonce = nonce
		raw := h.Raw()
		if consensus.HashToBig(raw.Hash()).Cmp(target) <= 0 {
			return raw
		}
	}
	t.Fatalf("no nonce found for bits %08x", h.Bits)
	return consensus.RawHeader{}
}

// mineFailing returns a header whose hash is above its target.
func mineFailing(t *testing.T, h consensus.BlockHeader) consensus.RawHeader {
	t.Helper()
	target, err := consensus.ExtractTarget(h.Bits)
	require.NoError(t, err)
	for nonce := uint32(0); nonce < 1<<20; nonce++ {
		h.Nonce = nonce
		raw := h.Raw()
		if consensus.HashToBig(raw.Hash()).Cmp(target) > 0 {
			return raw
		}
	}
	t.Fatalf("every nonce meets bits %08x", h.Bits)
	return consensus.RawHeader{}
}

func genesisHeader(t *testing.T) consensus.RawHeader {
	t.Helper()
	return genesisHeaderBits(t, regtestBits)
}

func genesisHeaderBits(t *testing.T, bits uint32) consensus.RawHeader {
	t.Helper()
	return mine(t, consensus.BlockHeader{
		Version:   regtestVersion,
		Timestamp: regtestGenesisTime,
		Bits:      bits,
	})
}

// chainBuilder mines headers on top of whatever a relay has stored.
type chainBuilder struct {
	t *testing.T
	r *Relay
	// salt keeps sibling headers distinct.
	salt uint32
}

func newRegtestRelay(t *testing.T, cfg Config, opts Options) (*Relay, *chainBuilder) {
	t.Helper()
	return newRegtestRelayBits(t, cfg, opts, regtestBits)
}

// newRegtestRelayBits starts the relay at a genesis carrying bits.
func newRegtestRelayBits(t *testing.T, cfg Config, opts Options, bits uint32) (*Relay, *chainBuilder) {
	t.Helper()
	r, err := New(cfg, opts)
	require.NoError(t, err)
	require.NoError(t, r.Initialize(genesisHeaderBits(t, bits), 0))
	return r, &chainBuilder{t: t, r: r}
}

func (b *chainBuilder) rich(hash chainhash.Hash) RichHeader {
	b.t.Helper()
	h, ok := b.r.View().HeaderByHash(hash)
	require.True(b.t, ok, "header %s not stored", hash)
	return h
}

// nextBits returns the bits a child of parent must carry.
func (b *chainBuilder) nextBits(parent RichHeader) uint32 {
	b.t.Helper()
	height := parent.Height + 1
	if !consensus.IsRetargetHeight(height) {
		return parent.Header.Bits
	}
	first := parent
	for first.Height > height-consensus.RetargetInterval {
		first = b.rich(first.Header.PrevBlock)
	}
	bits, err := consensus.CalculateNextWorkRequired(first.Header.Target, first.Header.Timestamp, parent.Header.Timestamp, consensus.RegressionPowLimit)
	require.NoError(b.t, err)
	return bits
}

// child mines an unsubmitted child of parent.
func (b *chainBuilder) child(parent chainhash.Hash, merkleRoot chainhash.Hash) consensus.RawHeader {
	b.t.Helper()
	p := b.rich(parent)
	if merkleRoot == (chainhash.Hash{}) {
		b.salt++
		binary.LittleEndian.PutUint32(merkleRoot[0:4], b.salt)
		binary.LittleEndian.PutUint32(merkleRoot[4:8], p.Height)
	}
	return mine(b.t, consensus.BlockHeader{
		Version:    regtestVersion,
		PrevBlock:  parent,
		MerkleRoot: merkleRoot,
		Timestamp:  p.Header.Timestamp + consensus.TargetSpacing,
		Bits:       b.nextBits(p),
	})
}

// extend stores n headers on top of parent and returns their hashes.
func (b *chainBuilder) extend(parent chainhash.Hash, n int) []chainhash.Hash {
	b.t.Helper()
	out := make([]chainhash.Hash, 0, n)
	for i := 0; i < n; i++ {
		raw := b.child(parent, chainhash.Hash{})
		require.NoError(b.t, b.r.StoreBlockHeader(raw), "header %d of %d", i+1, n)
		parent = raw.Hash()
		out = append(out, parent)
	}
	return out
}

func (b *chainBuilder) tip() chainhash.Hash {
	b.t.Helper()
	h, ok := b.r.BestHeader()
	require.True(b.t, ok)
	return h.Hash
}

func requireCode(t *testing.T, err error, want ErrorCode) {
	t.Helper()
	require.Error(t, err)
	got, ok := CodeOf(err)
	require.True(t, ok, "error without relay code: %v", err)
	require.Equal(t, want, got, "err=%v", err)
}

func dumpChains(r *Relay) string {
	return spew.Sdump(r.View().Chains())
}
