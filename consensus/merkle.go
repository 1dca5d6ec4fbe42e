package consensus

import "github.com/btcsuite/btcd/chaincfg/chainhash"

const (
	maxBlockWeight       = 4_000_000
	minTransactionWeight = 4 * 60

	// MaxTransactionsInProof bounds the declared transaction count of a proof.
	MaxTransactionsInProof = maxBlockWeight / minTransactionWeight
)

// MerkleProof is the partial merkle tree returned by bitcoind's
// gettxoutproof:
//
//	80 bytes  block header
//	u32 LE    number of transactions in the block
//	varint    number of hashes, then the hashes (internal byte order)
//	varint    number of flag bytes, then the flag bytes (bits LSB first)
type MerkleProof struct {
	Header  BlockHeader
	TxCount uint32
	Hashes  []chainhash.Hash
	Flags   []bool
}

// ProofResult is what a successful traversal yields. When several leaves are
// matched the last one in tree order is reported.
type ProofResult struct {
	Root     chainhash.Hash
	TxHash   chainhash.Hash
	Position uint32
}

func ParseMerkleProof(b []byte) (*MerkleProof, error) {
	if len(b) < BlockHeaderSize {
		return nil, cerrf(PARSE_ERR_EOF, "proof is %d bytes, shorter than a header", len(b))
	}
	header, err := ParseBlockHeaderBytes(b[:BlockHeaderSize])
	if err != nil {
		return nil, err
	}
	p := &MerkleProof{Header: header}

	off := BlockHeaderSize
	if p.TxCount, err = readU32le(b, &off); err != nil {
		return nil, err
	}
	nHashes, err := readCount(b, &off, chainhash.HashSize, "proof hash")
	if err != nil {
		return nil, err
	}
	p.Hashes = make([]chainhash.Hash, 0, nHashes)
	for i := 0; i < nHashes; i++ {
		h, err := readHash(b, &off)
		if err != nil {
			return nil, err
		}
		p.Hashes = append(p.Hashes, h)
	}
	nFlagBytes, err := readCount(b, &off, 1, "flag byte")
	if err != nil {
		return nil, err
	}
	flagBytes, err := readBytes(b, &off, nFlagBytes)
	if err != nil {
		return nil, err
	}
	p.Flags = make([]bool, 0, 8*nFlagBytes)
	for _, fb := range flagBytes {
		for bit := 0; bit < 8; bit++ {
			p.Flags = append(p.Flags, fb&(1<<bit) != 0)
		}
	}
	if off != len(b) {
		return nil, cerrf(PARSE_ERR_TRAILING_BYTES, "%d trailing bytes after proof", len(b)-off)
	}
	return p, nil
}

// Bytes serializes p in the gettxoutproof layout. Flags are padded with
// zero bits to a whole byte.
func (p *MerkleProof) Bytes() []byte {
	raw := p.Header.Raw()
	out := make([]byte, 0, BlockHeaderSize+4+9+len(p.Hashes)*chainhash.HashSize+9+(len(p.Flags)+7)/8)
	out = append(out, raw[:]...)
	out = appendU32le(out, p.TxCount)
	out = append(out, CompactSize(len(p.Hashes)).Encode()...)
	for i := range p.Hashes {
		out = append(out, p.Hashes[i][:]...)
	}
	flagBytes := make([]byte, (len(p.Flags)+7)/8)
	for i, f := range p.Flags {
		if f {
			flagBytes[i/8] |= 1 << (i % 8)
		}
	}
	return appendVarBytes(out, flagBytes)
}

// treeWidth is the number of nodes at the given height of a tree over n leaves.
func treeWidth(n uint32, height uint32) uint32 {
	return uint32((uint64(n) + (1 << height) - 1) >> height)
}

func treeHeight(n uint32) uint32 {
	var h uint32
	for treeWidth(n, h) > 1 {
		h++
	}
	return h
}

type proofTraversal struct {
	bitsUsed   int
	hashesUsed int
	matched    bool
	position   uint32
	txHash     chainhash.Hash
}

// Extract walks the partial tree depth-first and returns the computed root
// together with the matched leaf.
func (p *MerkleProof) Extract() (ProofResult, error) {
	if p.TxCount == 0 {
		return ProofResult{}, cerr(MERKLE_ERR_MALFORMED, "zero transactions")
	}
	if p.TxCount > MaxTransactionsInProof {
		return ProofResult{}, cerrf(MERKLE_ERR_MALFORMED, "%d transactions exceeds %d", p.TxCount, MaxTransactionsInProof)
	}
	if uint64(len(p.Hashes)) > uint64(p.TxCount) {
		return ProofResult{}, cerrf(MERKLE_ERR_MALFORMED, "%d hashes for %d transactions", len(p.Hashes), p.TxCount)
	}
	if len(p.Flags) < len(p.Hashes) {
		return ProofResult{}, cerrf(MERKLE_ERR_MALFORMED, "%d flag bits for %d hashes", len(p.Flags), len(p.Hashes))
	}

	var t proofTraversal
	root, err := p.traverse(treeHeight(p.TxCount), 0, &t)
	if err != nil {
		return ProofResult{}, err
	}
	if !t.matched {
		return ProofResult{}, cerr(MERKLE_ERR_INVALID, "proof matches no transaction")
	}
	if t.hashesUsed != len(p.Hashes) {
		return ProofResult{}, cerrf(MERKLE_ERR_MALFORMED, "%d of %d hashes used", t.hashesUsed, len(p.Hashes))
	}
	if (t.bitsUsed+7)/8 != (len(p.Flags)+7)/8 {
		return ProofResult{}, cerrf(MERKLE_ERR_MALFORMED, "%d of %d flag bits used", t.bitsUsed, len(p.Flags))
	}
	return ProofResult{Root: root, TxHash: t.txHash, Position: t.position}, nil
}

func (p *MerkleProof) traverse(height, pos uint32, t *proofTraversal) (chainhash.Hash, error) {
	if t.bitsUsed >= len(p.Flags) {
		return chainhash.Hash{}, cerr(MERKLE_ERR_MALFORMED, "ran out of flag bits")
	}
	parentOfMatch := p.Flags[t.bitsUsed]
	t.bitsUsed++

	if height == 0 || !parentOfMatch {
		if t.hashesUsed >= len(p.Hashes) {
			return chainhash.Hash{}, cerr(MERKLE_ERR_MALFORMED, "ran out of hashes")
		}
		h := p.Hashes[t.hashesUsed]
		t.hashesUsed++
		if height == 0 && parentOfMatch {
			t.matched = true
			t.position = pos
			t.txHash = h
		}
		return h, nil
	}

	left, err := p.traverse(height-1, pos*2, t)
	if err != nil {
		return chainhash.Hash{}, err
	}
	right := left
	if pos*2+1 < treeWidth(p.TxCount, height-1) {
		if right, err = p.traverse(height-1, pos*2+1, t); err != nil {
			return chainhash.Hash{}, err
		}
		// Identical siblings allow two different trees to share a root
		// (CVE-2012-2459).
		if right == left {
			return chainhash.Hash{}, cerr(MERKLE_ERR_MALFORMED, "duplicate sibling hashes")
		}
	}
	return merkleParent(left, right), nil
}

// VerifyMerkleProof checks that p proves inclusion of leaf under root.
func VerifyMerkleProof(p *MerkleProof, leaf, root chainhash.Hash) error {
	res, err := p.Extract()
	if err != nil {
		return err
	}
	if res.Root != root {
		return cerrf(MERKLE_ERR_INVALID, "computed root %s, want %s", res.Root, root)
	}
	if res.TxHash != leaf {
		return cerrf(MERKLE_ERR_INVALID, "proof matches %s, want %s", res.TxHash, leaf)
	}
	return nil
}

// BuildMerkleProof produces the partial merkle tree for the transactions of a
// block whose matches entry is set. len(matches) must equal len(txids).
func BuildMerkleProof(header BlockHeader, txids []chainhash.Hash, matches []bool) (*MerkleProof, error) {
	if len(txids) == 0 || len(txids) > MaxTransactionsInProof {
		return nil, cerrf(MERKLE_ERR_MALFORMED, "cannot build proof over %d transactions", len(txids))
	}
	if len(matches) != len(txids) {
		return nil, cerrf(MERKLE_ERR_MALFORMED, "%d match flags for %d transactions", len(matches), len(txids))
	}
	p := &MerkleProof{Header: header, TxCount: uint32(len(txids))}
	p.build(treeHeight(p.TxCount), 0, txids, matches)
	return p, nil
}

func (p *MerkleProof) build(height, pos uint32, txids []chainhash.Hash, matches []bool) {
	parentOfMatch := false
	for i := pos << height; i < (pos+1)<<height && i < p.TxCount; i++ {
		parentOfMatch = parentOfMatch || matches[i]
	}
	p.Flags = append(p.Flags, parentOfMatch)

	if height == 0 || !parentOfMatch {
		p.Hashes = append(p.Hashes, subtreeHash(height, pos, txids))
		return
	}
	p.build(height-1, pos*2, txids, matches)
	if pos*2+1 < treeWidth(p.TxCount, height-1) {
		p.build(height-1, pos*2+1, txids, matches)
	}
}

func subtreeHash(height, pos uint32, txids []chainhash.Hash) chainhash.Hash {
	if height == 0 {
		return txids[pos]
	}
	left := subtreeHash(height-1, pos*2, txids)
	right := left
	if pos*2+1 < treeWidth(uint32(len(txids)), height-1) {
		right = subtreeHash(height-1, pos*2+1, txids)
	}
	return merkleParent(left, right)
}

// MerkleRoot computes the block merkle root over txids, duplicating the last
// node of every odd-length level. An empty list has no root.
func MerkleRoot(txids []chainhash.Hash) (chainhash.Hash, error) {
	if len(txids) == 0 {
		return chainhash.Hash{}, cerr(MERKLE_ERR_MALFORMED, "empty transaction list")
	}
	level := append([]chainhash.Hash(nil), txids...)
	for len(level) > 1 {
		next := make([]chainhash.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i == len(level)-1 {
				next = append(next, merkleParent(level[i], level[i]))
				continue
			}
			next = append(next, merkleParent(level[i], level[i+1]))
		}
		level = next
	}
	return level[0], nil
}
