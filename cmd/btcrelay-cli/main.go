package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/interlay/interbtc-sub005/consensus"
	"github.com/interlay/interbtc-sub005/relay"
)

// Hashes travel in RPC display order (byte-reversed); raw structures travel
// as plain hex.
type Request struct {
	Op        string `json:"op"`
	TxHex     string `json:"tx_hex,omitempty"`
	HeaderHex string `json:"header_hex,omitempty"`
	ScriptHex string `json:"script_hex,omitempty"`
	ProofHex  string `json:"proof_hex,omitempty"`

	Txid       string   `json:"txid,omitempty"`
	Txids      []string `json:"txids,omitempty"`
	MatchIndex int      `json:"match_index,omitempty"`

	Bits           uint32 `json:"bits,omitempty"`
	PowLimitBits   uint32 `json:"pow_limit_bits,omitempty"`
	TimestampFirst uint32 `json:"timestamp_first,omitempty"`
	TimestampLast  uint32 `json:"timestamp_last,omitempty"`
	Network        string `json:"network,omitempty"`

	MaxSize int     `json:"max_size,omitempty"`
	Value   *uint64 `json:"value,omitempty"`
	Hex     string  `json:"hex,omitempty"`

	Dump bool `json:"dump,omitempty"`
}

type Response struct {
	Ok  bool   `json:"ok"`
	Err string `json:"err,omitempty"`

	TxidHex        string  `json:"txid,omitempty"`
	WtxidHex       string  `json:"wtxid,omitempty"`
	Inputs         int     `json:"inputs,omitempty"`
	Outputs        int     `json:"outputs,omitempty"`
	Coinbase       bool    `json:"coinbase,omitempty"`
	CoinbaseHeight *uint32 `json:"coinbase_height,omitempty"`
	LockTimeKind   string  `json:"lock_time_kind,omitempty"`

	BlockHash  string  `json:"block_hash,omitempty"`
	PrevBlock  string  `json:"prev_block,omitempty"`
	MerkleRoot string  `json:"merkle_root,omitempty"`
	Version    int32   `json:"version,omitempty"`
	Timestamp  uint32  `json:"timestamp,omitempty"`
	Bits       uint32  `json:"bits,omitempty"`
	Nonce      uint32  `json:"nonce,omitempty"`
	Target     string  `json:"target,omitempty"`
	Work       string  `json:"work,omitempty"`
	TxCount    uint32  `json:"tx_count,omitempty"`
	Position   *uint32 `json:"position,omitempty"`
	ProofHex   string  `json:"proof_hex,omitempty"`

	Class    string  `json:"class,omitempty"`
	Address  string  `json:"address,omitempty"`
	DataHex  *string `json:"data,omitempty"`
	Value    *uint64 `json:"value,omitempty"`
	Hex      string  `json:"hex,omitempty"`
	Consumed int     `json:"consumed,omitempty"`

	Dump string `json:"dump,omitempty"`
}

func main() {
	run(os.Stdin, os.Stdout)
}

func run(in io.Reader, out io.Writer) {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		writeResp(out, Response{Ok: false, Err: fmt.Sprintf("bad request: %v", err)})
		return
	}
	writeResp(out, handle(req))
}

func writeResp(w io.Writer, resp Response) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}

// errResp reports consensus failures by code and everything else by message.
func errResp(err error) Response {
	if code, ok := consensus.CodeOf(err); ok {
		return Response{Ok: false, Err: string(code)}
	}
	return Response{Ok: false, Err: err.Error()}
}

func handle(req Request) Response {
	var (
		resp Response
		err  error
	)
	switch req.Op {
	case "parse_tx":
		resp, err = parseTx(req)
	case "parse_header":
		resp, err = parseHeader(req)
	case "extract_target":
		resp, err = extractTarget(req)
	case "pow_check":
		resp, err = powCheck(req)
	case "next_work_required":
		resp, err = nextWorkRequired(req)
	case "merkle_root":
		resp, err = merkleRoot(req)
	case "verify_merkle_proof":
		resp, err = verifyMerkleProof(req)
	case "build_merkle_proof":
		resp, err = buildMerkleProof(req)
	case "classify_script":
		resp, err = classifyScript(req)
	case "extract_op_return":
		resp, err = extractOpReturn(req)
	case "compact_size":
		resp, err = compactSize(req)
	default:
		return Response{Ok: false, Err: "unknown op"}
	}
	if err != nil {
		return errResp(err)
	}
	resp.Ok = true
	return resp
}

func decodeHex(field, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Errorf("bad %s", field)
	}
	return b, nil
}

func decodeHash(field, s string) (chainhash.Hash, error) {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil || len(s) != 2*chainhash.HashSize {
		return chainhash.Hash{}, errors.Errorf("bad %s", field)
	}
	return *h, nil
}

func decodeHashes(field string, items []string) ([]chainhash.Hash, error) {
	out := make([]chainhash.Hash, 0, len(items))
	for _, s := range items {
		h, err := decodeHash(field, s)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func targetHex(bits uint32) (string, string, error) {
	target, err := consensus.ExtractTarget(bits)
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("%064x", target), consensus.WorkFromTarget(target).String(), nil
}

func parseTx(req Request) (Response, error) {
	b, err := decodeHex("tx_hex", req.TxHex)
	if err != nil {
		return Response{}, err
	}
	tx, err := consensus.ParseTx(b)
	if err != nil {
		return Response{}, err
	}
	resp := Response{
		TxidHex:      tx.TxID().String(),
		WtxidHex:     tx.WitnessHash().String(),
		Inputs:       len(tx.Inputs),
		Outputs:      len(tx.Outputs),
		Coinbase:     tx.IsCoinbase(),
		LockTimeKind: tx.LockTimeKind().String(),
		Consumed:     len(b),
	}
	if height, ok := tx.CoinbaseHeight(); ok {
		resp.CoinbaseHeight = &height
	}
	if req.Dump {
		resp.Dump = spew.Sdump(tx)
	}
	return resp, nil
}

func parseHeader(req Request) (Response, error) {
	b, err := decodeHex("header_hex", req.HeaderHex)
	if err != nil {
		return Response{}, err
	}
	h, err := consensus.ParseBlockHeaderBytes(b)
	if err != nil {
		return Response{}, err
	}
	resp := Response{
		BlockHash:  h.Hash.String(),
		PrevBlock:  h.PrevBlock.String(),
		MerkleRoot: h.MerkleRoot.String(),
		Version:    h.Version,
		Timestamp:  h.Timestamp,
		Bits:       h.Bits,
		Nonce:      h.Nonce,
		Target:     fmt.Sprintf("%064x", h.Target),
		Work:       consensus.WorkFromTarget(h.Target).String(),
	}
	if req.Dump {
		resp.Dump = spew.Sdump(h)
	}
	return resp, nil
}

func extractTarget(req Request) (Response, error) {
	target, work, err := targetHex(req.Bits)
	if err != nil {
		return Response{}, err
	}
	return Response{Bits: req.Bits, Target: target, Work: work}, nil
}

func powCheck(req Request) (Response, error) {
	b, err := decodeHex("header_hex", req.HeaderHex)
	if err != nil {
		return Response{}, err
	}
	h, err := consensus.ParseBlockHeaderBytes(b)
	if err != nil {
		return Response{}, err
	}
	if req.PowLimitBits != 0 {
		limit, err := consensus.ExtractTarget(req.PowLimitBits)
		if err != nil {
			return Response{}, err
		}
		if err := consensus.CheckTargetRange(h.Target, limit); err != nil {
			return Response{}, err
		}
	}
	if err := consensus.VerifyProofOfWork(h); err != nil {
		return Response{}, err
	}
	return Response{BlockHash: h.Hash.String(), Target: fmt.Sprintf("%064x", h.Target)}, nil
}

func nextWorkRequired(req Request) (Response, error) {
	prev, err := consensus.ExtractTarget(req.Bits)
	if err != nil {
		return Response{}, err
	}
	var limit = consensus.UnroundedMaxTarget
	switch {
	case req.PowLimitBits != 0:
		if limit, err = consensus.ExtractTarget(req.PowLimitBits); err != nil {
			return Response{}, err
		}
	case req.Network != "":
		params, err := relay.NetworkParams(req.Network)
		if err != nil {
			return Response{}, err
		}
		limit = params.PowLimit
	}
	bits, err := consensus.CalculateNextWorkRequired(prev, req.TimestampFirst, req.TimestampLast, limit)
	if err != nil {
		return Response{}, err
	}
	target, work, err := targetHex(bits)
	if err != nil {
		return Response{}, err
	}
	return Response{Bits: bits, Target: target, Work: work}, nil
}

func merkleRoot(req Request) (Response, error) {
	txids, err := decodeHashes("txid", req.Txids)
	if err != nil {
		return Response{}, err
	}
	root, err := consensus.MerkleRoot(txids)
	if err != nil {
		return Response{}, err
	}
	return Response{MerkleRoot: root.String()}, nil
}

func verifyMerkleProof(req Request) (Response, error) {
	b, err := decodeHex("proof_hex", req.ProofHex)
	if err != nil {
		return Response{}, err
	}
	txid, err := decodeHash("txid", req.Txid)
	if err != nil {
		return Response{}, err
	}
	proof, err := consensus.ParseMerkleProof(b)
	if err != nil {
		return Response{}, err
	}
	if err := consensus.VerifyMerkleProof(proof, txid, proof.Header.MerkleRoot); err != nil {
		return Response{}, err
	}
	res, err := proof.Extract()
	if err != nil {
		return Response{}, err
	}
	resp := Response{
		BlockHash:  proof.Header.Hash.String(),
		MerkleRoot: res.Root.String(),
		TxCount:    proof.TxCount,
		Position:   &res.Position,
	}
	if req.Dump {
		resp.Dump = spew.Sdump(proof)
	}
	return resp, nil
}

func buildMerkleProof(req Request) (Response, error) {
	b, err := decodeHex("header_hex", req.HeaderHex)
	if err != nil {
		return Response{}, err
	}
	header, err := consensus.ParseBlockHeaderBytes(b)
	if err != nil {
		return Response{}, err
	}
	txids, err := decodeHashes("txid", req.Txids)
	if err != nil {
		return Response{}, err
	}
	if req.MatchIndex < 0 || req.MatchIndex >= len(txids) {
		return Response{}, errors.New("bad match_index")
	}
	matches := make([]bool, len(txids))
	matches[req.MatchIndex] = true
	proof, err := consensus.BuildMerkleProof(header, txids, matches)
	if err != nil {
		return Response{}, err
	}
	root, err := consensus.MerkleRoot(txids)
	if err != nil {
		return Response{}, err
	}
	return Response{
		BlockHash:  header.Hash.String(),
		MerkleRoot: root.String(),
		TxCount:    proof.TxCount,
		ProofHex:   hex.EncodeToString(proof.Bytes()),
	}, nil
}

func classifyScript(req Request) (Response, error) {
	script, err := decodeHex("script_hex", req.ScriptHex)
	if err != nil {
		return Response{}, err
	}
	class := consensus.ClassifyScript(script)
	resp := Response{Class: class.String()}
	if !class.IsPayment() {
		return resp, nil
	}
	network := req.Network
	if network == "" {
		network = "mainnet"
	}
	params, err := relay.NetworkParams(network)
	if err != nil {
		return Response{}, err
	}
	addr, err := consensus.ExtractPaymentAddress(script)
	if err != nil {
		return Response{}, err
	}
	if resp.Address, err = addr.Encode(params); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func extractOpReturn(req Request) (Response, error) {
	script, err := decodeHex("script_hex", req.ScriptHex)
	if err != nil {
		return Response{}, err
	}
	maxSize := req.MaxSize
	if maxSize == 0 {
		maxSize = consensus.MaxOpReturnSize
	}
	data, err := consensus.ExtractOpReturnDataLimit(script, maxSize)
	if err != nil {
		return Response{}, err
	}
	dataHex := hex.EncodeToString(data)
	return Response{DataHex: &dataHex}, nil
}

func compactSize(req Request) (Response, error) {
	switch {
	case req.Hex != "":
		b, err := decodeHex("hex", req.Hex)
		if err != nil {
			return Response{}, err
		}
		v, n, err := consensus.DecodeCompactSize(b)
		if err != nil {
			return Response{}, err
		}
		value := uint64(v)
		return Response{Value: &value, Consumed: n}, nil
	case req.Value != nil:
		enc := consensus.CompactSize(*req.Value).Encode()
		return Response{Hex: hex.EncodeToString(enc), Consumed: len(enc)}, nil
	default:
		return Response{}, errors.New("value or hex required")
	}
}
