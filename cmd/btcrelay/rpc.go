package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"

	"github.com/interlay/interbtc-sub005/consensus"
	"github.com/interlay/interbtc-sub005/relay"
)

// headerSource is the part of the bitcoind RPC surface used by sync.
type headerSource interface {
	GetBlockCount() (int64, error)
	GetBlockHash(height int64) (*chainhash.Hash, error)
	GetBlockHeader(hash *chainhash.Hash) (*wire.BlockHeader, error)
}

type rawRequester interface {
	RawRequest(method string, params []json.RawMessage) (json.RawMessage, error)
}

var (
	_ headerSource = (*rpcclient.Client)(nil)
	_ rawRequester = (*rpcclient.Client)(nil)
)

func newRPCClient(c rpcConfig) (*rpcclient.Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         c.RPCConnect,
		User:         c.RPCUser,
		Pass:         c.RPCPass,
		HTTPPostMode: true,
		DisableTLS:   !c.RPCTLS,
	}
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", c.RPCConnect)
	}
	return client, nil
}

// findForkPoint walks the relay's block locator and returns the highest
// locator header the node also has at the same height.
func findForkPoint(src headerSource, view relay.ChainView, nodeHeight int64) (relay.RichHeader, error) {
	for _, hash := range view.BlockLocator() {
		h, ok := view.HeaderByHash(hash)
		if !ok || int64(h.Height) > nodeHeight {
			continue
		}
		remote, err := src.GetBlockHash(int64(h.Height))
		if err != nil {
			return relay.RichHeader{}, errors.Wrapf(err, "getblockhash %d", h.Height)
		}
		if *remote == hash {
			return h, nil
		}
	}
	return relay.RichHeader{}, errors.New("node shares no header with the relay")
}

// syncHeaders submits the node's chain above the last shared header, at most
// limit headers per call. Headers the relay already indexed are skipped.
func syncHeaders(src headerSource, r *relay.Relay, limit uint32, logger *slog.Logger) (int, error) {
	view := r.View()
	if !view.IsInitialized() {
		return 0, errors.New("relay is not initialized")
	}
	nodeHeight, err := src.GetBlockCount()
	if err != nil {
		return 0, errors.Wrap(err, "getblockcount")
	}
	fork, err := findForkPoint(src, view, nodeHeight)
	if err != nil {
		return 0, err
	}
	logger.Info("syncing headers", "from_height", fork.Height+1, "node_height", nodeHeight)

	stored := 0
	for height := int64(fork.Height) + 1; height <= nodeHeight && uint32(stored) < limit; height++ {
		hash, err := src.GetBlockHash(height)
		if err != nil {
			return stored, errors.Wrapf(err, "getblockhash %d", height)
		}
		if _, known := view.HeaderByHash(*hash); known {
			continue
		}
		header, err := src.GetBlockHeader(hash)
		if err != nil {
			return stored, errors.Wrapf(err, "getblockheader %s", hash)
		}
		var buf bytes.Buffer
		if err := header.Serialize(&buf); err != nil {
			return stored, errors.Wrapf(err, "serialize header %s", hash)
		}
		raw, err := consensus.NewRawHeader(buf.Bytes())
		if err != nil {
			return stored, err
		}
		if err := r.StoreBlockHeader(raw); err != nil {
			return stored, errors.Wrapf(err, "header %d (%s)", height, hash)
		}
		stored++
	}
	return stored, nil
}

// fetchProof asks the node for the gettxoutproof of txid and checks that the
// answer parses.
func fetchProof(src rawRequester, txid chainhash.Hash, block *chainhash.Hash) ([]byte, error) {
	ids, err := json.Marshal([]string{txid.String()})
	if err != nil {
		return nil, err
	}
	params := []json.RawMessage{ids}
	if block != nil {
		b, err := json.Marshal(block.String())
		if err != nil {
			return nil, err
		}
		params = append(params, b)
	}
	res, err := src.RawRequest("gettxoutproof", params)
	if err != nil {
		return nil, errors.Wrap(err, "gettxoutproof")
	}
	var proofHex string
	if err := json.Unmarshal(res, &proofHex); err != nil {
		return nil, errors.Wrap(err, "decode gettxoutproof result")
	}
	proof, err := hex.DecodeString(proofHex)
	if err != nil {
		return nil, errors.Wrap(err, "decode proof hex")
	}
	if _, err := consensus.ParseMerkleProof(proof); err != nil {
		return nil, errors.Wrap(err, "node returned a malformed proof")
	}
	return proof, nil
}
