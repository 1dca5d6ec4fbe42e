package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"github.com/interlay/interbtc-sub005/consensus"
	"github.com/interlay/interbtc-sub005/relay"
	"github.com/interlay/interbtc-sub005/relay/store"
)

type app struct {
	db     *store.DB
	relay  *relay.Relay
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
}

func openApp(cfg *config, logger *slog.Logger, in io.Reader, out io.Writer) (*app, error) {
	rc, err := cfg.relayConfig()
	if err != nil {
		return nil, err
	}
	backend, err := store.ParseBackend(cfg.DbType)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(cfg.DataDir, cfg.Network, backend)
	if err != nil {
		return nil, err
	}
	r, err := relay.Open(rc, relay.Options{
		Journal: db,
		Clock:   relay.FixedClock(cfg.LedgerHeight),
		Logger:  logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &app{db: db, relay: r, logger: logger, in: in, out: out}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("close journal", "err", err)
	}
}

func (a *app) dispatch(command string, sub interface{}) error {
	switch command {
	case initSubCmd:
		return a.initialize(sub.(*initConfig))
	case submitHeadersSubCmd:
		return a.submitHeaders(sub.(*submitHeadersConfig))
	case markNoDataSubCmd:
		return a.mark(sub.(*markConfig), a.relay.MarkNoData)
	case markInvalidSubCmd:
		return a.mark(sub.(*markConfig), a.relay.MarkInvalid)
	case statusSubCmd:
		return a.status()
	case verifyPaymentSubCmd:
		return a.verifyPayment(sub.(*verifyPaymentConfig))
	case syncSubCmd:
		return a.sync(sub.(*syncConfig))
	default:
		return errors.Errorf("unknown sub-command %q", command)
	}
}

// saveTip records the best header in the manifest after a mutation.
func (a *app) saveTip() error {
	best, ok := a.relay.BestHeader()
	if !ok {
		return nil
	}
	return a.db.SetTip(best.Hash, best.Height, best.ChainWork)
}

func (a *app) initialize(c *initConfig) error {
	raw, err := parseRawHeaderHex(c.Header)
	if err != nil {
		return err
	}
	if err := a.relay.Initialize(raw, c.Height); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "initialized: height=%d hash=%s\n", c.Height, raw.Hash())
	return a.saveTip()
}

func (a *app) submitHeaders(c *submitHeadersConfig) error {
	var (
		b   []byte
		err error
	)
	if c.File == "" || c.File == "-" {
		b, err = io.ReadAll(a.in)
	} else {
		b, err = os.ReadFile(c.File)
	}
	if err != nil {
		return errors.Wrap(err, "read headers")
	}
	raws, err := parseHeaderInput(b)
	if err != nil {
		return err
	}
	n, storeErr := a.relay.StoreBlockHeaders(raws)
	if n > 0 {
		if err := a.saveTip(); err != nil {
			return err
		}
	}
	best, _ := a.relay.BestHeader()
	_, _ = fmt.Fprintf(a.out, "stored=%d of=%d best_height=%d best_hash=%s\n", n, len(raws), best.Height, best.Hash)
	return storeErr
}

func (a *app) mark(c *markConfig, markFn func(uint32) error) error {
	if err := markFn(c.Height); err != nil {
		return err
	}
	id, _ := a.relay.ChainIDAt(c.Height)
	_, _ = fmt.Fprintf(a.out, "marked: height=%d chain_id=%d\n", c.Height, id)
	return nil
}

type chainReport struct {
	ID          relay.ChainID `json:"id"`
	StartHeight uint32        `json:"start_height"`
	MaxHeight   uint32        `json:"max_height"`
	Tip         string        `json:"tip"`
	Work        string        `json:"work"`
	State       string        `json:"state"`
	NoData      []uint32      `json:"no_data,omitempty"`
	Invalid     []uint32      `json:"invalid,omitempty"`
}

type statusReport struct {
	Network     string        `json:"network"`
	Initialized bool          `json:"initialized"`
	BestHeight  uint32        `json:"best_height"`
	BestHash    string        `json:"best_hash,omitempty"`
	ChainWork   string        `json:"chain_work,omitempty"`
	Records     uint64        `json:"journal_records"`
	Locator     []string      `json:"locator,omitempty"`
	Chains      []chainReport `json:"chains"`
}

func (a *app) status() error {
	view := a.relay.View()
	records, err := a.db.Len()
	if err != nil {
		return err
	}
	rep := statusReport{
		Network:     a.relay.Config().Network,
		Initialized: view.IsInitialized(),
		Records:     records,
		Chains:      []chainReport{},
	}
	if best, ok := view.BestHeader(); ok {
		rep.BestHeight = best.Height
		rep.BestHash = best.Hash.String()
		rep.ChainWork = best.ChainWork.String()
	}
	for _, h := range view.BlockLocator() {
		rep.Locator = append(rep.Locator, h.String())
	}
	for _, c := range view.Chains() {
		rep.Chains = append(rep.Chains, chainReport{
			ID:          c.ID,
			StartHeight: c.StartHeight,
			MaxHeight:   c.MaxHeight,
			Tip:         c.Tip.String(),
			Work:        c.Work.String(),
			State:       c.State().String(),
			NoData:      c.NoData,
			Invalid:     c.Invalid,
		})
	}
	return writeJSON(a.out, rep)
}

type paymentReport struct {
	TxID        string `json:"txid"`
	Amount      int64  `json:"amount"`
	Change      string `json:"change,omitempty"`
	BlockHeight uint32 `json:"block_height"`
}

func (a *app) verifyPayment(c *verifyPaymentConfig) error {
	req := relay.PaymentRequest{MinAmount: c.Amount}
	var err error
	if req.RawTx, err = hex.DecodeString(c.Tx); err != nil {
		return errors.Wrap(err, "bad --tx hex")
	}
	if req.RawMerkleProof, err = hex.DecodeString(c.Proof); err != nil {
		return errors.Wrap(err, "bad --proof hex")
	}
	block, err := chainhash.NewHashFromStr(c.Block)
	if err != nil {
		return errors.Wrap(err, "bad --block")
	}
	req.BlockHash = *block
	if req.Recipient, err = consensus.DecodeAddress(c.Recipient, a.relay.Params()); err != nil {
		return errors.Wrap(err, "bad --recipient")
	}
	if c.Tag != "" {
		if req.OpReturnTag, err = hex.DecodeString(c.Tag); err != nil {
			return errors.Wrap(err, "bad --tag hex")
		}
	}

	res, err := a.relay.VerifyPayment(req)
	if err != nil {
		return err
	}
	rep := paymentReport{TxID: res.TxID.String(), Amount: res.Amount, BlockHeight: res.BlockHeight}
	if res.Change != nil {
		if rep.Change, err = res.Change.Encode(a.relay.Params()); err != nil {
			return err
		}
	}
	return writeJSON(a.out, rep)
}

func (a *app) sync(c *syncConfig) error {
	client, err := newRPCClient(c.rpcConfig)
	if err != nil {
		return err
	}
	defer client.Shutdown()

	n, syncErr := syncHeaders(client, a.relay, c.MaxHeaders, a.logger)
	if n > 0 {
		if err := a.saveTip(); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintf(a.out, "synced=%d best_height=%d\n", n, a.relay.BestHeight())
	return syncErr
}

func runFetchProof(c *fetchProofConfig, out io.Writer) error {
	txid, err := chainhash.NewHashFromStr(c.TxID)
	if err != nil {
		return errors.Wrap(err, "bad --txid")
	}
	var block *chainhash.Hash
	if c.Block != "" {
		if block, err = chainhash.NewHashFromStr(c.Block); err != nil {
			return errors.Wrap(err, "bad --block")
		}
	}
	client, err := newRPCClient(c.rpcConfig)
	if err != nil {
		return err
	}
	defer client.Shutdown()

	proof, err := fetchProof(client, *txid, block)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, hex.EncodeToString(proof))
	return nil
}

func parseRawHeaderHex(s string) (consensus.RawHeader, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return consensus.RawHeader{}, errors.Wrap(err, "bad header hex")
	}
	return consensus.NewRawHeader(b)
}

// parseHeaderInput accepts one hex header per line (blank lines and lines
// starting with # are skipped) or raw concatenated 80-byte headers.
func parseHeaderInput(b []byte) ([]consensus.RawHeader, error) {
	if raws, ok := parseHexLines(b); ok {
		return raws, nil
	}
	if len(b) == 0 || len(b)%consensus.BlockHeaderSize != 0 {
		return nil, errors.Errorf("headers input is %d bytes, neither hex lines nor a multiple of %d", len(b), consensus.BlockHeaderSize)
	}
	raws := make([]consensus.RawHeader, 0, len(b)/consensus.BlockHeaderSize)
	for off := 0; off < len(b); off += consensus.BlockHeaderSize {
		raw, err := consensus.NewRawHeader(b[off : off+consensus.BlockHeaderSize])
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

func parseHexLines(b []byte) ([]consensus.RawHeader, bool) {
	var raws []consensus.RawHeader
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw, err := parseRawHeaderHex(line)
		if err != nil {
			return nil, false
		}
		raws = append(raws, raw)
	}
	if sc.Err() != nil || len(raws) == 0 {
		return nil, false
	}
	return raws, true
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
