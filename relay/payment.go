package relay

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/interlay/interbtc-sub005/consensus"
)

// PaymentRequest asks whether RawTx, included in the block BlockHash, paid
// at least MinAmount to Recipient.
type PaymentRequest struct {
	RawTx          []byte
	RawMerkleProof []byte
	BlockHash      chainhash.Hash
	// Confirmations defaults to Config.RequiredConfirmations when zero.
	Confirmations uint32
	Recipient     consensus.Address
	MinAmount     int64
	// OpReturnTag, when non-nil, must be the payload of the only OP_RETURN
	// output.
	OpReturnTag []byte
}

type PaymentResult struct {
	TxID   chainhash.Hash
	Amount int64
	// Change is the other payment output's address, if there is one.
	Change      *consensus.Address
	BlockHeight uint32
}

type payment struct {
	addr  consensus.Address
	value int64
}

// VerifyPayment checks inclusion and confirmation depth of the transaction
// and that its outputs pay the recipient.
func (r *Relay) VerifyPayment(req PaymentRequest) (PaymentResult, error) {
	tx, err := consensus.ParseTx(req.RawTx)
	if err != nil {
		return PaymentResult{}, wrapErr(RELAY_ERR_TX_FORMAT, err, "parse transaction")
	}
	txid := tx.TxID()

	h, err := r.checkConfirmed(req.BlockHash, req.Confirmations)
	if err != nil {
		return PaymentResult{}, err
	}
	if !r.cfg.DisableInclusionCheck {
		proof, err := consensus.ParseMerkleProof(req.RawMerkleProof)
		if err != nil {
			return PaymentResult{}, wrapErr(RELAY_ERR_INVALID_MERKLE_PROOF, err, "parse proof")
		}
		if err := r.checkProof(proof, txid, h); err != nil {
			return PaymentResult{}, err
		}
	}

	payments, opReturns, malformed, err := r.classifyOutputs(tx)
	if err != nil {
		return PaymentResult{}, err
	}

	if req.OpReturnTag != nil && !r.cfg.DisableInclusionCheck {
		switch {
		case malformed > 0:
			return PaymentResult{}, rerrf(RELAY_ERR_INVALID_OPRETURN, "%d malformed OP_RETURN outputs", malformed)
		case len(opReturns) != 1:
			return PaymentResult{}, rerrf(RELAY_ERR_INVALID_OPRETURN, "want exactly one OP_RETURN output, have %d", len(opReturns))
		case !bytes.Equal(opReturns[0], req.OpReturnTag):
			return PaymentResult{}, rerrf(RELAY_ERR_INVALID_OPRETURN, "OP_RETURN payload %x does not match %x", opReturns[0], req.OpReturnTag)
		}
	}

	switch len(payments) {
	case 1:
	case 2:
		if payments[0].addr == payments[1].addr {
			return PaymentResult{}, rerrf(RELAY_ERR_INVALID_PAYMENTS, "both payment outputs pay %s", payments[0].addr)
		}
	default:
		return PaymentResult{}, rerrf(RELAY_ERR_INVALID_PAYMENTS, "want one or two payment outputs, have %d", len(payments))
	}

	res := PaymentResult{TxID: txid, BlockHeight: h.Height}
	found := false
	for i, p := range payments {
		if p.addr != req.Recipient {
			continue
		}
		found = true
		res.Amount = p.value
		if len(payments) == 2 {
			change := payments[1-i].addr
			res.Change = &change
		}
	}
	if !found {
		return PaymentResult{}, rerrf(RELAY_ERR_WRONG_RECIPIENT, "no output pays %s", req.Recipient)
	}
	if res.Amount < req.MinAmount {
		return PaymentResult{}, rerrf(RELAY_ERR_INSUFFICIENT_VALUE, "paid %d, want at least %d", res.Amount, req.MinAmount)
	}
	return res, nil
}

// VerifyTransactionInclusion checks that txid is in the block named by the
// proof header and that the block is confirmed on the main chain.
func (r *Relay) VerifyTransactionInclusion(txid chainhash.Hash, rawProof []byte, confirmations uint32) error {
	if r.cfg.DisableInclusionCheck {
		return nil
	}
	proof, err := consensus.ParseMerkleProof(rawProof)
	if err != nil {
		return wrapErr(RELAY_ERR_INVALID_MERKLE_PROOF, err, "parse proof")
	}
	h, err := r.checkConfirmed(proof.Header.Hash, confirmations)
	if err != nil {
		return err
	}
	return r.checkProof(proof, txid, h)
}

// checkConfirmed returns the stored header for blockHash once it is on a
// healthy main chain with enough confirmations.
func (r *Relay) checkConfirmed(blockHash chainhash.Hash, confirmations uint32) (RichHeader, error) {
	c := r.chain
	if !c.IsInitialized() {
		return RichHeader{}, rerr(RELAY_ERR_NOT_INITIALIZED, "relay is not initialized")
	}
	h, ok := c.HeaderByHash(blockHash)
	if !ok {
		return RichHeader{}, rerrf(RELAY_ERR_BLOCK_NOT_FOUND, "block %s not found", blockHash)
	}
	if marks := c.mainChainMarks(true); len(marks) > 0 {
		return RichHeader{}, rerrf(RELAY_ERR_INVALID, "main chain flagged invalid at height %d", marks[0])
	}
	if marks := c.mainChainMarks(false); len(marks) > 0 && marks[0] <= h.Height {
		return RichHeader{}, rerrf(RELAY_ERR_NO_DATA, "main chain lacks data at height %d", marks[0])
	}
	if !c.IsMainChain(blockHash) {
		return RichHeader{}, rerrf(RELAY_ERR_NOT_MAIN_CHAIN, "block %s is not on the main chain", blockHash)
	}

	if confirmations == 0 {
		confirmations = r.cfg.RequiredConfirmations
	}
	best := c.BestHeight()
	if forkHeight, ok := c.bestForkHeight(); ok && uint64(forkHeight)+uint64(confirmations) > uint64(best) {
		return RichHeader{}, rerrf(RELAY_ERR_ONGOING_FORK, "fork at height %d is within %d blocks of the tip %d", forkHeight, confirmations, best)
	}
	if got := best - h.Height + 1; got < confirmations {
		return RichHeader{}, rerrf(RELAY_ERR_CONFIRMATIONS, "%d confirmations, want %d", got, confirmations)
	}
	now := r.ledgerHeight()
	var matured uint64
	if now > h.LedgerHeight {
		matured = now - h.LedgerHeight
	}
	if matured < r.cfg.RequiredLedgerConfirmations {
		return RichHeader{}, rerrf(RELAY_ERR_LEDGER_CONFIRMATIONS, "%d ledger confirmations, want %d", matured, r.cfg.RequiredLedgerConfirmations)
	}
	return h, nil
}

func (r *Relay) checkProof(proof *consensus.MerkleProof, txid chainhash.Hash, h RichHeader) error {
	if proof.Header.Hash != h.Hash {
		return rerrf(RELAY_ERR_INVALID_MERKLE_PROOF, "proof is for block %s, not %s", proof.Header.Hash, h.Hash)
	}
	if err := consensus.VerifyMerkleProof(proof, txid, h.Header.MerkleRoot); err != nil {
		return wrapErr(RELAY_ERR_INVALID_MERKLE_PROOF, err, "inclusion")
	}
	return nil
}

// classifyOutputs splits outputs into payments and OP_RETURN payloads.
// Malformed OP_RETURN outputs are counted, not returned.
func (r *Relay) classifyOutputs(tx *consensus.Transaction) ([]payment, [][]byte, int, error) {
	var (
		payments  []payment
		opReturns [][]byte
		malformed int
	)
	for i, out := range tx.Outputs {
		class := consensus.ClassifyScript(out.PkScript)
		switch {
		case class.IsPayment():
			addr, err := consensus.ExtractPaymentAddress(out.PkScript)
			if err != nil {
				return nil, nil, 0, wrapErr(RELAY_ERR_TX_FORMAT, err, "payment output")
			}
			payments = append(payments, payment{addr: addr, value: out.Value})
		case class == consensus.ScriptOpReturn:
			data, err := consensus.ExtractOpReturnDataLimit(out.PkScript, r.cfg.MaxOpReturnSize)
			if err != nil {
				malformed++
				continue
			}
			opReturns = append(opReturns, data)
		default:
			return nil, nil, 0, rerrf(RELAY_ERR_TX_FORMAT, "output %d has a nonstandard script", i)
		}
	}
	return payments, opReturns, malformed, nil
}
