package consensus

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// ParseTx decodes a complete legacy or BIP144 transaction. Trailing bytes are rejected.
func ParseTx(b []byte) (*Transaction, error) {
	tx, n, err := ParseTxPrefix(b)
	if err != nil {
		return nil, err
	}
	if n != len(b) {
		return nil, cerrf(PARSE_ERR_TRAILING_BYTES, "%d trailing bytes", len(b)-n)
	}
	return tx, nil
}

// ParseTxPrefix decodes one transaction from the start of b and reports how
// many bytes it consumed.
func ParseTxPrefix(b []byte) (*Transaction, int, error) {
	off := 0
	version, err := readU32le(b, &off)
	if err != nil {
		return nil, 0, err
	}
	tx := &Transaction{Version: int32(version)}

	// A legacy transaction cannot start its input list with a zero count, so
	// a zero byte here is the BIP144 marker.
	segwit := false
	if off < len(b) && b[off] == witnessMarker {
		off++
		flag, err := readU8(b, &off)
		if err != nil {
			return nil, 0, err
		}
		if flag != witnessFlag {
			return nil, 0, cerrf(PARSE_ERR_WITNESS_FLAG, "unknown flag %#02x", flag)
		}
		segwit = true
	}

	if tx.Inputs, err = parseInputList(b, &off); err != nil {
		return nil, 0, err
	}
	if tx.Outputs, err = parseOutputList(b, &off); err != nil {
		return nil, 0, err
	}

	if segwit {
		if err := parseWitnesses(b, &off, tx.Inputs); err != nil {
			return nil, 0, err
		}
		if !tx.HasWitness() {
			return nil, 0, cerr(PARSE_ERR_WITNESS_FLAG, "witness flag set but all witnesses empty")
		}
	}

	if tx.LockTime, err = readU32le(b, &off); err != nil {
		return nil, 0, err
	}
	return tx, off, nil
}

func parseInputList(b []byte, off *int) ([]TxIn, error) {
	count, err := readCount(b, off, minTxInSize, "input")
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, cerr(PARSE_ERR_TX_MALFORMED, "no inputs")
	}
	inputs := make([]TxIn, 0, count)
	for i := 0; i < count; i++ {
		in, err := parseInput(b, off)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func parseInput(b []byte, off *int) (TxIn, error) {
	var in TxIn
	var err error
	if in.PreviousOutPoint.Hash, err = readHash(b, off); err != nil {
		return in, err
	}
	if in.PreviousOutPoint.Index, err = readU32le(b, off); err != nil {
		return in, err
	}
	script, err := readVarBytes(b, off, "signature script")
	if err != nil {
		return in, err
	}
	in.SignatureScript = append([]byte{}, script...)
	if in.Sequence, err = readU32le(b, off); err != nil {
		return in, err
	}

	if in.PreviousOutPoint.Hash == (chainhash.Hash{}) {
		if in.PreviousOutPoint.Index != CoinbasePrevIndex {
			return in, cerrf(PARSE_ERR_TX_MALFORMED, "null prevout hash with index %d", in.PreviousOutPoint.Index)
		}
		if len(script) < MinCoinbaseScriptLen || len(script) > MaxCoinbaseScriptLen {
			return in, cerrf(PARSE_ERR_TX_MALFORMED, "coinbase script length %d", len(script))
		}
	}
	return in, nil
}

func parseOutputList(b []byte, off *int) ([]TxOut, error) {
	count, err := readCount(b, off, minTxOutSize, "output")
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, cerr(PARSE_ERR_TX_MALFORMED, "no outputs")
	}
	outputs := make([]TxOut, 0, count)
	for i := 0; i < count; i++ {
		value, err := readU64le(b, off)
		if err != nil {
			return nil, err
		}
		if value > uint64(MaxSatoshi) {
			return nil, cerrf(PARSE_ERR_TX_MALFORMED, "output %d value %d out of range", i, value)
		}
		script, err := readVarBytes(b, off, "pk script")
		if err != nil {
			return nil, err
		}
		if len(script) > MaxScriptSize {
			return nil, cerrf(PARSE_ERR_TX_MALFORMED, "output %d script is %d bytes", i, len(script))
		}
		outputs = append(outputs, TxOut{
			Value:    int64(value),
			PkScript: append([]byte{}, script...),
		})
	}
	return outputs, nil
}

func parseWitnesses(b []byte, off *int, inputs []TxIn) error {
	for i := range inputs {
		count, err := readCount(b, off, 1, "witness item")
		if err != nil {
			return err
		}
		if count == 0 {
			continue
		}
		stack := make([][]byte, 0, count)
		for j := 0; j < count; j++ {
			item, err := readVarBytes(b, off, "witness item")
			if err != nil {
				return err
			}
			stack = append(stack, append([]byte{}, item...))
		}
		inputs[i].Witness = stack
	}
	return nil
}
