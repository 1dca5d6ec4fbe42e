package consensus

// SerializeTx encodes tx in the BIP144 form when it carries witness data and
// in the legacy form otherwise, which reproduces the bytes ParseTx consumed.
func SerializeTx(tx *Transaction) []byte {
	return serializeTx(tx, tx.HasWitness())
}

// SerializeTxNoWitness encodes tx in the legacy form used for the txid.
func SerializeTxNoWitness(tx *Transaction) []byte {
	return serializeTx(tx, false)
}

func serializeTx(tx *Transaction, withWitness bool) []byte {
	out := make([]byte, 0, serializedSizeHint(tx))
	out = appendU32le(out, uint32(tx.Version))
	if withWitness {
		out = append(out, witnessMarker, witnessFlag)
	}

	out = append(out, CompactSize(len(tx.Inputs)).Encode()...)
	for _, in := range tx.Inputs {
		out = append(out, in.PreviousOutPoint.Hash[:]...)
		out = appendU32le(out, in.PreviousOutPoint.Index)
		out = appendVarBytes(out, in.SignatureScript)
		out = appendU32le(out, in.Sequence)
	}

	out = append(out, CompactSize(len(tx.Outputs)).Encode()...)
	for _, o := range tx.Outputs {
		out = appendU64le(out, uint64(o.Value))
		out = appendVarBytes(out, o.PkScript)
	}

	if withWitness {
		for _, in := range tx.Inputs {
			out = append(out, CompactSize(len(in.Witness)).Encode()...)
			for _, item := range in.Witness {
				out = appendVarBytes(out, item)
			}
		}
	}

	return appendU32le(out, tx.LockTime)
}

func serializedSizeHint(tx *Transaction) int {
	n := 4 + 2 + 9 + 9 + 4
	for _, in := range tx.Inputs {
		n += minTxInSize + len(in.SignatureScript) + 8
		for _, item := range in.Witness {
			n += 9 + len(item)
		}
	}
	for _, o := range tx.Outputs {
		n += minTxOutSize + len(o.PkScript) + 8
	}
	return n
}
