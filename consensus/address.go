package consensus

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// AddressKind is the payment template an Address locks to.
type AddressKind uint8

const (
	AddressP2PKH AddressKind = iota + 1
	AddressP2SH
	AddressP2WPKHv0
	AddressP2WSHv0
)

func (k AddressKind) String() string {
	switch k {
	case AddressP2PKH:
		return "p2pkh"
	case AddressP2SH:
		return "p2sh"
	case AddressP2WPKHv0:
		return "p2wpkh_v0"
	case AddressP2WSHv0:
		return "p2wsh_v0"
	default:
		return "unknown"
	}
}

// hashLen is 20 for key and script hashes, 32 for P2WSH.
func (k AddressKind) hashLen() int {
	if k == AddressP2WSHv0 {
		return 32
	}
	return 20
}

// Address is a network-independent payment destination. It is comparable and
// safe to use as a map key. The zero value is not a valid address.
type Address struct {
	Kind AddressKind
	hash [32]byte
}

func NewP2PKHAddress(pubKeyHash [20]byte) Address {
	a := Address{Kind: AddressP2PKH}
	copy(a.hash[:], pubKeyHash[:])
	return a
}

func NewP2SHAddress(scriptHash [20]byte) Address {
	a := Address{Kind: AddressP2SH}
	copy(a.hash[:], scriptHash[:])
	return a
}

func NewP2WPKHAddress(pubKeyHash [20]byte) Address {
	a := Address{Kind: AddressP2WPKHv0}
	copy(a.hash[:], pubKeyHash[:])
	return a
}

func NewP2WSHAddress(scriptHash [32]byte) Address {
	return Address{Kind: AddressP2WSHv0, hash: scriptHash}
}

// NewAddress builds an address of the given kind from a raw hash of the
// matching length.
func NewAddress(kind AddressKind, hash []byte) (Address, error) {
	switch kind {
	case AddressP2PKH, AddressP2SH, AddressP2WPKHv0, AddressP2WSHv0:
	default:
		return Address{}, cerrf(ADDRESS_ERR_INVALID, "unknown address kind %d", kind)
	}
	if len(hash) != kind.hashLen() {
		return Address{}, cerrf(ADDRESS_ERR_INVALID, "%s hash is %d bytes, want %d", kind, len(hash), kind.hashLen())
	}
	a := Address{Kind: kind}
	copy(a.hash[:], hash)
	return a, nil
}

// Hash returns a copy of the key or script hash.
func (a Address) Hash() []byte {
	return append([]byte(nil), a.hash[:a.Kind.hashLen()]...)
}

func (a Address) IsValid() bool {
	switch a.Kind {
	case AddressP2PKH, AddressP2SH, AddressP2WPKHv0, AddressP2WSHv0:
		return true
	default:
		return false
	}
}

// String renders the kind and hex hash; use Encode for the human-readable form.
func (a Address) String() string {
	if !a.IsValid() {
		return "invalid"
	}
	return a.Kind.String() + ":" + hex.EncodeToString(a.Hash())
}

// Script returns the locking script paying to a.
func (a Address) Script() []byte {
	switch a.Kind {
	case AddressP2PKH:
		s := make([]byte, 0, 25)
		s = append(s, OP_DUP, OP_HASH160, OP_DATA_20)
		s = append(s, a.hash[:20]...)
		return append(s, OP_EQUALVERIFY, OP_CHECKSIG)
	case AddressP2SH:
		s := make([]byte, 0, 23)
		s = append(s, OP_HASH160, OP_DATA_20)
		s = append(s, a.hash[:20]...)
		return append(s, OP_EQUAL)
	case AddressP2WPKHv0:
		s := make([]byte, 0, 22)
		s = append(s, OP_0, OP_DATA_20)
		return append(s, a.hash[:20]...)
	case AddressP2WSHv0:
		s := make([]byte, 0, 34)
		s = append(s, OP_0, OP_DATA_32)
		return append(s, a.hash[:]...)
	default:
		return nil
	}
}

// ExtractPaymentAddress returns the address paid by a standard locking script.
func ExtractPaymentAddress(script []byte) (Address, error) {
	var a Address
	switch ClassifyScript(script) {
	case ScriptP2PKH:
		a.Kind = AddressP2PKH
		copy(a.hash[:], script[3:23])
	case ScriptP2SH:
		a.Kind = AddressP2SH
		copy(a.hash[:], script[2:22])
	case ScriptP2WPKHv0:
		a.Kind = AddressP2WPKHv0
		copy(a.hash[:], script[2:22])
	case ScriptP2WSHv0:
		a.Kind = AddressP2WSHv0
		copy(a.hash[:], script[2:34])
	default:
		return Address{}, cerr(SCRIPT_ERR_NONSTANDARD, "script is not a standard payment")
	}
	return a, nil
}

// Encode renders a in base58check (P2PKH, P2SH) or bech32 (witness v0) for
// the given network.
func (a Address) Encode(params *chaincfg.Params) (string, error) {
	addr, err := a.btcutil(params)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

func (a Address) btcutil(params *chaincfg.Params) (btcutil.Address, error) {
	var (
		addr btcutil.Address
		err  error
	)
	switch a.Kind {
	case AddressP2PKH:
		addr, err = btcutil.NewAddressPubKeyHash(a.hash[:20], params)
	case AddressP2SH:
		addr, err = btcutil.NewAddressScriptHashFromHash(a.hash[:20], params)
	case AddressP2WPKHv0:
		addr, err = btcutil.NewAddressWitnessPubKeyHash(a.hash[:20], params)
	case AddressP2WSHv0:
		addr, err = btcutil.NewAddressWitnessScriptHash(a.hash[:], params)
	default:
		return nil, cerr(ADDRESS_ERR_INVALID, "zero address")
	}
	if err != nil {
		return nil, cerrf(ADDRESS_ERR_INVALID, "%v", err)
	}
	return addr, nil
}

// DecodeAddress parses a base58check or bech32 address for the given network.
// Witness versions other than 0 and other networks' prefixes are rejected.
func DecodeAddress(s string, params *chaincfg.Params) (Address, error) {
	addr, err := btcutil.DecodeAddress(s, params)
	if err != nil {
		return Address{}, cerrf(ADDRESS_ERR_INVALID, "%v", err)
	}
	if !addr.IsForNet(params) {
		return Address{}, cerrf(ADDRESS_ERR_INVALID, "%s is not for %s", s, params.Name)
	}
	switch addr := addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return NewP2PKHAddress(*addr.Hash160()), nil
	case *btcutil.AddressScriptHash:
		return NewP2SHAddress(*addr.Hash160()), nil
	case *btcutil.AddressWitnessPubKeyHash:
		return NewP2WPKHAddress(*addr.Hash160()), nil
	case *btcutil.AddressWitnessScriptHash:
		var h [32]byte
		copy(h[:], addr.WitnessProgram())
		return NewP2WSHAddress(h), nil
	default:
		return Address{}, cerrf(ADDRESS_ERR_INVALID, "unsupported address type %T", addr)
	}
}

const (
	pubKeyCompressedEven byte = 0x02
	pubKeyCompressedOdd  byte = 0x03
	compressedPubKeyLen       = 33
)

// ExtractInputAddress recovers the address an input spends from, using the
// scriptSig when it matches a known spending pattern and the witness stack
// otherwise:
//
//	OP_0 <sig>... <redeem script>   P2SH over the last push (bare multisig redeem)
//	<witness program>               P2SH over the program (nested segwit)
//	<sig> <33-byte pubkey>          P2PKH over the pubkey
//	witness ... <item>              P2WPKH if item is a compressed key, else P2WSH
func ExtractInputAddress(in TxIn) (Address, error) {
	if a, ok := scriptSigAddress(in.SignatureScript); ok {
		return a, nil
	}
	if len(in.Witness) == 0 {
		return Address{}, cerr(SCRIPT_ERR_UNSUPPORTED_INPUT, "no recognizable scriptSig and no witness")
	}
	last := in.Witness[len(in.Witness)-1]
	if len(last) == compressedPubKeyLen && (last[0] == pubKeyCompressedEven || last[0] == pubKeyCompressedOdd) {
		return NewP2WPKHAddress(Hash160(last)), nil
	}
	return NewP2WSHAddress(sha256.Sum256(last)), nil
}

func scriptSigAddress(script []byte) (Address, bool) {
	if len(script) == 0 {
		return Address{}, false
	}
	pushes, err := scriptPushes(script)
	if err != nil || len(pushes) == 0 {
		return Address{}, false
	}
	switch {
	case script[0] == OP_0 && len(pushes) >= 3:
		return NewP2SHAddress(Hash160(pushes[len(pushes)-1])), true
	case len(pushes) == 1 && isWitnessProgram(pushes[0]):
		return NewP2SHAddress(Hash160(pushes[0])), true
	case len(pushes) == 2 && len(pushes[1]) == compressedPubKeyLen:
		return NewP2PKHAddress(Hash160(pushes[1])), true
	default:
		return Address{}, false
	}
}

func isWitnessProgram(p []byte) bool {
	return isP2WPKHv0(p) || isP2WSHv0(p)
}
