package consensus

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
)

func TestExtractPaymentAddress(t *testing.T) {
	cases := []struct {
		script string
		kind   AddressKind
		hash   string
	}{
		{"76a9147e7d94d0ddc21d83bfbcfc7798e4547edf0832aa88ac", AddressP2PKH, "7e7d94d0ddc21d83bfbcfc7798e4547edf0832aa"},
		{"a9144a1154d50b03292b3024370901711946cb7cccc387", AddressP2SH, "4a1154d50b03292b3024370901711946cb7cccc3"},
		{"0014c97ec9439f77c079983582847a09b6b5e6fd2e86", AddressP2WPKHv0, "c97ec9439f77c079983582847a09b6b5e6fd2e86"},
		{"00201863143c14c5166804bd19203356da136c985678cd4d27a1b8c6329604903262", AddressP2WSHv0, "1863143c14c5166804bd19203356da136c985678cd4d27a1b8c6329604903262"},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			script := mustHex(t, tc.script)
			a, err := ExtractPaymentAddress(script)
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if a.Kind != tc.kind {
				t.Fatalf("kind=%s want=%s", a.Kind, tc.kind)
			}
			if got := a.Hash(); !bytes.Equal(got, mustHex(t, tc.hash)) {
				t.Fatalf("hash: got=%x want=%s", got, tc.hash)
			}
			if got := a.Script(); !bytes.Equal(got, script) {
				t.Fatalf("script round trip: got=%x want=%x", got, script)
			}
			again, err := NewAddress(tc.kind, mustHex(t, tc.hash))
			if err != nil || again != a {
				t.Fatalf("NewAddress: %v %v", again, err)
			}
		})
	}

	_, err := ExtractPaymentAddress(OpReturnScript([]byte{1}))
	requireCode(t, err, SCRIPT_ERR_NONSTANDARD)
}

func TestNewAddress_Rejects(t *testing.T) {
	_, err := NewAddress(AddressP2PKH, make([]byte, 32))
	requireCode(t, err, ADDRESS_ERR_INVALID)
	_, err = NewAddress(AddressP2WSHv0, make([]byte, 20))
	requireCode(t, err, ADDRESS_ERR_INVALID)
	_, err = NewAddress(AddressKind(9), make([]byte, 20))
	requireCode(t, err, ADDRESS_ERR_INVALID)

	var zero Address
	if zero.IsValid() || zero.Script() != nil {
		t.Fatalf("zero address must be invalid")
	}
	if _, err := zero.Encode(&chaincfg.MainNetParams); err == nil {
		t.Fatalf("zero address encoded")
	}
}

func TestAddress_EncodeDecode(t *testing.T) {
	cases := []struct {
		name    string
		params  *chaincfg.Params
		address Address
		encoded string
	}{
		{"genesis_p2pkh", &chaincfg.MainNetParams, NewP2PKHAddress(mustHash20(t, "62e907b15cbf27d5425399ebf6f0fb50ebb88f18")), "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{"nested_segwit_p2sh", &chaincfg.MainNetParams, NewP2SHAddress(mustHash20(t, "288873634ae24a3c9b6792cc7e2a084ec79ef68b")), "35PLQyoXs2sk9QDqMv7bBGowxP1pjwXAMe"},
		{"bip173_p2wpkh", &chaincfg.MainNetParams, NewP2WPKHAddress(mustHash20(t, "751e76e8199196d454941c45d1b3a323f1433bd6")), "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.address.Encode(tc.params)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if got != tc.encoded {
				t.Fatalf("encode: got=%s want=%s", got, tc.encoded)
			}
			back, err := DecodeAddress(tc.encoded, tc.params)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if back != tc.address {
				t.Fatalf("decode: got=%s want=%s", back, tc.address)
			}
		})
	}
}

func TestAddress_P2WSHRoundTrip(t *testing.T) {
	var h [32]byte
	copy(h[:], mustHex(t, "1863143c14c5166804bd19203356da136c985678cd4d27a1b8c6329604903262"))
	a := NewP2WSHAddress(h)
	for _, params := range []*chaincfg.Params{&chaincfg.MainNetParams, &chaincfg.TestNet3Params, &chaincfg.RegressionNetParams} {
		s, err := a.Encode(params)
		if err != nil {
			t.Fatalf("%s encode: %v", params.Name, err)
		}
		back, err := DecodeAddress(s, params)
		if err != nil || back != a {
			t.Fatalf("%s decode %s: %v %v", params.Name, s, back, err)
		}
	}
}

func TestDecodeAddress_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		addr   string
		params *chaincfg.Params
	}{
		{"garbage", "not-an-address", &chaincfg.MainNetParams},
		{"bad_checksum", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb", &chaincfg.MainNetParams},
		{"wrong_network", "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", &chaincfg.TestNet3Params},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeAddress(tc.addr, tc.params)
			requireCode(t, err, ADDRESS_ERR_INVALID)
		})
	}
}

func TestExtractInputAddress(t *testing.T) {
	cases := []struct {
		name string
		tx   string
		want Address
	}{
		{"p2pkh", p2pkhSpendTxHex, NewP2PKHAddress(mustHash20(t, "7e7d94d0ddc21d83bfbcfc7798e4547edf0832aa"))},
		{"p2sh_multisig", p2shMultisigSpendTxHex, NewP2SHAddress(mustHash20(t, "e9c3dd0c07aac76179ebc76a6c78d4d67c6c160a"))},
		{"p2sh_segwit", p2shSegwitSpendTxHex, NewP2SHAddress(mustHash20(t, "288873634ae24a3c9b6792cc7e2a084ec79ef68b"))},
		{"p2sh_segwit_sample", segwitTxHex, NewP2SHAddress(mustHash20(t, "2928f43af18d2d60e8a843540d8086b305341339"))},
		{"native_p2wpkh", multiInputTxHex, NewP2WPKHAddress(Hash160(mustHex(t, "03eec785a16054b40bfe15c287beca7f214f88742501fabbe18251502c0ea0588f")))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx, err := ParseTx(mustHex(t, tc.tx))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got, err := ExtractInputAddress(tx.Inputs[0])
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if got != tc.want {
				t.Fatalf("address: got=%s want=%s", got, tc.want)
			}
		})
	}
}

func TestExtractInputAddress_ScriptSigOnly(t *testing.T) {
	got, err := ExtractInputAddress(TxIn{SignatureScript: mustHex(t, "160014473ca3f4d726ce9c21af7cdc3fcc13264f681b04")})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if want := NewP2SHAddress(mustHash20(t, "068a6a2ec6be7d6e7aac1657445154c52db0cef8")); got != want {
		t.Fatalf("address: got=%s want=%s", got, want)
	}
}

func TestExtractInputAddress_Witness(t *testing.T) {
	redeem := mustHex(t, "5141042f90074d7a5bf30c72cf3a8dfd1381bdbd30407010e878f3a11269d5f74a58788505cdca22ea6eab7cfb40dc0e07aba200424ab0d79122a653ad0c7ec9896bdf51ae")
	got, err := ExtractInputAddress(TxIn{Witness: [][]byte{nil, {0x30, 0x01}, redeem}})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got.Kind != AddressP2WSHv0 {
		t.Fatalf("kind=%s want p2wsh_v0", got.Kind)
	}

	// 33 bytes that do not start with a compressed-key prefix are a script.
	notKey := append([]byte{0x04}, make([]byte, 32)...)
	got, err = ExtractInputAddress(TxIn{Witness: [][]byte{notKey}})
	if err != nil || got.Kind != AddressP2WSHv0 {
		t.Fatalf("got=%s err=%v", got, err)
	}

	_, err = ExtractInputAddress(TxIn{SignatureScript: []byte{OP_DUP}})
	requireCode(t, err, SCRIPT_ERR_UNSUPPORTED_INPUT)
}
