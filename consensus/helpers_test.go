package consensus

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

// mustHash parses a hash in display (reversed) order.
func mustHash(t *testing.T, s string) chainhash.Hash {
	t.Helper()
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		t.Fatalf("bad hash %q: %v", s, err)
	}
	return *h
}

func mustHash20(t *testing.T, s string) [20]byte {
	t.Helper()
	b := mustHex(t, s)
	if len(b) != 20 {
		t.Fatalf("want 20 bytes, got %d", len(b))
	}
	var out [20]byte
	copy(out[:], b)
	return out
}

func requireCode(t *testing.T, err error, want ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want)
	}
	got, ok := CodeOf(err)
	if !ok {
		t.Fatalf("expected %s, got untyped error %v", want, err)
	}
	if got != want {
		t.Fatalf("code mismatch: got=%s want=%s (%v)", got, want, err)
	}
}
