package consensus

// maxIntAsUint64 returns the maximum value representable by the built-in int type, expressed as a uint64.
func maxIntAsUint64() uint64 {
	return uint64(^uint(0) >> 1)
}

// toIntLen converts a decoded length to int, failing with PARSE_ERR_EOF when it cannot be addressed.
func toIntLen(v uint64, name string) (int, error) {
	if v > maxIntAsUint64() {
		return 0, cerrf(PARSE_ERR_EOF, "%s overflows int", name)
	}
	// #nosec G115 -- v is bounded to int by maxIntAsUint64 above.
	return int(v), nil
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}
