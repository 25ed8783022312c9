package util

func CopyBytes(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

// WipeBytes best-effort zeroes the provided byte slice in place.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// LastN returns the trailing n bytes of b, or all of b when it is shorter.
func LastN(b []byte, n int) []byte {
	if n >= len(b) {
		return CopyBytes(b)
	}
	return CopyBytes(b[len(b)-n:])
}
