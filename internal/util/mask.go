package util

// Mask keeps the first four characters of s for log output.
func Mask(s string) string {
	const visible = 4
	r := []rune(s)
	if len(r) <= visible {
		return "****"
	}
	return string(r[:visible]) + "****"
}
