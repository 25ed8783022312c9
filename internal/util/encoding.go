package util

import (
	"encoding/base64"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns s in NFC form. Legacy pages occasionally emit decomposed
// Hangul which would otherwise compare unequal to composed literals.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

func Base64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func Base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
