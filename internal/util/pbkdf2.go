package util

import (
	"crypto/sha1"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2SHA1 derives keyLen bytes with PBKDF2-HMAC-SHA1, the default digest
// of the forge library used by the portal's browser client.
func PBKDF2SHA1(password, salt []byte, iterations, keyLen int) ([]byte, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("pbkdf2: iterations must be positive")
	}
	if keyLen <= 0 {
		return nil, fmt.Errorf("pbkdf2: key length must be positive")
	}
	return pbkdf2.Key(password, salt, iterations, keyLen, sha1.New), nil
}
