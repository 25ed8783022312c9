// Package crypto reproduces the hybrid RSA/AES routine the SSO gateway's
// browser client (bandiJS on top of forge) runs before submitting the login
// form. The parameters below are a compatibility contract with that client:
// they must not be "improved".
package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/jmcleod/mjuauth/autherr"
	"github.com/jmcleod/mjuauth/internal/util"
)

const (
	// DefaultKeyLength derives an AES-256 key.
	DefaultKeyLength = 32

	seedLength    = 64
	saltChars     = 16
	kdfIterations = 1024
	ivLength      = 16
)

// SessionKey is the one-time key material generated for a single login
// attempt. It is never cached or reused.
type SessionKey struct {
	// KeyString is base64(64 random bytes); it is sent to the gateway inside
	// the RSA envelope.
	KeyString string
	Key       []byte
	IV        []byte
}

// GenerateSessionKey draws fresh randomness from crypto/rand.
func GenerateSessionKey(length int) (*SessionKey, error) {
	return GenerateSessionKeyFrom(rand.Reader, length)
}

// GenerateSessionKeyFrom reads the 64-byte seed from r, which lets tests
// pin the seed.
func GenerateSessionKeyFrom(r io.Reader, length int) (*SessionKey, error) {
	seed, err := util.RandomBytesFrom(r, seedLength)
	if err != nil {
		return nil, autherr.Crypto("generating session key seed", err)
	}
	defer util.WipeBytes(seed)

	return DeriveSessionKey(util.Base64Encode(seed), length)
}

// DeriveSessionKey derives the AES key and IV from an existing key string:
// PBKDF2-HMAC-SHA1, 1024 iterations, salt = last 16 characters of the key
// string, IV = last 16 bytes of the derived key.
func DeriveSessionKey(keyString string, length int) (*SessionKey, error) {
	if length < ivLength {
		return nil, autherr.Crypto(fmt.Sprintf("session key length %d is shorter than the IV", length), nil)
	}
	if len(keyString) < saltChars {
		return nil, autherr.Crypto("session key string too short", nil)
	}

	salt := keyString[len(keyString)-saltChars:]
	key, err := util.PBKDF2SHA1([]byte(keyString), []byte(salt), kdfIterations, length)
	if err != nil {
		return nil, autherr.Crypto("deriving session key", err)
	}

	return &SessionKey{
		KeyString: keyString,
		Key:       key,
		IV:        util.LastN(key, ivLength),
	}, nil
}

// Wipe zeroes the derived key and IV.
func (k *SessionKey) Wipe() {
	if k == nil {
		return
	}
	util.WipeBytes(k.Key)
	util.WipeBytes(k.IV)
}
