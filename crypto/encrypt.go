package crypto

import (
	"io"

	"github.com/jmcleod/mjuauth/autherr"
	"github.com/jmcleod/mjuauth/internal/util"
)

// EncryptWithRSA encrypts plaintext with the gateway's base64 public key
// using PKCS#1 v1.5 padding and returns the base64 ciphertext.
func EncryptWithRSA(plaintext, publicKeyB64 string) (string, error) {
	return EncryptWithRSAFrom(nil, plaintext, publicKeyB64)
}

// EncryptWithRSAFrom is EncryptWithRSA with an explicit padding randomness
// source.
func EncryptWithRSAFrom(r io.Reader, plaintext, publicKeyB64 string) (string, error) {
	pub, err := util.ParseRSAPublicKeyPEM(util.WrapPublicKeyPEM(publicKeyB64))
	if err != nil {
		return "", autherr.Crypto("loading RSA public key", err)
	}

	out, err := util.EncryptRSAPKCS1v15(r, pub, []byte(plaintext))
	if err != nil {
		return "", autherr.Crypto("RSA encryption failed", err)
	}
	return util.Base64Encode(out), nil
}

// EncryptWithAES base64-encodes plaintext (the client double-encodes), then
// encrypts it with AES-CBC under the session key and returns base64.
func EncryptWithAES(plaintext string, key *SessionKey) (string, error) {
	if key == nil {
		return "", autherr.Crypto("missing session key", nil)
	}

	input := []byte(util.Base64Encode([]byte(plaintext)))
	out, err := util.EncryptAESCBC(input, key.Key, key.IV)
	if err != nil {
		return "", autherr.Crypto("AES encryption failed", err)
	}
	return util.Base64Encode(out), nil
}

// DecryptWithAES reverses EncryptWithAES.
func DecryptWithAES(cipherTextB64 string, key *SessionKey) (string, error) {
	if key == nil {
		return "", autherr.Crypto("missing session key", nil)
	}

	raw, err := util.Base64Decode(cipherTextB64)
	if err != nil {
		return "", autherr.Crypto("decoding ciphertext", err)
	}
	inner, err := util.DecryptAESCBC(raw, key.Key, key.IV)
	if err != nil {
		return "", autherr.Crypto("AES decryption failed", err)
	}
	plain, err := util.Base64Decode(string(inner))
	if err != nil {
		return "", autherr.Crypto("decoding plaintext", err)
	}
	return string(plain), nil
}
