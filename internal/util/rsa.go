package util

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"strings"
)

// ParseRSAPublicKeyPEM parses a PKIX "PUBLIC KEY" block.
func ParseRSAPublicKeyPEM(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not RSA", pub)
	}
	return rsaPub, nil
}

// WrapPublicKeyPEM arms a bare base64 key body the way the portal's JS
// client does before handing it to the PKI routine.
func WrapPublicKeyPEM(keyB64 string) string {
	return "-----BEGIN PUBLIC KEY-----\n" + strings.TrimSpace(keyB64) + "\n-----END PUBLIC KEY-----"
}

// EncryptRSAPKCS1v15 uses the supplied randomness source, falling back to
// crypto/rand when r is nil.
func EncryptRSAPKCS1v15(r io.Reader, pub *rsa.PublicKey, msg []byte) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	if limit := pub.Size() - 11; len(msg) > limit {
		return nil, fmt.Errorf("message too long for RSA key: %d > %d bytes", len(msg), limit)
	}
	out, err := rsa.EncryptPKCS1v15(r, pub, msg)
	if err != nil {
		return nil, fmt.Errorf("rsa encrypt: %w", err)
	}
	return out, nil
}
