package util

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const (
	AESKeySize   = 32
	AESBlockSize = aes.BlockSize
)

// EncryptAESCBC encrypts plainText with AES-CBC after PKCS#7 padding. The key
// length selects AES-128/192/256.
func EncryptAESCBC(plainText, rawKey, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(rawKey)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("invalid IV size: got %d, want %d", len(iv), block.BlockSize())
	}

	padded := PKCS7Pad(plainText, block.BlockSize())
	cipherText := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(cipherText, padded)

	return cipherText, nil
}

func DecryptAESCBC(cipherText, rawKey, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(rawKey)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("invalid IV size: got %d, want %d", len(iv), block.BlockSize())
	}
	if len(cipherText) == 0 || len(cipherText)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("ciphertext is not a multiple of the block size")
	}

	plainText := make([]byte, len(cipherText))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plainText, cipherText)

	return PKCS7Unpad(plainText, block.BlockSize())
}

// PKCS7Pad always appends at least one byte of padding.
func PKCS7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(CopyBytes(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func PKCS7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(b))
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
