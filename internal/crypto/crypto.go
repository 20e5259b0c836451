// Package crypto implements the at-rest encryption for key values:
// AES-256-CBC with PKCS#7 padding, framed as base64(hex(iv) + hex(ciphertext)).
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	keyLength   = 32 // AES-256
	ivLength    = aes.BlockSize
	ivHexLength = ivLength * 2
)

// ErrDecryption is returned when a ciphertext is malformed or was produced
// with a different key. Callers on the read path substitute a placeholder
// rather than failing the whole response.
var ErrDecryption = errors.New("decryption failed")

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - (len(data) % blockSize)
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded data length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.New("invalid pkcs7 padding size")
	}
	for _, b := range data[len(data)-padding:] {
		if b != byte(padding) {
			return nil, errors.New("inconsistent pkcs7 padding bytes")
		}
	}
	return data[:len(data)-padding], nil
}

// Encrypt encrypts plainText under key with a random IV.
func Encrypt(plainText string, key []byte) (string, error) {
	if len(key) != keyLength {
		return "", fmt.Errorf("invalid key length: must be %d bytes for AES-256", keyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pkcs7Pad([]byte(plainText), aes.BlockSize)
	cipherText := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(cipherText, padded)

	combined := hex.EncodeToString(iv) + hex.EncodeToString(cipherText)
	return base64.StdEncoding.EncodeToString([]byte(combined)), nil
}

// Decrypt reverses Encrypt. Any framing or padding problem yields an error
// wrapping ErrDecryption.
func Decrypt(cipherTextBase64 string, key []byte) (string, error) {
	if len(key) != keyLength {
		return "", fmt.Errorf("invalid key length: must be %d bytes for AES-256", keyLength)
	}

	decoded, err := base64.StdEncoding.DecodeString(cipherTextBase64)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64 framing: %v", ErrDecryption, err)
	}

	combined := string(decoded)
	if len(combined) < ivHexLength {
		return "", fmt.Errorf("%w: ciphertext too short to contain IV", ErrDecryption)
	}

	iv, err := hex.DecodeString(combined[:ivHexLength])
	if err != nil {
		return "", fmt.Errorf("%w: invalid IV encoding: %v", ErrDecryption, err)
	}

	cipherText, err := hex.DecodeString(combined[ivHexLength:])
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding: %v", ErrDecryption, err)
	}
	if len(cipherText) == 0 || len(cipherText)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrDecryption)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	padded := make([]byte, len(cipherText))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, cipherText)

	plain, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(plain), nil
}
