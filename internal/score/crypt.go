package score

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
)

// keyPrefix pads the client version into a full AES key.
const keyPrefix = "osu!-scoreburgr---------"

// Decrypt decodes and decrypts the submitted score record. The key is
// the UTF-8 bytes of the prefix plus the client's osuver field; the
// ciphertext and IV arrive base64-encoded, CBC mode with zero padding.
func Decrypt(osuver, scoreB64, ivB64 string) (string, error) {
	key := []byte(keyPrefix + osuver)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("building cipher for version %q: %w", osuver, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(scoreB64)
	if err != nil {
		return "", fmt.Errorf("decoding score ciphertext: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return "", fmt.Errorf("decoding iv: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("iv is %d bytes, want %d", len(iv), aes.BlockSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a block multiple", len(ciphertext))
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	return string(bytes.TrimRight(plain, "\x00")), nil
}

// Encrypt is the inverse of Decrypt, used by tests to fabricate
// submissions.
func Encrypt(osuver, plaintext, ivB64 string) (string, error) {
	key := []byte(keyPrefix + osuver)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("building cipher for version %q: %w", osuver, err)
	}
	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return "", fmt.Errorf("decoding iv: %w", err)
	}

	padded := []byte(plaintext)
	if rem := len(padded) % aes.BlockSize; rem != 0 {
		padded = append(padded, make([]byte, aes.BlockSize-rem)...)
	}
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}
