package upstream

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// signParams computes the request signature the platform verifies: parameters
// serialized as key=value in ascending key order, joined with '&', suffixed
// with &key=<hmacKey>, then HMAC-SHA256 under the same key, hex encoded. The
// upstream compares the exact byte sequence, so ordering is load-bearing.
func signParams(params map[string]string, hmacKey string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	payload := strings.Join(pairs, "&") + "&key=" + hmacKey

	mac := hmac.New(sha256.New, []byte(hmacKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// zeroPad pads data to the block size with NUL bytes. A block-aligned payload
// gets no padding at all; that is the platform's scheme, not PKCS#7.
func zeroPad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	if padding == blockSize {
		return data
	}
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	return padded
}

// encryptEnvelope AES-CBC encrypts the JSON envelope with the session key
// material and base64-encodes the result for the x-encrypt-key header.
func encryptEnvelope(plaintext, aesKey, iv string) (string, error) {
	block, err := aes.NewCipher([]byte(aesKey))
	if err != nil {
		return "", fmt.Errorf("invalid AES key: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return "", fmt.Errorf("invalid IV length %d, want %d", len(iv), block.BlockSize())
	}

	padded := zeroPad([]byte(plaintext), block.BlockSize())
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(iv)).CryptBlocks(encrypted, padded)

	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// decryptEnvelope reverses encryptEnvelope, trimming the NUL padding.
func decryptEnvelope(encoded, aesKey, iv string) (string, error) {
	encrypted, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid base64: %w", err)
	}

	block, err := aes.NewCipher([]byte(aesKey))
	if err != nil {
		return "", fmt.Errorf("invalid AES key: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return "", fmt.Errorf("invalid IV length %d, want %d", len(iv), block.BlockSize())
	}
	if len(encrypted)%block.BlockSize() != 0 {
		return "", fmt.Errorf("ciphertext is not block-aligned")
	}

	decrypted := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, []byte(iv)).CryptBlocks(decrypted, encrypted)

	return strings.TrimRight(string(decrypted), "\x00"), nil
}
