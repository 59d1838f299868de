package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"os/user"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

const (
	// pbkdf2Iterations is the PBKDF2 iteration count for the token
	// sealing key.
	pbkdf2Iterations = 600_000

	// sealKeyLen is the derived key length in bytes (AES-256).
	sealKeyLen = 32

	// sealSalt is a fixed application salt. Key uniqueness comes from
	// the machine+user identity, not the salt; the salt only separates
	// this application's key space from other PBKDF2 users.
	sealSalt = "xero-mcp-token-store"
)

// deriveSealKey derives the AES-256 token sealing key from an identity
// string using PBKDF2-SHA256. The identity is normalized to NFKC before
// hashing so equivalent Unicode spellings derive the same key.
func deriveSealKey(identity string) []byte {
	identity = norm.NFKC.String(identity)

	return pbkdf2.Key([]byte(identity), []byte(sealSalt), pbkdf2Iterations, sealKeyLen, sha256.New)
}

// machineIdentity builds the deterministic key-derivation input from
// the host and user. Tokens sealed on one machine/user combination are
// unreadable on any other, which surfaces as a load miss rather than an
// error.
func machineIdentity() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "xero-mcp"
	}

	username := ""
	if u, err := user.Current(); err == nil {
		username = u.Uid + ":" + u.Username
	}

	return hostname + "/" + username
}

// seal encrypts plaintext with AES-256-GCM using a random nonce.
// Output format: [12-byte nonce][ciphertext+GCM tag].
func seal(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	result := make([]byte, len(nonce)+len(ciphertext))
	copy(result, nonce)
	copy(result[len(nonce):], ciphertext)

	return result, nil
}

// open decrypts a sealed record. Format: [12-byte nonce][ciphertext+tag].
func open(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("sealed record too short: %d bytes", len(data))
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	return plaintext, nil
}
