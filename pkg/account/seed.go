package account

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"
)

var seedHeader = []byte{0x5a, 0xfe, 0x01}

const seedLength = 3 + ed25519.SeedSize + checksumLength

// ErrInvalidSeed indicates a seed string that does not decode.
var ErrInvalidSeed = errors.New("invalid seed")

// EncodeSeed renders a raw ed25519 seed in the base58 seed format.
func EncodeSeed(seed []byte) string {
	buf := make([]byte, 0, seedLength)
	buf = append(buf, seedHeader...)
	buf = append(buf, seed...)
	digest := sha3.Sum256(buf)
	buf = append(buf, digest[:checksumLength]...)
	return base58.Encode(buf)
}

// KeyPairFromBase58Seed decodes a seed produced by EncodeSeed.
func KeyPairFromBase58Seed(encoded string) (*KeyPair, error) {
	seed, err := base58.Decode(strings.TrimSpace(encoded))
	if err != nil || len(seed) != seedLength {
		return nil, ErrInvalidSeed
	}
	if !bytes.Equal(seed[:len(seedHeader)], seedHeader) {
		return nil, ErrInvalidSeed
	}

	checksumStart := len(seed) - checksumLength
	digest := sha3.Sum256(seed[:checksumStart])
	if !bytes.Equal(digest[:checksumLength], seed[checksumStart:]) {
		return nil, ErrChecksumMismatch
	}

	return KeyPairFromSeed(seed[len(seedHeader):checksumStart])
}

// SaveKeyFile writes the key pair's seed to path with owner-only
// permissions. An existing file is not overwritten.
func SaveKeyFile(path string, k *KeyPair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%s\n", k.Seed()); err != nil {
		f.Close()
		return fmt.Errorf("write key file: %w", err)
	}
	return f.Close()
}

// LoadKeyFile reads a seed written by SaveKeyFile.
func LoadKeyFile(path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return KeyPairFromBase58Seed(string(data))
}
