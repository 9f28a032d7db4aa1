package account

import (
	"bytes"
	"crypto/rand"
	"errors"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"
)

const (
	checksumLength = 4

	// ed25519 algorithm in the high nibble, public key flag in the low bit
	ed25519KeyVariant = 0x11

	addressLength = 1 + ed25519.PublicKeySize + checksumLength
)

// Errors returned by address and signature handling.
var (
	ErrCannotDecodeAccount = errors.New("cannot decode account")
	ErrInvalidKeyType      = errors.New("invalid key type")
	ErrInvalidKeyLength    = errors.New("invalid key length")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrInvalidSignature    = errors.New("invalid signature")
)

// KeyPair is an ed25519 signing key with its account address.
type KeyPair struct {
	seed       []byte
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// GenerateKeyPair creates a new random key pair.
func GenerateKeyPair() (*KeyPair, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return KeyPairFromSeed(seed)
}

// KeyPairFromSeed derives the key pair for a 32-byte ed25519 seed.
func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, ErrInvalidKeyLength
	}
	privateKey := ed25519.NewKeyFromSeed(seed)
	return &KeyPair{
		seed:       append([]byte(nil), seed...),
		publicKey:  privateKey.Public().(ed25519.PublicKey),
		privateKey: privateKey,
	}, nil
}

// Address returns the base58 account address.
func (k *KeyPair) Address() string {
	return EncodeAddress(k.publicKey)
}

// PublicKey returns the ed25519 public key.
func (k *KeyPair) PublicKey() ed25519.PublicKey {
	return k.publicKey
}

// Seed returns the base58 encoded seed. Treat it as a secret.
func (k *KeyPair) Seed() string {
	return EncodeSeed(k.seed)
}

// Sign signs message with the private key.
func (k *KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(k.privateKey, message)
}

// EncodeAddress returns the base58 address of an ed25519 public key.
func EncodeAddress(publicKey ed25519.PublicKey) string {
	buf := make([]byte, 0, addressLength)
	buf = append(buf, ed25519KeyVariant)
	buf = append(buf, publicKey...)
	checksum := sha3.Sum256(buf)
	buf = append(buf, checksum[:checksumLength]...)
	return base58.Encode(buf)
}

// DecodeAddress validates an address and returns its public key.
func DecodeAddress(address string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) == 0 {
		return nil, ErrCannotDecodeAccount
	}
	if decoded[0] != ed25519KeyVariant {
		return nil, ErrInvalidKeyType
	}
	if len(decoded) != addressLength {
		return nil, ErrInvalidKeyLength
	}

	checksumStart := len(decoded) - checksumLength
	checksum := sha3.Sum256(decoded[:checksumStart])
	if !bytes.Equal(checksum[:checksumLength], decoded[checksumStart:]) {
		return nil, ErrChecksumMismatch
	}

	return ed25519.PublicKey(append([]byte(nil), decoded[1:checksumStart]...)), nil
}

// ValidAddress reports whether address decodes to an ed25519 account.
func ValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}

// Verify checks signature over message against the account's public key.
func Verify(address string, message, signature []byte) error {
	publicKey, err := DecodeAddress(address)
	if err != nil {
		return err
	}
	if len(signature) != ed25519.SignatureSize || !ed25519.Verify(publicKey, message, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// EncodeSignature renders a signature in base58.
func EncodeSignature(signature []byte) string {
	return base58.Encode(signature)
}

// DecodeSignature parses a base58 signature.
func DecodeSignature(s string) ([]byte, error) {
	sig, err := base58.Decode(s)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return nil, ErrInvalidSignature
	}
	return sig, nil
}
