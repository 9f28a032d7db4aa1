package account

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Signing header names.
const (
	HeaderTimestamp = "X-Afri-Timestamp"
	HeaderNonce     = "X-Afri-Nonce"
	HeaderSignature = "X-Afri-Signature"
)

const digestDomain = "AFRI-ASSET-V1"

// NonceLength is the default nonce length in bytes.
const NonceLength = 16

// NewNonce returns a random base64 RawURL nonce.
func NewNonce() (string, error) {
	b := make([]byte, NonceLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RequestDigest returns the SHA3-256 digest that request signatures cover.
//
// The digest input is the newline-joined domain tag, upper-cased method,
// path, decimal Unix-millisecond timestamp, nonce and hex SHA3-256 of body.
func RequestDigest(method, path string, timestamp int64, nonce string, body []byte) []byte {
	bodyHash := sha3.Sum256(body)
	msg := strings.Join([]string{
		digestDomain,
		strings.ToUpper(method),
		path,
		strconv.FormatInt(timestamp, 10),
		nonce,
		hex.EncodeToString(bodyHash[:]),
	}, "\n")
	digest := sha3.Sum256([]byte(msg))
	return digest[:]
}

// SignatureHeader formats one X-Afri-Signature value: "<address>:<base58 sig>".
func (k *KeyPair) SignatureHeader(digest []byte) string {
	return k.Address() + ":" + EncodeSignature(k.Sign(digest))
}

// ParseSignatureHeader splits a signature header value.
func ParseSignatureHeader(value string) (address string, signature []byte, err error) {
	address, encoded, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || address == "" || encoded == "" {
		return "", nil, ErrInvalidSignature
	}
	signature, err = DecodeSignature(encoded)
	if err != nil {
		return "", nil, err
	}
	return address, signature, nil
}
