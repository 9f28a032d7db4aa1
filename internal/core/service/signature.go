package service

import (
	"context"
	"fmt"
	"time"

	"github.com/big14way/afri-asset/internal/core/domain"
	"github.com/big14way/afri-asset/pkg/account"
)

// SignatureVerifierConfig holds configuration for SignatureVerifier.
type SignatureVerifierConfig struct {
	// TimestampWindow is the acceptable clock deviation (default: ±30s).
	TimestampWindow time.Duration

	// NonceTTL is how long a nonce is remembered (default: 2x window).
	NonceTTL time.Duration

	// NonceCacheSize is the maximum number of nonces remembered (default: 100,000).
	NonceCacheSize int

	// MaxSignatures bounds the signatures accepted on one request (default: 4).
	MaxSignatures int
}

// DefaultSignatureVerifierConfig returns default configuration.
func DefaultSignatureVerifierConfig() *SignatureVerifierConfig {
	return &SignatureVerifierConfig{
		TimestampWindow: 30 * time.Second,
		NonceTTL:        60 * time.Second,
		NonceCacheSize:  100000,
		MaxSignatures:   4,
	}
}

// SignedRequest is the signable view of an incoming call.
type SignedRequest struct {
	Method     string
	Path       string
	Timestamp  int64 // Unix milliseconds
	Nonce      string
	Body       []byte
	Signatures []string // "<address>:<base58 signature>" values
}

// SignatureVerifier checks request signatures and returns the principals
// that approved the request.
type SignatureVerifier struct {
	nonces        *NonceCache
	window        time.Duration
	maxSignatures int
	now           func() time.Time
}

// NewSignatureVerifier creates a verifier. A nil config uses defaults.
func NewSignatureVerifier(cfg *SignatureVerifierConfig) *SignatureVerifier {
	def := DefaultSignatureVerifierConfig()
	if cfg == nil {
		cfg = def
	}
	window := cfg.TimestampWindow
	if window <= 0 {
		window = def.TimestampWindow
	}
	ttl := cfg.NonceTTL
	if ttl <= 0 {
		ttl = 2 * window
	}
	size := cfg.NonceCacheSize
	if size <= 0 {
		size = def.NonceCacheSize
	}
	maxSigs := cfg.MaxSignatures
	if maxSigs <= 0 {
		maxSigs = def.MaxSignatures
	}

	return &SignatureVerifier{
		nonces:        NewNonceCache(size, ttl),
		window:        window,
		maxSignatures: maxSigs,
		now:           time.Now,
	}
}

// Verify checks every signature on req and returns the signing principals.
// A request without signatures yields no approvals and no error.
// The nonce is recorded only after every signature verifies.
func (v *SignatureVerifier) Verify(_ context.Context, req *SignedRequest) ([]domain.Principal, error) {
	if len(req.Signatures) == 0 {
		return nil, nil
	}
	if len(req.Signatures) > v.maxSignatures {
		return nil, domain.ErrBadRequest.WithDetails(fmt.Sprintf("at most %d signatures allowed", v.maxSignatures))
	}
	if req.Nonce == "" || req.Timestamp == 0 {
		return nil, domain.ErrSignatureMissing.WithDetails("timestamp and nonce are required on signed requests")
	}

	if err := v.checkTimestamp(req.Timestamp); err != nil {
		return nil, err
	}

	digest := account.RequestDigest(req.Method, req.Path, req.Timestamp, req.Nonce, req.Body)
	principals := make([]domain.Principal, 0, len(req.Signatures))
	for _, header := range req.Signatures {
		address, sig, err := account.ParseSignatureHeader(header)
		if err != nil {
			return nil, domain.ErrSignatureInvalid.WithDetails("malformed signature header")
		}
		if !account.ValidAddress(address) {
			return nil, domain.ErrPrincipalInvalid.WithDetails(address)
		}
		if err := account.Verify(address, digest, sig); err != nil {
			return nil, domain.ErrSignatureInvalid.WithDetails("signature by " + address + " does not verify")
		}
		principals = append(principals, domain.Principal(address))
	}

	if !v.nonces.AddIfAbsent(req.Nonce) {
		return nil, domain.ErrNonceReplay.WithDetails("nonce has been used before")
	}
	return principals, nil
}

func (v *SignatureVerifier) checkTimestamp(ts int64) error {
	diff := v.now().UnixMilli() - ts
	if diff < 0 {
		diff = -diff
	}
	if diff > v.window.Milliseconds() {
		return domain.ErrTimestampSkew.WithDetails("timestamp outside acceptable window")
	}
	return nil
}
