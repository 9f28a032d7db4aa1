package domain

import (
	"strconv"
)

// TokenID is the sequential identifier assigned by mint, starting at 0.
type TokenID uint64

// String returns the decimal form of the id.
func (id TokenID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseTokenID parses a decimal token id.
func ParseTokenID(s string) (TokenID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidArgument.WithDetails("invalid token id: " + s)
	}
	return TokenID(v), nil
}

// Token is the persisted record of a tokenized real-world asset.
//
// Records are created by mint and never deleted. Burn clears IsActive and
// leaves Owner as it was.
type Token struct {
	ID        TokenID   `json:"token_id"`
	IPFSHash  string    `json:"ipfs_hash"`
	Owner     Principal `json:"owner"`
	YieldData Amount    `json:"yield_data"`
	IsActive  bool      `json:"is_active"`
}

// Clone returns a copy of the token.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// MintRequest carries the inputs of a mint call.
type MintRequest struct {
	IPFSHash  string    `json:"ipfs_hash"`
	Owner     Principal `json:"owner"`
	YieldData Amount    `json:"yield_data"`
}

// Validate checks the request shape. The content reference is free-form.
func (r *MintRequest) Validate() error {
	if err := r.Owner.Validate(); err != nil {
		return err
	}
	return nil
}

// TokenFilter narrows a token listing.
type TokenFilter struct {
	Owner      Principal // empty matches any owner
	ActiveOnly bool
}

// Match reports whether t passes the filter.
func (f TokenFilter) Match(t *Token) bool {
	if f.Owner != "" && t.Owner != f.Owner {
		return false
	}
	if f.ActiveOnly && !t.IsActive {
		return false
	}
	return true
}
