package domain

import "strings"

// Principal identifies an actor that can approve registry calls: the
// administrator, a token owner or a buyer.
//
// The registry treats principals as opaque. The HTTP layer uses base58
// account addresses (see pkg/account); tests may use any non-empty string.
type Principal string

// String returns the principal as text.
func (p Principal) String() string {
	return string(p)
}

// IsZero reports whether the principal is empty.
func (p Principal) IsZero() bool {
	return p == ""
}

// Validate checks that the principal is usable as an identity.
func (p Principal) Validate() error {
	if p == "" {
		return ErrMissingArgument.WithDetails("principal is empty")
	}
	if strings.TrimSpace(string(p)) != string(p) {
		return ErrInvalidArgument.WithDetails("principal has surrounding whitespace")
	}
	return nil
}
