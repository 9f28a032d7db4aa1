package domain

import (
	"encoding/binary"
	"encoding/json"
	"math/big"
	"math/bits"
)

// AmountSize is the length of an Amount's binary encoding.
const AmountSize = 16

// Amount is an unsigned 128-bit quantity. The registry uses it for a token's
// yield threshold and for declared escrow values.
//
// The zero value is 0.
type Amount struct {
	hi, lo uint64
}

// MaxAmount is 2^128 - 1.
var MaxAmount = Amount{hi: ^uint64(0), lo: ^uint64(0)}

// NewAmount returns an Amount holding v.
func NewAmount(v uint64) Amount {
	return Amount{lo: v}
}

// AmountFromParts builds an Amount from its high and low 64-bit halves.
func AmountFromParts(hi, lo uint64) Amount {
	return Amount{hi: hi, lo: lo}
}

// ParseAmount parses a base-10 string of digits.
// Signs, separators and values above MaxAmount are rejected.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, ErrInvalidArgument.WithDetails("amount is empty")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Amount{}, ErrInvalidArgument.WithDetails("amount must be a non-negative decimal integer: " + s)
		}
	}

	// Fast path for values that fit in 64 bits.
	if len(s) <= 19 {
		var v uint64
		for i := 0; i < len(s); i++ {
			v = v*10 + uint64(s[i]-'0')
		}
		return NewAmount(v), nil
	}

	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, ErrInvalidArgument.WithDetails("amount is not a decimal integer: " + s)
	}
	if n.BitLen() > 128 {
		return Amount{}, ErrInvalidArgument.WithDetails("amount exceeds 128 bits: " + s)
	}
	var buf [AmountSize]byte
	n.FillBytes(buf[:])
	return AmountFromBytes(buf[:])
}

// MustParseAmount is like ParseAmount but panics on error.
// Intended for tests and constants.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromBytes decodes the 16-byte big-endian encoding produced by Bytes.
func AmountFromBytes(b []byte) (Amount, error) {
	if len(b) != AmountSize {
		return Amount{}, ErrInvalidArgument.WithDetails("amount encoding must be 16 bytes")
	}
	return Amount{
		hi: binary.BigEndian.Uint64(b[:8]),
		lo: binary.BigEndian.Uint64(b[8:]),
	}, nil
}

// Bytes returns the 16-byte big-endian encoding.
func (a Amount) Bytes() []byte {
	b := make([]byte, AmountSize)
	binary.BigEndian.PutUint64(b[:8], a.hi)
	binary.BigEndian.PutUint64(b[8:], a.lo)
	return b
}

// Parts returns the high and low 64-bit halves.
func (a Amount) Parts() (hi, lo uint64) {
	return a.hi, a.lo
}

// IsZero reports whether a is 0.
func (a Amount) IsZero() bool {
	return a.hi == 0 && a.lo == 0
}

// Cmp returns -1, 0 or +1 depending on whether a is less than, equal to or
// greater than b.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.hi < b.hi:
		return -1
	case a.hi > b.hi:
		return 1
	case a.lo < b.lo:
		return -1
	case a.lo > b.lo:
		return 1
	}
	return 0
}

// Less reports whether a < b.
func (a Amount) Less(b Amount) bool {
	return a.Cmp(b) < 0
}

// Add returns a+b and whether the sum overflowed 128 bits.
func (a Amount) Add(b Amount) (Amount, bool) {
	lo, carry := bits.Add64(a.lo, b.lo, 0)
	hi, carry := bits.Add64(a.hi, b.hi, carry)
	return Amount{hi: hi, lo: lo}, carry != 0
}

// Big returns a as a big.Int.
func (a Amount) Big() *big.Int {
	return new(big.Int).SetBytes(a.Bytes())
}

// String returns the base-10 representation.
func (a Amount) String() string {
	if a.hi == 0 {
		return uitoa(a.lo)
	}
	return a.Big().String()
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// MarshalJSON encodes the amount as a quoted decimal string, since 128-bit
// values do not survive float64 JSON decoders.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalYAML renders the amount as its decimal string.
func (a Amount) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	v, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
