package service

import (
	"encoding/binary"

	"github.com/big14way/afri-asset/internal/core/domain"
)

// Key prefixes. Each is a single byte; ids and sequence numbers follow as
// 8-byte big-endian integers so that prefix scans return them in order.
const (
	prefixAdmin    = 'A'
	prefixCounter  = 'C'
	prefixToken    = 'T'
	prefixEscrow   = 'E'
	prefixEventSeq = 'S'
	prefixEvent    = 'L'
)

var (
	keyAdmin    = []byte{prefixAdmin}
	keyCounter  = []byte{prefixCounter}
	keyEventSeq = []byte{prefixEventSeq}

	tokenScanPrefix = []byte{prefixToken}
	eventScanPrefix = []byte{prefixEvent}
)

func tokenKey(id domain.TokenID) []byte {
	return uint64Key(prefixToken, uint64(id))
}

func escrowKey(id domain.TokenID) []byte {
	return uint64Key(prefixEscrow, uint64(id))
}

func eventKey(seq uint64) []byte {
	return uint64Key(prefixEvent, seq)
}

func uint64Key(prefix byte, v uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], v)
	return key
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, domain.ErrStorageError.WithDetails("corrupt counter value")
	}
	return binary.BigEndian.Uint64(b), nil
}
