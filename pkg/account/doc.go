// Package account provides ed25519 account keys, base58 addresses and the
// request signing scheme used between afri-asset clients and the server.
//
// Address format:
//
//   - 1 byte key variant (0x11: ed25519 public key)
//   - 32 bytes ed25519 public key
//   - 4 bytes checksum: first bytes of SHA3-256 over variant and key
//   - the whole encoded in base58
//
// Seed format:
//
//   - 3 byte header (0x5a 0xfe 0x01)
//   - 32 byte ed25519 seed
//   - 4 byte SHA3-256 checksum
//   - the whole encoded in base58
//
// Signed requests cover a SHA3-256 digest of the method, path, timestamp,
// nonce and body hash (see RequestDigest).
package account
