// Package domain defines the core domain models for afri-asset.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - Principal: opaque actor identity (owner, buyer, administrator)
//   - Amount: unsigned 128-bit value used for yield thresholds and escrow
//   - Token: the tokenized real-world-asset record
//   - Event: typed notifications emitted by registry mutations
//   - Errors: domain error catalogue with stable codes
package domain
