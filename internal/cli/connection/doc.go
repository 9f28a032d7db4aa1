// Package connection is the afriasset-cli HTTP client.
//
// Mutating calls are signed with the caller's ed25519 key: the client adds
// the X-Afri-Timestamp, X-Afri-Nonce and X-Afri-Signature headers covering
// the method, request URI and body. Responses are unwrapped from the
// standard envelope; error envelopes become *APIError values.
package connection
