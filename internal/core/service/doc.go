// Package service provides the afri-asset registry service.
//
// RegistryService owns the registry state (administrator, token counter,
// token records, escrow records and the event log) kept in a storage.Store,
// and exposes the operation set: initialize, mint, transfer, trade, burn and
// the read accessors.
//
// Collaborators are injected:
//
//   - Authorizer: answers "has principal P approved this call?"
//   - Publisher: receives each event after its mutation commits
//   - Observer: receives per-operation outcome and latency
//
// SignatureVerifier and NonceCache turn signed requests into approvals for
// the context-based authorizer.
package service
