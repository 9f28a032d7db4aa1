// Package storage provides the transactional key-value stores behind the
// afri-asset registry.
//
// Every engine implements Store: read-only View transactions and atomic
// Update transactions over byte keys, with ordered prefix scans.
//
// Engines:
//
//   - badger: default on-disk engine, with background value-log GC
//   - leveldb: goleveldb, batched commits over a snapshot
//   - sqlite: single kv table in an embedded SQLite database
//   - memory: volatile, for tests and throwaway runs
package storage
