package storage

import (
	"bytes"
	"context"
	"errors"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("store closed")
)

// Engine names accepted by Open.
const (
	EngineBadger  = "badger"
	EngineLevelDB = "leveldb"
	EngineSQLite  = "sqlite"
	EngineMemory  = "memory"
)

// Reader is the read side of a transaction.
type Reader interface {
	// Get returns the value stored at key, or ErrKeyNotFound.
	// The returned slice is owned by the caller.
	Get(key []byte) ([]byte, error)

	// Has reports whether key exists.
	Has(key []byte) (bool, error)

	// Scan visits keys starting with prefix in ascending byte order.
	// fn returns false to stop iteration.
	Scan(prefix []byte, fn func(key, value []byte) bool) error

	// ScanFrom is Scan starting at the first key >= start. A start below
	// prefix scans the whole prefix.
	ScanFrom(prefix, start []byte, fn func(key, value []byte) bool) error
}

// Txn is a read-write transaction. Reads observe the transaction's own
// writes.
type Txn interface {
	Reader
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Store is a transactional key-value store.
//
// Update runs fn in a read-write transaction that commits if fn returns nil
// and is discarded otherwise. Callers that need serializable read-modify-write
// across concurrent Updates must serialize them.
type Store interface {
	View(ctx context.Context, fn func(r Reader) error) error
	Update(ctx context.Context, fn func(txn Txn) error) error
	Close() error
}

// Config selects and configures a store engine.
type Config struct {
	// Engine is one of "badger", "leveldb", "sqlite", "memory".
	// Default: "badger"
	Engine string

	// Dir is the data directory. Ignored by the memory engine.
	Dir string

	// SyncWrites forces an fsync on every commit.
	SyncWrites bool

	// Badger-specific configuration
	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int
}

// DefaultConfig returns the default store configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Engine:     EngineBadger,
		Dir:        dir,
		SyncWrites: true,
		Badger:     DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        64 << 20,  // 64MB
		ValueLogFileSize: 256 << 20, // 256MB
		NumMemtables:     2,
	}
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// seekKey returns where a prefix scan starting at start begins.
func seekKey(prefix, start []byte) []byte {
	if bytes.Compare(start, prefix) > 0 {
		return start
	}
	if prefix == nil {
		return []byte{}
	}
	return prefix
}
