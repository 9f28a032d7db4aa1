package storage

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemoryStore is a volatile Store. Updates are serialized; Views run
// concurrently with each other.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// View runs fn against the current contents.
func (s *MemoryStore) View(ctx context.Context, fn func(r Reader) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn(memoryReader{data: s.data})
}

// Update buffers fn's writes and applies them only if fn succeeds.
func (s *MemoryStore) Update(ctx context.Context, fn func(txn Txn) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	txn := newOverlayTxn(memoryReader{data: s.data})
	if err := fn(txn); err != nil {
		return err
	}
	return txn.each(func(key []byte, w pendingWrite) error {
		if w.deleted {
			delete(s.data, string(key))
		} else {
			s.data[string(key)] = w.value
		}
		return nil
	})
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close drops the contents. Later calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

type memoryReader struct {
	data map[string][]byte
}

func (r memoryReader) Get(key []byte) ([]byte, error) {
	v, ok := r.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

func (r memoryReader) Has(key []byte) (bool, error) {
	_, ok := r.data[string(key)]
	return ok, nil
}

func (r memoryReader) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	return r.ScanFrom(prefix, nil, fn)
}

func (r memoryReader) ScanFrom(prefix, start []byte, fn func(key, value []byte) bool) error {
	seek := string(seekKey(prefix, start))
	keys := make([]string, 0)
	for k := range r.data {
		if bytes.HasPrefix([]byte(k), prefix) && k >= seek {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !fn([]byte(k), bytes.Clone(r.data[k])) {
			break
		}
	}
	return nil
}
