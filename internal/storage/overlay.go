package storage

import (
	"bytes"
	"errors"
	"sort"
)

var errEmptyKey = errors.New("empty key")

// pendingWrite is a buffered Set or Delete.
type pendingWrite struct {
	value   []byte
	deleted bool
}

// overlayTxn buffers writes over a base Reader. Reads see buffered writes
// first. Engines without native read-your-writes transactions commit the
// buffer as one batch.
type overlayTxn struct {
	base   Reader
	writes map[string]pendingWrite
}

func newOverlayTxn(base Reader) *overlayTxn {
	return &overlayTxn{
		base:   base,
		writes: make(map[string]pendingWrite),
	}
}

func (t *overlayTxn) Get(key []byte) ([]byte, error) {
	if w, ok := t.writes[string(key)]; ok {
		if w.deleted {
			return nil, ErrKeyNotFound
		}
		return bytes.Clone(w.value), nil
	}
	return t.base.Get(key)
}

func (t *overlayTxn) Has(key []byte) (bool, error) {
	if w, ok := t.writes[string(key)]; ok {
		return !w.deleted, nil
	}
	return t.base.Has(key)
}

func (t *overlayTxn) Set(key, value []byte) error {
	if len(key) == 0 {
		return errEmptyKey
	}
	t.writes[string(key)] = pendingWrite{value: bytes.Clone(value)}
	return nil
}

func (t *overlayTxn) Delete(key []byte) error {
	t.writes[string(key)] = pendingWrite{deleted: true}
	return nil
}

// Scan merges buffered writes into the base scan, preserving key order.
func (t *overlayTxn) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	return t.ScanFrom(prefix, nil, fn)
}

// ScanFrom is Scan starting at the first key >= start.
func (t *overlayTxn) ScanFrom(prefix, start []byte, fn func(key, value []byte) bool) error {
	seek := string(seekKey(prefix, start))
	pending := make([]string, 0)
	for k := range t.writes {
		if bytes.HasPrefix([]byte(k), prefix) && k >= seek {
			pending = append(pending, k)
		}
	}
	sort.Strings(pending)

	stopped := false
	// emitPending flushes buffered keys ordered before limit (all if nil).
	emitPending := func(limit []byte) bool {
		for len(pending) > 0 {
			k := pending[0]
			if limit != nil && k >= string(limit) {
				return true
			}
			pending = pending[1:]
			w := t.writes[k]
			if w.deleted {
				continue
			}
			if !fn([]byte(k), bytes.Clone(w.value)) {
				return false
			}
		}
		return true
	}

	err := t.base.ScanFrom(prefix, start, func(key, value []byte) bool {
		if !emitPending(key) {
			stopped = true
			return false
		}
		if _, overridden := t.writes[string(key)]; overridden {
			// Emitted (or suppressed) from the buffer.
			if len(pending) > 0 && pending[0] == string(key) {
				if !emitPending(append(bytes.Clone(key), 0)) {
					stopped = true
					return false
				}
			}
			return true
		}
		if !fn(key, value) {
			stopped = true
			return false
		}
		return true
	})
	if err != nil || stopped {
		return err
	}
	emitPending(nil)
	return nil
}

// each visits buffered writes in key order.
func (t *overlayTxn) each(fn func(key []byte, w pendingWrite) error) error {
	keys := make([]string, 0, len(t.writes))
	for k := range t.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), t.writes[k]); err != nil {
			return err
		}
	}
	return nil
}
