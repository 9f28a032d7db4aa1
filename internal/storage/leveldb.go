package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore implements Store on goleveldb.
//
// Update buffers writes over the live database and commits them as a single
// leveldb.Batch. Updates are serialized by the store.
type LevelDBStore struct {
	db        *leveldb.DB
	writeOpts *ldb_opt.WriteOptions
	logger    *slog.Logger

	writeMu sync.Mutex
}

// NewLevelDBStore opens (or creates) a LevelDB database in cfg.Dir.
func NewLevelDBStore(cfg Config, logger *slog.Logger) (*LevelDBStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("leveldb: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: false,
	}
	db, err := leveldb.OpenFile(cfg.Dir, opt)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open db: %w", err)
	}

	logger.Info("leveldb store opened", "dir", cfg.Dir, "sync_writes", cfg.SyncWrites)

	return &LevelDBStore{
		db:        db,
		writeOpts: &ldb_opt.WriteOptions{Sync: cfg.SyncWrites},
		logger:    logger,
	}, nil
}

// View runs fn against a point-in-time snapshot.
func (s *LevelDBStore) View(ctx context.Context, fn func(r Reader) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return mapLevelDBError(err)
	}
	defer snap.Release()

	return fn(levelReader{src: snap})
}

// Update runs fn and writes its buffered changes as one batch.
func (s *LevelDBStore) Update(ctx context.Context, fn func(txn Txn) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	txn := newOverlayTxn(levelReader{src: s.db})
	if err := fn(txn); err != nil {
		return err
	}
	if len(txn.writes) == 0 {
		return nil
	}

	batch := new(leveldb.Batch)
	_ = txn.each(func(key []byte, w pendingWrite) error {
		if w.deleted {
			batch.Delete(key)
		} else {
			batch.Put(key, w.value)
		}
		return nil
	})
	if err := s.db.Write(batch, s.writeOpts); err != nil {
		return mapLevelDBError(err)
	}
	return nil
}

// Close closes the database.
func (s *LevelDBStore) Close() error {
	s.logger.Info("closing leveldb store")
	if err := s.db.Close(); err != nil {
		return mapLevelDBError(err)
	}
	return nil
}

// levelSource is satisfied by both *leveldb.DB and *leveldb.Snapshot.
type levelSource interface {
	Get(key []byte, ro *ldb_opt.ReadOptions) ([]byte, error)
	Has(key []byte, ro *ldb_opt.ReadOptions) (bool, error)
	NewIterator(slice *ldb_util.Range, ro *ldb_opt.ReadOptions) iterator.Iterator
}

type levelReader struct {
	src levelSource
}

func (r levelReader) Get(key []byte) ([]byte, error) {
	v, err := r.src.Get(key, nil)
	if err != nil {
		return nil, mapLevelDBError(err)
	}
	return v, nil
}

func (r levelReader) Has(key []byte) (bool, error) {
	ok, err := r.src.Has(key, nil)
	if err != nil {
		return false, mapLevelDBError(err)
	}
	return ok, nil
}

func (r levelReader) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	return r.ScanFrom(prefix, nil, fn)
}

func (r levelReader) ScanFrom(prefix, start []byte, fn func(key, value []byte) bool) error {
	rng := ldb_util.BytesPrefix(prefix)
	rng.Start = seekKey(prefix, start)
	iter := r.src.NewIterator(rng, nil)
	defer iter.Release()

	for iter.Next() {
		// Iterator buffers are reused between steps.
		key := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)
		if !fn(key, value) {
			break
		}
	}
	return mapLevelDBError(iter.Error())
}

func mapLevelDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, leveldb.ErrNotFound):
		return ErrKeyNotFound
	case errors.Is(err, leveldb.ErrClosed):
		return ErrClosed
	}
	return err
}
