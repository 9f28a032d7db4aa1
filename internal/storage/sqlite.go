package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const sqliteFileName = "afriasset.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key   BLOB PRIMARY KEY,
	value BLOB NOT NULL
) WITHOUT ROWID
`

// SQLiteStore implements Store as a single kv table in an embedded SQLite
// database. Updates are serialized by the store and run in one SQL
// transaction each.
type SQLiteStore struct {
	sqlDB  *sql.DB
	logger *slog.Logger

	writeMu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database file inside cfg.Dir.
func NewSQLiteStore(cfg Config, logger *slog.Logger) (*SQLiteStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("sqlite: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}

	synchronous := "NORMAL"
	if cfg.SyncWrites {
		synchronous = "FULL"
	}
	path := filepath.Join(filepath.Clean(cfg.Dir), sqliteFileName)
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(" + synchronous + ")"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: ping db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	logger.Info("sqlite store opened", "path", path, "synchronous", synchronous)

	return &SQLiteStore{sqlDB: sqlDB, logger: logger}, nil
}

// View runs fn inside a transaction that is always rolled back.
func (s *SQLiteStore) View(ctx context.Context, fn func(r Reader) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteError(err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(&sqliteTxn{ctx: ctx, tx: tx})
}

// Update runs fn inside a SQL transaction and commits if fn succeeds.
func (s *SQLiteStore) Update(ctx context.Context, fn func(txn Txn) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteError(err)
	}
	if err := fn(&sqliteTxn{ctx: ctx, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", mapSQLiteError(err))
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	s.logger.Info("closing sqlite store")
	return s.sqlDB.Close()
}

type sqliteTxn struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqliteTxn) Get(key []byte) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRowContext(t.ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (t *sqliteTxn) Has(key []byte) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(t.ctx, `SELECT 1 FROM kv WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapSQLiteError(err)
	}
	return true, nil
}

func (t *sqliteTxn) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	return t.ScanFrom(prefix, nil, fn)
}

func (t *sqliteTxn) ScanFrom(prefix, start []byte, fn func(key, value []byte) bool) error {
	var (
		rows *sql.Rows
		err  error
	)
	seek := seekKey(prefix, start)
	if limit := prefixUpperBound(prefix); limit != nil {
		rows, err = t.tx.QueryContext(t.ctx,
			`SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key`, seek, limit)
	} else {
		rows, err = t.tx.QueryContext(t.ctx,
			`SELECT key, value FROM kv WHERE key >= ? ORDER BY key`, seek)
	}
	if err != nil {
		return mapSQLiteError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return mapSQLiteError(err)
		}
		if !fn(key, value) {
			break
		}
	}
	return mapSQLiteError(rows.Err())
}

func (t *sqliteTxn) Set(key, value []byte) error {
	if len(key) == 0 {
		return errEmptyKey
	}
	if value == nil {
		value = []byte{}
	}
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return mapSQLiteError(err)
}

func (t *sqliteTxn) Delete(key []byte) error {
	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM kv WHERE key = ?`, key)
	return mapSQLiteError(err)
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil if there is none (empty or all-0xff prefix).
func prefixUpperBound(prefix []byte) []byte {
	limit := append([]byte(nil), prefix...)
	for i := len(limit) - 1; i >= 0; i-- {
		if limit[i] < 0xff {
			limit[i]++
			return limit[:i+1]
		}
	}
	return nil
}

func mapSQLiteError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrKeyNotFound
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, sql.ErrTxDone):
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return err
}
