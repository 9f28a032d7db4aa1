package storage

import (
	"fmt"
	"log/slog"
	"strings"
)

// Open creates the store selected by cfg.Engine.
func Open(cfg Config, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", EngineBadger:
		return NewBadgerStore(cfg, logger)
	case EngineLevelDB:
		return NewLevelDBStore(cfg, logger)
	case EngineSQLite:
		return NewSQLiteStore(cfg, logger)
	case EngineMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
}
