package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/big14way/afri-asset/internal/core/domain"
	"github.com/big14way/afri-asset/internal/core/service"
	"github.com/big14way/afri-asset/internal/storage"
	"github.com/big14way/afri-asset/pkg/account"
)

// Engines lists the storage engines under benchmark.
var Engines = []string{
	storage.EngineMemory,
	storage.EngineBadger,
	storage.EngineLevelDB,
	storage.EngineSQLite,
}

// TokenCounts defines registry sizes for read benchmarks.
var TokenCounts = []int{1000, 10000}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// openStore opens engine in a temporary directory and closes it on cleanup.
func openStore(b *testing.B, engine string) storage.Store {
	b.Helper()
	store, err := storage.Open(storage.Config{Engine: engine, Dir: b.TempDir()}, quietLogger)
	if err != nil {
		b.Fatalf("open %s store: %v", engine, err)
	}
	b.Cleanup(func() { store.Close() })
	return store
}

// newRegistry returns an initialized registry on engine.
func newRegistry(b *testing.B, engine string) (*service.RegistryService, domain.Principal) {
	b.Helper()
	registry := service.NewRegistryService(openStore(b, engine), service.AllowAllAuthorizer{},
		service.WithLogger(quietLogger))

	admin := newPrincipal(b)
	if err := registry.Initialize(context.Background(), admin); err != nil {
		b.Fatalf("initialize: %v", err)
	}
	return registry, admin
}

// prefill mints n tokens round-robin across owners.
func prefill(b *testing.B, registry *service.RegistryService, n int, owners ...domain.Principal) {
	b.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := registry.Mint(ctx, &domain.MintRequest{
			IPFSHash:  fmt.Sprintf("QmBench%08d", i),
			Owner:     owners[i%len(owners)],
			YieldData: domain.NewAmount(uint64(i)),
		})
		if err != nil {
			b.Fatalf("mint %d: %v", i, err)
		}
	}
}

func newPrincipal(b *testing.B) domain.Principal {
	b.Helper()
	kp, err := account.GenerateKeyPair()
	if err != nil {
		b.Fatal(err)
	}
	return domain.Principal(kp.Address())
}

func countLabel(n int) string {
	if n >= 1000 {
		return fmt.Sprintf("%dk", n/1000)
	}
	return fmt.Sprintf("%d", n)
}
