package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/big14way/afri-asset/internal/core/domain"
	"github.com/big14way/afri-asset/internal/storage"
)

const (
	admin  = domain.Principal("admin")
	owner1 = domain.Principal("owner-1")
	owner2 = domain.Principal("owner-2")
	buyer  = domain.Principal("buyer")
)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}

// recordingObserver captures operation outcomes.
type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (o *recordingObserver) ObserveOperation(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	result := "ok"
	if err != nil {
		result = domain.GetErrorCode(err)
	}
	o.ops = append(o.ops, op+":"+result)
}

type testRegistry struct {
	*RegistryService
	store     *storage.MemoryStore
	publisher *recordingPublisher
	observer  *recordingObserver
}

func newTestRegistry(t *testing.T) *testRegistry {
	t.Helper()
	store := storage.NewMemoryStore()
	pub := &recordingPublisher{}
	obs := &recordingObserver{}
	svc := NewRegistryService(store, ContextAuthorizer{},
		WithPublisher(pub),
		WithObserver(obs),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
	)
	return &testRegistry{RegistryService: svc, store: store, publisher: pub, observer: obs}
}

// as returns a context in which the given principals have approved the call.
func as(principals ...domain.Principal) context.Context {
	return WithApprovals(context.Background(), principals...)
}

// dump returns every stored key/value pair.
func dump(t *testing.T, s storage.Store) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := s.View(context.Background(), func(r storage.Reader) error {
		return r.Scan(nil, func(k, v []byte) bool {
			out[string(k)] = string(v)
			return true
		})
	})
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	return out
}

func assertSameState(t *testing.T, before, after map[string]string) {
	t.Helper()
	if len(before) != len(after) {
		t.Fatalf("state has %d keys, want %d", len(after), len(before))
	}
	for k, v := range before {
		if after[k] != v {
			t.Errorf("key %q changed: %q -> %q", k, v, after[k])
		}
	}
}

func assertCode(t *testing.T, err error, want *domain.DomainError) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %s", err, want.Code)
	}
}

func (r *testRegistry) mustInit(t *testing.T) {
	t.Helper()
	if err := r.Initialize(as(admin), admin); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
}

func (r *testRegistry) mustMint(t *testing.T, hash string, owner domain.Principal, yield uint64) domain.TokenID {
	t.Helper()
	id, err := r.Mint(as(admin), &domain.MintRequest{IPFSHash: hash, Owner: owner, YieldData: domain.NewAmount(yield)})
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	return id
}

// ============================================================================
// Initialize
// ============================================================================

func TestRegistry_Initialize(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	if count, _ := r.GetTokenCount(ctx); count != 0 {
		t.Errorf("GetTokenCount() before init = %d, want 0", count)
	}
	if _, ok, _ := r.GetAdmin(ctx); ok {
		t.Error("GetAdmin() before init should report absent")
	}

	r.mustInit(t)

	got, ok, err := r.GetAdmin(ctx)
	if err != nil || !ok || got != admin {
		t.Errorf("GetAdmin() = %q, %v, %v; want %q, true, nil", got, ok, err, admin)
	}
	if count, _ := r.GetTokenCount(ctx); count != 0 {
		t.Errorf("GetTokenCount() after init = %d, want 0", count)
	}

	events := r.publisher.Events()
	if len(events) != 1 || events[0].Type != domain.EventInitialized {
		t.Fatalf("events = %+v, want one initialized event", events)
	}
	if p := events[0].Payload.(domain.InitializedPayload); p.Admin != admin {
		t.Errorf("initialized admin = %q, want %q", p.Admin, admin)
	}
}

func TestRegistry_InitializeTwiceFails(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	r.mustMint(t, "Qm1", owner1, 10)

	// Every second attempt fails, whoever asks and whatever happened between.
	for _, p := range []domain.Principal{admin, owner1, "someone-else"} {
		err := r.Initialize(as(p), p)
		assertCode(t, err, domain.ErrAlreadyInitialized)
		if domain.ContractCode(err) != 2 {
			t.Errorf("ContractCode() = %d, want 2", domain.ContractCode(err))
		}
	}

	if got, _, _ := r.GetAdmin(context.Background()); got != admin {
		t.Errorf("admin changed to %q", got)
	}
}

func TestRegistry_InitializeRequiresAdminApproval(t *testing.T) {
	r := newTestRegistry(t)
	before := dump(t, r.store)

	err := r.Initialize(as("intruder"), admin)
	assertCode(t, err, domain.ErrUnauthorized)
	assertSameState(t, before, dump(t, r.store))

	if len(r.publisher.Events()) != 0 {
		t.Error("rejected initialize published an event")
	}
}

func TestRegistry_InitializeCheckOrder(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)

	// AlreadyInitialized is reported before authorization is consulted.
	err := r.Initialize(context.Background(), "anyone")
	assertCode(t, err, domain.ErrAlreadyInitialized)
}

// ============================================================================
// Mint
// ============================================================================

func TestRegistry_MintBeforeInitialize(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Mint(as(admin), &domain.MintRequest{IPFSHash: "Qm", Owner: owner1})
	assertCode(t, err, domain.ErrNotInitialized)
	if domain.ContractCode(err) != 1 {
		t.Errorf("ContractCode() = %d, want 1", domain.ContractCode(err))
	}
	if len(dump(t, r.store)) != 0 {
		t.Error("failed mint wrote state")
	}
}

func TestRegistry_MintSequentialIDs(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)

	const n = 25
	for i := 0; i < n; i++ {
		id := r.mustMint(t, fmt.Sprintf("Qm%d", i), owner1, uint64(i))
		if id != domain.TokenID(i) {
			t.Fatalf("mint #%d returned id %d", i, id)
		}
	}

	count, err := r.GetTokenCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != n {
		t.Errorf("GetTokenCount() = %d, want %d", count, n)
	}
}

func TestRegistry_MintRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)

	id := r.mustMint(t, "QmX", owner1, 1000)

	got, err := r.GetToken(context.Background(), id)
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	want := &domain.Token{ID: id, IPFSHash: "QmX", Owner: owner1, YieldData: domain.NewAmount(1000), IsActive: true}
	if *got != *want {
		t.Errorf("GetToken() = %+v, want %+v", got, want)
	}

	events := r.publisher.Events()
	last := events[len(events)-1]
	if last.Type != domain.EventRwaMinted {
		t.Fatalf("last event type = %s", last.Type)
	}
	minted := last.Payload.(domain.RwaMintedPayload)
	if minted.TokenID != id || minted.Owner != owner1 || minted.Metadata != "QmX" {
		t.Errorf("rwa_minted payload = %+v", minted)
	}
}

func TestRegistry_MintRequiresStoredAdmin(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	before := dump(t, r.store)

	// The owner approving is not enough; only the stored admin may mint.
	_, err := r.Mint(as(owner1), &domain.MintRequest{IPFSHash: "Qm", Owner: owner1})
	assertCode(t, err, domain.ErrUnauthorized)
	assertSameState(t, before, dump(t, r.store))

	if count, _ := r.GetTokenCount(context.Background()); count != 0 {
		t.Errorf("counter advanced to %d after rejected mint", count)
	}
}

func TestRegistry_MintLargeYield(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)

	id, err := r.Mint(as(admin), &domain.MintRequest{IPFSHash: "Qm", Owner: owner1, YieldData: domain.MaxAmount})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := r.GetToken(context.Background(), id)
	if got.YieldData != domain.MaxAmount {
		t.Errorf("YieldData = %s, want %s", got.YieldData, domain.MaxAmount)
	}
}

func TestRegistry_MintCounterExhausted(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)

	err := r.store.Update(context.Background(), func(txn storage.Txn) error {
		return txn.Set(keyCounter, encodeUint64(^uint64(0)))
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = r.Mint(as(admin), &domain.MintRequest{IPFSHash: "Qm", Owner: owner1})
	assertCode(t, err, domain.ErrCounterExhausted)
}

// ============================================================================
// Transfer
// ============================================================================

func TestRegistry_Transfer(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 1000)

	if err := r.Transfer(as(owner1), id, owner2); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}

	got, _ := r.GetToken(context.Background(), id)
	if got.Owner != owner2 || !got.IsActive {
		t.Errorf("token after transfer = %+v", got)
	}

	events := r.publisher.Events()
	p := events[len(events)-1].Payload.(domain.TransferPayload)
	if p.From != owner1 || p.To != owner2 || p.TokenID != id {
		t.Errorf("transfer payload = %+v", p)
	}
}

func TestRegistry_TransferToSelf(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 1)

	if err := r.Transfer(as(owner1), id, owner1); err != nil {
		t.Fatalf("self transfer error = %v", err)
	}
	got, _ := r.GetToken(context.Background(), id)
	if got.Owner != owner1 {
		t.Errorf("owner = %q, want %q", got.Owner, owner1)
	}
}

func TestRegistry_TransferRequiresOwner(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 1)
	before := dump(t, r.store)

	// Neither the recipient nor the admin can move someone else's token.
	for _, p := range []domain.Principal{owner2, admin} {
		err := r.Transfer(as(p), id, owner2)
		assertCode(t, err, domain.ErrUnauthorized)
	}
	assertSameState(t, before, dump(t, r.store))
}

// ============================================================================
// Trade
// ============================================================================

func TestRegistry_Trade(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 1000)

	if err := r.Trade(as(buyer), id, buyer, domain.NewAmount(1500)); err != nil {
		t.Fatalf("Trade() error = %v", err)
	}

	got, _ := r.GetToken(context.Background(), id)
	if got.Owner != buyer {
		t.Errorf("owner after trade = %q, want %q", got.Owner, buyer)
	}
	escrow, ok, err := r.GetEscrow(context.Background(), id)
	if err != nil || !ok || escrow != domain.NewAmount(1500) {
		t.Errorf("GetEscrow() = %s, %v, %v; want 1500, true, nil", escrow, ok, err)
	}

	events := r.publisher.Events()
	p := events[len(events)-1].Payload.(domain.TradePayload)
	if p.From != owner1 || p.To != buyer || p.Escrow != domain.NewAmount(1500) {
		t.Errorf("trade payload = %+v", p)
	}
}

func TestRegistry_TradeEscrowBoundary(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 1000)
	before := dump(t, r.store)

	err := r.Trade(as(buyer), id, buyer, domain.NewAmount(999))
	assertCode(t, err, domain.ErrInsufficientEscrow)
	if domain.ContractCode(err) != 6 {
		t.Errorf("ContractCode() = %d, want 6", domain.ContractCode(err))
	}
	assertSameState(t, before, dump(t, r.store))
	if _, ok, _ := r.GetEscrow(context.Background(), id); ok {
		t.Error("escrow recorded by failed trade")
	}

	if err := r.Trade(as(buyer), id, buyer, domain.NewAmount(1000)); err != nil {
		t.Fatalf("Trade() at exactly the yield threshold error = %v", err)
	}
}

func TestRegistry_TradeEscrowOverwritten(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 10)

	if err := r.Trade(as(buyer), id, buyer, domain.NewAmount(500)); err != nil {
		t.Fatal(err)
	}
	if err := r.Trade(as(owner2), id, owner2, domain.NewAmount(20)); err != nil {
		t.Fatal(err)
	}

	escrow, _, _ := r.GetEscrow(context.Background(), id)
	if escrow != domain.NewAmount(20) {
		t.Errorf("escrow = %s, want 20 (latest trade, not accumulated)", escrow)
	}
}

func TestRegistry_TradeAuthorizesBuyerNotSeller(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 10)
	before := dump(t, r.store)

	// Seller approval alone does not allow a trade to the buyer.
	err := r.Trade(as(owner1), id, buyer, domain.NewAmount(10))
	assertCode(t, err, domain.ErrUnauthorized)
	assertSameState(t, before, dump(t, r.store))

	// Buyer approval alone does.
	if err := r.Trade(as(buyer), id, buyer, domain.NewAmount(10)); err != nil {
		t.Fatalf("Trade() with buyer approval error = %v", err)
	}
}

func TestRegistry_TradeAuthorizationBeforeEscrowCheck(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 1000)

	err := r.Trade(context.Background(), id, buyer, domain.NewAmount(1))
	assertCode(t, err, domain.ErrUnauthorized)
}

// ============================================================================
// Burn
// ============================================================================

func TestRegistry_Burn(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 1)

	if err := r.Burn(as(owner1), id); err != nil {
		t.Fatalf("Burn() error = %v", err)
	}

	got, _ := r.GetToken(context.Background(), id)
	if got.IsActive {
		t.Error("token still active after burn")
	}
	if got.Owner != owner1 {
		t.Errorf("burn changed owner to %q", got.Owner)
	}
}

func TestRegistry_BurnTwiceSucceeds(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 1)

	if err := r.Burn(as(owner1), id); err != nil {
		t.Fatal(err)
	}
	if err := r.Burn(as(owner1), id); err != nil {
		t.Fatalf("second Burn() error = %v", err)
	}

	burned := 0
	for _, ev := range r.publisher.Events() {
		if ev.Type == domain.EventBurned {
			burned++
		}
	}
	if burned != 2 {
		t.Errorf("burned events = %d, want 2", burned)
	}
}

func TestRegistry_BurnRequiresOwner(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 1)
	before := dump(t, r.store)

	err := r.Burn(as(admin), id)
	assertCode(t, err, domain.ErrUnauthorized)
	assertSameState(t, before, dump(t, r.store))
}

func TestRegistry_InactiveTokenRejectsTransferAndTrade(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 1)
	if err := r.Burn(as(owner1), id); err != nil {
		t.Fatal(err)
	}
	before := dump(t, r.store)

	err := r.Transfer(as(owner1), id, owner2)
	assertCode(t, err, domain.ErrTokenInactive)
	if domain.ContractCode(err) != 5 {
		t.Errorf("ContractCode() = %d, want 5", domain.ContractCode(err))
	}

	err = r.Trade(as(buyer), id, buyer, domain.NewAmount(100))
	assertCode(t, err, domain.ErrTokenInactive)

	assertSameState(t, before, dump(t, r.store))
}

// ============================================================================
// Missing tokens
// ============================================================================

func TestRegistry_TokenNotFound(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	r.mustMint(t, "Qm0", owner1, 1)
	const missing = domain.TokenID(42)
	before := dump(t, r.store)

	tests := []struct {
		name string
		call func() error
	}{
		{"transfer", func() error { return r.Transfer(as(owner1), missing, owner2) }},
		{"trade", func() error { return r.Trade(as(buyer), missing, buyer, domain.NewAmount(1)) }},
		{"burn", func() error { return r.Burn(as(owner1), missing) }},
		{"get_token", func() error { _, err := r.GetToken(context.Background(), missing); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assertCode(t, err, domain.ErrTokenNotFound)
			if domain.ContractCode(err) != 4 {
				t.Errorf("ContractCode() = %d, want 4", domain.ContractCode(err))
			}
		})
	}
	assertSameState(t, before, dump(t, r.store))

	if _, ok, err := r.GetEscrow(context.Background(), missing); ok || err != nil {
		t.Errorf("GetEscrow(missing) = _, %v, %v; want absent, nil", ok, err)
	}
}

func TestRegistry_NotFoundBeforeAuthorization(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)

	// No approvals at all: the missing token is still reported first.
	assertCode(t, r.Transfer(context.Background(), 7, owner2), domain.ErrTokenNotFound)
	assertCode(t, r.Burn(context.Background(), 7), domain.ErrTokenNotFound)
}

func TestRegistry_StateChecksBeforeArgumentValidation(t *testing.T) {
	fresh := newTestRegistry(t)
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm0", owner1, 1)
	const missing = domain.TokenID(42)

	tests := []struct {
		name string
		call func() error
		want *domain.DomainError
	}{
		{"initialize twice with empty admin", func() error { return r.Initialize(as(admin), "") }, domain.ErrAlreadyInitialized},
		{"mint before initialize with empty owner", func() error {
			_, err := fresh.Mint(as(admin), &domain.MintRequest{})
			return err
		}, domain.ErrNotInitialized},
		{"transfer missing token to empty principal", func() error { return r.Transfer(as(owner1), missing, "") }, domain.ErrTokenNotFound},
		{"trade missing token with empty buyer", func() error { return r.Trade(as(buyer), missing, "", domain.NewAmount(1)) }, domain.ErrTokenNotFound},
		{"transfer to empty principal", func() error { return r.Transfer(as(owner1), id, "") }, domain.ErrMissingArgument},
		{"trade with padded buyer", func() error { return r.Trade(as(buyer), id, " buyer", domain.NewAmount(1)) }, domain.ErrInvalidArgument},
		{"initialize with empty admin", func() error { return fresh.Initialize(as(admin), "") }, domain.ErrMissingArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCode(t, tt.call(), tt.want)
		})
	}
}

// ============================================================================
// Full scenario
// ============================================================================

func TestRegistry_Scenario(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	r.mustInit(t)

	id := r.mustMint(t, "Qm1", owner1, 1000)
	if id != 0 {
		t.Fatalf("first token id = %d, want 0", id)
	}

	if err := r.Transfer(as(owner1), id, owner2); err != nil {
		t.Fatal(err)
	}
	if tok, _ := r.GetToken(ctx, id); tok.Owner != owner2 {
		t.Fatalf("owner after transfer = %q, want %q", tok.Owner, owner2)
	}

	if err := r.Trade(as(buyer), id, buyer, domain.NewAmount(1000)); err != nil {
		t.Fatal(err)
	}
	if tok, _ := r.GetToken(ctx, id); tok.Owner != buyer {
		t.Fatalf("owner after trade = %q, want %q", tok.Owner, buyer)
	}
	if escrow, ok, _ := r.GetEscrow(ctx, id); !ok || escrow != domain.NewAmount(1000) {
		t.Fatalf("escrow = %s, %v; want 1000", escrow, ok)
	}

	if err := r.Burn(as(buyer), id); err != nil {
		t.Fatal(err)
	}
	if tok, _ := r.GetToken(ctx, id); tok.IsActive {
		t.Fatal("token active after burn")
	}

	wantTypes := []domain.EventType{
		domain.EventInitialized,
		domain.EventRwaMinted,
		domain.EventTransfer,
		domain.EventTrade,
		domain.EventBurned,
	}
	events := r.publisher.Events()
	if len(events) != len(wantTypes) {
		t.Fatalf("published %d events, want %d", len(events), len(wantTypes))
	}
	for i, ev := range events {
		if ev.Type != wantTypes[i] {
			t.Errorf("event %d type = %s, want %s", i, ev.Type, wantTypes[i])
		}
		if ev.Seq != uint64(i+1) {
			t.Errorf("event %d seq = %d, want %d", i, ev.Seq, i+1)
		}
		if ev.ID == "" || ev.CreatedAt != 1700000000000 {
			t.Errorf("event %d header = %+v", i, ev)
		}
	}

	// The persisted log matches what was published.
	logged, err := r.ListEvents(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(logged) != len(events) {
		t.Fatalf("ListEvents() returned %d events, want %d", len(logged), len(events))
	}
	for i := range logged {
		if logged[i].ID != events[i].ID || logged[i].Payload != events[i].Payload {
			t.Errorf("logged event %d = %+v, published %+v", i, logged[i], events[i])
		}
	}
}

// ============================================================================
// Authorization enforcement
// ============================================================================

func TestRegistry_UnauthorizedCallsLeaveStateIntact(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 10)
	if err := r.Trade(as(buyer), id, buyer, domain.NewAmount(10)); err != nil {
		t.Fatal(err)
	}
	published := len(r.publisher.Events())
	before := dump(t, r.store)

	noApproval := context.Background()
	calls := map[string]func() error{
		"mint": func() error {
			_, err := r.Mint(noApproval, &domain.MintRequest{IPFSHash: "Qm2", Owner: owner1})
			return err
		},
		"transfer": func() error { return r.Transfer(noApproval, id, owner2) },
		"trade":    func() error { return r.Trade(noApproval, id, owner2, domain.NewAmount(100)) },
		"burn":     func() error { return r.Burn(noApproval, id) },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			assertCode(t, err, domain.ErrUnauthorized)
			if domain.ContractCode(err) != 3 {
				t.Errorf("ContractCode() = %d, want 3", domain.ContractCode(err))
			}
		})
	}

	assertSameState(t, before, dump(t, r.store))
	if len(r.publisher.Events()) != published {
		t.Error("rejected calls published events")
	}
}

func TestRegistry_ReadsNeedNoApproval(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	id := r.mustMint(t, "Qm1", owner1, 10)
	before := dump(t, r.store)
	published := len(r.publisher.Events())

	ctx := context.Background()
	if _, err := r.GetToken(ctx, id); err != nil {
		t.Error(err)
	}
	if _, err := r.GetTokenCount(ctx); err != nil {
		t.Error(err)
	}
	if _, _, err := r.GetAdmin(ctx); err != nil {
		t.Error(err)
	}
	if _, _, err := r.GetEscrow(ctx, id); err != nil {
		t.Error(err)
	}

	assertSameState(t, before, dump(t, r.store))
	if len(r.publisher.Events()) != published {
		t.Error("reads published events")
	}
}

// ============================================================================
// Storage failures and collaborators
// ============================================================================

// failingStore rejects every transaction.
type failingStore struct{ err error }

func (s failingStore) View(context.Context, func(storage.Reader) error) error { return s.err }
func (s failingStore) Update(context.Context, func(storage.Txn) error) error { return s.err }
func (s failingStore) Close() error                                          { return nil }

func TestRegistry_StorageErrorsAreWrapped(t *testing.T) {
	cause := errors.New("disk on fire")
	svc := NewRegistryService(failingStore{err: cause}, AllowAllAuthorizer{})

	err := svc.Initialize(context.Background(), admin)
	assertCode(t, err, domain.ErrStorageError)
	if !errors.Is(err, cause) {
		t.Errorf("error %v does not wrap the cause", err)
	}

	_, err = svc.GetToken(context.Background(), 0)
	assertCode(t, err, domain.ErrStorageError)

	if err := svc.Ping(context.Background()); !errors.Is(err, cause) {
		t.Errorf("Ping() error = %v, want wrapped cause", err)
	}
}

func TestRegistry_ObserverSeesOutcomes(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)
	_ = r.Burn(as(owner1), 3)

	want := []string{"initialize:ok", "burn:" + domain.ErrTokenNotFound.Code}
	if fmt.Sprint(r.observer.ops) != fmt.Sprint(want) {
		t.Errorf("observed = %v, want %v", r.observer.ops, want)
	}
}

func TestRegistry_AuthorizerFunc(t *testing.T) {
	var asked []domain.Principal
	authz := AuthorizerFunc(func(_ context.Context, p domain.Principal) error {
		asked = append(asked, p)
		return nil
	})
	svc := NewRegistryService(storage.NewMemoryStore(), authz)
	ctx := context.Background()

	if err := svc.Initialize(ctx, admin); err != nil {
		t.Fatal(err)
	}
	id, err := svc.Mint(ctx, &domain.MintRequest{Owner: owner1})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Trade(ctx, id, buyer, domain.NewAmount(0)); err != nil {
		t.Fatal(err)
	}
	if err := svc.Burn(ctx, id); err != nil {
		t.Fatal(err)
	}

	want := []domain.Principal{admin, admin, buyer, buyer}
	if fmt.Sprint(asked) != fmt.Sprint(want) {
		t.Errorf("authorizer asked for %v, want %v", asked, want)
	}
}

func TestRegistry_ConcurrentMints(t *testing.T) {
	r := newTestRegistry(t)
	r.mustInit(t)

	const workers, perWorker = 8, 10
	var wg sync.WaitGroup
	ids := make(chan domain.TokenID, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := r.Mint(as(admin), &domain.MintRequest{IPFSHash: "Qm", Owner: owner1})
				if err != nil {
					t.Errorf("Mint() error = %v", err)
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[domain.TokenID]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("id %d assigned twice", id)
		}
		seen[id] = true
	}
	for i := 0; i < workers*perWorker; i++ {
		if !seen[domain.TokenID(i)] {
			t.Errorf("id %d never assigned", i)
		}
	}
}

// stallingPublisher blocks the first publish after arm until release is
// closed, then records every sequence number in arrival order.
type stallingPublisher struct {
	mu      sync.Mutex
	armed   bool
	seqs    []uint64
	entered chan struct{}
	release chan struct{}
}

func (p *stallingPublisher) arm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = true
}

func (p *stallingPublisher) Publish(_ context.Context, ev domain.Event) {
	p.mu.Lock()
	stall := p.armed
	p.armed = false
	p.mu.Unlock()
	if stall {
		close(p.entered)
		<-p.release
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.seqs = append(p.seqs, ev.Seq)
}

func TestRegistry_PublishesInCommitOrder(t *testing.T) {
	pub := &stallingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	r := NewRegistryService(storage.NewMemoryStore(), ContextAuthorizer{}, WithPublisher(pub))
	if err := r.Initialize(as(admin), admin); err != nil {
		t.Fatal(err)
	}
	pub.arm()

	mint := func(done chan<- error) {
		_, err := r.Mint(as(admin), &domain.MintRequest{Owner: owner1})
		done <- err
	}
	first, second := make(chan error, 1), make(chan error, 1)
	go mint(first)
	<-pub.entered

	// The second mint must not commit and publish while the first event
	// is still being delivered.
	go mint(second)
	select {
	case err := <-second:
		t.Fatalf("second Mint() returned (%v) while the first publish was stalled", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(pub.release)
	for _, done := range []chan error{first, second} {
		if err := <-done; err != nil {
			t.Fatalf("Mint() error = %v", err)
		}
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if fmt.Sprint(pub.seqs) != "[1 2 3]" {
		t.Errorf("publish order = %v, want [1 2 3]", pub.seqs)
	}
}

func TestRegistry_OnDiskEngines(t *testing.T) {
	for _, engine := range []string{storage.EngineBadger, storage.EngineLevelDB, storage.EngineSQLite} {
		t.Run(engine, func(t *testing.T) {
			cfg := storage.DefaultConfig(t.TempDir())
			cfg.Engine = engine
			cfg.SyncWrites = false
			cfg.Badger.GCInterval = "1h"

			store, err := storage.Open(cfg, nil)
			if err != nil {
				t.Fatal(err)
			}
			svc := NewRegistryService(store, ContextAuthorizer{})

			if err := svc.Initialize(as(admin), admin); err != nil {
				t.Fatal(err)
			}
			id, err := svc.Mint(as(admin), &domain.MintRequest{IPFSHash: "Qm1", Owner: owner1, YieldData: domain.NewAmount(5)})
			if err != nil {
				t.Fatal(err)
			}
			if err := svc.Trade(as(buyer), id, buyer, domain.NewAmount(4)); !errors.Is(err, domain.ErrInsufficientEscrow) {
				t.Fatalf("Trade() error = %v, want InsufficientEscrow", err)
			}
			if err := store.Close(); err != nil {
				t.Fatal(err)
			}

			// State survives a restart.
			store, err = storage.Open(cfg, nil)
			if err != nil {
				t.Fatal(err)
			}
			defer store.Close()
			svc = NewRegistryService(store, ContextAuthorizer{})

			tok, err := svc.GetToken(context.Background(), id)
			if err != nil {
				t.Fatal(err)
			}
			if tok.Owner != owner1 || !tok.IsActive {
				t.Errorf("token after reopen = %+v", tok)
			}
			if _, ok, _ := svc.GetEscrow(context.Background(), id); ok {
				t.Error("escrow recorded by failed trade")
			}
			events, err := svc.ListEvents(context.Background(), 0, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(events) != 2 {
				t.Errorf("events after reopen = %d, want 2", len(events))
			}
		})
	}
}

func TestRegistry_Spans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	svc := NewRegistryService(storage.NewMemoryStore(), ContextAuthorizer{}, WithTracerProvider(tp))
	if err := svc.Initialize(as(admin), admin); err != nil {
		t.Fatal(err)
	}
	_, _ = svc.Mint(context.Background(), &domain.MintRequest{Owner: owner1})

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	if spans[0].Name() != "registry.initialize" || spans[0].Status().Code != codes.Ok {
		t.Errorf("span 0 = %s %v", spans[0].Name(), spans[0].Status())
	}
	if spans[1].Name() != "registry.mint" {
		t.Errorf("span 1 = %s", spans[1].Name())
	}
	var code string
	for _, kv := range spans[1].Attributes() {
		if kv.Key == "error.code" {
			code = kv.Value.AsString()
		}
	}
	if code != domain.ErrUnauthorized.Code {
		t.Errorf("error.code = %q, want %q", code, domain.ErrUnauthorized.Code)
	}
}
