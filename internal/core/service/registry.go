package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/big14way/afri-asset/internal/core/domain"
	"github.com/big14way/afri-asset/internal/storage"
)

const tracerName = "github.com/big14way/afri-asset/internal/core/service"

// Operation names reported to observers, spans and logs.
const (
	OpInitialize    = "initialize"
	OpMint          = "mint"
	OpTransfer      = "transfer"
	OpTrade         = "trade"
	OpBurn          = "burn"
	OpGetToken      = "get_token"
	OpGetTokenCount = "get_token_count"
	OpGetAdmin      = "get_admin"
	OpGetEscrow     = "get_escrow"
	OpListTokens    = "list_tokens"
	OpListEvents    = "list_events"
)

// RegistryService is the token registry state machine.
//
// Every mutating call runs in one store transaction: the state change and
// the event record commit together or not at all. Mutations are serialized
// per instance. Nothing is cached between calls.
type RegistryService struct {
	store     storage.Store
	authz     Authorizer
	publisher Publisher
	observer  Observer
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu      sync.Mutex // serializes mutations
	entropy io.Reader  // guarded by mu
}

// Option configures a RegistryService.
type Option func(*RegistryService)

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *RegistryService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithObserver sets the operation observer (metrics).
func WithObserver(o Observer) Option {
	return func(s *RegistryService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *RegistryService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *RegistryService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTracerProvider sets the provider registry spans are created from.
// The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *RegistryService) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewRegistryService creates a registry over store, gated by authz.
func NewRegistryService(store storage.Store, authz Authorizer, opts ...Option) *RegistryService {
	s := &RegistryService{
		store:     store,
		authz:     authz,
		publisher: nopPublisher{},
		observer:  nopObserver{},
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================================
// Mutations
// ============================================================================

// Initialize records admin as the registry administrator and sets the token
// counter to zero. It requires admin's own approval and succeeds once.
func (s *RegistryService) Initialize(ctx context.Context, admin domain.Principal) error {
	_, err := s.mutate(ctx, OpInitialize, []attribute.KeyValue{attribute.String("admin", admin.String())},
		func(ctx context.Context, txn storage.Txn) (domain.EventPayload, error) {
			initialized, err := txn.Has(keyAdmin)
			if err != nil {
				return nil, err
			}
			if initialized {
				return nil, domain.ErrAlreadyInitialized
			}
			if err := admin.Validate(); err != nil {
				return nil, err
			}
			if err := s.authz.RequireAuth(ctx, admin); err != nil {
				return nil, err
			}
			if err := txn.Set(keyAdmin, []byte(admin)); err != nil {
				return nil, err
			}
			if err := txn.Set(keyCounter, encodeUint64(0)); err != nil {
				return nil, err
			}
			return domain.InitializedPayload{Admin: admin}, nil
		})
	return err
}

// Mint creates an active token owned by req.Owner and returns its id.
// It requires approval from the stored administrator.
func (s *RegistryService) Mint(ctx context.Context, req *domain.MintRequest) (domain.TokenID, error) {
	if req == nil {
		return 0, domain.ErrMissingArgument.WithDetails("mint request is required")
	}

	var id domain.TokenID
	_, err := s.mutate(ctx, OpMint, []attribute.KeyValue{attribute.String("owner", req.Owner.String())},
		func(ctx context.Context, txn storage.Txn) (domain.EventPayload, error) {
			admin, ok, err := loadAdmin(txn)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, domain.ErrNotInitialized
			}
			if err := req.Validate(); err != nil {
				return nil, err
			}
			if err := s.authz.RequireAuth(ctx, admin); err != nil {
				return nil, err
			}

			next, err := loadCounter(txn)
			if err != nil {
				return nil, err
			}
			if next == math.MaxUint64 {
				return nil, domain.ErrCounterExhausted
			}
			id = domain.TokenID(next)
			if err := txn.Set(keyCounter, encodeUint64(next+1)); err != nil {
				return nil, err
			}

			token := &domain.Token{
				ID:        id,
				IPFSHash:  req.IPFSHash,
				Owner:     req.Owner,
				YieldData: req.YieldData,
				IsActive:  true,
			}
			if err := saveToken(txn, token); err != nil {
				return nil, err
			}
			return domain.RwaMintedPayload{TokenID: id, Owner: req.Owner, Metadata: req.IPFSHash}, nil
		})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Transfer moves an active token to a new owner. It requires approval from
// the current owner. Transferring to the current owner is allowed.
func (s *RegistryService) Transfer(ctx context.Context, id domain.TokenID, to domain.Principal) error {
	_, err := s.TransferToken(ctx, id, to)
	return err
}

// TransferToken is Transfer returning the token record as committed.
func (s *RegistryService) TransferToken(ctx context.Context, id domain.TokenID, to domain.Principal) (*domain.Token, error) {
	var committed *domain.Token
	_, err := s.mutate(ctx, OpTransfer, []attribute.KeyValue{tokenAttr(id), attribute.String("to", to.String())},
		func(ctx context.Context, txn storage.Txn) (domain.EventPayload, error) {
			token, err := loadActiveToken(txn, id)
			if err != nil {
				return nil, err
			}
			if err := to.Validate(); err != nil {
				return nil, err
			}
			if err := s.authz.RequireAuth(ctx, token.Owner); err != nil {
				return nil, err
			}

			from := token.Owner
			token.Owner = to
			if err := saveToken(txn, token); err != nil {
				return nil, err
			}
			committed = token
			return domain.TransferPayload{TokenID: id, From: from, To: to}, nil
		})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// Trade hands an active token to buyer against a declared escrow value.
// It requires the buyer's approval; the seller is not consulted. The escrow
// must be at least the token's yield threshold and replaces any earlier
// escrow record.
func (s *RegistryService) Trade(ctx context.Context, id domain.TokenID, buyer domain.Principal, escrow domain.Amount) error {
	_, err := s.TradeToken(ctx, id, buyer, escrow)
	return err
}

// TradeToken is Trade returning the token record as committed.
func (s *RegistryService) TradeToken(ctx context.Context, id domain.TokenID, buyer domain.Principal, escrow domain.Amount) (*domain.Token, error) {
	var committed *domain.Token
	attrs := []attribute.KeyValue{
		tokenAttr(id),
		attribute.String("buyer", buyer.String()),
		attribute.String("escrow", escrow.String()),
	}
	_, err := s.mutate(ctx, OpTrade, attrs,
		func(ctx context.Context, txn storage.Txn) (domain.EventPayload, error) {
			token, err := loadActiveToken(txn, id)
			if err != nil {
				return nil, err
			}
			if err := buyer.Validate(); err != nil {
				return nil, err
			}
			if err := s.authz.RequireAuth(ctx, buyer); err != nil {
				return nil, err
			}
			if escrow.Less(token.YieldData) {
				return nil, domain.ErrInsufficientEscrow.WithDetails(
					"escrow " + escrow.String() + " is below yield threshold " + token.YieldData.String())
			}

			if err := txn.Set(escrowKey(id), escrow.Bytes()); err != nil {
				return nil, err
			}
			seller := token.Owner
			token.Owner = buyer
			if err := saveToken(txn, token); err != nil {
				return nil, err
			}
			committed = token
			return domain.TradePayload{TokenID: id, From: seller, To: buyer, Escrow: escrow}, nil
		})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// Burn deactivates a token. It requires approval from the current owner,
// leaves the owner unchanged and does not check whether the token is
// already inactive: burning twice succeeds and emits a second event.
func (s *RegistryService) Burn(ctx context.Context, id domain.TokenID) error {
	_, err := s.BurnToken(ctx, id)
	return err
}

// BurnToken is Burn returning the token record as committed.
func (s *RegistryService) BurnToken(ctx context.Context, id domain.TokenID) (*domain.Token, error) {
	var committed *domain.Token
	_, err := s.mutate(ctx, OpBurn, []attribute.KeyValue{tokenAttr(id)},
		func(ctx context.Context, txn storage.Txn) (domain.EventPayload, error) {
			token, err := loadToken(txn, id)
			if err != nil {
				return nil, err
			}
			if err := s.authz.RequireAuth(ctx, token.Owner); err != nil {
				return nil, err
			}

			token.IsActive = false
			if err := saveToken(txn, token); err != nil {
				return nil, err
			}
			committed = token
			return domain.BurnedPayload{TokenID: id, Owner: token.Owner}, nil
		})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// mutate runs fn and the event append in one transaction, then publishes
// the committed event while still holding the mutation lock.
func (s *RegistryService) mutate(
	ctx context.Context,
	op string,
	attrs []attribute.KeyValue,
	fn func(ctx context.Context, txn storage.Txn) (domain.EventPayload, error),
) (domain.Event, error) {
	ctx, span := s.tracer.Start(ctx, "registry."+op, trace.WithAttributes(attrs...))
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	var event domain.Event
	err := s.store.Update(ctx, func(txn storage.Txn) error {
		payload, err := fn(ctx, txn)
		if err != nil {
			return err
		}
		event, err = s.appendEvent(txn, payload)
		return err
	})
	if err == nil {
		// Published before the next mutation can commit, so subscribers
		// see events in sequence order.
		s.publisher.Publish(ctx, event)
	}
	s.mu.Unlock()

	err = normalizeError(err)
	s.finish(span, op, err, time.Since(start))
	if err != nil {
		return domain.Event{}, err
	}

	s.logger.InfoContext(ctx, "registry mutation committed",
		"op", op,
		"event_seq", event.Seq,
		"event_id", event.ID)
	return event, nil
}

// appendEvent assigns the next sequence number and records the event.
func (s *RegistryService) appendEvent(txn storage.Txn, payload domain.EventPayload) (domain.Event, error) {
	var seq uint64
	raw, err := txn.Get(keyEventSeq)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
	case err != nil:
		return domain.Event{}, err
	default:
		if seq, err = decodeUint64(raw); err != nil {
			return domain.Event{}, err
		}
	}
	seq++

	now := s.now()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	if err != nil {
		return domain.Event{}, domain.ErrInternalServer.WithCause(err)
	}

	event := domain.NewEvent(payload)
	event.Seq = seq
	event.ID = id.String()
	event.CreatedAt = now.UnixMilli()

	data, err := json.Marshal(event)
	if err != nil {
		return domain.Event{}, domain.ErrInternalServer.WithCause(err)
	}
	if err := txn.Set(eventKey(seq), data); err != nil {
		return domain.Event{}, err
	}
	if err := txn.Set(keyEventSeq, encodeUint64(seq)); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

// finish records the outcome on the span, the observer and the log.
func (s *RegistryService) finish(span trace.Span, op string, err error, elapsed time.Duration) {
	s.observer.ObserveOperation(op, err, elapsed)
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}

	span.RecordError(err)
	span.SetAttributes(attribute.String("error.code", domain.GetErrorCode(err)))
	if domain.IsDomainError(err, domain.ErrStorageError.Code) || domain.IsDomainError(err, domain.ErrInternalServer.Code) {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("registry operation failed", "op", op, "error", err)
		return
	}
	s.logger.Debug("registry operation rejected", "op", op, "error", err)
}

// normalizeError keeps domain and context errors and wraps everything else
// as a storage error.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.ErrStorageError.WithCause(err)
}

func tokenAttr(id domain.TokenID) attribute.KeyValue {
	return attribute.Int64("token_id", int64(id))
}

// ============================================================================
// State access helpers
// ============================================================================

func loadAdmin(r storage.Reader) (domain.Principal, bool, error) {
	raw, err := r.Get(keyAdmin)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return domain.Principal(raw), true, nil
}

// loadCounter returns the next token id; 0 when the counter is unset.
func loadCounter(r storage.Reader) (uint64, error) {
	raw, err := r.Get(keyCounter)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeUint64(raw)
}

func loadToken(r storage.Reader, id domain.TokenID) (*domain.Token, error) {
	raw, err := r.Get(tokenKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, domain.ErrTokenNotFound.WithDetails("token_id=" + id.String())
	}
	if err != nil {
		return nil, err
	}
	return decodeToken(raw)
}

func loadActiveToken(r storage.Reader, id domain.TokenID) (*domain.Token, error) {
	token, err := loadToken(r, id)
	if err != nil {
		return nil, err
	}
	if !token.IsActive {
		return nil, domain.ErrTokenInactive.WithDetails("token_id=" + id.String())
	}
	return token, nil
}

func decodeToken(raw []byte) (*domain.Token, error) {
	var token domain.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, domain.ErrStorageError.WithDetails("corrupt token record").WithCause(err)
	}
	return &token, nil
}

func saveToken(txn storage.Txn, token *domain.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return domain.ErrInternalServer.WithCause(err)
	}
	return txn.Set(tokenKey(token.ID), data)
}

func loadEscrow(r storage.Reader, id domain.TokenID) (domain.Amount, bool, error) {
	raw, err := r.Get(escrowKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return domain.Amount{}, false, nil
	}
	if err != nil {
		return domain.Amount{}, false, err
	}
	amount, err := domain.AmountFromBytes(raw)
	if err != nil {
		return domain.Amount{}, false, domain.ErrStorageError.WithDetails("corrupt escrow record").WithCause(err)
	}
	return amount, true, nil
}
