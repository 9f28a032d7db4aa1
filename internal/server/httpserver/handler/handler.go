package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/big14way/afri-asset/internal/core/domain"
	"github.com/big14way/afri-asset/internal/core/service"
	"github.com/big14way/afri-asset/internal/events"
	"github.com/big14way/afri-asset/internal/telemetry/logger"
	"github.com/big14way/afri-asset/pkg/account"
)

// Registry is the registry surface the API serves.
type Registry interface {
	Initialize(ctx context.Context, admin domain.Principal) error
	Mint(ctx context.Context, req *domain.MintRequest) (domain.TokenID, error)
	// Mutations return the token record as committed.
	TransferToken(ctx context.Context, id domain.TokenID, to domain.Principal) (*domain.Token, error)
	TradeToken(ctx context.Context, id domain.TokenID, buyer domain.Principal, escrow domain.Amount) (*domain.Token, error)
	BurnToken(ctx context.Context, id domain.TokenID) (*domain.Token, error)

	GetToken(ctx context.Context, id domain.TokenID) (*domain.Token, error)
	GetTokenCount(ctx context.Context) (uint64, error)
	GetAdmin(ctx context.Context) (domain.Principal, bool, error)
	GetEscrow(ctx context.Context, id domain.TokenID) (domain.Amount, bool, error)
	ListTokens(ctx context.Context, req *service.ListTokensRequest) (*service.ListTokensResponse, error)
	ListEvents(ctx context.Context, after uint64, limit int) ([]domain.Event, error)
	Ping(ctx context.Context) error
}

// EventSource hands out live event subscriptions.
type EventSource interface {
	Subscribe(opts ...events.SubscribeOption) *events.Subscription
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	registry     Registry
	events       EventSource
	logger       *slog.Logger
	streamBuffer int
	mux          *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithStreamBuffer sets the per-subscriber buffer of the event stream.
func WithStreamBuffer(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.streamBuffer = n
		}
	}
}

// New creates a new Handler. A nil events source disables the event stream.
func New(registry Registry, source EventSource, log *slog.Logger, opts ...Option) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		registry:     registry,
		events:       source,
		logger:       log,
		streamBuffer: events.DefaultBufferSize,
		mux:          http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("POST /v1/registry/initialize", h.handleInitialize)
	h.mux.HandleFunc("GET /v1/registry", h.handleGetRegistry)

	h.mux.HandleFunc("POST /v1/tokens", h.handleMint)
	h.mux.HandleFunc("GET /v1/tokens", h.handleListTokens)
	h.mux.HandleFunc("GET /v1/tokens/{id}", h.handleGetToken)
	h.mux.HandleFunc("POST /v1/tokens/{id}/transfer", h.handleTransfer)
	h.mux.HandleFunc("POST /v1/tokens/{id}/trade", h.handleTrade)
	h.mux.HandleFunc("POST /v1/tokens/{id}/burn", h.handleBurn)
	h.mux.HandleFunc("GET /v1/tokens/{id}/escrow", h.handleGetEscrow)

	h.mux.HandleFunc("GET /v1/events", h.handleListEvents)
	h.mux.HandleFunc("GET /v1/events/stream", h.handleStreamEvents)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if !domain.IsDomainError(err, "") || StatusForCode(domain.GetErrorCode(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "error", err)
	}
	WriteError(w, r, err)
}

// WriteError writes err in the standard envelope. Errors that are not
// domain errors are reported as internal errors without detail.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		de = domain.ErrInternalServer
	}

	var details *ErrorDetails
	if de.Number != 0 || de.Details != "" {
		details = &ErrorDetails{ContractCode: de.Number, Reason: de.Details}
	}

	requestID := logger.RequestIDFromContext(r.Context())
	response := NewErrorResponse(requestID, de.Code, de.Message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", de.Code)
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(StatusForCode(de.Code))
	_ = json.NewEncoder(w).Encode(response)
}

// StatusForCode maps error codes to HTTP status codes.
func StatusForCode(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"), strings.HasSuffix(code, "-4041"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4120"):
		return http.StatusPreconditionFailed
	case strings.HasSuffix(code, "-4220"):
		return http.StatusUnprocessableEntity
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4000"):
		return http.StatusBadRequest
	case strings.Contains(code, "-401"):
		return http.StatusUnauthorized
	case strings.Contains(code, "-403"):
		return http.StatusForbidden
	case strings.HasPrefix(code, "AA-ARG-"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-5020"):
		return http.StatusBadGateway
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrBadRequest.WithDetails("invalid JSON body: " + err.Error())
	}
	return nil
}

// pathTokenID parses the {id} path value.
func pathTokenID(r *http.Request) (domain.TokenID, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, domain.ErrMissingArgument.WithDetails("token id is required")
	}
	return domain.ParseTokenID(raw)
}

// requireAccount checks that p is a base58 account address. Principals
// arriving over HTTP must be able to sign.
func requireAccount(p domain.Principal) error {
	if p == "" {
		return domain.ErrMissingArgument.WithDetails("principal is empty")
	}
	if !account.ValidAddress(p.String()) {
		return domain.ErrPrincipalInvalid.WithDetails(p.String())
	}
	return nil
}
