package httpserver

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/big14way/afri-asset/internal/core/domain"
	"github.com/big14way/afri-asset/internal/core/service"
	"github.com/big14way/afri-asset/internal/telemetry/logger"
	"github.com/big14way/afri-asset/pkg/account"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	middleware := RequestID()
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestIDFromContext(r.Context()) == "" {
			t.Error("expected request ID in context")
		}
		if _, ok := r.Context().Value(ContextKeyStartTime).(time.Time); !ok {
			t.Error("expected start time in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates request ID when not provided", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		requestID := rec.Header().Get(HeaderRequestID)
		if !strings.HasPrefix(requestID, "req-") || len(requestID) != len("req-")+26 {
			t.Errorf("expected req-<ulid>, got %s", requestID)
		}
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(HeaderRequestID, "existing-id-123")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get(HeaderRequestID); got != "existing-id-123" {
			t.Errorf("expected 'existing-id-123', got %s", got)
		}
	})
}

func TestChain(t *testing.T) {
	var order []int
	mark := func(n int) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, n)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, 0)
	}), mark(1), mark(2), mark(3))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []int{1, 2, 3, 0}
	if len(order) != len(want) {
		t.Fatalf("expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func newFixedRegistry(rps float64, burst int, now *time.Time) *RateLimiterRegistry {
	r := NewRateLimiterRegistry(rps, burst)
	r.now = func() time.Time { return *now }
	return r
}

func TestRateLimit(t *testing.T) {
	now := time.Unix(1700000000, 0)

	t.Run("limits requests from same IP", func(t *testing.T) {
		limited := 0
		handler := RateLimit(newFixedRegistry(1, 2, &now), func() { limited++ })(okHandler())

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = "10.0.0.99:12345"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)

			if rec.Code == http.StatusTooManyRequests {
				if got := rec.Header().Get("X-Error-Code"); got != domain.ErrRateLimited.Code {
					t.Errorf("expected X-Error-Code %s, got %s", domain.ErrRateLimited.Code, got)
				}
				if rec.Header().Get("Retry-After") == "" {
					t.Error("expected Retry-After header")
				}
			}
		}

		want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
		for i := range want {
			if codes[i] != want[i] {
				t.Errorf("request %d: expected %d, got %d", i, want[i], codes[i])
			}
		}
		if limited != 1 {
			t.Errorf("expected onLimited once, got %d", limited)
		}
	})

	t.Run("tracks IPs independently", func(t *testing.T) {
		handler := RateLimit(newFixedRegistry(1, 1, &now), nil)(okHandler())

		for _, ip := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = ip
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("%s: expected status 200, got %d", ip, rec.Code)
			}
		}
	})

	t.Run("refills over time", func(t *testing.T) {
		clock := now
		reg := newFixedRegistry(1, 1, &clock)
		if !reg.Allow("a") {
			t.Fatal("first request should pass")
		}
		if reg.Allow("a") {
			t.Fatal("second request should be limited")
		}
		clock = clock.Add(time.Second)
		if !reg.Allow("a") {
			t.Error("request after refill should pass")
		}
	})
}

func TestRateLimitConcurrency(t *testing.T) {
	now := time.Unix(1700000000, 0)
	handler := RateLimit(newFixedRegistry(100, 100, &now), nil)(okHandler())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code == http.StatusOK {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 100 {
		t.Errorf("expected exactly the burst (100) to pass, got %d", success)
	}
}

func TestRateLimiterRegistry_Sweep(t *testing.T) {
	now := time.Unix(1700000000, 0)
	reg := newFixedRegistry(1, 1, &now)
	reg.Allow("old")
	now = now.Add(DefaultLimiterIdleTTL + time.Second)
	reg.Allow("new")

	reg.Sweep()

	if reg.Len() != 1 {
		t.Errorf("expected 1 limiter after sweep, got %d", reg.Len())
	}
	reg.Delete("new")
	if reg.Len() != 0 {
		t.Errorf("expected 0 limiters after delete, got %d", reg.Len())
	}
}

func TestNewRateLimiterRegistry_DefaultBurst(t *testing.T) {
	if got := NewRateLimiterRegistry(2.5, 0).burst; got != 3 {
		t.Errorf("expected burst 3, got %d", got)
	}
	if got := NewRateLimiterRegistry(0.1, 0).burst; got != 1 {
		t.Errorf("expected burst 1, got %d", got)
	}
}

func TestRecover(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		handler := Recover(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("test panic")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
		if got := rec.Header().Get("X-Error-Code"); got != domain.ErrInternalServer.Code {
			t.Errorf("expected X-Error-Code %s, got %s", domain.ErrInternalServer.Code, got)
		}
	})

	t.Run("passes through normal requests", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Recover(discardLogger())(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})
}

func TestCORS(t *testing.T) {
	t.Run("adds CORS headers for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://example.com")
		rec := httptest.NewRecorder()

		CORS([]string{"http://example.com"})(okHandler()).ServeHTTP(rec, req)

		if rec.Header().Get("Access-Control-Allow-Origin") != "http://example.com" {
			t.Error("expected Access-Control-Allow-Origin header")
		}
		if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), account.HeaderSignature) {
			t.Error("expected signature header to be allowed")
		}
	})

	t.Run("handles preflight OPTIONS request", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/test", nil)
		req.Header.Set("Origin", "http://example.com")
		rec := httptest.NewRecorder()

		CORS([]string{"*"})(okHandler()).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rec.Code)
		}
	})

	t.Run("does not add headers for non-allowed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://notallowed.com")
		rec := httptest.NewRecorder()

		CORS([]string{"http://allowed.com"})(okHandler()).ServeHTTP(rec, req)

		if rec.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("should not add CORS header for non-allowed origin")
		}
	})
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"X-Forwarded-For", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "192.168.1.1:12345", "10.0.0.1"},
		{"X-Real-IP", map[string]string{"X-Real-IP": "10.0.0.1"}, "192.168.1.1:12345", "10.0.0.1"},
		{"RemoteAddr", nil, "192.168.1.1:12345", "192.168.1.1"},
		{"IPv6 RemoteAddr", nil, "[::1]:8080", "::1"},
		{"RemoteAddr without port", nil, "192.168.1.1", "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			req.RemoteAddr = tt.remote

			if ip := getClientIP(req); ip != tt.want {
				t.Errorf("expected '%s', got '%s'", tt.want, ip)
			}
		})
	}
}

func TestAudit(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "request completed"},
		{http.StatusBadRequest, "client error"},
		{http.StatusInternalServerError, "request completed with error"},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			handler := Audit(slog.New(slog.NewTextHandler(&buf, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			req = req.WithContext(logger.WithRequestID(req.Context(), "test-req-123"))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in log, got: %s", tt.want, out)
			}
			if !strings.Contains(out, "test-req-123") {
				t.Errorf("expected request id in log, got: %s", out)
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	t.Run("captures status code", func(t *testing.T) {
		wrapped := wrapResponseWriter(httptest.NewRecorder())
		wrapped.WriteHeader(http.StatusCreated)

		if wrapped.statusCode != http.StatusCreated {
			t.Errorf("expected status 201, got %d", wrapped.statusCode)
		}
	})

	t.Run("defaults to 200 on write", func(t *testing.T) {
		wrapped := wrapResponseWriter(httptest.NewRecorder())
		_, _ = wrapped.Write([]byte("ok"))
		wrapped.WriteHeader(http.StatusTeapot)

		if wrapped.statusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", wrapped.statusCode)
		}
	})

	t.Run("unwraps for response controller", func(t *testing.T) {
		rec := httptest.NewRecorder()
		if err := http.NewResponseController(wrapResponseWriter(rec)).Flush(); err != nil {
			t.Errorf("Flush() error = %v", err)
		}
		if !rec.Flushed {
			t.Error("expected recorder to be flushed")
		}
	})
}

// signRequest signs req with the given key pairs at the given time.
func signRequest(t *testing.T, req *http.Request, body []byte, at time.Time, signers ...*account.KeyPair) {
	t.Helper()
	nonce, err := account.NewNonce()
	if err != nil {
		t.Fatal(err)
	}
	ts := at.UnixMilli()
	digest := account.RequestDigest(req.Method, req.URL.RequestURI(), ts, nonce, body)
	req.Header.Set(account.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(account.HeaderNonce, nonce)
	for _, kp := range signers {
		req.Header.Add(account.HeaderSignature, kp.SignatureHeader(digest))
	}
}

func mustKeyPair(t *testing.T) *account.KeyPair {
	t.Helper()
	kp, err := account.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	return kp
}

func TestSignature(t *testing.T) {
	alice, bob := mustKeyPair(t), mustKeyPair(t)
	verifier := service.NewSignatureVerifier(nil)

	var (
		gotApprovals []domain.Principal
		gotBody      string
	)
	handler := Signature(verifier, 64)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotApprovals = service.ApprovalsFromContext(r.Context())
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		gotApprovals, gotBody = nil, ""
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("attaches approvals and restores body", func(t *testing.T) {
		body := []byte(`{"to":"x"}`)
		req := httptest.NewRequest("POST", "/v1/tokens/0/transfer", bytes.NewReader(body))
		signRequest(t, req, body, time.Now(), alice, bob)

		rec := serve(req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(gotApprovals) != 2 || gotApprovals[0] != domain.Principal(alice.Address()) || gotApprovals[1] != domain.Principal(bob.Address()) {
			t.Errorf("approvals = %v, want [alice bob]", gotApprovals)
		}
		if gotBody != string(body) {
			t.Errorf("body = %q, want %q", gotBody, body)
		}
	})

	t.Run("unsigned requests pass without approvals", func(t *testing.T) {
		rec := serve(httptest.NewRequest("GET", "/v1/tokens", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if len(gotApprovals) != 0 {
			t.Errorf("expected no approvals, got %v", gotApprovals)
		}
	})

	t.Run("query string is covered", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/tokens?owner=a", nil)
		signRequest(t, req, nil, time.Now(), alice)
		req.URL.RawQuery = "owner=b"

		rec := serve(req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	rejections := []struct {
		name   string
		mutate func(req *http.Request)
		status int
		code   string
	}{
		{
			name:   "tampered body",
			mutate: func(req *http.Request) { req.Body = io.NopCloser(strings.NewReader(`{"to":"y"}`)) },
			status: http.StatusUnauthorized, code: domain.ErrSignatureInvalid.Code,
		},
		{
			name:   "stale timestamp",
			mutate: func(req *http.Request) { req.Header.Set(account.HeaderTimestamp, "1000") },
			status: http.StatusUnauthorized, code: domain.ErrTimestampSkew.Code,
		},
		{
			name:   "malformed timestamp",
			mutate: func(req *http.Request) { req.Header.Set(account.HeaderTimestamp, "soon") },
			status: http.StatusBadRequest, code: domain.ErrBadRequest.Code,
		},
		{
			name:   "missing nonce",
			mutate: func(req *http.Request) { req.Header.Del(account.HeaderNonce) },
			status: http.StatusUnauthorized, code: domain.ErrSignatureMissing.Code,
		},
		{
			name:   "body too large",
			mutate: func(req *http.Request) { req.Body = io.NopCloser(strings.NewReader(strings.Repeat("x", 65))) },
			status: http.StatusBadRequest, code: domain.ErrBadRequest.Code,
		},
	}
	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(`{"to":"x"}`)
			req := httptest.NewRequest("POST", "/v1/tokens/0/transfer", bytes.NewReader(body))
			signRequest(t, req, body, time.Now(), alice)
			tt.mutate(req)

			rec := serve(req)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("X-Error-Code"); got != tt.code {
				t.Errorf("expected X-Error-Code %s, got %s", tt.code, got)
			}
		})
	}

	t.Run("replayed nonce", func(t *testing.T) {
		body := []byte(`{}`)
		req := httptest.NewRequest("POST", "/v1/tokens/0/burn", bytes.NewReader(body))
		signRequest(t, req, body, time.Now(), alice)
		replay := req.Clone(context.Background())
		replay.Body = io.NopCloser(bytes.NewReader(body))

		if rec := serve(req); rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		rec := serve(replay)
		if got := rec.Header().Get("X-Error-Code"); got != domain.ErrNonceReplay.Code {
			t.Errorf("expected X-Error-Code %s, got %s", domain.ErrNonceReplay.Code, got)
		}
	})
}

type recordedRequest struct {
	method, route string
	status        int
}

type requestRecorder struct {
	mu   sync.Mutex
	seen []recordedRequest
}

func (r *requestRecorder) ObserveRequest(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recordedRequest{method, route, status})
}

func TestMetrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/tokens/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	obs := &requestRecorder{}
	handler := Metrics(obs)(mux)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/v1/tokens/7", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/elsewhere", nil))

	want := []recordedRequest{
		{"GET", "/v1/tokens/{id}", http.StatusNotFound},
		{"GET", "unmatched", http.StatusNotFound},
	}
	if len(obs.seen) != len(want) {
		t.Fatalf("expected %d observations, got %v", len(want), obs.seen)
	}
	for i := range want {
		if obs.seen[i] != want[i] {
			t.Errorf("observation %d = %+v, want %+v", i, obs.seen[i], want[i])
		}
	}
}

func TestTrace(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var traceID string
	handler := Trace(tp)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = logger.TraceIDFromContext(r.Context())
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/v1/tokens", nil))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "POST /v1/tokens" {
		t.Errorf("expected span name 'POST /v1/tokens', got %q", span.Name())
	}
	if traceID != span.SpanContext().TraceID().String() {
		t.Errorf("context trace id = %s, want %s", traceID, span.SpanContext().TraceID())
	}
	if span.Status().Code.String() != "Error" {
		t.Errorf("expected error status, got %v", span.Status().Code)
	}
}
