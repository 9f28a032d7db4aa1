package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/big14way/afri-asset/pkg/account"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// UserAgent is sent with every request.
var UserAgent = "afriasset-cli/1.0"

// HTTPClient provides HTTP communication with the registry server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	signers []*account.KeyPair
	now     func() time.Time
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithSigner adds a key that signs mutating requests. Several signers
// produce one signature header each.
func WithSigner(kp *account.KeyPair) Option {
	return func(c *HTTPClient) {
		if kp != nil {
			c.signers = append(c.signers, kp)
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.client = hc }
}

// WithClock overrides the signing timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *HTTPClient) { c.now = now }
}

// NewHTTPClient creates a new HTTP client.
func NewHTTPClient(server string, opts ...Option) *HTTPClient {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	c := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// CanSign reports whether the client holds at least one signing key.
func (c *HTTPClient) CanSign() bool {
	return len(c.signers) > 0
}

// Get performs an unsigned GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	return c.client.Do(req)
}

// Post performs a signed POST request with a JSON body. A nil body sends
// an empty payload.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.sign(req, data); err != nil {
		return nil, err
	}

	return c.client.Do(req)
}

// sign attaches one signature header per signer.
func (c *HTTPClient) sign(req *http.Request, body []byte) error {
	if len(c.signers) == 0 {
		return nil
	}

	nonce, err := account.NewNonce()
	if err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	ts := c.now().UnixMilli()
	digest := account.RequestDigest(req.Method, req.URL.RequestURI(), ts, nonce, body)

	req.Header.Set(account.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(account.HeaderNonce, nonce)
	for _, kp := range c.signers {
		req.Header.Add(account.HeaderSignature, kp.SignatureHeader(digest))
	}
	return nil
}

// addHeaders adds common headers.
func (c *HTTPClient) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
}

// APIError is a non-success response envelope.
type APIError struct {
	Status       int
	Code         string
	Message      string
	ContractCode uint32
	Reason       string
	RequestID    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.ContractCode != 0 {
		fmt.Fprintf(&b, " (contract code %d)", e.ContractCode)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// envelope mirrors the server response envelope.
type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Details   json.RawMessage `json:"details"`
}

type errorDetails struct {
	ContractCode uint32 `json:"contract_code"`
	Reason       string `json:"reason"`
}

// ParseResponse decodes the envelope of resp and unmarshals its data
// member into target. Error envelopes are returned as *APIError.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Code == "" {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Code: strconv.Itoa(resp.StatusCode), Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("parse response: unexpected body from server")
	}

	if resp.StatusCode >= 400 || env.Code != "OK" {
		apiErr := &APIError{
			Status:    resp.StatusCode,
			Code:      env.Code,
			Message:   env.Message,
			RequestID: env.RequestID,
		}
		var details errorDetails
		if len(env.Details) > 0 && json.Unmarshal(env.Details, &details) == nil {
			apiErr.ContractCode = details.ContractCode
			apiErr.Reason = details.Reason
		}
		return apiErr
	}

	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	return nil
}
