package command

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/big14way/afri-asset/pkg/account"
)

// mockServer creates a test HTTP server with custom handlers.
type mockServer struct {
	*httptest.Server
	handlers map[string]http.HandlerFunc
}

// newMockServer creates a new mock server. Handlers are keyed by
// "METHOD /path" and matched exactly.
func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := m.handlers[r.Method+" "+r.URL.Path]; ok {
			h(w, r)
			return
		}
		errorResponse(w, http.StatusNotFound, "AA-SYS-4040", "not found")
	}))
	t.Cleanup(m.Close)
	return m
}

// handle registers a handler for "METHOD /path".
func (m *mockServer) handle(pattern string, handler http.HandlerFunc) {
	m.handlers[pattern] = handler
}

// jsonResponse writes a success envelope around data.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       "OK",
		"message":    "Success",
		"request_id": "req-test",
		"data":       data,
	})
}

// errorResponse writes an error envelope.
func errorResponse(w http.ResponseWriter, status int, code, message string, contractCode ...uint32) {
	env := map[string]any{"code": code, "message": message, "request_id": "req-test"}
	if len(contractCode) > 0 {
		env["details"] = map[string]any{"contract_code": contractCode[0]}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// runCLI runs the app against server with an isolated config file and
// returns what it printed.
func runCLI(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer

	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut

	full := []string{"afriasset-cli",
		"--config", filepath.Join(t.TempDir(), "cli.yaml"),
		"--server", server,
	}
	full = append(full, args...)
	err := app.RunContext(context.Background(), full)
	return out.String(), err
}

// newKeyFile writes a fresh key pair to a temporary key file.
func newKeyFile(t *testing.T) (string, *account.KeyPair) {
	t.Helper()
	kp, err := account.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "key")
	if err := account.SaveKeyFile(path, kp); err != nil {
		t.Fatal(err)
	}
	return path, kp
}

func mustContain(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}
