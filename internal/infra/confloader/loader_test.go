package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		HTTP struct {
			Address string `koanf:"address"`
			Enabled bool   `koanf:"enabled"`
		} `koanf:"http"`
	} `koanf:"server"`
	Storage struct {
		Engine     string `koanf:"engine"`
		SyncWrites bool   `koanf:"sync_writes"`
	} `koanf:"storage"`
	Security struct {
		TimestampWindow time.Duration `koanf:"timestamp_window"`
	} `koanf:"security"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "afriasset.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoader_Precedence(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    address: "0.0.0.0:8080"
storage:
  engine: leveldb
  sync_writes: false
`)
	t.Setenv("AFRIASSET_STORAGE_ENGINE", "sqlite")
	t.Setenv("AFRIASSET_STORAGE_SYNC_WRITES", "true")

	var cfg testConfig
	cfg.Server.HTTP.Enabled = true
	cfg.Security.TimestampWindow = 30 * time.Second

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"server.http.address": "127.0.0.1:9000"}),
	)
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"override beats file", cfg.Server.HTTP.Address, "127.0.0.1:9000"},
		{"default kept", cfg.Server.HTTP.Enabled, true},
		{"env beats file", cfg.Storage.Engine, "sqlite"},
		{"underscore key from env", cfg.Storage.SyncWrites, true},
		{"duration default kept", cfg.Security.TimestampWindow, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoader_DurationFromFile(t *testing.T) {
	path := writeConfig(t, "security:\n  timestamp_window: 45s\n")

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Security.TimestampWindow != 45*time.Second {
		t.Errorf("timestamp_window = %v, want 45s", cfg.Security.TimestampWindow)
	}
}

func TestLoader_FileErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.yaml")},
		{"invalid yaml", writeConfig(t, "server: [unclosed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg testConfig
			if err := NewLoader(WithConfigFile(tt.path)).Load(&cfg); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("CUSTOM_SERVER_HTTP_ADDRESS", ":1234")
	t.Setenv("AFRIASSET_SERVER_HTTP_ADDRESS", ":9999")

	l := NewLoader(WithEnvPrefix("CUSTOM_"))
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.HTTP.Address != ":1234" {
		t.Errorf("address = %q, want :1234", cfg.Server.HTTP.Address)
	}
	if l.GetString("server.http.address") != ":1234" {
		t.Errorf("GetString() = %q", l.GetString("server.http.address"))
	}
}

func TestEnvKeys(t *testing.T) {
	keys := envKeys(&testConfig{})

	want := map[string]string{
		"server_http_address":       "server.http.address",
		"storage_sync_writes":       "storage.sync_writes",
		"security_timestamp_window": "security.timestamp_window",
	}
	for env, key := range want {
		if keys[env] != key {
			t.Errorf("envKeys[%q] = %q, want %q", env, keys[env], key)
		}
	}
}

func TestUnflatten(t *testing.T) {
	got := unflatten(map[string]any{"log.level": "debug", "log.format": "text", "top": 1})

	log, ok := got["log"].(map[string]any)
	if !ok || log["level"] != "debug" || log["format"] != "text" || got["top"] != 1 {
		t.Errorf("unflatten() = %v", got)
	}
}
