package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/j-shelfwood/obsidian-local-rest-api/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestVaultConfig_EmptyDriverDefaultsFS(t *testing.T) {
	cfg := VaultConfig{Path: "./vault"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty driver should default to fs: %v", err)
	}
	if cfg.Driver != DriverFS {
		t.Errorf("driver = %q, want %q", cfg.Driver, DriverFS)
	}
}

func TestVaultConfig_InvalidDriver(t *testing.T) {
	cfg := VaultConfig{Path: "./vault", Driver: "s3"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail validation")
	}
}

func TestVaultConfig_FSRequiresPath(t *testing.T) {
	cfg := VaultConfig{Driver: DriverFS}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("fs driver without path should fail")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "path") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFullConfig_SQLiteRequiresPath(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Vault.Driver = DriverSQLite
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("sqlite driver without sqlite.path should fail")
	}

	cfg.Vault.Driver = DriverFS
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fs driver ignores sqlite.path: %v", err)
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	cfg := HTTPConfig{Port: 70000}
	if err := cfg.Validate(); err == nil {
		t.Fatal("port out of range should fail")
	}
}

func TestRateLimitConfig_Negative(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative rate should fail")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("TEST_VAULT_PATH", "/tmp/notes")
	file := filepath.Join(t.TempDir(), "config.yaml")
	data := `app:
  log_level: debug
  http:
    port: 9090
    rate_limit:
      requests_per_second: 5
      burst: 10
vault:
  path: ${TEST_VAULT_PATH}
  watch: false
events:
  throttle: 500ms
`
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(file, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.App.HTTP.Port)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %s, want DEBUG", cfg.App.LogLevel)
	}
	if cfg.Vault.Path != "/tmp/notes" {
		t.Errorf("vault path = %q, want /tmp/notes", cfg.Vault.Path)
	}
	if cfg.Vault.Watch {
		t.Error("watch should be disabled")
	}
	if cfg.Vault.Driver != DriverFS || cfg.Vault.ReadConcurrency != 8 {
		t.Errorf("defaults lost: %+v", cfg.Vault)
	}
	if cfg.Events.Throttle != 500*time.Millisecond {
		t.Errorf("throttle = %s, want 500ms", cfg.Events.Throttle)
	}
	if cfg.App.HTTP.RateLimit.Burst != 10 {
		t.Errorf("burst = %d, want 10", cfg.App.HTTP.RateLimit.Burst)
	}
}
