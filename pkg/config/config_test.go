package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "vault")
	p := writeFile(t, "name: ${SAMPLE_NAME}\ndebug: true\n")

	cfg := sample{Port: 8080}
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "vault" || !cfg.Debug || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRunsValidator(t *testing.T) {
	p := writeFile(t, "port: 0\n")
	cfg := sample{Port: 1}
	err := Load(p, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg := sample{Port: 1}
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOptional(t *testing.T) {
	cfg := sample{Port: 9000}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &cfg)
	if err != nil || found {
		t.Fatalf("found = %v, err = %v", found, err)
	}
	if cfg.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Port)
	}

	bad := sample{}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &bad); err == nil {
		t.Error("defaults should still be validated")
	}

	p := writeFile(t, "port: 7000\n")
	found, err = LoadOptional(p, &cfg)
	if err != nil || !found || cfg.Port != 7000 {
		t.Errorf("found = %v, err = %v, port = %d", found, err, cfg.Port)
	}
}
