package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Oracle.Success != "User ID exists" {
		t.Errorf("expected Success=User ID exists, got %s", cfg.Oracle.Success)
	}
	if cfg.Extraction.Concurrency != 20 {
		t.Errorf("expected Concurrency=20, got %d", cfg.Extraction.Concurrency)
	}
	if cfg.Extraction.MaxLength != 49 {
		t.Errorf("expected MaxLength=49, got %d", cfg.Extraction.MaxLength)
	}
	if cfg.Target.Param != "id" {
		t.Errorf("expected Param=id, got %s", cfg.Target.Param)
	}
	if cfg.Target.FixedParams["Submit"] != "Submit" {
		t.Errorf("expected fixed Submit parameter, got %v", cfg.Target.FixedParams)
	}
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("BLINDSEEKER_URL", "")
	t.Setenv("BLINDSEEKER_CONCURRENCY", "")

	path := filepath.Join(t.TempDir(), "nested", "blindseeker.yaml")

	cfg := DefaultConfig()
	cfg.Target.URL = "http://dvwa.local/vulnerabilities/sqli_blind/"
	cfg.Extraction.Expression = "user()"
	cfg.Extraction.Concurrency = 5

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Target.URL != cfg.Target.URL {
		t.Errorf("expected URL=%s, got %s", cfg.Target.URL, loaded.Target.URL)
	}
	if loaded.Extraction.Expression != "user()" {
		t.Errorf("expected Expression=user(), got %s", loaded.Extraction.Expression)
	}
	if loaded.Extraction.Concurrency != 5 {
		t.Errorf("expected Concurrency=5, got %d", loaded.Extraction.Concurrency)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Extraction.Concurrency != 20 {
		t.Errorf("expected default concurrency, got %d", cfg.Extraction.Concurrency)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "target:\n  url: http://example.test/\noracle:\n  success: Welcome\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Oracle.Success != "Welcome" {
		t.Errorf("expected Success=Welcome, got %s", cfg.Oracle.Success)
	}
	if cfg.Extraction.MaxLength != 49 {
		t.Errorf("expected default MaxLength, got %d", cfg.Extraction.MaxLength)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("target: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestGetRequestTimeout(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetRequestTimeout(); got != 10*time.Second {
		t.Errorf("expected 10s, got %v", got)
	}
	cfg.Transport.Timeout = "250ms"
	if got := cfg.GetRequestTimeout(); got != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", got)
	}
	cfg.Transport.Timeout = "soon"
	if got := cfg.GetRequestTimeout(); got != 10*time.Second {
		t.Errorf("expected fallback 10s, got %v", got)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Target.URL = "http://example.test/"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with url", func(*Config) {}, false},
		{"missing url", func(c *Config) { c.Target.URL = "" }, true},
		{"missing param", func(c *Config) { c.Target.Param = "" }, true},
		{"empty success", func(c *Config) { c.Oracle.Success = "" }, true},
		{"bad match", func(c *Config) { c.Oracle.Match = "regex" }, true},
		{"even votes", func(c *Config) { c.Oracle.Votes = 2 }, true},
		{"three votes", func(c *Config) { c.Oracle.Votes = 3 }, false},
		{"zero concurrency", func(c *Config) { c.Extraction.Concurrency = 0 }, true},
		{"zero max length", func(c *Config) { c.Extraction.MaxLength = 0 }, true},
		{"unknown dialect", func(c *Config) { c.Extraction.Dialect = "db2" }, true},
		{"negative rate", func(c *Config) { c.Transport.RatePerSecond = -1 }, true},
		{"bad timeout", func(c *Config) { c.Transport.Timeout = "forever" }, true},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
