package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shii9/SurfaceNio/internal/output"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surfacenio.yaml")
	content := `
domain: example.com
output: out.csv
concurrency: 20
timeout: 3s
resolvers: [1.1.1.1, 8.8.8.8]
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Domain != "example.com" || cfg.Concurrency != 20 || cfg.Timeout != 3*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Resolvers, []string{"1.1.1.1", "8.8.8.8"}) {
		t.Errorf("resolvers = %v", cfg.Resolvers)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Errorf("log = %+v", cfg.Log)
	}
	// untouched keys keep their defaults
	if cfg.MaxSubdomains != DefaultMaxSubdomains || cfg.UserAgent != DefaultUserAgent || !cfg.CheckTLS {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file: nil error")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("concurrency: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("bad yaml: nil error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvUserAgent: "custom/2.0",
		EnvResolvers: " 9.9.9.9, ,1.1.1.1 ",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.UserAgent != "custom/2.0" {
		t.Errorf("user agent = %q", cfg.UserAgent)
	}
	if !reflect.DeepEqual(cfg.Resolvers, []string{"9.9.9.9", "1.1.1.1"}) {
		t.Errorf("resolvers = %v", cfg.Resolvers)
	}
	if cfg.CTURL != Default().CTURL {
		t.Errorf("ct url changed without env: %q", cfg.CTURL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Default()
		c.Domain = "example.com"
		c.Output = "out.json"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no target", func(c *Config) { c.Domain = "" }, "required"},
		{"both targets", func(c *Config) { c.DomainsFile = "d.txt" }, "mutually exclusive"},
		{"no output", func(c *Config) { c.Output = "" }, "output"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"zero cap", func(c *Config) { c.MaxSubdomains = 0 }, "max subdomains"},
		{"bad format", func(c *Config) { c.Format = "xml" }, "format"},
		{"bad log format", func(c *Config) { c.Log.Format = "logfmt" }, "log format"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"bad proxy", func(c *Config) { c.Proxy = "localhost" }, "proxy"},
		{"unknown source", func(c *Config) { c.Sources = []string{"crtsh", "shodan"} }, "unknown source"},
		{"no sources", func(c *Config) { c.Sources = nil }, "passive source"},
		{"ct url without placeholder", func(c *Config) { c.CTURL = "https://ct.example/" }, "placeholder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestOutputFormat(t *testing.T) {
	c := Config{Output: "scan.xlsx"}
	if f, _ := c.OutputFormat(); f != output.FormatXLSX {
		t.Errorf("inferred = %s", f)
	}
	c.Format = "csv"
	if f, _ := c.OutputFormat(); f != output.FormatCSV {
		t.Errorf("explicit = %s", f)
	}
}
