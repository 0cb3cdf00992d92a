// Package config holds run settings and resolves them from defaults, a YAML
// file and the environment. Command-line flags are applied on top by the
// caller.
package config

import (
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/shii9/SurfaceNio/internal/logger"
	"github.com/shii9/SurfaceNio/internal/output"
	"github.com/shii9/SurfaceNio/internal/subdomain"
)

const (
	DefaultConcurrency   = 100
	DefaultTimeout       = 10 * time.Second
	DefaultMaxSubdomains = 5000
	DefaultUserAgent     = "surfacenio/1.0"
)

// Environment overrides.
const (
	EnvUserAgent = "SURFACENIO_USER_AGENT"
	EnvCTURL     = "SURFACENIO_CT_URL"
	EnvResolvers = "SURFACENIO_RESOLVERS"
)

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type Config struct {
	Domain      string `yaml:"domain"`
	DomainsFile string `yaml:"domains_file"`
	Output      string `yaml:"output"`
	// Format is inferred from Output when empty.
	Format      string `yaml:"format"`

	Concurrency   int           `yaml:"concurrency"`
	Timeout       time.Duration `yaml:"timeout"`
	PassiveOnly   bool          `yaml:"passive_only"`
	Wordlist      string        `yaml:"wordlist"`
	MaxSubdomains int           `yaml:"max_subdomains"`
	UserAgent     string        `yaml:"user_agent"`
	CheckTLS      bool          `yaml:"check_tls"`

	// Sources are the passive enumeration sources, crtsh by default.
	Sources   []string `yaml:"sources"`
	CTURL     string   `yaml:"ct_url"`
	// Resolvers switches DNS lookups from the system resolver to these
	// servers.
	Resolvers []string `yaml:"resolvers"`
	AXFR      bool     `yaml:"axfr"`
	Whois     bool     `yaml:"whois"`
	Proxy     string   `yaml:"proxy"`

	Log Log `yaml:"log"`
}

func Default() Config {
	return Config{
		Concurrency:   DefaultConcurrency,
		Timeout:       DefaultTimeout,
		MaxSubdomains: DefaultMaxSubdomains,
		UserAgent:     DefaultUserAgent,
		CheckTLS:      true,
		Sources:       []string{subdomain.SourceCrtSh},
		CTURL:         subdomain.DefaultCTURL,
		Log: Log{
			Level:  "info",
			Format: logger.FormatConsole,
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvUserAgent); v != "" {
		c.UserAgent = v
	}
	if v := getenv(EnvCTURL); v != "" {
		c.CTURL = v
	}
	if v := getenv(EnvResolvers); v != "" {
		c.Resolvers = SplitList(v)
	}
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) Validate() error {
	switch {
	case c.Domain == "" && c.DomainsFile == "":
		return errors.New("one of domain or domains file is required")
	case c.Domain != "" && c.DomainsFile != "":
		return errors.New("domain and domains file are mutually exclusive")
	case c.Output == "":
		return errors.New("output path is required")
	case c.Concurrency < 1:
		return errors.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	case c.Timeout <= 0:
		return errors.Errorf("timeout must be positive, got %s", c.Timeout)
	case c.MaxSubdomains < 1:
		return errors.Errorf("max subdomains must be at least 1, got %d", c.MaxSubdomains)
	case !strings.Contains(c.CTURL, "{domain}"):
		return errors.Errorf("ct url %q has no {domain} placeholder", c.CTURL)
	}

	if len(c.Sources) == 0 {
		return errors.New("at least one passive source is required")
	}
	for _, src := range c.Sources {
		if !slices.Contains(subdomain.SourceNames(), src) {
			return errors.Errorf("unknown source %q, want one of %s", src, strings.Join(subdomain.SourceNames(), ", "))
		}
	}

	if _, err := c.OutputFormat(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logger.FormatConsole, logger.FormatJSON:
	default:
		return errors.Errorf("unknown log format %q", c.Log.Format)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := c.ProxyURL(); err != nil {
		return err
	}
	return nil
}

// OutputFormat returns the explicit format, or the one implied by the output
// file extension.
func (c Config) OutputFormat() (output.Format, error) {
	if c.Format == "" {
		return output.InferFormat(c.Output), nil
	}
	return output.ParseFormat(c.Format)
}

// ProxyURL is nil when no proxy is configured.
func (c Config) ProxyURL() (*url.URL, error) {
	if c.Proxy == "" {
		return nil, nil
	}
	u, err := url.Parse(c.Proxy)
	if err != nil {
		return nil, errors.Wrap(err, "invalid proxy")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid proxy %q: want scheme://host:port", c.Proxy)
	}
	return u, nil
}
