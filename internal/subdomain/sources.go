package subdomain

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Passive source names accepted by NewPassiveSource.
const (
	SourceCrtSh        = "crtsh"
	SourceCertSpotter  = "certspotter"
	SourceHackerTarget = "hackertarget"
	SourceAnubis       = "anubis"
)

// HTTPOptions are shared by every HTTP based source.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	Proxy     *url.URL
}

// APISource queries a third party passive DNS or certificate search API.
type APISource struct {
	name        string
	urlTemplate string
	parse       func(r io.Reader) ([]string, error)
	userAgent   string
	http        *http.Client
	limiter     *rate.Limiter
}

type apiEndpoint struct {
	urlTemplate string
	parse       func(r io.Reader) ([]string, error)
}

var apiSources = map[string]apiEndpoint{
	SourceCertSpotter: {
		urlTemplate: "https://api.certspotter.com/v1/issuances?domain={domain}&include_subdomains=true&expand=dns_names",
		parse:       parseCertSpotter,
	},
	SourceHackerTarget: {
		urlTemplate: "https://api.hackertarget.com/hostsearch/?q={domain}",
		parse:       parseHackerTarget,
	},
	SourceAnubis: {
		urlTemplate: "https://jldc.me/anubis/subdomains/{domain}",
		parse:       parseAnubis,
	},
}

// SourceNames lists every passive source, sorted.
func SourceNames() []string {
	names := []string{SourceCrtSh}
	for n := range apiSources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewPassiveSource builds the named source. ctURL is only used for crtsh.
func NewPassiveSource(name, ctURL string, opts HTTPOptions) (Source, error) {
	if name == SourceCrtSh {
		return NewCTClient(CTOptions{
			URLTemplate: ctURL,
			UserAgent:   opts.UserAgent,
			Timeout:     opts.Timeout,
			Proxy:       opts.Proxy,
		}), nil
	}
	ep, ok := apiSources[name]
	if !ok {
		return nil, errors.Errorf("unknown source %q", name)
	}
	return newAPISource(name, ep.urlTemplate, ep.parse, opts), nil
}

func newAPISource(name, urlTemplate string, parse func(io.Reader) ([]string, error), opts HTTPOptions) *APISource {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != nil {
		tr.Proxy = http.ProxyURL(opts.Proxy)
	}
	return &APISource{
		name:        name,
		urlTemplate: urlTemplate,
		parse:       parse,
		userAgent:   opts.UserAgent,
		http:        &http.Client{Timeout: opts.Timeout, Transport: tr},
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (s *APISource) Name() string { return s.name }

func (s *APISource) Subdomains(ctx context.Context, domain string) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(err, "%s rate limit", s.name)
	}

	u := strings.ReplaceAll(s.urlTemplate, "{domain}", url.QueryEscape(domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status: %s", resp.Status)
	}

	names, err := s.parse(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s response", s.name)
	}

	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, n := range names {
		h := Normalize(n)
		if h == "" || !InScope(h, domain) {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out, nil
}

func parseCertSpotter(r io.Reader) ([]string, error) {
	var issuances []struct {
		DNSNames []string `json:"dns_names"`
	}
	if err := json.NewDecoder(r).Decode(&issuances); err != nil {
		return nil, err
	}
	var out []string
	for _, is := range issuances {
		out = append(out, is.DNSNames...)
	}
	return out, nil
}

// parseHackerTarget reads "host,ip" lines. The API answers errors with a
// plain text line, which never matches the domain and is dropped later.
func parseHackerTarget(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		host, _, _ := strings.Cut(sc.Text(), ",")
		out = append(out, host)
	}
	return out, sc.Err()
}

func parseAnubis(r io.Reader) ([]string, error) {
	var out []string
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
