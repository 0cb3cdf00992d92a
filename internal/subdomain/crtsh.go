package subdomain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// DefaultCTURL is the crt.sh JSON search. {domain} is replaced with the apex.
const DefaultCTURL = "https://crt.sh/?q=%25.{domain}&output=json"

// Source contributes candidate hostnames for an apex domain.
type Source interface {
	Name() string
	Subdomains(ctx context.Context, domain string) ([]string, error)
}

// CTClient searches a certificate transparency log for names under a domain.
type CTClient struct {
	urlTemplate string
	userAgent   string
	http        *http.Client
	limiter     *rate.Limiter
}

type CTOptions struct {
	URLTemplate string
	UserAgent   string
	Timeout     time.Duration
	// Proxy routes the search through an HTTP proxy when set.
	Proxy       *url.URL
	// Limiter is shared by every search in a run. Nil means one request per second.
	Limiter     *rate.Limiter
}

func NewCTClient(opts CTOptions) *CTClient {
	if opts.URLTemplate == "" {
		opts.URLTemplate = DefaultCTURL
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != nil {
		tr.Proxy = http.ProxyURL(opts.Proxy)
	}
	return &CTClient{
		urlTemplate: opts.URLTemplate,
		userAgent:   opts.UserAgent,
		http:        &http.Client{Timeout: opts.Timeout, Transport: tr},
		limiter:     opts.Limiter,
	}
}

func (c *CTClient) Name() string { return "crtsh" }

type ctEntry struct {
	NameValue string `json:"name_value"`
}

// Subdomains returns every normalized name in the log that is the domain or
// one of its subdomains. A single entry may carry several newline separated
// names.
func (c *CTClient) Subdomains(ctx context.Context, domain string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "ct rate limit")
	}

	u := strings.ReplaceAll(c.urlTemplate, "{domain}", url.QueryEscape(domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status: %s", resp.Status)
	}

	dec := json.NewDecoder(resp.Body)

	// Expect a JSON array of objects; crt.sh answers can be large so they are
	// decoded one entry at a time.
	t, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "read opening token")
	}
	if d, ok := t.(json.Delim); !ok || d != '[' {
		return nil, errors.New("expected JSON array from ct log")
	}

	seen := make(map[string]struct{})
	var out []string
	for dec.More() {
		var e ctEntry
		if err := dec.Decode(&e); err != nil {
			return nil, errors.Wrap(err, "decode entry")
		}
		for _, line := range strings.Split(e.NameValue, "\n") {
			h := Normalize(line)
			if h == "" || !InScope(h, domain) {
				continue
			}
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, errors.Wrap(err, "read closing token")
	}
	return out, nil
}
