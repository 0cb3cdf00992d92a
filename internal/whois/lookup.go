// Package whois attaches registrar and expiry data to apex domains.
package whois

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/shii9/SurfaceNio/internal/model"
)

type Client struct {
	fetch func(domain string) (string, error)
	log   zerolog.Logger
	now   func() time.Time
}

func NewClient(timeout time.Duration, log zerolog.Logger) *Client {
	wc := whois.NewClient().SetTimeout(timeout)
	return &Client{
		fetch: func(domain string) (string, error) { return wc.Whois(domain) },
		log:   log.With().Str("component", "whois").Logger(),
		now:   time.Now,
	}
}

// Registration queries WHOIS for domain. The query itself is not
// cancellable, so a cancelled ctx only stops the wait.
func (c *Client) Registration(ctx context.Context, domain string) (*model.Registration, error) {
	type answer struct {
		raw string
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		raw, err := c.fetch(domain)
		ch <- answer{raw, err}
	}()

	var a answer
	select {
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "whois %s", domain)
	case a = <-ch:
	}
	if a.err != nil {
		return nil, errors.Wrapf(a.err, "whois %s", domain)
	}

	reg := parse(a.raw, c.now())
	if reg == nil {
		return nil, errors.Errorf("whois %s: no registration data", domain)
	}
	c.log.Debug().Str("domain", domain).Str("registrar", reg.Registrar).Msg("registration found")
	return reg, nil
}

// parse prefers the structured parser and falls back to line matching for
// whatever it could not find. It returns nil when neither field is present.
func parse(raw string, now time.Time) *model.Registration {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var registrar string
	var expires *time.Time
	if info, err := whoisparser.Parse(raw); err == nil {
		if info.Registrar != nil {
			registrar = strings.TrimSpace(info.Registrar.Name)
		}
		if info.Domain != nil && info.Domain.ExpirationDateInTime != nil {
			t := info.Domain.ExpirationDateInTime.UTC()
			expires = &t
		}
	}

	if registrar == "" {
		registrar = findFirst(registrarPattern, raw)
	}
	if expires == nil {
		expires = parseDate(findFirst(expiryPattern, raw))
	}
	if registrar == "" && expires == nil {
		return nil
	}

	reg := &model.Registration{Registrar: registrar, ExpirationDate: expires}
	if expires != nil {
		reg.DaysToExpire = model.Int(int(math.Floor(expires.Sub(now).Seconds() / 86400)))
	}
	return reg
}

var (
	registrarPattern = regexp.MustCompile(`(?im)^\s*(?:registrar|sponsoring registrar|registrar name):[ \t]*(.+)$`)
	expiryPattern    = regexp.MustCompile(`(?im)^\s*(?:registry expiry date|registrar registration expiration date|expiration date|expiry date|expires on|paid-till):[ \t]*(.+)$`)
)

func findFirst(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006.01.02",
	"02-Jan-2006",
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
