// Package http probes hosts over plain and TLS HTTP and reads certificate
// expiry.
package http

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	stdhttp "net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"

	"github.com/shii9/SurfaceNio/internal/model"
)

const (
	// MaxBodyBytes is how much of a response body is read for the title.
	MaxBodyBytes = 200_000
	// MaxRedirects matches net/http's default policy.
	MaxRedirects = 10
)

// AllowedHeaders are the response headers kept on a result, lowercased.
var AllowedHeaders = []string{"server", "x-powered-by"}

type Options struct {
	Timeout   time.Duration
	UserAgent string
	// CheckTLS enables the separate handshake that reads certificate expiry.
	CheckTLS  bool
	// Proxy is used for content fetches only. The expiry handshake is direct.
	Proxy     *url.URL
}

type Prober struct {
	opts Options
	log  zerolog.Logger
	now  func() time.Time

	// Non-default ports and trust roots, used by tests.
	httpPort  string
	httpsPort string
	rootCAs   *x509.CertPool
}

func NewProber(opts Options, log zerolog.Logger) *Prober {
	return &Prober{
		opts: opts,
		log:  log.With().Str("component", "prober").Logger(),
		now:  time.Now,
	}
}

// Probe never fails: a scheme that cannot be fetched is reported as not alive.
func (p *Prober) Probe(ctx context.Context, host string) model.HTTPInfo {
	info := model.HTTPInfo{
		HTTP:  p.fetch(ctx, model.SchemeHTTP, host),
		HTTPS: p.fetch(ctx, model.SchemeHTTPS, host),
	}

	if info.HTTPS.Alive && p.opts.CheckTLS {
		days, err := p.certDaysToExpire(ctx, host)
		if err != nil {
			p.log.Debug().Err(err).Str("host", host).Msg("tls check failed")
		} else {
			info.HTTPS.TLS = &model.TLSInfo{DaysToExpire: days}
		}
	}
	return info
}

func (p *Prober) targetURL(scheme, host string) string {
	port := p.httpPort
	if scheme == model.SchemeHTTPS {
		port = p.httpsPort
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	}
	return scheme + "://" + host + "/"
}

// newClient builds a client whose connections live for one request only.
// hops receives the number of redirects followed.
func (p *Prober) newClient(hops *int) *stdhttp.Client {
	tr := &stdhttp.Transport{
		DialContext:         (&net.Dialer{Timeout: p.opts.Timeout}).DialContext,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		TLSHandshakeTimeout: p.opts.Timeout,
		DisableKeepAlives:   true,
		ForceAttemptHTTP2:   true,
	}
	if p.opts.Proxy != nil {
		tr.Proxy = stdhttp.ProxyURL(p.opts.Proxy)
	}

	return &stdhttp.Client{
		Timeout:   p.opts.Timeout,
		Transport: tr,
		CheckRedirect: func(req *stdhttp.Request, via []*stdhttp.Request) error {
			if len(via) >= MaxRedirects {
				return errors.Errorf("stopped after %d redirects", MaxRedirects)
			}
			*hops = len(via)
			return nil
		},
	}
}

func (p *Prober) fetch(ctx context.Context, scheme, host string) model.SchemeResult {
	target := p.targetURL(scheme, host)

	var hops int
	client := p.newClient(&hops)
	defer client.CloseIdleConnections()

	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodGet, target, nil)
	if err != nil {
		p.log.Debug().Err(err).Str("url", target).Msg("bad request")
		return model.SchemeResult{}
	}
	if p.opts.UserAgent != "" {
		req.Header.Set("User-Agent", p.opts.UserAgent)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		p.log.Debug().Err(err).Str("url", target).Msg("probe failed")
		return model.SchemeResult{}
	}
	defer resp.Body.Close()
	rtt := int(time.Since(start).Milliseconds())

	res := model.SchemeResult{
		Alive:         true,
		Status:        model.Int(resp.StatusCode),
		FinalURL:      model.String(resp.Request.URL.String()),
		RoundTripMS:   model.Int(rtt),
		RedirectCount: model.Int(hops),
		Headers:       pickHeaders(resp.Header),
	}
	if title, ok := ExtractTitle(readBody(resp)); ok {
		res.Title = model.String(title)
	}
	return res
}

// charsetPreview is how much of the body is sniffed for an encoding.
const charsetPreview = 1024

// readBody returns at most MaxBodyBytes of the body decoded to UTF-8. Read
// errors end the body early instead of failing the probe. The sniffed
// preview stays buffered, so it is kept even when the read fails inside it.
func readBody(resp *stdhttp.Response) string {
	br := bufio.NewReaderSize(io.LimitReader(resp.Body, MaxBodyBytes), charsetPreview)
	preview, _ := br.Peek(charsetPreview)
	enc, _, _ := charset.DetermineEncoding(preview, resp.Header.Get("Content-Type"))
	b, _ := io.ReadAll(enc.NewDecoder().Reader(br))
	return string(b)
}

func pickHeaders(h stdhttp.Header) map[string]string {
	out := make(map[string]string, len(AllowedHeaders))
	for _, name := range AllowedHeaders {
		if v := h.Get(name); v != "" {
			out[name] = v
		}
	}
	return out
}
