package dns

import (
	"context"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/pkg/errors"
)

// Family is an address family to resolve.
type Family int

const (
	IPv4 Family = iota
	IPv6
)

func (f Family) String() string {
	if f == IPv6 {
		return "AAAA"
	}
	return "A"
}

// Lookuper returns the addresses of one family for a host.
type Lookuper interface {
	LookupFamily(ctx context.Context, host string, fam Family) ([]string, error)
}

// SystemLookuper uses the operating system resolver.
type SystemLookuper struct {
	Resolver *net.Resolver
}

func (s SystemLookuper) LookupFamily(ctx context.Context, host string, fam Family) ([]string, error) {
	r := s.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	network := "ip4"
	if fam == IPv6 {
		network = "ip6"
	}
	ips, err := r.LookupIP(ctx, network, host)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		out = append(out, ip.String())
	}
	return out, nil
}

// DNSLookuper sends A/AAAA questions straight to the given servers, in order,
// until one of them answers.
type DNSLookuper struct {
	servers []string
	client  *mdns.Client
}

// NewDNSLookuper accepts servers as "ip" or "ip:port".
func NewDNSLookuper(servers []string, timeout time.Duration) (*DNSLookuper, error) {
	l := &DNSLookuper{client: &mdns.Client{Net: "udp", Timeout: timeout}}
	for _, s := range servers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		l.servers = append(l.servers, s)
	}
	if len(l.servers) == 0 {
		return nil, errors.New("no dns servers given")
	}
	return l, nil
}

func (l *DNSLookuper) LookupFamily(ctx context.Context, host string, fam Family) ([]string, error) {
	qtype := mdns.TypeA
	if fam == IPv6 {
		qtype = mdns.TypeAAAA
	}
	msg := new(mdns.Msg)
	msg.SetQuestion(mdns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, srv := range l.servers {
		r, _, err := l.client.ExchangeContext(ctx, msg, srv)
		if err != nil {
			lastErr = errors.Wrapf(err, "exchange with %s", srv)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		switch r.Rcode {
		case mdns.RcodeSuccess:
		case mdns.RcodeNameError:
			return nil, nil
		default:
			lastErr = errors.Errorf("%s answered %s", srv, mdns.RcodeToString[r.Rcode])
			continue
		}

		var out []string
		for _, rr := range r.Answer {
			switch v := rr.(type) {
			case *mdns.A:
				if fam == IPv4 {
					out = append(out, v.A.String())
				}
			case *mdns.AAAA:
				if fam == IPv6 {
					out = append(out, v.AAAA.String())
				}
			}
		}
		return out, nil
	}
	return nil, lastErr
}
