package subdomain

import (
	"context"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/pkg/errors"
)

// ZoneTransfer asks each authoritative name server of the domain for a full
// zone transfer and keeps the in-scope owner names. Most servers refuse.
type ZoneTransfer struct {
	Timeout  time.Duration
	resolver *net.Resolver
}

func (z *ZoneTransfer) Name() string { return "axfr" }

func (z *ZoneTransfer) Subdomains(ctx context.Context, domain string) ([]string, error) {
	r := z.resolver
	if r == nil {
		r = net.DefaultResolver
	}
	nsRecords, err := r.LookupNS(ctx, domain)
	if err != nil {
		return nil, errors.Wrap(err, "lookup NS")
	}

	found := map[string]struct{}{}
	msg := new(mdns.Msg)
	msg.SetAxfr(mdns.Fqdn(domain))

	for _, ns := range nsRecords {
		if ctx.Err() != nil {
			break
		}
		addr := net.JoinHostPort(strings.TrimSuffix(ns.Host, "."), "53")
		tr := &mdns.Transfer{DialTimeout: z.Timeout, ReadTimeout: z.Timeout}
		ch, err := tr.In(msg, addr)
		if err != nil {
			continue
		}
		for env := range ch {
			if env.Error != nil {
				continue
			}
			for _, rr := range env.RR {
				name := Normalize(rr.Header().Name)
				if InScope(name, domain) {
					found[name] = struct{}{}
				}
			}
		}
		if len(found) > 0 {
			break
		}
	}

	if len(found) == 0 {
		return nil, errors.New("zone transfer not allowed or returned no names")
	}
	out := make([]string, 0, len(found))
	for s := range found {
		out = append(out, s)
	}
	return out, nil
}
