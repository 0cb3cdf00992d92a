package http

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"time"

	"github.com/pkg/errors"
)

// certDaysToExpire opens its own verified TLS connection to port 443 and reads
// the leaf certificate. It is independent of the content fetch.
func (p *Prober) certDaysToExpire(ctx context.Context, host string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	port := p.httpsPort
	if port == "" {
		port = "443"
	}
	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: p.opts.Timeout},
		Config:    &tls.Config{ServerName: host, RootCAs: p.rootCAs},
	}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return 0, errors.Wrap(err, "tls handshake")
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return 0, errors.New("no peer certificate")
	}
	return DaysUntil(state.PeerCertificates[0].NotAfter, p.now()), nil
}

// DaysUntil is the number of whole days from now to t, rounded down. It is
// negative once t has passed.
func DaysUntil(t, now time.Time) int {
	return int(math.Floor(t.Sub(now).Seconds() / 86400))
}
