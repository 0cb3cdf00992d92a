package dns

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/shii9/SurfaceNio/internal/model"
)

const defaultCacheSize = 4096

// FamilyResult is the outcome of one address family lookup. Err is kept for
// logging only: a failed family simply contributes no addresses.
type FamilyResult struct {
	Family Family
	Addrs  []string
	Err    error
}

// Resolver turns hostnames into model.DNSInfo.
type Resolver struct {
	lookuper Lookuper
	timeout  time.Duration
	cache    *lru.Cache[string, model.DNSInfo]
	log      zerolog.Logger
}

func NewResolver(l Lookuper, timeout time.Duration, log zerolog.Logger) *Resolver {
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, model.DNSInfo](defaultCacheSize)
	return &Resolver{
		lookuper: l,
		timeout:  timeout,
		cache:    cache,
		log:      log.With().Str("component", "resolver").Logger(),
	}
}

// Resolve looks up A and AAAA concurrently, each under its own timeout. A
// failure of one family never affects the other.
func (r *Resolver) Resolve(ctx context.Context, host string) model.DNSInfo {
	if info, ok := r.cache.Get(host); ok {
		return info
	}

	var (
		wg      sync.WaitGroup
		results [2]FamilyResult
	)
	for i, fam := range []Family{IPv4, IPv6} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.lookup(ctx, host, fam)
		}()
	}
	wg.Wait()

	failed := false
	for _, res := range results {
		if res.Err != nil {
			failed = true
			r.log.Debug().Err(res.Err).Str("host", host).Stringer("family", res.Family).Msg("lookup failed")
		}
	}

	info := model.NewDNSInfo(results[0].Addrs, results[1].Addrs)
	// Only complete answers are cached; a timeout or cancellation is retried
	// the next time the host comes up.
	if !failed && ctx.Err() == nil {
		r.cache.Add(host, info)
	}
	return info
}

func (r *Resolver) lookup(ctx context.Context, host string, fam Family) FamilyResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.lookuper.LookupFamily(ctx, host, fam)
	if err != nil {
		return FamilyResult{Family: fam, Err: err}
	}
	return FamilyResult{Family: fam, Addrs: addrs}
}
