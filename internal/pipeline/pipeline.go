// Package pipeline runs enumeration, resolution, probing and tagging for each
// input domain in turn.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/shii9/SurfaceNio/internal/executor"
	"github.com/shii9/SurfaceNio/internal/model"
	"github.com/shii9/SurfaceNio/internal/rules"
)

type Enumerator interface {
	Enumerate(ctx context.Context, domain string) ([]string, error)
}

type Resolver interface {
	Resolve(ctx context.Context, host string) model.DNSInfo
}

type Prober interface {
	Probe(ctx context.Context, host string) model.HTTPInfo
}

// Registrar looks up registration data for an apex domain.
type Registrar interface {
	Registration(ctx context.Context, domain string) (*model.Registration, error)
}

type resolveTask struct {
	Host string
}

type probeTask struct {
	Host string
}

type Options struct {
	Concurrency int
	// Registrar is optional.
	Registrar   Registrar
}

type Pipeline struct {
	enum        Enumerator
	resolver    Resolver
	prober      Prober
	registrar   Registrar
	concurrency int
	log         zerolog.Logger
	now         func() time.Time
}

func New(e Enumerator, r Resolver, p Prober, opts Options, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		enum:        e,
		resolver:    r,
		prober:      p,
		registrar:   opts.Registrar,
		concurrency: opts.Concurrency,
		log:         log.With().Str("component", "pipeline").Logger(),
		now:         time.Now,
	}
}

type DomainFailure struct {
	Domain string
	Err    error
}

type Result struct {
	Records []model.HostRecord
	Failed  []DomainFailure
}

// Run processes domains one after another. A domain that fails contributes
// no records and does not stop the others. Once ctx is done the remaining
// domains are reported as failed.
func (p *Pipeline) Run(ctx context.Context, domains []string) Result {
	var res Result
	for _, domain := range domains {
		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, DomainFailure{Domain: domain, Err: err})
			continue
		}

		start := time.Now()
		p.log.Info().Str("domain", domain).Msg("scanning domain")
		records, err := p.runDomain(ctx, domain)
		if err != nil {
			p.log.Error().Err(err).Str("domain", domain).Msg("domain failed")
			res.Failed = append(res.Failed, DomainFailure{Domain: domain, Err: err})
			continue
		}
		p.log.Info().
			Str("domain", domain).
			Int("records", len(records)).
			Dur("elapsed", time.Since(start)).
			Msg("domain done")
		res.Records = append(res.Records, records...)
	}
	return res
}

func (p *Pipeline) runDomain(ctx context.Context, domain string) (records []model.HostRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithStack(fmt.Errorf("panic: %v", r))
		}
	}()

	hosts, err := p.enum.Enumerate(ctx, domain)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate")
	}
	p.log.Debug().Str("domain", domain).Int("candidates", len(hosts)).Msg("enumerated")

	resolveTasks := make([]resolveTask, len(hosts))
	for i, h := range hosts {
		resolveTasks[i] = resolveTask{Host: h}
	}
	infos, err := executor.Run(ctx, p.concurrency, resolveTasks, func(ctx context.Context, t resolveTask) (model.DNSInfo, error) {
		return p.resolver.Resolve(ctx, t.Host), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "resolve")
	}

	records = make([]model.HostRecord, 0, len(hosts))
	for i, info := range infos {
		if info.Resolved {
			records = append(records, model.HostRecord{Subdomain: hosts[i], DNS: info})
		}
	}
	p.log.Debug().Str("domain", domain).Int("resolved", len(records)).Msg("resolved")

	probeTasks := make([]probeTask, len(records))
	for i, rec := range records {
		probeTasks[i] = probeTask{Host: rec.Subdomain}
	}
	probes, err := executor.Run(ctx, p.concurrency, probeTasks, func(ctx context.Context, t probeTask) (model.HTTPInfo, error) {
		return p.prober.Probe(ctx, t.Host), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "probe")
	}
	for i := range records {
		records[i].HTTP = probes[i]
	}

	rules.Apply(records)
	p.attachRegistration(ctx, domain, records)

	ts := p.now().UTC()
	for i := range records {
		records[i].DomainInput = domain
		records[i].Timestamp = ts
	}
	return records, nil
}

// attachRegistration sets Registration on the apex record, if it resolved.
func (p *Pipeline) attachRegistration(ctx context.Context, domain string, records []model.HostRecord) {
	if p.registrar == nil {
		return
	}
	for i := range records {
		if records[i].Subdomain != domain {
			continue
		}
		reg, err := p.registrar.Registration(ctx, domain)
		if err != nil {
			p.log.Warn().Err(err).Str("domain", domain).Msg("whois failed")
			return
		}
		records[i].Registration = reg
		return
	}
}
