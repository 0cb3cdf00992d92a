package subdomain

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
)

// Enumerator builds the candidate hostname list for an apex domain.
type Enumerator struct {
	passive  []Source
	active   []Source
	settings Settings
	log      zerolog.Logger
}

type Settings struct {
	// PassiveOnly disables the wordlist and any active source.
	PassiveOnly   bool
	Wordlist      string
	// MaxSubdomains caps the sorted output.
	MaxSubdomains int
}

// NewEnumerator wires the passive sources (certificate transparency) and the
// active ones (zone transfer) that only run when PassiveOnly is unset.
func NewEnumerator(passive, active []Source, s Settings, log zerolog.Logger) *Enumerator {
	return &Enumerator{
		passive:  passive,
		active:   active,
		settings: s,
		log:      log.With().Str("component", "enumerator").Logger(),
	}
}

// Enumerate never fails because of a source: a failing source contributes
// nothing and is logged. The result always contains the apex.
func (e *Enumerator) Enumerate(ctx context.Context, domain string) ([]string, error) {
	domain = Normalize(domain)
	set := map[string]struct{}{domain: {}}

	add := func(names []string) {
		for _, n := range names {
			set[n] = struct{}{}
		}
	}

	sources := e.passive
	if !e.settings.PassiveOnly {
		sources = append(append([]Source{}, e.passive...), e.active...)
	}
	for _, src := range sources {
		names, err := src.Subdomains(ctx, domain)
		if err != nil {
			e.log.Warn().Err(err).Str("source", src.Name()).Str("domain", domain).Msg("source failed")
			continue
		}
		e.log.Debug().Str("source", src.Name()).Str("domain", domain).Int("names", len(names)).Msg("source done")
		add(names)
	}

	if !e.settings.PassiveOnly && e.settings.Wordlist != "" {
		words, err := ReadWordlist(e.settings.Wordlist)
		if err != nil {
			e.log.Warn().Err(err).Str("wordlist", e.settings.Wordlist).Msg("failed reading wordlist")
		} else {
			cands := Expand(words, domain)
			e.log.Info().Int("candidates", len(cands)).Str("domain", domain).Msg("brute candidates prepared")
			add(cands)
		}
	}

	return e.capped(domain, set), nil
}

func (e *Enumerator) capped(domain string, set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)

	if limit := e.settings.MaxSubdomains; limit > 0 && len(out) > limit {
		e.log.Warn().Str("domain", domain).Int("total", len(out)).Int("cap", limit).Msg("subdomain cap exceeded, truncating")
		out = out[:limit]
	}
	return out
}
