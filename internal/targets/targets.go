// Package targets loads and normalizes the input domain list.
package targets

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Load reads one domain per line. Blank lines and lines starting with # are
// skipped.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open domains file")
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read domains file")
	}
	return out, nil
}

// Apex lowercases raw, strips a trailing dot and converts it to its ASCII
// form. A name that is not itself a registrable domain is kept, with a
// warning.
func Apex(raw string, log zerolog.Logger) (string, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), ".")
	if name == "" {
		return "", errors.New("empty domain")
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", errors.Wrapf(err, "invalid domain %q", raw)
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(ascii)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("domain", ascii).Msg("not a registrable domain")
	case etld1 != ascii:
		log.Warn().Str("domain", ascii).Str("registrable", etld1).Msg("input is below its registrable domain")
	}
	return ascii, nil
}

// Resolve turns raw inputs into apex names, dropping invalid and repeated
// entries. Order is preserved.
func Resolve(raw []string, log zerolog.Logger) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		apex, err := Apex(r, log)
		if err != nil {
			log.Warn().Err(err).Msg("skipping domain")
			continue
		}
		if _, ok := seen[apex]; ok {
			continue
		}
		seen[apex] = struct{}{}
		out = append(out, apex)
	}
	return out
}
