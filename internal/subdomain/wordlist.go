package subdomain

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ReadWordlist returns the tokens of a newline separated wordlist. Blank lines
// and lines starting with # are skipped.
func ReadWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open wordlist")
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read wordlist")
	}
	return words, nil
}

// Expand joins every token with the domain. Nothing is resolved here.
func Expand(words []string, domain string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if h := Normalize(w + "." + domain); h != "" {
			out = append(out, h)
		}
	}
	return out
}
