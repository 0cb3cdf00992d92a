package subdomain

import "strings"

// Normalize lowercases a hostname and strips trailing dots and leading
// wildcard labels. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".")
	for strings.HasPrefix(s, "*.") {
		s = s[2:]
	}
	return s
}

// InScope reports whether host is the apex itself or a proper subdomain of it.
func InScope(host, apex string) bool {
	return host == apex || strings.HasSuffix(host, "."+apex)
}
