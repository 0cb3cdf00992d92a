package model

import (
	"sort"
	"time"
)

const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// HostRecord is one candidate hostname as it moves through the pipeline.
// Each stage owns a disjoint set of fields and only ever adds to the record.
type HostRecord struct {
	Subdomain string   `json:"subdomain"`
	DNS       DNSInfo  `json:"dns"`
	HTTP      HTTPInfo `json:"http"`
	Tags      []string `json:"tags"`

	Registration *Registration `json:"registration,omitempty"`

	DomainInput string    `json:"domain_input"`
	Timestamp   time.Time `json:"timestamp"`
}

// DNSInfo holds the addresses found for a hostname. Build it with NewDNSInfo
// so that Resolved always agrees with the address lists.
type DNSInfo struct {
	Resolved bool     `json:"resolved"`
	IPv4     []string `json:"ipv4_addresses"`
	IPv6     []string `json:"ipv6_addresses"`
}

// NewDNSInfo deduplicates and sorts both families and derives Resolved.
func NewDNSInfo(v4, v6 []string) DNSInfo {
	a, aaaa := sortedSet(v4), sortedSet(v6)
	return DNSInfo{
		Resolved: len(a)+len(aaaa) > 0,
		IPv4:     a,
		IPv6:     aaaa,
	}
}

func sortedSet(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// HTTPInfo is the probe outcome per scheme.
type HTTPInfo struct {
	HTTP  SchemeResult `json:"http"`
	HTTPS SchemeResult `json:"https"`
}

// SchemeResult describes one top-level request. When Alive is false every
// other field is absent.
type SchemeResult struct {
	Alive         bool              `json:"alive"`
	Status        *int              `json:"status,omitempty"`
	FinalURL      *string           `json:"final_url,omitempty"`
	RoundTripMS   *int              `json:"round_trip_ms,omitempty"`
	RedirectCount *int              `json:"redirect_count,omitempty"`
	Title         *string           `json:"title,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	TLS           *TLSInfo          `json:"tls,omitempty"`
}

// TLSInfo is only ever set on the https result.
type TLSInfo struct {
	DaysToExpire int `json:"days_to_expire"`
}

// Registration is the WHOIS summary attached to the apex record.
type Registration struct {
	Registrar      string     `json:"registrar,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	DaysToExpire   *int       `json:"days_to_expire,omitempty"`
}

// Preferred returns the https result when it is alive, otherwise the http
// result when that is alive. ok is false when neither scheme answered.
func (h HTTPInfo) Preferred() (SchemeResult, bool) {
	switch {
	case h.HTTPS.Alive:
		return h.HTTPS, true
	case h.HTTP.Alive:
		return h.HTTP, true
	}
	return SchemeResult{}, false
}

// PreferredTitle follows the https-then-http preference.
func (h HTTPInfo) PreferredTitle() string {
	if r, ok := h.Preferred(); ok && r.Title != nil {
		return *r.Title
	}
	return ""
}

// PreferredFinalURL follows the https-then-http preference.
func (h HTTPInfo) PreferredFinalURL() string {
	if r, ok := h.Preferred(); ok && r.FinalURL != nil {
		return *r.FinalURL
	}
	return ""
}

// Server reads the server header from https first, then http.
func (h HTTPInfo) Server() string {
	if s := h.HTTPS.Headers["server"]; s != "" {
		return s
	}
	return h.HTTP.Headers["server"]
}

// TLSDaysToExpire reports the https certificate expiry, if one was read.
func (h HTTPInfo) TLSDaysToExpire() (int, bool) {
	if h.HTTPS.TLS == nil {
		return 0, false
	}
	return h.HTTPS.TLS.DaysToExpire, true
}

// Int and String are shorthands for filling optional fields.
func Int(v int) *int { return &v }

func String(v string) *string { return &v }
