// Package rules derives heuristic risk tags from a probed host record.
package rules

import (
	"sort"
	"strings"

	"github.com/shii9/SurfaceNio/internal/model"
)

const (
	TagNoHTTPS           = "no-https"
	TagOpenRedirectChain = "open-redirect-chain"
	TagTLSExpiringSoon   = "tls-expiring-soon"
	TagSuspiciousTitle   = "suspicious-title"
	TagExposedAdmin      = "exposed-admin"
)

const (
	// A chain is flagged when it has more hops than this.
	redirectChainMinimum = 3
	tlsExpiryWarningDays = 14
)

var suspiciousTitleKeywords = []string{
	"index of /",
	"phpmyadmin",
	"jenkins",
	"grafana",
	"kibana",
	"prometheus",
	"swagger ui",
	"api documentation",
}

var adminPaths = []string{
	"/admin",
	"/dashboard",
	"/login",
	"/phpmyadmin",
	"/jenkins",
}

// Evaluate returns the sorted, deduplicated tags for rec. It reads only the
// http field.
func Evaluate(rec model.HostRecord) []string {
	h := rec.HTTP
	set := make(map[string]struct{})

	if h.HTTP.Alive && !h.HTTPS.Alive {
		set[TagNoHTTPS] = struct{}{}
	}
	for _, r := range []model.SchemeResult{h.HTTP, h.HTTPS} {
		if r.Alive && r.RedirectCount != nil && *r.RedirectCount > redirectChainMinimum {
			set[TagOpenRedirectChain] = struct{}{}
		}
	}
	if days, ok := h.TLSDaysToExpire(); ok && days < tlsExpiryWarningDays {
		set[TagTLSExpiringSoon] = struct{}{}
	}
	if containsAny(h.PreferredTitle(), suspiciousTitleKeywords) {
		set[TagSuspiciousTitle] = struct{}{}
	}
	if containsAny(h.PreferredFinalURL(), adminPaths) {
		set[TagExposedAdmin] = struct{}{}
	}

	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Apply sets Tags on every record in place.
func Apply(records []model.HostRecord) {
	for i := range records {
		records[i].Tags = Evaluate(records[i])
	}
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
