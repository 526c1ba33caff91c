package cleaner

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

var localPrefixes = []string{"127.", "10.", "172.", "192.168."}

// isLocalhost reports whether host is localhost or in a private range.
func isLocalhost(host string) bool {
	if host == "localhost" {
		return true
	}
	for _, prefix := range localPrefixes {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

// normalizeHost lowercases host and converts internationalized names to
// their ASCII form so that blacklist suffixes compare reliably.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.TrimSpace(d); d == "" {
			continue
		}
		// keep a leading dot: ".example.com" means subdomains only
		if strings.HasPrefix(d, ".") {
			out = append(out, "."+normalizeHost(d[1:]))
			continue
		}
		out = append(out, normalizeHost(d))
	}
	return out
}

// shouldSkip reports whether u must be returned untouched.
func (c *Cleaner) shouldSkip(u *url.URL) bool {
	host := u.Hostname()
	if host == "" {
		return false
	}
	if c.options.SkipLocalhost && isLocalhost(strings.ToLower(host)) {
		return true
	}
	if len(c.blacklist) == 0 {
		return false
	}
	host = normalizeHost(host)
	for _, suffix := range c.blacklist {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
