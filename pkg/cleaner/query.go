package cleaner

import (
	"net/url"
	"regexp"
	"strings"
)

// queryParam is one name=value pair of a raw query string.
type queryParam struct {
	raw  string // segment as it appears in the URL
	name string // percent-decoded name
}

// rawName returns the undecoded name of the parameter.
func (q queryParam) rawName() string {
	name, _, _ := strings.Cut(q.raw, "=")
	return name
}

func parseQuery(rawQuery string) []queryParam {
	if rawQuery == "" {
		return nil
	}
	segments := strings.Split(rawQuery, "&")
	params := make([]queryParam, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		name, _, _ := strings.Cut(seg, "=")
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		params = append(params, queryParam{raw: seg, name: name})
	}
	return params
}

// removeParams drops every query parameter for which drop returns true.
// Survivors keep their order and their original encoding; a query left
// empty is removed entirely. It reports whether anything was dropped.
func removeParams(u *url.URL, drop func(queryParam) bool) bool {
	params := parseQuery(u.RawQuery)
	if len(params) == 0 {
		return false
	}

	kept := make([]string, 0, len(params))
	for _, p := range params {
		if !drop(p) {
			kept = append(kept, p.raw)
		}
	}
	if len(kept) == len(params) {
		return false
	}

	u.RawQuery = strings.Join(kept, "&")
	if u.RawQuery == "" {
		u.ForceQuery = false
	}
	return true
}

// matchesAny reports whether any rule matches the parameter name, decoded
// or as written in the URL.
func matchesAny(rules []*regexp.Regexp, p queryParam) bool {
	raw := p.rawName()
	for _, re := range rules {
		if re.MatchString(p.name) || (raw != p.name && re.MatchString(raw)) {
			return true
		}
	}
	return false
}
