package cleaner

import (
	"net/url"
	"regexp"
)

// Provider is a compiled provider. It is immutable once compiled and may be
// shared between goroutines.
type Provider struct {
	Name       string
	URLPattern *regexp.Regexp

	// Rules and ReferralMarketing match whole query-parameter names,
	// case-insensitively.
	Rules             []*regexp.Regexp
	ReferralMarketing []*regexp.Regexp

	// RawRules are deleted from the serialized URL wherever they match.
	RawRules []*regexp.Regexp

	Exceptions []*regexp.Regexp

	// Redirections capture the real destination in group 1.
	Redirections []*regexp.Regexp

	CompleteProvider bool

	// ForceRedirection is carried through from the rule database only.
	ForceRedirection bool
}

// MatchesURL reports whether u belongs to the provider.
func (p *Provider) MatchesURL(u *url.URL) bool {
	return p.URLPattern.MatchString(u.String())
}

// MatchesException reports whether any exception matches u.
func (p *Provider) MatchesException(u *url.URL) bool {
	s := u.String()
	for _, re := range p.Exceptions {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Active reports whether the provider applies to u.
func (p *Provider) Active(u *url.URL) bool {
	return p.MatchesURL(u) && !p.MatchesException(u)
}

// parameterRules returns the rules used to strip query parameters.
func (p *Provider) parameterRules(referral bool) []*regexp.Regexp {
	if !referral || len(p.ReferralMarketing) == 0 {
		return p.Rules
	}
	all := make([]*regexp.Regexp, 0, len(p.Rules)+len(p.ReferralMarketing))
	all = append(all, p.Rules...)
	return append(all, p.ReferralMarketing...)
}
