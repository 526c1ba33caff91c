package cleaner

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jmylchreest/plink/internal/logger"
)

// step is the outcome of applying one provider to a URL.
type step struct {
	changed  bool
	redirect bool
	cancel   bool
	rules    []string
}

// apply runs one provider against u. Order matters: blocking, then
// redirection, then raw rules, then parameter rules. u is modified in place
// except when the URL is cancelled.
func (c *Cleaner) apply(p *Provider, u *url.URL) (step, error) {
	var st step

	if p.CompleteProvider && c.options.DomainBlocking {
		st.cancel = true
		return st, nil
	}

	target, err := redirectTarget(p, u)
	if err != nil {
		return st, err
	}
	if target != nil {
		if logger.Enabled(slog.LevelDebug) {
			logger.Debug("redirection found", "provider", p.Name, "from", u.String(), "to", target.String())
		}
		*u = *target
		st.redirect = true
		st.changed = true
		st.rules = append(st.rules, p.Name+"_redirect")
		return st, nil
	}

	for i, re := range p.RawRules {
		before := u.String()
		after := re.ReplaceAllLiteralString(before, "")
		if after == before {
			continue
		}
		rewritten, err := parseProviderURL(p.Name, after)
		if err != nil {
			return st, err
		}
		*u = *rewritten
		st.changed = true
		st.rules = append(st.rules, fmt.Sprintf("%s_raw_%d", p.Name, i))
		logger.Debug("raw rule applied", "provider", p.Name, "index", i)
	}

	active := p.parameterRules(c.options.ApplyReferralMarketing)
	if len(active) > 0 && removeParams(u, func(q queryParam) bool {
		if matchesAny(active, q) {
			logger.Debug("parameter matched", "provider", p.Name, "param", q.name)
			return true
		}
		return false
	}) {
		st.changed = true
	}

	return st, nil
}

// redirectTarget returns the decoded destination of the first matching
// redirection, or nil when none match.
func redirectTarget(p *Provider, u *url.URL) (*url.URL, error) {
	if len(p.Redirections) == 0 {
		return nil, nil
	}
	s := u.String()
	for _, re := range p.Redirections {
		loc := re.FindStringSubmatchIndex(s)
		if len(loc) < 4 || loc[2] < 0 {
			continue
		}
		captured := s[loc[2]:loc[3]]

		decoded, err := url.PathUnescape(captured)
		if err != nil {
			return nil, &RedirectError{Provider: p.Name, Target: captured, Err: err}
		}
		target, err := url.Parse(decoded)
		if err != nil {
			return nil, &RedirectError{Provider: p.Name, Target: decoded, Err: err}
		}
		if !target.IsAbs() {
			return nil, &RedirectError{Provider: p.Name, Target: decoded, Err: fmt.Errorf("not an absolute URL")}
		}
		return target, nil
	}
	return nil, nil
}
