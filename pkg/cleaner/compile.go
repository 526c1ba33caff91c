package cleaner

import (
	"regexp"

	"github.com/jmylchreest/plink/pkg/rules"
)

// compiler turns provider definitions into Providers. Identical pattern
// sources share a single *regexp.Regexp, which is safe for concurrent use.
type compiler struct {
	cache map[string]*regexp.Regexp
	hits  int
}

func newCompiler() *compiler {
	return &compiler{cache: make(map[string]*regexp.Regexp)}
}

func (c *compiler) regexp(src string) (*regexp.Regexp, error) {
	if re, ok := c.cache[src]; ok {
		c.hits++
		return re, nil
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}
	c.cache[src] = re
	return re, nil
}

// paramNamePattern anchors a parameter-name rule so it only matches a whole
// name, ignoring case.
func paramNamePattern(rule string) string {
	return `(?i)^(?:` + rule + `)$`
}

func (c *compiler) list(provider, field string, patterns []string, wrap func(string) string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		src := p
		if wrap != nil {
			src = wrap(p)
		}
		re, err := c.regexp(src)
		if err != nil {
			return nil, &CompileError{Provider: provider, Field: field, Index: i, Pattern: p, Err: err}
		}
		out = append(out, re)
	}
	return out, nil
}

func (c *compiler) provider(name string, def rules.Provider) (*Provider, error) {
	urlPattern, err := c.regexp(def.URLPattern)
	if err != nil {
		return nil, &CompileError{Provider: name, Field: "urlPattern", Index: -1, Pattern: def.URLPattern, Err: err}
	}

	p := &Provider{
		Name:             name,
		URLPattern:       urlPattern,
		CompleteProvider: def.CompleteProvider,
		ForceRedirection: def.ForceRedirection,
	}

	if p.Rules, err = c.list(name, "rules", def.Rules, paramNamePattern); err != nil {
		return nil, err
	}
	if p.RawRules, err = c.list(name, "rawRules", def.RawRules, nil); err != nil {
		return nil, err
	}
	if p.Exceptions, err = c.list(name, "exceptions", def.Exceptions, nil); err != nil {
		return nil, err
	}
	if p.Redirections, err = c.list(name, "redirections", def.Redirections, nil); err != nil {
		return nil, err
	}
	if p.ReferralMarketing, err = c.list(name, "referralMarketing", def.ReferralMarketing, paramNamePattern); err != nil {
		return nil, err
	}
	return p, nil
}

// Compile compiles a single provider definition.
func Compile(name string, def rules.Provider) (*Provider, error) {
	return newCompiler().provider(name, def)
}

// compileDatabase compiles every provider in database order. Providers that
// fail are left out and their errors returned alongside the rest.
func compileDatabase(db *rules.Database) ([]*Provider, []error, int) {
	c := newCompiler()
	providers := make([]*Provider, 0, db.Len())
	var errs []error
	for _, e := range db.Entries() {
		p, err := c.provider(e.Name, e.Provider)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		providers = append(providers, p)
	}
	return providers, errs, c.hits
}
