// Package cleaner strips tracking and marketing artifacts from URLs using a
// ClearURLs-style rule database.
//
// A Cleaner compiles the database once and is then safe for concurrent use:
//
//	c, err := cleaner.NewDefault(cleaner.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	res, err := c.Clean("https://example.com/?utm_source=mail&id=4")
//	// res.URL.String() == "https://example.com/?id=4"
package cleaner

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/jmylchreest/plink/internal/logger"
	"github.com/jmylchreest/plink/pkg/rules"
)

var schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// Cleaner applies a compiled rule database to URLs.
type Cleaner struct {
	providers   []*Provider
	compileErrs []error
	options     Options
	blacklist   []string
	additional  map[string]struct{}
}

// New compiles db and returns a Cleaner using opts. Providers whose patterns
// fail to compile are skipped; see CompileErrors.
func New(db *rules.Database, opts Options) (*Cleaner, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	providers, errs, hits := compileDatabase(db)
	for _, err := range errs {
		logger.Warn("skipping provider", "error", err)
	}
	logger.Debug("rule database compiled",
		"providers", len(providers),
		"failed", len(errs),
		"shared_patterns", hits)

	c := &Cleaner{
		providers:   providers,
		compileErrs: errs,
		options:     opts,
		blacklist:   normalizeDomains(opts.BlacklistedDomains),
		additional:  make(map[string]struct{}, len(opts.AdditionalBlockedParams)),
	}
	for _, name := range opts.AdditionalBlockedParams {
		c.additional[name] = struct{}{}
	}
	return c, nil
}

// NewDefault returns a Cleaner over the rule database embedded in the binary.
func NewDefault(opts Options) (*Cleaner, error) {
	db, err := rules.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded rules: %w", err)
	}
	return New(db, opts)
}

// Providers returns the names of the compiled providers in evaluation order.
func (c *Cleaner) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name
	}
	return names
}

// CompileErrors returns the errors of providers that were skipped.
func (c *Cleaner) CompileErrors() []error {
	return append([]error(nil), c.compileErrs...)
}

// Options returns the options the Cleaner was built with.
func (c *Cleaner) Options() Options {
	return c.options
}

// Clean cleans a single URL. Inputs without a scheme are treated as https.
// A returned error is either a *ParseError or a *RedirectError.
func (c *Cleaner) Clean(rawURL string) (*Result, error) {
	input := normalizeScheme(rawURL)

	u, err := parseURL(input)
	if err != nil {
		return nil, err
	}
	logger.Debug("cleaning URL", "url", input)

	if c.shouldSkip(u) {
		logger.Debug("skipping URL", "url", input)
		return &Result{URL: u, AppliedRules: []string{}}, nil
	}

	orig := *u
	res := &Result{URL: u, AppliedRules: []string{}}
	for _, p := range c.providers {
		if !p.Active(u) {
			continue
		}
		res.AppliedRules = append(res.AppliedRules, p.Name)

		st, err := c.apply(p, u)
		if err != nil {
			return nil, err
		}

		switch {
		case st.cancel:
			logger.Debug("URL blocked", "url", input, "provider", p.Name)
			// report the URL as given, not as rewritten by earlier providers
			return &Result{URL: &orig, Cancel: true, AppliedRules: res.AppliedRules}, nil
		case st.redirect:
			logger.Debug("URL redirected", "url", input, "provider", p.Name)
			res.AppliedRules = append(res.AppliedRules, st.rules...)
			res.Redirect = true
			res.Changed = true
			return res, nil
		}

		if st.changed {
			res.Changed = true
			res.AppliedRules = append(res.AppliedRules, st.rules...)
		}
	}

	if c.removeAdditionalParams(u) {
		res.Changed = true
		res.AppliedRules = append(res.AppliedRules, additionalParamsRule)
	}

	if res.Changed && logger.Enabled(slog.LevelDebug) {
		logger.Debug("URL cleaned", "from", input, "to", u.String(), "rules", res.AppliedRules)
	}
	return res, nil
}

// CleanString returns only the cleaned URL.
func (c *Cleaner) CleanString(rawURL string) (string, error) {
	res, err := c.Clean(rawURL)
	if err != nil {
		return "", err
	}
	return res.URL.String(), nil
}

func normalizeScheme(raw string) string {
	if schemePrefix.MatchString(raw) {
		return raw
	}
	return "https://" + raw
}

func parseURL(s string) (*url.URL, error) {
	return parseProviderURL("", s)
}

// parseProviderURL parses s as an absolute URL with a host. provider names
// the raw rule that produced s, if any.
func parseProviderURL(provider, s string) (*url.URL, error) {
	u, err := url.Parse(s)
	switch {
	case err != nil:
	case !u.IsAbs():
		err = fmt.Errorf("not an absolute URL")
	case u.Host == "":
		err = fmt.Errorf("missing host")
	default:
		return u, nil
	}
	return nil, &ParseError{Input: s, Provider: provider, Err: err}
}
