package htmlclean

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/plink/internal/logger"
	"github.com/jmylchreest/plink/pkg/cleaner"
)

var fullDocumentRegex = regexp.MustCompile(`(?i)<(?:!doctype|html)[\s>]`)

// URLCleaner cleans a single URL. *cleaner.Cleaner implements it.
type URLCleaner interface {
	Clean(rawURL string) (*cleaner.Result, error)
}

// Rewriter rewrites the links of HTML documents. It holds no per-document
// state and may be shared.
type Rewriter struct {
	cleaner URLCleaner
	config  *Config
}

// New creates a Rewriter. If config is nil, DefaultConfig() is used.
func New(c URLCleaner, config *Config) *Rewriter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Rewriter{cleaner: c, config: config}
}

// Rewrite cleans every targeted link in html. It never fails: on parse or
// output errors the original input is returned with a warning.
func (r *Rewriter) Rewrite(html string) *Result {
	start := time.Now()
	result := &Result{Stats: NewStats()}
	result.Stats.InputBytes = len(html)

	parseStart := time.Now()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	result.Stats.ParseDuration = time.Since(parseStart)
	if err != nil {
		result.Content = html
		result.AddWarning("parse", "HTML parse failed, returning original", err.Error())
		result.Stats.OutputBytes = len(html)
		result.Stats.TotalDuration = time.Since(start)
		return result
	}

	rewriteStart := time.Now()
	for _, target := range r.config.Targets {
		doc.Find(target.Selector).Each(func(_ int, s *goquery.Selection) {
			r.rewriteAttr(s, target.Attribute, result)
		})
	}
	result.Stats.RewriteDuration = time.Since(rewriteStart)

	var out string
	if r.config.FullDocument || fullDocumentRegex.MatchString(html) {
		out, err = doc.Html()
	} else {
		out, err = doc.Find("body").Html()
	}
	if err != nil {
		result.Content = html
		result.AddWarning("output", "HTML render failed, returning original", err.Error())
	} else {
		result.Content = out
	}
	result.Stats.OutputBytes = len(result.Content)
	result.Stats.TotalDuration = time.Since(start)

	logger.Debug("html links rewritten",
		"seen", result.Stats.LinksSeen,
		"changed", result.Stats.LinksChanged,
		"blocked", result.Stats.LinksBlocked,
		"failed", result.Stats.LinksFailed)
	return result
}

func (r *Rewriter) rewriteAttr(s *goquery.Selection, attr string, result *Result) {
	href, ok := s.Attr(attr)
	if !ok {
		return
	}
	stats := result.Stats
	stats.LinksSeen++

	target, schemeRelative, ok := cleanable(href)
	if !ok {
		stats.LinksSkipped++
		return
	}

	res, err := r.cleaner.Clean(target)
	if err != nil {
		stats.LinksFailed++
		result.AddWarning("clean", err.Error(), href)
		return
	}

	switch {
	case res.Cancel:
		stats.LinksBlocked++
		result.AddWarning("clean", "link blocked by "+strings.Join(res.AppliedRules, ","), href)
		if r.config.RemoveBlocked {
			s.RemoveAttr(attr)
		}
		return
	case res.Redirect && !r.config.FollowRedirects:
		return
	case !res.Changed:
		return
	}

	out := res.String()
	if schemeRelative && !res.Redirect {
		out = strings.TrimPrefix(out, "https:")
	}
	s.SetAttr(attr, out)

	stats.LinksChanged++
	if res.Redirect {
		stats.LinksRedirected++
	}
	stats.recordRules(res.AppliedRules)
}

// cleanable reports whether href is an absolute http(s) link, or a
// scheme-relative one, and returns the form to hand to the cleaner.
func cleanable(href string) (target string, schemeRelative, ok bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false, false
	}
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return "", false, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return href, false, true
	case "":
		return "https:" + href, true, true
	default:
		return "", false, false
	}
}
