package cleaner

import (
	"bytes"
	"encoding/json"
	"net/url"
)

// Result is the outcome of cleaning one URL. Redirect and Cancel are never
// both set.
type Result struct {
	URL *url.URL

	// Changed reports whether URL differs from the input. It is always
	// true for redirects and always false for cancelled URLs.
	Changed bool

	// Redirect means URL is the destination extracted from a redirector.
	Redirect bool

	// Cancel means a provider blocks the URL outright.
	Cancel bool

	// AppliedRules lists the identifiers of what fired, in order.
	AppliedRules []string
}

// String returns the resulting URL.
func (r *Result) String() string {
	if r == nil || r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// resultDoc is the serialized form of a Result.
type resultDoc struct {
	URL          string   `json:"url" yaml:"url"`
	Changed      bool     `json:"changed" yaml:"changed"`
	Redirect     bool     `json:"redirect" yaml:"redirect"`
	Cancel       bool     `json:"cancel" yaml:"cancel"`
	AppliedRules []string `json:"applied_rules" yaml:"applied_rules"`
}

func (r *Result) doc() resultDoc {
	rules := r.AppliedRules
	if rules == nil {
		rules = []string{}
	}
	return resultDoc{
		URL:          r.String(),
		Changed:      r.Changed,
		Redirect:     r.Redirect,
		Cancel:       r.Cancel,
		AppliedRules: rules,
	}
}

// MarshalJSON encodes the URL as a string. Query separators are not
// HTML-escaped.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.doc()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalYAML encodes the URL as a string.
func (r *Result) MarshalYAML() (any, error) {
	return r.doc(), nil
}
