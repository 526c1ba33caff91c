// Package htmlclean rewrites the links of an HTML document through a URL
// cleaner.
package htmlclean

// Target selects the elements and the attribute holding a link.
type Target struct {
	Selector  string `json:"selector" yaml:"selector"`
	Attribute string `json:"attribute" yaml:"attribute"`
}

// Config controls which links are rewritten and how the document is
// written back.
type Config struct {
	// Targets are visited in order; an element matched by several targets
	// is rewritten once per attribute.
	Targets []Target `json:"targets" yaml:"targets"`

	// FollowRedirects replaces redirector links with their destination.
	// When false, links whose cleaning resolved a redirection are left as is.
	FollowRedirects bool `json:"follow_redirects" yaml:"follow_redirects"`

	// RemoveBlocked drops the attribute of links a provider blocks
	// outright. When false they are left untouched and reported.
	RemoveBlocked bool `json:"remove_blocked" yaml:"remove_blocked"`

	// FullDocument writes the whole document, including the <html>, <head>
	// and <body> wrappers. When false only the body content is written,
	// unless the input itself was a full document.
	FullDocument bool `json:"full_document" yaml:"full_document"`
}

// DefaultConfig rewrites anchors, image maps, forms and embedded frames,
// following redirects and leaving blocked links in place.
func DefaultConfig() *Config {
	return &Config{
		Targets: []Target{
			{Selector: "a[href]", Attribute: "href"},
			{Selector: "area[href]", Attribute: "href"},
			{Selector: "form[action]", Attribute: "action"},
			{Selector: "iframe[src]", Attribute: "src"},
			{Selector: "img[src]", Attribute: "src"},
		},
		FollowRedirects: true,
	}
}

// AnchorsOnly rewrites a[href] only.
func AnchorsOnly() *Config {
	cfg := DefaultConfig()
	cfg.Targets = []Target{{Selector: "a[href]", Attribute: "href"}}
	return cfg
}
