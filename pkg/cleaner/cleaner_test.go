package cleaner

import (
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/jmylchreest/plink/pkg/rules"
)

func newTestCleaner(t *testing.T, opts Options, entries ...rules.Entry) *Cleaner {
	t.Helper()
	c, err := New(rules.New(entries...), opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func googleEntry() rules.Entry {
	return rules.Entry{Name: "Google", Provider: rules.Provider{
		URLPattern: `^https?:\/\/(?:[a-z0-9-]+\.)*?google\.com`,
		Rules:      []string{"utm_source", "utm_medium", "utm_campaign"},
	}}
}

func globalEntry() rules.Entry {
	return rules.Entry{Name: "global", Provider: rules.Provider{
		URLPattern: ".*",
		Rules:      []string{"utm_source", "utm_medium"},
	}}
}

func TestClean_GoogleScenario(t *testing.T) {
	c := newTestCleaner(t, DefaultOptions(), googleEntry())

	res, err := c.Clean("https://google.com/search?q=test&utm_source=newsletter")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if got, want := res.String(), "https://google.com/search?q=test"; got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
	if !res.Changed || res.Redirect || res.Cancel {
		t.Errorf("flags = changed:%v redirect:%v cancel:%v", res.Changed, res.Redirect, res.Cancel)
	}
	if want := []string{"Google"}; !reflect.DeepEqual(res.AppliedRules, want) {
		t.Errorf("AppliedRules = %v, want %v", res.AppliedRules, want)
	}
}

func TestClean_AdditionalParams(t *testing.T) {
	opts := DefaultOptions()
	opts.AdditionalBlockedParams = []string{"fbclid", "gclid"}
	c := newTestCleaner(t, opts)

	res, err := c.Clean("https://example.com/?test=1&fbclid=123&gclid=456")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if got, want := res.String(), "https://example.com/?test=1"; got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
	if !res.Changed {
		t.Error("expected Changed")
	}
	if want := []string{"additional_params"}; !reflect.DeepEqual(res.AppliedRules, want) {
		t.Errorf("AppliedRules = %v, want %v", res.AppliedRules, want)
	}
}

func TestClean_AdditionalParamsExactMatch(t *testing.T) {
	opts := DefaultOptions()
	opts.AdditionalBlockedParams = []string{"fbclid"}
	c := newTestCleaner(t, opts)

	res, err := c.Clean("https://example.com/?FBCLID=1&fbclid_x=2")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if res.Changed {
		t.Errorf("Clean() = %q, want unchanged", res.String())
	}
}

func TestClean_Localhost(t *testing.T) {
	input := "http://localhost:8080/?utm_source=x"

	t.Run("skipped by default", func(t *testing.T) {
		c := newTestCleaner(t, DefaultOptions(), globalEntry())
		res, err := c.Clean(input)
		if err != nil {
			t.Fatalf("Clean() error = %v", err)
		}
		if res.String() != input || res.Changed {
			t.Errorf("Clean() = %q (changed=%v), want %q unchanged", res.String(), res.Changed, input)
		}
		if len(res.AppliedRules) != 0 {
			t.Errorf("AppliedRules = %v, want empty", res.AppliedRules)
		}
	})

	t.Run("cleaned when skip disabled", func(t *testing.T) {
		opts := DefaultOptions()
		opts.SkipLocalhost = false
		c := newTestCleaner(t, opts, globalEntry())
		res, err := c.Clean(input)
		if err != nil {
			t.Fatalf("Clean() error = %v", err)
		}
		if got, want := res.String(), "http://localhost:8080/"; got != want {
			t.Errorf("Clean() = %q, want %q", got, want)
		}
	})
}

func TestClean_PrivateRanges(t *testing.T) {
	c := newTestCleaner(t, DefaultOptions(), globalEntry())
	for _, input := range []string{
		"http://127.0.0.1/?utm_source=x",
		"http://10.1.2.3/?utm_source=x",
		"http://172.16.0.1/?utm_source=x",
		"http://192.168.1.1:8443/?utm_source=x",
		"http://LOCALHOST/?utm_source=x",
	} {
		t.Run(input, func(t *testing.T) {
			res, err := c.Clean(input)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			if res.Changed {
				t.Errorf("Clean() = %q, want unchanged", res.String())
			}
		})
	}
}

func TestClean_Blacklist(t *testing.T) {
	opts := DefaultOptions()
	opts.BlacklistedDomains = []string{"example.com", "bücher.example"}
	c := newTestCleaner(t, opts, globalEntry())

	tests := []struct {
		input   string
		changed bool
	}{
		{"https://example.com/?utm_source=x", false},
		{"https://sub.Example.COM/?utm_source=x", false},
		{"https://shop.xn--bcher-kva.example/?utm_source=x", false},
		{"https://bücher.example/?utm_source=x", false},
		{"https://example.org/?utm_source=x", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res, err := c.Clean(tt.input)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			if res.Changed != tt.changed {
				t.Errorf("Clean(%q).Changed = %v, want %v", tt.input, res.Changed, tt.changed)
			}
		})
	}
}

func TestClean_NoMatchingProvider(t *testing.T) {
	c := newTestCleaner(t, DefaultOptions(), googleEntry())

	tests := []struct {
		input string
		want  string
	}{
		{"https://example.org/path?a=1&utm_source=x", "https://example.org/path?a=1&utm_source=x"},
		{"example.org/path?a=1", "https://example.org/path?a=1"},
		{"http://example.org/", "http://example.org/"},
		{"ftp://files.example.org/pub", "ftp://files.example.org/pub"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res, err := c.Clean(tt.input)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			if res.String() != tt.want {
				t.Errorf("Clean() = %q, want %q", res.String(), tt.want)
			}
			if res.Changed {
				t.Error("expected Changed to be false")
			}
		})
	}
}

func TestClean_ParameterMatching(t *testing.T) {
	c := newTestCleaner(t, DefaultOptions(), googleEntry())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"case insensitive", "https://google.com/?UTM_SOURCE=x&q=1", "https://google.com/?q=1"},
		{"whole name only", "https://google.com/?my_utm_source=x&utm_sourced=y", "https://google.com/?my_utm_source=x&utm_sourced=y"},
		{"order preserved", "https://google.com/?a=1&utm_source=x&b=2", "https://google.com/?a=1&b=2"},
		{"values untouched", "https://google.com/?q=a+b%20c&utm_medium=x&z=%2F", "https://google.com/?q=a+b%20c&z=%2F"},
		{"encoded name", "https://google.com/?utm%5Fsource=x&a=1", "https://google.com/?a=1"},
		{"empty query dropped", "https://google.com/search?utm_source=x&utm_medium=y", "https://google.com/search"},
		{"fragment kept", "https://google.com/?utm_source=x#top", "https://google.com/#top"},
		{"repeated names", "https://google.com/?utm_source=a&k=1&utm_source=b", "https://google.com/?k=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Clean(tt.input)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			if res.String() != tt.want {
				t.Errorf("Clean() = %q, want %q", res.String(), tt.want)
			}
		})
	}
}

func TestClean_Exception(t *testing.T) {
	c := newTestCleaner(t, DefaultOptions(), rules.Entry{Name: "site", Provider: rules.Provider{
		URLPattern: `^https?:\/\/site\.example`,
		Rules:      []string{"ref"},
		Exceptions: []string{`^https?:\/\/site\.example\/login`},
	}})

	res, err := c.Clean("https://site.example/login?ref=home")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if res.Changed || len(res.AppliedRules) != 0 {
		t.Errorf("Clean() = %q %v, want untouched", res.String(), res.AppliedRules)
	}

	res, err = c.Clean("https://site.example/page?ref=home")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if got, want := res.String(), "https://site.example/page"; got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestClean_ReferralMarketing(t *testing.T) {
	shop := rules.Entry{Name: "shop", Provider: rules.Provider{
		URLPattern:        `^https?:\/\/shop\.example`,
		ReferralMarketing: []string{"tag"},
	}}
	input := "https://shop.example/item?tag=aff-20&id=1"

	tests := []struct {
		name  string
		apply bool
		want  string
	}{
		{"applied", true, "https://shop.example/item?id=1"},
		{"disabled", false, input},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.ApplyReferralMarketing = tt.apply
			c := newTestCleaner(t, opts, shop)
			res, err := c.Clean(input)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			if res.String() != tt.want {
				t.Errorf("Clean() = %q, want %q", res.String(), tt.want)
			}
		})
	}
}

func TestClean_CompleteProvider(t *testing.T) {
	ads := rules.Entry{Name: "ads", Provider: rules.Provider{
		URLPattern:       `^https?:\/\/ads\.example\.com`,
		CompleteProvider: true,
	}}
	input := "https://ads.example.com/track?utm_source=x"

	t.Run("blocked", func(t *testing.T) {
		c := newTestCleaner(t, DefaultOptions(), globalEntry(), ads)
		res, err := c.Clean(input)
		if err != nil {
			t.Fatalf("Clean() error = %v", err)
		}
		if !res.Cancel || res.Redirect || res.Changed {
			t.Errorf("flags = changed:%v redirect:%v cancel:%v, want cancel only", res.Changed, res.Redirect, res.Cancel)
		}
		if res.String() != input {
			t.Errorf("Clean() = %q, want unmodified %q", res.String(), input)
		}
		if want := []string{"global", "ads"}; !reflect.DeepEqual(res.AppliedRules, want) {
			t.Errorf("AppliedRules = %v, want %v", res.AppliedRules, want)
		}
	})

	t.Run("blocking disabled", func(t *testing.T) {
		opts := DefaultOptions()
		opts.DomainBlocking = false
		c := newTestCleaner(t, opts, globalEntry(), ads)
		res, err := c.Clean(input)
		if err != nil {
			t.Fatalf("Clean() error = %v", err)
		}
		if res.Cancel {
			t.Error("expected no cancel")
		}
		if got, want := res.String(), "https://ads.example.com/track"; got != want {
			t.Errorf("Clean() = %q, want %q", got, want)
		}
	})
}

func redirectEntry() rules.Entry {
	return rules.Entry{Name: "redir", Provider: rules.Provider{
		URLPattern:   `^https?:\/\/redirect\.example\.com`,
		Redirections: []string{`^https?:\/\/redirect\.example\.com\/out\?.*?url=([^&]+)`},
	}}
}

func TestClean_Redirect(t *testing.T) {
	c := newTestCleaner(t, DefaultOptions(), redirectEntry(), globalEntry())

	res, err := c.Clean("https://redirect.example.com/out?id=1&url=https%3A%2F%2Fdest.example.org%2Fpage%3Fa%3D1%26utm_source%3Dx&x=y")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if !res.Redirect || !res.Changed || res.Cancel {
		t.Errorf("flags = changed:%v redirect:%v cancel:%v, want redirect", res.Changed, res.Redirect, res.Cancel)
	}
	// later providers are not consulted after a redirect
	if got, want := res.String(), "https://dest.example.org/page?a=1&utm_source=x"; got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
	if want := []string{"redir", "redir_redirect"}; !reflect.DeepEqual(res.AppliedRules, want) {
		t.Errorf("AppliedRules = %v, want %v", res.AppliedRules, want)
	}
}

func TestClean_RedirectErrors(t *testing.T) {
	c := newTestCleaner(t, DefaultOptions(), redirectEntry())

	for _, input := range []string{
		"https://redirect.example.com/out?url=%2Flocal%2Fpath",
		"https://redirect.example.com/out?url=%zz",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := c.Clean(input)
			if !errors.Is(err, ErrInvalidRedirect) {
				t.Fatalf("Clean() error = %v, want ErrInvalidRedirect", err)
			}
			var re *RedirectError
			if !errors.As(err, &re) || re.Provider != "redir" {
				t.Errorf("Clean() error = %#v, want *RedirectError for redir", err)
			}
		})
	}
}

func TestClean_RawRules(t *testing.T) {
	c := newTestCleaner(t, DefaultOptions(), rules.Entry{Name: "shop", Provider: rules.Provider{
		URLPattern: `^https?:\/\/(?:www\.)?shop\.example`,
		Rules:      []string{"qid"},
		RawRules:   []string{`\/ref=[^/?]*`},
	}})

	res, err := c.Clean("https://www.shop.example/dp/B01/ref=sr_1_1?keywords=x&qid=12")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if got, want := res.String(), "https://www.shop.example/dp/B01?keywords=x"; got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
	if want := []string{"shop", "shop_raw_0"}; !reflect.DeepEqual(res.AppliedRules, want) {
		t.Errorf("AppliedRules = %v, want %v", res.AppliedRules, want)
	}
}

func TestClean_RawRuleProducesInvalidURL(t *testing.T) {
	tests := []struct {
		name    string
		rawRule string
		input   string
	}{
		{"bad escape", `25`, "https://bad.example/a%25zz"},
		{"scheme removed", `https://`, "https://bad.example/?utm_source=x"},
		{"host removed", `bad\.example`, "https://bad.example/path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCleaner(t, DefaultOptions(), rules.Entry{Name: "bad", Provider: rules.Provider{
				URLPattern: `^https?:\/\/bad\.example`,
				RawRules:   []string{tt.rawRule},
				Rules:      []string{"utm_source"},
			}})

			res, err := c.Clean(tt.input)
			if !errors.Is(err, ErrInvalidURL) {
				t.Fatalf("Clean(%q) = %v, %v, want ErrInvalidURL", tt.input, res, err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) || pe.Provider != "bad" {
				t.Errorf("Clean() error = %#v, want *ParseError from bad", err)
			}
			if res != nil {
				t.Errorf("Clean() returned a result alongside the error: %q", res)
			}
		})
	}
}

func TestClean_ParseErrors(t *testing.T) {
	c := newTestCleaner(t, DefaultOptions())
	for _, input := range []string{"", "https://", "http://[::1", "https://exa mple.com/"} {
		t.Run(input, func(t *testing.T) {
			res, err := c.Clean(input)
			if !errors.Is(err, ErrInvalidURL) {
				t.Fatalf("Clean(%q) error = %v, want ErrInvalidURL", input, err)
			}
			if res != nil {
				t.Errorf("Clean(%q) returned a result alongside the error", input)
			}
		})
	}
}

func TestClean_ProvidersApplyInOrder(t *testing.T) {
	// second only matches once first has removed a
	first := rules.Entry{Name: "first", Provider: rules.Provider{URLPattern: ".*", Rules: []string{"a"}}}
	second := rules.Entry{Name: "second", Provider: rules.Provider{
		URLPattern: `^https:\/\/x\.example\/\?b=`,
		Rules:      []string{"b"},
	}}
	c := newTestCleaner(t, DefaultOptions(), first, second)

	res, err := c.Clean("https://x.example/?a=1&b=2&c=3")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if got, want := res.String(), "https://x.example/?c=3"; got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
	if want := []string{"first", "second"}; !reflect.DeepEqual(res.AppliedRules, want) {
		t.Errorf("AppliedRules = %v, want %v", res.AppliedRules, want)
	}
}

func TestNew_CompileFailureIsNotFatal(t *testing.T) {
	c := newTestCleaner(t, DefaultOptions(),
		rules.Entry{Name: "broken", Provider: rules.Provider{URLPattern: `(`}},
		rules.Entry{Name: "badrule", Provider: rules.Provider{URLPattern: ".*", Rules: []string{"ok", "("}}},
		googleEntry(),
	)

	if got, want := c.Providers(), []string{"Google"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Providers() = %v, want %v", got, want)
	}

	errs := c.CompileErrors()
	if len(errs) != 2 {
		t.Fatalf("CompileErrors() = %v, want 2 errors", errs)
	}
	var ce *CompileError
	if !errors.As(errs[0], &ce) || ce.Provider != "broken" || ce.Field != "urlPattern" || ce.Index != -1 {
		t.Errorf("errs[0] = %#v", errs[0])
	}
	if !errors.As(errs[1], &ce) || ce.Provider != "badrule" || ce.Field != "rules" || ce.Index != 1 {
		t.Errorf("errs[1] = %#v", errs[1])
	}

	res, err := c.Clean("https://google.com/?utm_source=x")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if got, want := res.String(), "https://google.com/"; got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil, DefaultOptions()); !errors.Is(err, ErrNilDatabase) {
		t.Errorf("New(nil) error = %v, want ErrNilDatabase", err)
	}

	opts := DefaultOptions()
	opts.BlacklistedDomains = []string{"example.com/path"}
	if _, err := New(rules.New(), opts); err == nil {
		t.Error("New() expected error for invalid blacklist entry")
	}
}

func TestNewDefault(t *testing.T) {
	c, err := NewDefault(DefaultOptions())
	if err != nil {
		t.Fatalf("NewDefault() error = %v", err)
	}
	if errs := c.CompileErrors(); len(errs) != 0 {
		t.Errorf("embedded rules failed to compile: %v", errs)
	}

	tests := []struct {
		name     string
		input    string
		want     string
		redirect bool
		cancel   bool
		rules    []string
	}{
		{
			name:  "amazon",
			input: "https://www.amazon.com/dp/B0/ref=sr_1_1?tag=aff-20&qid=1&keywords=phone",
			want:  "https://www.amazon.com/dp/B0?keywords=phone",
			rules: []string{"amazon", "amazon_raw_0", "globalRules"},
		},
		{
			name:     "google redirect",
			input:    "https://www.google.com/url?q=https://example.com/page&sa=D",
			want:     "https://example.com/page",
			redirect: true,
			rules:    []string{"google", "google_redirect"},
		},
		{
			name:  "global exception",
			input: "https://disqus.com/embed/comments/?utm_source=x",
			want:  "https://disqus.com/embed/comments/?utm_source=x",
			rules: []string{},
		},
		{
			name:   "blocked ad domain",
			input:  "https://pagead2.googlesyndication.com/pagead/js",
			want:   "https://pagead2.googlesyndication.com/pagead/js",
			cancel: true,
			rules:  []string{"googlesyndication"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Clean(tt.input)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			if res.String() != tt.want {
				t.Errorf("Clean() = %q, want %q", res.String(), tt.want)
			}
			if res.Redirect != tt.redirect || res.Cancel != tt.cancel {
				t.Errorf("redirect=%v cancel=%v, want %v %v", res.Redirect, res.Cancel, tt.redirect, tt.cancel)
			}
			if !reflect.DeepEqual(res.AppliedRules, tt.rules) {
				t.Errorf("AppliedRules = %v, want %v", res.AppliedRules, tt.rules)
			}
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	c, err := NewDefault(PresetStrict())
	if err != nil {
		t.Fatalf("NewDefault() error = %v", err)
	}

	inputs := []string{
		"https://www.amazon.com/dp/B0/ref=sr_1_1?tag=aff-20&qid=1&keywords=phone",
		"https://www.youtube.com/watch?v=abc&feature=share&si=xyz",
		"https://example.com/?utm_source=a&utm_medium=b&id=7#frag",
		"https://www.facebook.com/some.page?__tn__=K&refid=17&id=3",
		"https://news.example.org/story?fbclid=abc&gclid=def&page=2",
		"example.net/plain",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := c.Clean(input)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			if first.Redirect || first.Cancel {
				t.Skip("redirected or cancelled")
			}
			second, err := c.Clean(first.String())
			if err != nil {
				t.Fatalf("second Clean() error = %v", err)
			}
			if second.String() != first.String() {
				t.Errorf("second Clean() = %q, want %q", second.String(), first.String())
			}
			if second.Changed {
				t.Errorf("second Clean() reported a change with rules %v", second.AppliedRules)
			}
		})
	}
}

func TestClean_Concurrent(t *testing.T) {
	c := newTestCleaner(t, DefaultOptions(), googleEntry(), globalEntry())

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.CleanString("https://google.com/search?q=go&utm_source=x&utm_medium=y")
			if err != nil {
				errs <- err.Error()
				return
			}
			if got != "https://google.com/search?q=go" {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("concurrent Clean() = %s", e)
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	c := newTestCleaner(t, DefaultOptions(), googleEntry())
	res, err := c.Clean("https://google.com/?utm_source=x&q=1")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got["url"] != "https://google.com/?q=1" {
		t.Errorf("url = %v", got["url"])
	}
	if got["changed"] != true || got["redirect"] != false || got["cancel"] != false {
		t.Errorf("flags = %v", got)
	}
	if rules, ok := got["applied_rules"].([]any); !ok || len(rules) != 1 || rules[0] != "Google" {
		t.Errorf("applied_rules = %v", got["applied_rules"])
	}
}
