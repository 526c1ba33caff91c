package cleaner

import (
	"errors"
	"net/url"
	"testing"

	"github.com/jmylchreest/plink/pkg/rules"
)

func TestCompile(t *testing.T) {
	p, err := Compile("shop", rules.Provider{
		URLPattern:        `^https?:\/\/shop\.example`,
		Rules:             []string{"ref", "utm_[a-z]+"},
		ReferralMarketing: []string{"tag"},
		Exceptions:        []string{`\/checkout`},
		ForceRedirection:  true,
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if p.Name != "shop" || !p.ForceRedirection || p.CompleteProvider {
		t.Errorf("Compile() = %+v", p)
	}
	if len(p.Rules) != 2 || len(p.ReferralMarketing) != 1 {
		t.Errorf("rules = %d, referral = %d", len(p.Rules), len(p.ReferralMarketing))
	}

	tests := []struct {
		url    string
		active bool
	}{
		{"https://shop.example/item", true},
		{"https://shop.example/checkout", false},
		{"https://other.example/item", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			u, _ := url.Parse(tt.url)
			if got := p.Active(u); got != tt.active {
				t.Errorf("Active(%q) = %v, want %v", tt.url, got, tt.active)
			}
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		def   rules.Provider
		field string
		index int
	}{
		{"url pattern", rules.Provider{URLPattern: `[`}, "urlPattern", -1},
		{"rule", rules.Provider{URLPattern: ".*", Rules: []string{"a", "b("}}, "rules", 1},
		{"raw rule", rules.Provider{URLPattern: ".*", RawRules: []string{`(?P<`}}, "rawRules", 0},
		{"exception", rules.Provider{URLPattern: ".*", Exceptions: []string{`*`}}, "exceptions", 0},
		{"redirection", rules.Provider{URLPattern: ".*", Redirections: []string{`(`}}, "redirections", 0},
		{"referral", rules.Provider{URLPattern: ".*", ReferralMarketing: []string{`x)`}}, "referralMarketing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("p", tt.def)
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("Compile() error = %v, want *CompileError", err)
			}
			if ce.Provider != "p" || ce.Field != tt.field || ce.Index != tt.index {
				t.Errorf("CompileError = %+v, want field %s index %d", ce, tt.field, tt.index)
			}
			if ce.Unwrap() == nil {
				t.Error("CompileError should wrap the regexp error")
			}
		})
	}
}

func TestParamNamePattern_Alternation(t *testing.T) {
	// both alternatives must be anchored
	p, err := Compile("p", rules.Provider{URLPattern: ".*", Rules: []string{"a|b"}})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	for name, want := range map[string]bool{"a": true, "B": true, "ab": false, "xa": false, "bx": false} {
		if got := p.Rules[0].MatchString(name); got != want {
			t.Errorf("MatchString(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestCompileDatabase_SharesPatterns(t *testing.T) {
	db := rules.New(
		rules.Entry{Name: "one", Provider: rules.Provider{URLPattern: ".*", Rules: []string{"utm_source"}}},
		rules.Entry{Name: "two", Provider: rules.Provider{URLPattern: ".*", Rules: []string{"utm_source"}}},
	)
	providers, errs, hits := compileDatabase(db)
	if len(errs) != 0 {
		t.Fatalf("compileDatabase() errors = %v", errs)
	}
	if hits != 2 {
		t.Errorf("hits = %d, want 2", hits)
	}
	if providers[0].Rules[0] != providers[1].Rules[0] {
		t.Error("identical rules should share one compiled pattern")
	}
	if providers[0].URLPattern != providers[1].URLPattern {
		t.Error("identical url patterns should share one compiled pattern")
	}
}
