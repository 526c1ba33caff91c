package cleaner

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Options controls how a Cleaner treats URLs. The zero value disables every
// toggle; use DefaultOptions for the usual behaviour.
type Options struct {
	// SkipLocalhost leaves localhost and private-range hosts untouched.
	SkipLocalhost bool `json:"skip_localhost" yaml:"skip_localhost"`

	// ApplyReferralMarketing also strips referral-marketing parameters
	// (affiliate tags and the like).
	ApplyReferralMarketing bool `json:"apply_referral_marketing" yaml:"apply_referral_marketing"`

	// DomainBlocking cancels URLs that match a complete provider.
	DomainBlocking bool `json:"domain_blocking" yaml:"domain_blocking"`

	// AdditionalBlockedParams are parameter names stripped from every URL,
	// matched exactly and case-sensitively.
	AdditionalBlockedParams []string `json:"additional_blocked_params" yaml:"additional_blocked_params" validate:"dive,required"`

	// BlacklistedDomains are host suffixes that are never cleaned.
	BlacklistedDomains []string `json:"blacklisted_domains" yaml:"blacklisted_domains" validate:"dive,required,excludesall=/?#@"`
}

// DefaultOptions returns the default options: every toggle on, no extra
// parameters and no blacklist.
func DefaultOptions() Options {
	return Options{
		SkipLocalhost:           true,
		ApplyReferralMarketing:  true,
		DomainBlocking:          true,
		AdditionalBlockedParams: []string{},
		BlacklistedDomains:      []string{},
	}
}

// PresetStrict returns DefaultOptions plus the click identifiers most often
// left behind by providers that are not in the rule database.
func PresetStrict() Options {
	opts := DefaultOptions()
	opts.AdditionalBlockedParams = append(opts.AdditionalBlockedParams,
		"fbclid",
		"gclid",
		"dclid",
		"msclkid",
		"twclid",
		"ttclid",
		"igshid",
		"yclid",
		"mc_eid",
		"_hsenc",
		"_hsmi",
		"oly_anon_id",
		"oly_enc_id",
		"rb_clickid",
		"s_cid",
	)
	return opts
}

// Merge returns a copy of o with other layered on top. Toggles are taken
// from other; lists are appended without duplicates.
func (o Options) Merge(other Options) Options {
	merged := o
	merged.SkipLocalhost = other.SkipLocalhost
	merged.ApplyReferralMarketing = other.ApplyReferralMarketing
	merged.DomainBlocking = other.DomainBlocking
	merged.AdditionalBlockedParams = appendUnique(o.AdditionalBlockedParams, other.AdditionalBlockedParams)
	merged.BlacklistedDomains = appendUnique(o.BlacklistedDomains, other.BlacklistedDomains)
	return merged
}

func appendUnique(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

var (
	optionsValidatorOnce sync.Once
	optionsValidator     *validator.Validate
)

// Validate rejects empty list entries and blacklist entries that cannot be
// host suffixes.
func (o Options) Validate() error {
	optionsValidatorOnce.Do(func() {
		optionsValidator = validator.New()
	})
	if err := optionsValidator.Struct(o); err != nil {
		return fmt.Errorf("invalid cleaning options: %w", err)
	}
	return nil
}
