package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/plink/pkg/cleaner"
	"github.com/jmylchreest/plink/pkg/rules"
)

// Configuration keys shared by the config file, PLINK_* variables and flags.
const (
	keySkipLocalhost    = "skip_localhost"
	keyReferral         = "apply_referral_marketing"
	keyDomainBlocking   = "domain_blocking"
	keyBlacklist        = "blacklist"
	keyAdditionalParams = "additional_params"
	keyStrict           = "strict"
	keyRules            = "rules"
)

func setDefaults(v *viper.Viper) {
	def := cleaner.DefaultOptions()
	v.SetDefault(keySkipLocalhost, def.SkipLocalhost)
	v.SetDefault(keyReferral, def.ApplyReferralMarketing)
	v.SetDefault(keyDomainBlocking, def.DomainBlocking)
	v.SetDefault(keyStrict, false)
	v.SetDefault("format", "text")
	v.SetDefault("listen", ":8080")
}

// addCleanFlags registers the flags that shape a Cleaner. The root command
// and its subcommands each get their own copy, so values are read from the
// command being run rather than bound to viper.
func addCleanFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("no-skip-localhost", false, "also clean localhost and private-network URLs")
	flags.Bool("no-referral-marketing", false, "keep referral marketing parameters")
	flags.Bool("no-domain-blocking", false, "do not flag URLs of blocked tracking domains")
	flags.String("blacklist", "", "comma-separated domains that are never cleaned")
	flags.String("additional-params", "", "comma-separated parameter names to always remove")
	flags.Bool("strict", false, "also remove common click identifiers (fbclid, gclid, ...)")
	flags.String("rules", "", "rule database file (default: embedded ClearURLs rules)")
}

// buildOptions resolves the cleaning options: a flag set on the command
// line wins over v, which carries the config file, environment and
// defaults.
func buildOptions(cmd *cobra.Command, v *viper.Viper) (cleaner.Options, error) {
	flags := cmd.Flags()

	toggle := func(flag, key string) bool {
		if flags.Changed(flag) {
			off, _ := flags.GetBool(flag)
			return !off
		}
		return v.GetBool(key)
	}
	list := func(flag, key string) []string {
		if flags.Changed(flag) {
			s, _ := flags.GetString(flag)
			return splitCSV(s)
		}
		var out []string
		for _, item := range v.GetStringSlice(key) {
			out = append(out, splitCSV(item)...)
		}
		return out
	}

	opts := cleaner.DefaultOptions()
	opts.SkipLocalhost = toggle("no-skip-localhost", keySkipLocalhost)
	opts.ApplyReferralMarketing = toggle("no-referral-marketing", keyReferral)
	opts.DomainBlocking = toggle("no-domain-blocking", keyDomainBlocking)
	opts.BlacklistedDomains = append(opts.BlacklistedDomains, list("blacklist", keyBlacklist)...)
	opts.AdditionalBlockedParams = append(opts.AdditionalBlockedParams, list("additional-params", keyAdditionalParams)...)

	strict := v.GetBool(keyStrict)
	if flags.Changed("strict") {
		strict, _ = flags.GetBool("strict")
	}
	if strict {
		opts = cleaner.PresetStrict().Merge(opts)
	}
	return opts, opts.Validate()
}

// rulesPath returns the rule database path from --rules or the config.
// Without either, a database written by `plink rules update` to its default
// location is used if present. An empty result means the embedded rules.
func rulesPath(cmd *cobra.Command, v *viper.Viper) string {
	if f := cmd.Flags().Lookup("rules"); f != nil && f.Changed {
		return f.Value.String()
	}
	if path := v.GetString(keyRules); path != "" {
		return path
	}
	if path := defaultRulesFile(); fileExists(path) {
		return path
	}
	return ""
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// newCleaner builds the Cleaner configured for cmd.
func newCleaner(cmd *cobra.Command, v *viper.Viper) (*cleaner.Cleaner, error) {
	opts, err := buildOptions(cmd, v)
	if err != nil {
		return nil, err
	}
	path := rulesPath(cmd, v)
	if path == "" {
		return cleaner.NewDefault(opts)
	}
	db, err := rules.FromFile(path)
	if err != nil {
		return nil, err
	}
	return cleaner.New(db, opts)
}

// splitCSV splits a comma-separated list, trimming items and dropping
// empty ones.
func splitCSV(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
