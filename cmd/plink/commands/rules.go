package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/plink/internal/bridge"
	"github.com/jmylchreest/plink/internal/logger"
	"github.com/jmylchreest/plink/internal/version"
	"github.com/jmylchreest/plink/pkg/cleaner"
	"github.com/jmylchreest/plink/pkg/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect, validate and update rule databases",
}

var rulesInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarize the active rule database",
	Args:  cobra.NoArgs,
	RunE:  runRulesInfo,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check that a rule database parses and every pattern compiles",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesValidate,
}

var rulesUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download the latest ClearURLs rule database",
	Long: `Update downloads the ClearURLs rule database, verifies it against the
published SHA-256 digest, checks that it parses and validates, then
atomically replaces the output file. The existing file is kept on any
failure.

Use the downloaded file with --rules, or set "rules" in .plink.yaml.`,
	Args: cobra.NoArgs,
	RunE: runRulesUpdate,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesInfoCmd, rulesValidateCmd, rulesUpdateCmd)

	rulesInfoCmd.Flags().String("rules", "", "rule database file (default: embedded ClearURLs rules)")

	flags := rulesUpdateCmd.Flags()
	flags.String("url", rules.DefaultSourceURL, "rule database URL")
	flags.String("hash-url", rules.DefaultHashURL, "SHA-256 digest URL (empty skips verification)")
	flags.StringP("out", "o", defaultRulesFile(), "destination file")
}

func defaultRulesFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "clearurls.json"
	}
	return filepath.Join(dir, "plink", "clearurls.json")
}

// rulesSummary is the text form of bridge.RulesInfo.
type rulesSummary struct {
	*bridge.RulesInfo
	Size uint64
}

func (s rulesSummary) String() string {
	var sb strings.Builder
	source := s.Path
	if source == "" {
		source = "embedded"
	}
	fmt.Fprintf(&sb, "Source:    %s (%s)\n", source, humanize.Bytes(s.Size))
	fmt.Fprintf(&sb, "Providers: %d (%d active)\n", s.Providers, s.Active)
	fmt.Fprintf(&sb, "Patterns:  %s", humanize.Comma(int64(s.Patterns)))
	for _, e := range s.CompileErrors {
		fmt.Fprintf(&sb, "\nSkipped:   %s", e)
	}
	return sb.String()
}

func runRulesInfo(cmd *cobra.Command, _ []string) error {
	path := rulesPath(cmd, viper.GetViper())
	info, err := bridge.DescribeRules(path)
	if err != nil {
		return err
	}

	size := uint64(len(rules.DefaultData()))
	if path != "" {
		st, err := os.Stat(path)
		if err != nil {
			return err
		}
		size = uint64(st.Size())
	}
	fmt.Fprintln(cmd.OutOrStdout(), rulesSummary{RulesInfo: info, Size: size})
	return nil
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	db, err := rules.FromFile(args[0])
	if err != nil {
		return err
	}
	c, err := cleaner.New(db, cleaner.DefaultOptions())
	if err != nil {
		return err
	}

	errs := c.CompileErrors()
	for _, e := range errs {
		fmt.Fprintln(cmd.ErrOrStderr(), e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d providers failed to compile", len(errs), db.Len())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d providers OK\n", args[0], db.Len())
	return nil
}

func runRulesUpdate(cmd *cobra.Command, _ []string) error {
	source, _ := cmd.Flags().GetString("url")
	hashURL, _ := cmd.Flags().GetString("hash-url")
	dest, _ := cmd.Flags().GetString("out")

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}

	logger.Info("downloading rule database", "url", source)
	res, err := rules.Update(cmd.Context(), dest, rules.UpdateOptions{
		SourceURL: source,
		HashURL:   hashURL,
		UserAgent: version.UserAgent(),
	})
	if err != nil {
		logger.Error("rule update failed", "error", err)
		return err
	}

	verified := "unverified"
	if res.Verified {
		verified = "sha256 " + res.SHA256
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d providers, %s (%s)\n",
		res.Path, res.Providers, humanize.Bytes(uint64(res.Bytes)), verified)
	return nil
}
