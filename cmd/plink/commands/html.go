package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/plink/internal/logger"
	"github.com/jmylchreest/plink/pkg/htmlclean"
)

var htmlCmd = &cobra.Command{
	Use:   "html [FILE]",
	Short: "Clean every link in an HTML document",
	Long: `Html rewrites the links of an HTML document (anchors, image maps, forms,
frames and images) through the cleaner and writes the document to stdout.
Without FILE the document is read from stdin.

Links a provider blocks are reported on stderr and left in place unless
--remove-blocked is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHTML,
}

func init() {
	rootCmd.AddCommand(htmlCmd)
	addCleanFlags(htmlCmd)

	flags := htmlCmd.Flags()
	flags.Bool("anchors-only", false, "only rewrite a[href]")
	flags.Bool("no-follow-redirects", false, "keep redirector links instead of replacing them with their target")
	flags.Bool("remove-blocked", false, "drop the link attribute of blocked URLs")
	flags.Bool("full-document", false, "always write <html>, <head> and <body>")
	flags.Bool("stats", false, "print rewrite statistics to stderr")
	flags.String("max-size", "10MB", "largest document accepted")
}

func runHTML(cmd *cobra.Command, args []string) error {
	c, err := newCleaner(cmd, viper.GetViper())
	if err != nil {
		logger.Error("failed to create cleaner", "error", err)
		return err
	}

	maxSize, err := parseSize(cmd, "max-size")
	if err != nil {
		return err
	}

	src := cmd.InOrStdin()
	name := "stdin"
	if len(args) == 1 {
		f, err := os.Open(args[0]) //#nosec G304 -- document path is user supplied
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		src, name = f, args[0]
	}

	data, err := io.ReadAll(io.LimitReader(src, int64(maxSize)+1))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if uint64(len(data)) > maxSize {
		return fmt.Errorf("%s exceeds --max-size", name)
	}

	cfg := htmlclean.DefaultConfig()
	if anchors, _ := cmd.Flags().GetBool("anchors-only"); anchors {
		cfg = htmlclean.AnchorsOnly()
	}
	noFollow, _ := cmd.Flags().GetBool("no-follow-redirects")
	cfg.FollowRedirects = !noFollow
	cfg.RemoveBlocked, _ = cmd.Flags().GetBool("remove-blocked")
	cfg.FullDocument, _ = cmd.Flags().GetBool("full-document")

	res := htmlclean.New(c, cfg).Rewrite(string(data))
	for _, w := range res.Warnings {
		logger.Warn(w.Message, "phase", w.Phase, "link", w.Context)
	}
	if _, err := io.WriteString(cmd.OutOrStdout(), res.Content); err != nil {
		return err
	}
	if showStats, _ := cmd.Flags().GetBool("stats"); showStats {
		fmt.Fprint(cmd.ErrOrStderr(), res.Stats.String())
	}
	return nil
}
