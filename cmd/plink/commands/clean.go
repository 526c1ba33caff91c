package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/plink/internal/logger"
	"github.com/jmylchreest/plink/internal/output"
	"github.com/jmylchreest/plink/pkg/cleaner"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [URL...]",
	Short: "Clean URLs given as arguments or read from stdin",
	Long: `Clean removes tracking parameters from each URL and prints the result,
one per line, in input order. Without arguments URLs are read from stdin,
one per line; blank lines are ignored.

URLs without a scheme are treated as https. A URL that cannot be cleaned
is reported on stderr and the command exits non-zero once every other
URL has been printed.

Examples:
  plink clean "https://www.amazon.com/dp/B0?tag=aff-20&keywords=phone"
  plink clean --no-referral-marketing --additional-params ref,src URL
  cat urls.txt | plink clean --format jsonl`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	addCleanFlags(cleanCmd)
	addOutputFlags(rootCmd)
	addOutputFlags(cleanCmd)
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "", "output format: text, json, jsonl, yaml (default text)")
	cmd.Flags().Bool("pretty", true, "indent json output")
}

func runClean(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	c, err := newCleaner(cmd, v)
	if err != nil {
		logger.Error("failed to create cleaner", "error", err)
		return err
	}

	format := v.GetString("format")
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		format = f
	}
	pretty, _ := cmd.Flags().GetBool("pretty")
	w, err := newWriter(cmd.OutOrStdout(), format, pretty)
	if err != nil {
		return err
	}

	var src io.Reader
	if len(args) == 0 {
		src = cmd.InOrStdin()
	}
	failed, total, err := cleanAll(c, args, src, w, cmd.ErrOrStderr())
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	logger.Debug("clean finished", "urls", total, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d URLs could not be cleaned", failed, total)
	}
	return nil
}

func newWriter(out io.Writer, format string, pretty bool) (output.Writer, error) {
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return output.NewWriter(out, f, output.WithPretty(pretty))
}

// cleanAll cleans args, or the lines of src when args is empty, writing
// each result to w and each failure to errOut.
func cleanAll(c *cleaner.Cleaner, args []string, src io.Reader, w output.Writer, errOut io.Writer) (failed, total int, err error) {
	handle := func(raw string) error {
		total++
		res, cerr := c.Clean(raw)
		if cerr != nil {
			failed++
			fmt.Fprintf(errOut, "error cleaning %s: %v\n", raw, cerr)
			return nil
		}
		return w.Write(res)
	}

	if src == nil {
		for _, raw := range args {
			if err := handle(raw); err != nil {
				return failed, total, err
			}
		}
		return failed, total, nil
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		if err := handle(raw); err != nil {
			return failed, total, err
		}
	}
	if err := scanner.Err(); err != nil {
		return failed, total, fmt.Errorf("failed to read URLs: %w", err)
	}
	return failed, total, nil
}
