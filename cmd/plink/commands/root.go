// Package commands implements the CLI commands for plink.
package commands

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/plink/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "plink [flags] [URL...]",
	Short: "Strip tracking parameters from URLs",
	Long: `Plink removes tracking and marketing parameters from URLs using the
ClearURLs rule database, unwraps redirector links and flags links to
known tracking domains.

With URL arguments, or with URLs piped on stdin, plink behaves like
"plink clean".

Examples:
  # Clean a single URL
  plink "https://example.com/?utm_source=news&id=4"

  # Clean a list of URLs and emit JSON with the rules that fired
  plink clean --format json < urls.txt

  # Rewrite every link in an HTML document
  plink html page.html > clean.html

  # Serve the cleaning API
  plink serve --listen :8080`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	RunE:          runRoot,
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log_json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.plink.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))

	addCleanFlags(rootCmd)
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".plink")
		viper.SetConfigType("yaml")
	}

	setDefaults(viper.GetViper())

	// PLINK_SKIP_LOCALHOST, PLINK_LISTEN, ...
	viper.SetEnvPrefix("PLINK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !stdinPiped() {
		return cmd.Help()
	}
	return runClean(cmd, args)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func stdinPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}
