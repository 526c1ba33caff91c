package commands

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/plink/internal/logger"
	"github.com/jmylchreest/plink/internal/server"
	"github.com/jmylchreest/plink/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cleaning API over HTTP",
	Long: `Serve exposes the cleaner over HTTP:

  GET  /v1/clean?url=URL     clean one URL
  POST /v1/clean             clean {"urls": [...]} in one request
  GET  /health               liveness and rule count
  GET  /metrics              Prometheus metrics

Requests to /v1/clean are rate limited per client address.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addCleanFlags(serveCmd)

	def := server.DefaultConfig()
	flags := serveCmd.Flags()
	flags.StringP("listen", "l", def.Addr, "listen address")
	flags.Float64("rate", float64(def.RateLimit), "requests per second per client (0 disables limiting)")
	flags.Int("burst", def.Burst, "requests a client may make at once")
	flags.Int("max-urls", def.MaxURLs, "largest batch accepted by POST /v1/clean")
	flags.String("max-body", humanize.IBytes(uint64(def.MaxBodyBytes)), "largest request body accepted")
	flags.Duration("shutdown-timeout", def.ShutdownTimeout, "time allowed for in-flight requests on shutdown")

	_ = viper.BindPFlag("listen", flags.Lookup("listen"))
	_ = viper.BindPFlag("rate", flags.Lookup("rate"))
	_ = viper.BindPFlag("burst", flags.Lookup("burst"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	c, err := newCleaner(cmd, viper.GetViper())
	if err != nil {
		logger.Error("failed to create cleaner", "error", err)
		return err
	}

	maxBody, err := parseSize(cmd, "max-body")
	if err != nil {
		return err
	}
	maxURLs, _ := cmd.Flags().GetInt("max-urls")
	shutdown, _ := cmd.Flags().GetDuration("shutdown-timeout")

	cfg := server.Config{
		Addr:            viper.GetString("listen"),
		RateLimit:       rate.Limit(viper.GetFloat64("rate")),
		Burst:           viper.GetInt("burst"),
		MaxURLs:         maxURLs,
		MaxBodyBytes:    int64(maxBody),
		ShutdownTimeout: shutdown,
	}
	logger.Info("starting plink server",
		"build", version.Short(),
		"addr", cfg.Addr,
		"providers", len(c.Providers()),
		"rate", float64(cfg.RateLimit),
		"burst", cfg.Burst)

	return server.New(c, cfg).Run(cmd.Context())
}

// parseSize reads a human-readable byte size flag such as "1MB" or "512KiB".
func parseSize(cmd *cobra.Command, flag string) (uint64, error) {
	s, _ := cmd.Flags().GetString(flag)
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid --%s %q: %w", flag, s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("--%s must be greater than zero", flag)
	}
	return n, nil
}
