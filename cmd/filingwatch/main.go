// filingwatch: read-through SEC EDGAR client and new-filing watcher
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/filingwatch/api"
	"github.com/seenimoa/filingwatch/internal/config"
	"github.com/seenimoa/filingwatch/internal/logging"
	"github.com/seenimoa/filingwatch/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, populated before any command runs.
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "filingwatch",
	Short: "filingwatch - SEC EDGAR client and new-filing watcher",
	Long: `filingwatch resolves tickers to SEC Central Index Keys, reads entity
filing histories from EDGAR with caching and polite retries, and watches
entities for new filings.

Set an identifying User-Agent before use, e.g.
  export FILINGWATCH_EDGAR_USER_AGENT="Acme Research ops@acme.example"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if l, _ := cmd.Flags().GetString("log-level"); l != "" {
			level = l
		}
		logger, err = logging.New(level, cfg.Logging.Format, os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to configure logging: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(filingsCmd)
	rootCmd.AddCommand(docCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("filingwatch %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, poller, err := buildClient(cfg, logger)
		if err != nil {
			return err
		}
		api.Version = version
		srv := api.NewServer(cfg, client, poller, logger)
		return srv.ListenAndServe(cmd.Context(), cfg.API.Addr())
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and filing-window status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		colorize := shouldColorize(out)
		now := utils.NowET()

		lines := renderSectionHeader("filingwatch status", colorize)
		window := statusInfo
		if utils.IsFilingWindowOpenAt(now) {
			window = statusOK
		}
		lines = append(lines,
			renderStatusLine("Version", statusInfo, fmt.Sprintf("%s (%s)", version, commit), colorize),
			renderStatusLine("Time (ET)", statusInfo, utils.FormatDateTimeET(now), colorize),
			renderStatusLine("Filing window", window, utils.FilingWindowStatus(now), colorize),
		)
		if window != statusOK {
			lines = append(lines, renderStatusLine("Next window", statusInfo,
				utils.FormatDateTimeET(utils.NextFilingWindowOpen(now)), colorize))
		}
		lines = append(lines,
			renderStatusLine("API server", statusInfo, cfg.API.Addr(), colorize),
			renderStatusLine("Rate limit", statusInfo, fmt.Sprintf("%d req/s", cfg.Edgar.RateLimit), colorize),
			renderStatusLine("Snapshot TTL", statusInfo, cfg.Cache.SnapshotTTL().String(), colorize),
			renderStatusLine("Stream interval", statusInfo, fmt.Sprintf("%s .. %s",
				cfg.Stream.MinInterval(), cfg.Stream.MaxInterval()), colorize),
		)
		for _, s := range config.CheckSettings(cfg) {
			if s.IsSet {
				lines = append(lines, renderStatusLine(s.Name, statusOK,
					fmt.Sprintf("set (%s: %s)", s.Source, s.Masked), colorize))
			} else {
				lines = append(lines, renderStatusLine(s.Name, statusError, "not set", colorize))
			}
		}
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}
		return nil
	},
}
