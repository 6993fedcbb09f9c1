package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/geoagg-cli/internal/config"
	"github.com/KaramelBytes/geoagg-cli/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// HTTP flag (overrides config if set)
	flagHTTPTimeoutSec int

	// Loaded configuration
	cfg *cfgpkg.Global
	// Logger built in PersistentPreRunE
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "geoagg",
	Short: "geoagg: multi-year firm aggregation and choropleth maps",
	Long: `geoagg loads yearly manufacturing-firm tables, keeps one region, and produces
grouped statistics, unit × year matrices, correlation matrices and choropleth
maps joined to administrative boundaries by normalized name.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Assigned here rather than in the rootCmd literal to avoid an
	// initialization cycle (loadConfig reads rootCmd's flags).
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(debug)
		if err != nil {
			return err
		}
		logger = l
		loadConfig()
		return nil
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.geoagg/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP timeout in seconds for remote boundaries (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	logger.Debug("config loaded", zap.String("region", cfg.Region), zap.Int("sources", len(cfg.Sources)))
}
