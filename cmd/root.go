package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ksrcrypto/crypto-backend/config"
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// cfg is loaded once before any command runs
var cfg *shared.UnifiedConfiguration

var rootCmd = &cobra.Command{
	Use:   "ksrcrypto",
	Short: "KSR Crypto market data backend",
	Long: `KSR Crypto serves cryptocurrency listings, synthetic price charts and
demo portfolios over HTTP. Without an API key the listings come from a
built-in fallback set.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.LoadConfig().ToUnified()
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			if err := applyConfigFile(path); err != nil {
				return err
			}
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		if format, _ := cmd.Flags().GetString("log-format"); format != "" {
			cfg.Logging.Format = format
		}
		shared.ConfigureLogging(cfg.Logging)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "JSON file overlaid on the environment configuration")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format override (json, text)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listingsCmd)
	rootCmd.AddCommand(chartCmd)
}

// Execute runs the command line and exits non-zero on failure
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// logToStderr keeps table output on stdout free of log lines
func logToStderr(cmd *cobra.Command) {
	logrus.SetOutput(cmd.ErrOrStderr())
}
