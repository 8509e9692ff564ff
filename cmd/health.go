package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ksrcrypto/crypto-backend/database"
	"github.com/ksrcrypto/crypto-backend/services"
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the listings API and database",
	RunE: func(cmd *cobra.Command, args []string) error {
		logToStderr(cmd)

		factory := shared.NewHTTPClientFactory(cfg.Service.HTTPRequestTimeout)
		defer factory.CloseIdleConnections()

		checks := []healthProbe{
			{name: "Listings API", run: func(ctx context.Context) (string, error) {
				metrics, err := services.NewListingsService(cfg.Service, factory).FetchGlobalMetrics(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%d active cryptocurrencies", metrics.ActiveCryptocurrencies), nil
			}},
			{name: "Database", run: func(ctx context.Context) (string, error) {
				if cfg.Database.URL == "" {
					return "not configured, demonstration portfolios in use", nil
				}
				if err := database.Connect(cfg.Database); err != nil {
					return "", err
				}
				defer database.Close()
				return "reachable", database.HealthCheck(ctx)
			}},
		}

		if passed := runHealthProbes(cmd.Context(), cmd.OutOrStdout(), checks); passed < len(checks) {
			return fmt.Errorf("%d of %d health checks failed", len(checks)-passed, len(checks))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

type healthProbe struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func runHealthProbes(ctx context.Context, out io.Writer, probes []healthProbe) int {
	fmt.Fprintf(out, "Health check - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(out, strings.Repeat("=", 40))

	passed := 0
	for _, probe := range probes {
		probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		detail, err := probe.run(probeCtx)
		cancel()

		if err != nil {
			fmt.Fprintf(out, "%-14s FAILED (%v)\n", probe.name+":", err)
			continue
		}
		fmt.Fprintf(out, "%-14s OK (%s)\n", probe.name+":", detail)
		passed++
	}

	fmt.Fprintln(out, strings.Repeat("=", 40))
	fmt.Fprintf(out, "Health score: %d/%d\n", passed, len(probes))
	return passed
}
