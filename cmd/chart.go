package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ksrcrypto/crypto-backend/services"
	"github.com/spf13/cobra"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Print a synthetic price history",
	RunE: func(cmd *cobra.Command, args []string) error {
		logToStderr(cmd)

		raw, _ := cmd.Flags().GetString("timeframe")
		series, err := services.NewChartService(cfg.Chart.LoadDelay).Load(cmd.Context(), services.ParseTimeframe(raw))
		if err != nil {
			return fmt.Errorf("failed to load chart: %w", err)
		}
		return writeChartTable(cmd.OutOrStdout(), series)
	},
}

func init() {
	chartCmd.Flags().String("timeframe", string(services.Timeframe7d), "timeframe (24h, 7d, 30d, 90d, 1y)")
}

func writeChartTable(out io.Writer, series services.ChartSeries) error {
	trend := "down"
	if series.Summary.Positive {
		trend = "up"
	}
	fmt.Fprintf(out, "Timeframe %s: high %s, low %s, trend %s\n",
		series.Timeframe,
		services.FormatPrice(series.Summary.High),
		services.FormatPrice(series.Summary.Low),
		trend,
	)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tPRICE")
	for i, label := range series.Labels {
		fmt.Fprintf(w, "%s\t%s\n", label, services.FormatPrice(series.Prices[i]))
	}
	return w.Flush()
}
