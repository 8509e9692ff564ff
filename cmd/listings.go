package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/ksrcrypto/crypto-backend/services"
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/spf13/cobra"
)

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Print the current market listings",
	Long: `Fetch the listings once and print them as a table.

Examples:
  ksrcrypto listings --limit 10
  ksrcrypto listings --query bit --sort price --order asc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logToStderr(cmd)

		limit, _ := cmd.Flags().GetInt("limit")
		query, _ := cmd.Flags().GetString("query")
		rawSort, _ := cmd.Flags().GetString("sort")
		rawOrder, _ := cmd.Flags().GetString("order")

		if limit < 1 || limit > 5000 {
			return fmt.Errorf("--limit must be between 1 and 5000, got %d", limit)
		}
		key, err := services.ParseSortKey(rawSort)
		if err != nil {
			return err
		}
		direction, err := services.ParseSortDirection(rawOrder)
		if err != nil {
			return err
		}

		factory := shared.NewHTTPClientFactory(cfg.Service.HTTPRequestTimeout)
		defer factory.CloseIdleConnections()

		entries := services.NewListingsService(cfg.Service, factory).FetchListings(cmd.Context(), limit)
		return writeListingsTable(cmd.OutOrStdout(), services.Project(entries, query, key, direction))
	},
}

func init() {
	listingsCmd.Flags().Int("limit", 50, "number of listings to fetch (1-5000)")
	listingsCmd.Flags().String("query", "", "filter by name or symbol")
	listingsCmd.Flags().String("sort", "market_cap", "sort key (name, price, change_24h, change_7d, volume, market_cap)")
	listingsCmd.Flags().String("order", "desc", "sort order (asc, desc)")
}

func writeListingsTable(out io.Writer, entries []models.MarketEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "#\tNAME\tSYMBOL\tPRICE\t24H\t7D\tMARKET CAP\tVOLUME\t")
	for i, e := range entries {
		change24h := e.Quote.PercentChange24h
		volume := "N/A"
		if e.Quote.Volume24hUSD != nil {
			volume = services.FormatVolume(*e.Quote.Volume24hUSD)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			i+1,
			e.Name,
			e.Symbol,
			services.FormatPrice(e.Quote.Price),
			services.FormatPercentage(&change24h),
			services.FormatPercentage(e.Quote.PercentChange7d),
			services.FormatMarketCap(e.Quote.MarketCapUSD),
			volume,
		)
	}
	return w.Flush()
}
