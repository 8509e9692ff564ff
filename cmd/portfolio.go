package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/ksrcrypto/crypto-backend/database"
	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/ksrcrypto/crypto-backend/services"
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Manage stored portfolio holdings",
}

var portfolioAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or replace a holding of a user",
	Long: `Store a holding in the portfolio database. The current price is taken
from the live quote when one is available, else from --avg-price.

Example:
  ksrcrypto portfolio add --user 3f2b... --symbol BTC --name Bitcoin --amount 0.5 --avg-price 42000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logToStderr(cmd)

		userID, err := userFlag(cmd)
		if err != nil {
			return err
		}
		symbol, _ := cmd.Flags().GetString("symbol")
		name, _ := cmd.Flags().GetString("name")
		amount, _ := cmd.Flags().GetFloat64("amount")
		avgPrice, _ := cmd.Flags().GetFloat64("avg-price")

		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			return fmt.Errorf("--symbol is required")
		}
		if amount < 0 || avgPrice < 0 {
			return fmt.Errorf("--amount and --avg-price must not be negative")
		}
		if name == "" {
			name = symbol
		}

		store, err := connectPortfolioStore(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()

		holding := models.Holding{Symbol: symbol, Name: name, Amount: amount, AvgPrice: avgPrice, CurrentPrice: avgPrice}
		factory := shared.NewHTTPClientFactory(cfg.Service.HTTPRequestTimeout)
		defer factory.CloseIdleConnections()
		if quotes, err := services.NewListingsService(cfg.Service, factory).FetchLiveQuotes(cmd.Context(), []string{symbol}); err == nil {
			if entry, ok := quotes[symbol]; ok {
				holding.CurrentPrice = entry.Quote.Price
				holding.Change24h = entry.Quote.PercentChange24h
			}
		} else {
			logrus.WithError(err).Warn("No live quote, using average price as current price")
		}

		if err := store.InsertHolding(cmd.Context(), userID, holding); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s %g @ %s for %s\n", symbol, amount, services.FormatPrice(avgPrice), userID)
		return nil
	},
}

var portfolioShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the priced portfolio of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		logToStderr(cmd)

		userID, err := userFlag(cmd)
		if err != nil {
			return err
		}

		var store services.PortfolioStore = services.MockPortfolioStore{}
		if cfg.Database.URL != "" {
			pgStore, err := connectPortfolioStore(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()
			store = pgStore
		}

		summary, err := services.NewPortfolioService(store).GetPortfolio(cmd.Context(), userID)
		if err != nil {
			return err
		}
		return writePortfolioTable(cmd.OutOrStdout(), summary)
	},
}

func init() {
	for _, c := range []*cobra.Command{portfolioAddCmd, portfolioShowCmd} {
		c.Flags().String("user", "", "user id (UUID)")
		portfolioCmd.AddCommand(c)
	}
	portfolioAddCmd.Flags().String("symbol", "", "asset symbol, e.g. BTC")
	portfolioAddCmd.Flags().String("name", "", "asset name (defaults to the symbol)")
	portfolioAddCmd.Flags().Float64("amount", 0, "amount held")
	portfolioAddCmd.Flags().Float64("avg-price", 0, "average purchase price in USD")

	rootCmd.AddCommand(portfolioCmd)
}

func userFlag(cmd *cobra.Command) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("user")
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--user must be a UUID: %w", err)
	}
	return userID, nil
}

func connectPortfolioStore(ctx context.Context) (*services.PostgresPortfolioStore, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if err := database.Connect(cfg.Database); err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return services.NewPostgresPortfolioStore(database.DB), nil
}

func writePortfolioTable(out io.Writer, summary models.PortfolioSummary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SYMBOL\tAMOUNT\tAVG PRICE\tPRICE\t24H\tVALUE\tALLOC\t")
	for _, h := range summary.Holdings {
		change := h.Change24h
		fmt.Fprintf(w, "%s\t%g\t%s\t%s\t%s\t%s\t%.1f%%\t\n",
			h.Symbol,
			h.Amount,
			services.FormatPrice(h.AvgPrice),
			services.FormatPrice(h.CurrentPrice),
			services.FormatPercentage(&change),
			services.FormatPrice(h.Value),
			h.Allocation,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	totalChange := summary.TotalChangePct
	_, err := fmt.Fprintf(out, "Total %s (%s vs cost %s)\n",
		services.FormatPrice(summary.TotalValue),
		services.FormatPercentage(&totalChange),
		services.FormatPrice(summary.TotalCost))
	return err
}
