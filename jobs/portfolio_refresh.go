package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/sirupsen/logrus"
)

// PriceStore is the part of the portfolio store the refresh writes to
type PriceStore interface {
	HeldSymbols(ctx context.Context) ([]string, error)
	UpdatePrices(ctx context.Context, quotes map[string]models.MarketEntry) (int64, error)
}

// LiveQuoter returns live quotes only; a failure must not yield fallback prices
type LiveQuoter interface {
	FetchLiveQuotes(ctx context.Context, symbols []string) (map[string]models.MarketEntry, error)
}

// PortfolioRefreshJob copies live quotes onto the stored holdings
type PortfolioRefreshJob struct {
	Store   PriceStore
	Quotes  LiveQuoter
	Timeout time.Duration
}

func NewPortfolioRefreshJob(store PriceStore, quotes LiveQuoter, timeout time.Duration) *PortfolioRefreshJob {
	return &PortfolioRefreshJob{Store: store, Quotes: quotes, Timeout: timeout}
}

// Run re-quotes every held symbol and returns the number of rows updated
func (j *PortfolioRefreshJob) Run(ctx context.Context) (int64, error) {
	logger := logrus.WithField("component", "PortfolioRefreshJob")
	logger.Info("Starting portfolio price refresh")

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	symbols, err := j.Store.HeldSymbols(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to list held symbols")
		return 0, err
	}
	if len(symbols) == 0 {
		logger.Debug("No holdings to refresh")
		return 0, nil
	}

	quotes, err := j.Quotes.FetchLiveQuotes(ctx, symbols)
	if err != nil {
		logger.WithError(err).Warn("Live quotes unavailable, keeping stored prices")
		return 0, fmt.Errorf("fetch quotes: %w", err)
	}

	updated, err := j.Store.UpdatePrices(ctx, quotes)
	if err != nil {
		logger.WithError(err).Error("Failed to store refreshed prices")
		return 0, err
	}

	logger.WithFields(logrus.Fields{
		"symbols": len(symbols),
		"quoted":  len(quotes),
		"updated": updated,
	}).Info("Portfolio price refresh completed")
	return updated, nil
}
