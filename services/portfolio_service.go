package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/sirupsen/logrus"
)

const portfolioServiceName = "PortfolioService"

// PortfolioStore loads the raw holdings of a user. Value and Allocation are
// left for PortfolioService to compute.
type PortfolioStore interface {
	Holdings(ctx context.Context, userID uuid.UUID) ([]models.Holding, error)
}

// MockPortfolioStore returns the same demonstration holdings for every user
type MockPortfolioStore struct{}

// Holdings returns the demonstration holdings
func (MockPortfolioStore) Holdings(ctx context.Context, userID uuid.UUID) ([]models.Holding, error) {
	return []models.Holding{
		{ID: 1, Symbol: "BTC", Name: "Bitcoin", Amount: 0.5, AvgPrice: 42000, CurrentPrice: 43250, Change24h: 2.5},
		{ID: 2, Symbol: "ETH", Name: "Ethereum", Amount: 8, AvgPrice: 2500, CurrentPrice: 2650, Change24h: 3.8},
		{ID: 3, Symbol: "ADA", Name: "Cardano", Amount: 10000, AvgPrice: 0.48, CurrentPrice: 0.45, Change24h: -1.2},
		{ID: 4, Symbol: "SOL", Name: "Solana", Amount: 5, AvgPrice: 95, CurrentPrice: 98.5, Change24h: 7.1},
	}, nil
}

// PostgresPortfolioStore reads holdings from the portfolio_holdings table.
// A user without rows gets the demonstration holdings.
type PostgresPortfolioStore struct {
	db       *sql.DB
	fallback PortfolioStore
}

// NewPostgresPortfolioStore creates a store backed by db
func NewPostgresPortfolioStore(db *sql.DB) *PostgresPortfolioStore {
	return &PostgresPortfolioStore{db: db, fallback: MockPortfolioStore{}}
}

// Holdings returns the user's rows ordered by id
func (s *PostgresPortfolioStore) Holdings(ctx context.Context, userID uuid.UUID) ([]models.Holding, error) {
	query := `
		SELECT id, symbol, name, amount, avg_price, current_price, change_24h
		FROM portfolio_holdings
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.ID, &h.Symbol, &h.Name, &h.Amount, &h.AvgPrice, &h.CurrentPrice, &h.Change24h); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate portfolio holdings: %w", err)
	}

	if len(holdings) == 0 {
		return s.fallback.Holdings(ctx, userID)
	}
	return holdings, nil
}

// HeldSymbols returns the distinct symbols held by any user
func (s *PostgresPortfolioStore) HeldSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM portfolio_holdings ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query held symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan held symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// UpdatePrices writes the quoted price and 24h change onto every holding of
// each quoted symbol and returns the number of rows changed.
func (s *PostgresPortfolioStore) UpdatePrices(ctx context.Context, quotes map[string]models.MarketEntry) (int64, error) {
	if len(quotes) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin price update: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE portfolio_holdings
		SET current_price = $1, change_24h = $2, updated_at = NOW()
		WHERE UPPER(symbol) = $3
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare price update: %w", err)
	}
	defer stmt.Close()

	var updated int64
	for symbol, entry := range quotes {
		result, err := stmt.ExecContext(ctx, entry.Quote.Price, entry.Quote.PercentChange24h, strings.ToUpper(symbol))
		if err != nil {
			return 0, fmt.Errorf("failed to update %s: %w", symbol, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			updated += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit price update: %w", err)
	}
	return updated, nil
}

// InsertHolding adds or replaces the holding of userID for h.Symbol
func (s *PostgresPortfolioStore) InsertHolding(ctx context.Context, userID uuid.UUID, h models.Holding) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_holdings (user_id, symbol, name, amount, avg_price, current_price, change_24h)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, symbol) DO UPDATE
		SET name = EXCLUDED.name, amount = EXCLUDED.amount, avg_price = EXCLUDED.avg_price,
			current_price = EXCLUDED.current_price, change_24h = EXCLUDED.change_24h, updated_at = NOW()
	`, userID, strings.ToUpper(h.Symbol), h.Name, h.Amount, h.AvgPrice, h.CurrentPrice, h.Change24h)
	if err != nil {
		return fmt.Errorf("failed to insert holding %s: %w", h.Symbol, err)
	}
	return nil
}

// PortfolioService prices a user's holdings
type PortfolioService struct {
	store   PortfolioStore
	metrics *shared.ServiceMetrics
	logger  *logrus.Entry
}

// NewPortfolioService creates a portfolio service reading from store
func NewPortfolioService(store PortfolioStore) *PortfolioService {
	return &PortfolioService{
		store:   store,
		metrics: shared.NewServiceMetrics(portfolioServiceName),
		logger:  logrus.WithField("component", portfolioServiceName),
	}
}

// GetPortfolio loads and summarizes the holdings of userID
func (s *PortfolioService) GetPortfolio(ctx context.Context, userID uuid.UUID) (models.PortfolioSummary, error) {
	startTime := time.Now()

	holdings, err := s.store.Holdings(ctx, userID)
	if err != nil {
		s.metrics.RecordRequest(false, time.Since(startTime))
		serviceErr := shared.WrapError(err, shared.ErrorCategoryProcessing, "PORTFOLIO_LOAD_FAILED", portfolioServiceName, "GetPortfolio", true)
		serviceErr.LogError()
		return models.PortfolioSummary{}, serviceErr
	}

	s.metrics.RecordRequest(true, time.Since(startTime))
	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"holdings": len(holdings),
	}).Debug("Loaded portfolio")

	return SummarizePortfolio(holdings), nil
}

// Metrics returns the service level metrics
func (s *PortfolioService) Metrics() *shared.ServiceMetrics {
	return s.metrics
}

// SummarizePortfolio computes value and allocation per holding plus the
// totals. Total change is 0 when nothing was paid; allocations are 0 when
// the portfolio is worth nothing. holdings is not modified.
func SummarizePortfolio(holdings []models.Holding) models.PortfolioSummary {
	summary := models.PortfolioSummary{Holdings: make([]models.Holding, len(holdings))}

	for i, h := range holdings {
		h.Value = h.Amount * h.CurrentPrice
		summary.TotalValue += h.Value
		summary.TotalCost += h.Amount * h.AvgPrice
		summary.Holdings[i] = h
	}

	if summary.TotalCost > 0 {
		summary.TotalChangePct = (summary.TotalValue - summary.TotalCost) / summary.TotalCost * 100
	}
	if summary.TotalValue > 0 {
		for i := range summary.Holdings {
			summary.Holdings[i].Allocation = summary.Holdings[i].Value / summary.TotalValue * 100
		}
	}

	return summary
}
