package services

import "github.com/ksrcrypto/crypto-backend/models"

// FallbackListingsSize is the number of entries in the fixed fallback dataset
const FallbackListingsSize = 10

// fallbackDataset builds a fresh copy of the fixed snapshot served whenever
// live retrieval fails. Order is by market cap at snapshot time.
func fallbackDataset() []models.MarketEntry {
	return []models.MarketEntry{
		fallbackEntry(1, "Bitcoin", "BTC", 43250.00, 2.5, 8.2, 847500000000, 15200000000),
		fallbackEntry(1027, "Ethereum", "ETH", 2650.00, 3.8, 12.1, 318600000000, 8500000000),
		fallbackEntry(825, "Tether", "USDT", 1.00, 0.01, -0.02, 91200000000, 24800000000),
		fallbackEntry(1839, "BNB", "BNB", 315.50, 1.8, 5.4, 47300000000, 890000000),
		fallbackEntry(5426, "Solana", "SOL", 98.50, 7.1, 15.8, 43200000000, 1200000000),
		fallbackEntry(52, "XRP", "XRP", 0.62, -1.2, 3.8, 33800000000, 1100000000),
		fallbackEntry(3408, "USD Coin", "USDC", 1.00, 0.00, 0.01, 25100000000, 3200000000),
		fallbackEntry(2010, "Cardano", "ADA", 0.45, -1.2, 2.1, 15800000000, 320000000),
		fallbackEntry(74, "Dogecoin", "DOGE", 0.085, 4.2, 8.9, 12100000000, 580000000),
		fallbackEntry(5805, "Avalanche", "AVAX", 38.50, 2.8, 11.2, 14200000000, 420000000),
	}
}

func fallbackEntry(id int, name, symbol string, price, change24h, change7d, marketCap, volume float64) models.MarketEntry {
	return models.MarketEntry{
		ID:     id,
		Name:   name,
		Symbol: symbol,
		Quote: models.Quote{
			Price:            price,
			PercentChange24h: change24h,
			PercentChange7d:  models.Float(change7d),
			MarketCapUSD:     marketCap,
			Volume24hUSD:     models.Float(volume),
		},
	}
}

// FallbackListings returns the first min(limit, 10) fallback entries in fixed order
func FallbackListings(limit int) []models.MarketEntry {
	data := fallbackDataset()
	if limit < 0 {
		limit = 0
	}
	if limit > len(data) {
		limit = len(data)
	}
	return data[:limit:limit]
}

// FallbackQuotes returns the fallback entries whose symbol is requested, keyed by symbol
func FallbackQuotes(symbols []string) map[string]models.MarketEntry {
	wanted := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		wanted[symbol] = struct{}{}
	}

	quotes := make(map[string]models.MarketEntry)
	for _, entry := range fallbackDataset() {
		if _, ok := wanted[entry.Symbol]; ok {
			quotes[entry.Symbol] = entry
		}
	}
	return quotes
}
