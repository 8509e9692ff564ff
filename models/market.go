package models

import (
	"errors"
	"fmt"
)

// MarketEntry is one cryptocurrency's market snapshot at fetch time
type MarketEntry struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Quote  Quote  `json:"quote"`
}

// Quote holds the USD-converted figures of a MarketEntry.
// PercentChange7d and Volume24hUSD are optional upstream.
type Quote struct {
	Price            float64  `json:"price"`
	PercentChange24h float64  `json:"percent_change_24h"`
	PercentChange7d  *float64 `json:"percent_change_7d"`
	MarketCapUSD     float64  `json:"market_cap"`
	Volume24hUSD     *float64 `json:"volume_24h"`
}

// Change7dOrZero returns the 7 day change, treating an absent value as 0
func (q Quote) Change7dOrZero() float64 {
	if q.PercentChange7d == nil {
		return 0
	}
	return *q.PercentChange7d
}

// VolumeOrZero returns the 24h volume, treating an absent value as 0
func (q Quote) VolumeOrZero() float64 {
	if q.Volume24hUSD == nil {
		return 0
	}
	return *q.Volume24hUSD
}

// Float returns a pointer to v. Used for the optional quote fields.
func Float(v float64) *float64 {
	return &v
}

var (
	// ErrMalformedEntry is returned when an upstream entry cannot be mapped to a MarketEntry
	ErrMalformedEntry = errors.New("malformed market entry")
	// ErrMalformedPayload is returned when a 2xx body carries no usable data
	ErrMalformedPayload = errors.New("malformed upstream payload")
)

// ListingsResponse is the wire shape of the listings/latest endpoint
type ListingsResponse struct {
	Data   []WireEntry    `json:"data"`
	Status ResponseStatus `json:"status"`
}

// QuotesResponse is the wire shape of the quotes/latest endpoint, keyed by symbol
type QuotesResponse struct {
	Data   map[string]WireEntry `json:"data"`
	Status ResponseStatus       `json:"status"`
}

// ResponseStatus is the status block every upstream payload carries
type ResponseStatus struct {
	Timestamp    string `json:"timestamp"`
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	Elapsed      int    `json:"elapsed"`
	CreditCount  int    `json:"credit_count"`
}

// Err reports an error code carried in an otherwise successful response
func (s ResponseStatus) Err() error {
	if s.ErrorCode == 0 {
		return nil
	}
	return fmt.Errorf("%w: upstream error %d: %s", ErrMalformedPayload, s.ErrorCode, s.ErrorMessage)
}

// Validate rejects a quotes body with an error status or without data
func (r QuotesResponse) Validate() error {
	if err := r.Status.Err(); err != nil {
		return err
	}
	if r.Data == nil {
		return fmt.Errorf("%w: quotes response has no data", ErrMalformedPayload)
	}
	return nil
}

// WireEntry is a single upstream entry with quotes keyed by convert currency
type WireEntry struct {
	ID     int                  `json:"id"`
	Name   string               `json:"name"`
	Symbol string               `json:"symbol"`
	Quote  map[string]WireQuote `json:"quote"`
}

type WireQuote struct {
	Price            *float64 `json:"price"`
	PercentChange24h *float64 `json:"percent_change_24h"`
	PercentChange7d  *float64 `json:"percent_change_7d"`
	MarketCap        *float64 `json:"market_cap"`
	Volume24h        *float64 `json:"volume_24h"`
}

// ToMarketEntry flattens the USD quote of a wire entry
func (w WireEntry) ToMarketEntry() (MarketEntry, error) {
	if w.Name == "" || w.Symbol == "" {
		return MarketEntry{}, fmt.Errorf("%w: entry %d has no name or symbol", ErrMalformedEntry, w.ID)
	}
	usd, ok := w.Quote["USD"]
	if !ok {
		return MarketEntry{}, fmt.Errorf("%w: entry %s has no USD quote", ErrMalformedEntry, w.Symbol)
	}
	if usd.Price == nil || *usd.Price <= 0 {
		return MarketEntry{}, fmt.Errorf("%w: entry %s has no positive price", ErrMalformedEntry, w.Symbol)
	}

	entry := MarketEntry{
		ID:     w.ID,
		Name:   w.Name,
		Symbol: w.Symbol,
		Quote: Quote{
			Price:           *usd.Price,
			PercentChange7d: usd.PercentChange7d,
			Volume24hUSD:    usd.Volume24h,
		},
	}
	if usd.PercentChange24h != nil {
		entry.Quote.PercentChange24h = *usd.PercentChange24h
	}
	if usd.MarketCap != nil {
		entry.Quote.MarketCapUSD = *usd.MarketCap
	}
	return entry, nil
}

// ToMarketEntries maps every wire entry. It fails on an error status, on a
// missing or empty data array, on the first malformed entry and on
// duplicate ids.
func (r ListingsResponse) ToMarketEntries() ([]MarketEntry, error) {
	if err := r.Status.Err(); err != nil {
		return nil, err
	}
	if len(r.Data) == 0 {
		return nil, fmt.Errorf("%w: listings response has no entries", ErrMalformedPayload)
	}
	entries := make([]MarketEntry, 0, len(r.Data))
	seen := make(map[int]struct{}, len(r.Data))
	for _, w := range r.Data {
		entry, err := w.ToMarketEntry()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %d", ErrMalformedEntry, entry.ID)
		}
		seen[entry.ID] = struct{}{}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GlobalMetrics is the subset of global-metrics/quotes/latest the dashboard shows
type GlobalMetrics struct {
	ActiveCryptocurrencies int     `json:"active_cryptocurrencies"`
	ActiveExchanges        int     `json:"active_exchanges"`
	BTCDominance           float64 `json:"btc_dominance"`
	ETHDominance           float64 `json:"eth_dominance"`
	TotalMarketCapUSD      float64 `json:"total_market_cap"`
	TotalVolume24hUSD      float64 `json:"total_volume_24h"`
}

// GlobalMetricsResponse is the wire shape of the global metrics endpoint
type GlobalMetricsResponse struct {
	Data struct {
		ActiveCryptocurrencies int     `json:"active_cryptocurrencies"`
		ActiveExchanges        int     `json:"active_exchanges"`
		BTCDominance           float64 `json:"btc_dominance"`
		ETHDominance           float64 `json:"eth_dominance"`
		Quote                  map[string]struct {
			TotalMarketCap float64 `json:"total_market_cap"`
			TotalVolume24h float64 `json:"total_volume_24h"`
		} `json:"quote"`
	} `json:"data"`
	Status ResponseStatus `json:"status"`
}

// Validate rejects a global metrics body with an error status or without a USD quote
func (r GlobalMetricsResponse) Validate() error {
	if err := r.Status.Err(); err != nil {
		return err
	}
	if _, ok := r.Data.Quote["USD"]; !ok {
		return fmt.Errorf("%w: global metrics payload has no USD quote", ErrMalformedPayload)
	}
	return nil
}
