package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/sirupsen/logrus"
)

const listingsServiceName = "ListingsService"

// CounterFallbackUsed counts calls answered from the fallback dataset
const CounterFallbackUsed = "fallback_used"

// ListingsProvider returns a ranked listing set. It never fails: when the
// live source is unavailable the fixed fallback dataset is returned.
type ListingsProvider interface {
	FetchListings(ctx context.Context, limit int) []models.MarketEntry
}

// ListingsService retrieves market listings from a CoinMarketCap-compatible API.
// Each call is a single independent attempt; nothing is cached between calls.
type ListingsService struct {
	config      shared.ServiceConfig
	client      *http.Client
	metrics     *shared.ServiceMetrics
	httpMetrics *shared.HTTPMetrics
	performance *shared.PerformanceMetrics
	pacer       *shared.RequestPacer
	logger      *logrus.Entry
}

// NewListingsService creates a listings service using a pooled client from factory
func NewListingsService(config shared.ServiceConfig, factory *shared.HTTPClientFactory) *ListingsService {
	return &ListingsService{
		config:      config,
		client:      factory.Client(config.HTTPRequestTimeout),
		metrics:     shared.NewServiceMetrics(listingsServiceName),
		httpMetrics: shared.NewHTTPMetrics(),
		performance: shared.NewPerformanceMetrics(),
		pacer:       shared.NewRequestPacer(config.MinRequestInterval),
		logger:      logrus.WithField("component", listingsServiceName),
	}
}

// FetchListings returns at most limit entries ranked by market cap in USD.
// A limit below 1 is treated as 1.
func (s *ListingsService) FetchListings(ctx context.Context, limit int) []models.MarketEntry {
	if limit < 1 {
		limit = 1
	}

	startTime := time.Now()
	defer func() { s.performance.RecordProcessingTime(time.Since(startTime)) }()

	entries, err := s.fetchLiveListings(ctx, limit)
	if err != nil {
		s.recordFallback(err, "FetchListings", startTime)
		return FallbackListings(limit)
	}

	s.metrics.RecordRequest(true, time.Since(startTime))
	s.logger.WithFields(logrus.Fields{
		"limit":   limit,
		"entries": len(entries),
	}).Debug("Fetched live listings")
	return entries
}

func (s *ListingsService) fetchLiveListings(ctx context.Context, limit int) ([]models.MarketEntry, error) {
	query := url.Values{}
	query.Set("start", "1")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("convert", "USD")

	request, err := s.newRequest(ctx, "/cryptocurrency/listings/latest", query, "FetchListings")
	if err != nil {
		return nil, err
	}

	var response models.ListingsResponse
	if err := shared.ExecuteJSONRequest(s.client, request, &response, listingsServiceName, "FetchListings", s.httpMetrics); err != nil {
		return nil, err
	}

	entries, err := response.ToMarketEntries()
	if err != nil {
		return nil, malformedResponse(err, "FetchListings")
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// FetchQuotes returns the latest quote per requested symbol. Symbols are
// matched case-insensitively; unknown symbols are omitted. On failure the
// matching fallback entries are returned.
func (s *ListingsService) FetchQuotes(ctx context.Context, symbols []string) map[string]models.MarketEntry {
	normalized := normalizeSymbols(symbols)
	if len(normalized) == 0 {
		return map[string]models.MarketEntry{}
	}

	startTime := time.Now()
	quotes, err := s.fetchLiveQuotes(ctx, normalized)
	if err != nil {
		s.recordFallback(err, "FetchQuotes", startTime)
		return FallbackQuotes(normalized)
	}

	s.metrics.RecordRequest(true, time.Since(startTime))
	return quotes
}

// FetchLiveQuotes is FetchQuotes without the fallback: failures are
// returned, so callers never mistake fallback prices for live ones.
func (s *ListingsService) FetchLiveQuotes(ctx context.Context, symbols []string) (map[string]models.MarketEntry, error) {
	normalized := normalizeSymbols(symbols)
	if len(normalized) == 0 {
		return map[string]models.MarketEntry{}, nil
	}

	startTime := time.Now()
	quotes, err := s.fetchLiveQuotes(ctx, normalized)
	s.metrics.RecordRequest(err == nil, time.Since(startTime))
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

func (s *ListingsService) fetchLiveQuotes(ctx context.Context, symbols []string) (map[string]models.MarketEntry, error) {
	query := url.Values{}
	query.Set("symbol", strings.Join(symbols, ","))
	query.Set("convert", "USD")

	request, err := s.newRequest(ctx, "/cryptocurrency/quotes/latest", query, "FetchQuotes")
	if err != nil {
		return nil, err
	}

	var response models.QuotesResponse
	if err := shared.ExecuteJSONRequest(s.client, request, &response, listingsServiceName, "FetchQuotes", s.httpMetrics); err != nil {
		return nil, err
	}

	if err := response.Validate(); err != nil {
		return nil, malformedResponse(err, "FetchQuotes")
	}

	quotes := make(map[string]models.MarketEntry, len(response.Data))
	for symbol, wire := range response.Data {
		entry, err := wire.ToMarketEntry()
		if err != nil {
			return nil, malformedResponse(err, "FetchQuotes")
		}
		quotes[strings.ToUpper(symbol)] = entry
	}
	return quotes, nil
}

// FetchGlobalMetrics returns market-wide totals. Unlike listings there is no
// fallback: failures are returned to the caller.
func (s *ListingsService) FetchGlobalMetrics(ctx context.Context) (models.GlobalMetrics, error) {
	startTime := time.Now()

	request, err := s.newRequest(ctx, "/global-metrics/quotes/latest", url.Values{"convert": {"USD"}}, "FetchGlobalMetrics")
	if err != nil {
		s.metrics.RecordRequest(false, time.Since(startTime))
		return models.GlobalMetrics{}, err
	}

	var response models.GlobalMetricsResponse
	if err := shared.ExecuteJSONRequest(s.client, request, &response, listingsServiceName, "FetchGlobalMetrics", s.httpMetrics); err != nil {
		s.metrics.RecordRequest(false, time.Since(startTime))
		shared.WrapError(err, shared.ErrorCategoryNetwork, "GLOBAL_METRICS_FAILED", listingsServiceName, "FetchGlobalMetrics", true).LogError()
		return models.GlobalMetrics{}, err
	}

	if err := response.Validate(); err != nil {
		s.metrics.RecordRequest(false, time.Since(startTime))
		return models.GlobalMetrics{}, malformedResponse(err, "FetchGlobalMetrics")
	}
	usd := response.Data.Quote["USD"]

	s.metrics.RecordRequest(true, time.Since(startTime))
	return models.GlobalMetrics{
		ActiveCryptocurrencies: response.Data.ActiveCryptocurrencies,
		ActiveExchanges:        response.Data.ActiveExchanges,
		BTCDominance:           response.Data.BTCDominance,
		ETHDominance:           response.Data.ETHDominance,
		TotalMarketCapUSD:      usd.TotalMarketCap,
		TotalVolume24hUSD:      usd.TotalVolume24h,
	}, nil
}

func (s *ListingsService) newRequest(ctx context.Context, path string, query url.Values, operation string) (*http.Request, error) {
	if s.config.APIKey == "" {
		return nil, shared.NewServiceError(shared.ErrorCategoryConfiguration, "MISSING_API_KEY", "no listings API key configured", listingsServiceName, operation, false, nil)
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryNetwork, "PACING_CANCELLED", "request cancelled while waiting for its slot", listingsServiceName, operation, true, err)
	}

	endpoint := strings.TrimRight(s.config.BaseURL, "/") + path + "?" + query.Encode()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryConfiguration, "INVALID_REQUEST", fmt.Sprintf("cannot build request for %s", path), listingsServiceName, operation, false, err)
	}
	shared.SetJSONAPIHeaders(request, s.config.APIKeyHeader, s.config.APIKey)
	return request, nil
}

func malformedResponse(err error, operation string) *shared.ServiceError {
	code := "MALFORMED_ENTRY"
	if errors.Is(err, models.ErrMalformedPayload) {
		code = "MALFORMED_PAYLOAD"
	}
	return shared.NewServiceError(shared.ErrorCategoryValidation, code, err.Error(), listingsServiceName, operation, false, err)
}

func (s *ListingsService) recordFallback(err error, operation string, startTime time.Time) {
	s.metrics.RecordRequest(false, time.Since(startTime))
	s.metrics.IncrementCounter(CounterFallbackUsed)
	shared.WrapError(err, shared.ErrorCategoryNetwork, "FETCH_FAILED", listingsServiceName, operation, shared.IsRetryableError(err)).
		LogRecovered("Live retrieval failed, serving fallback data")
}

// Metrics returns the service level metrics
func (s *ListingsService) Metrics() *shared.ServiceMetrics {
	return s.metrics
}

// Performance returns the FetchListings latency distribution
func (s *ListingsService) Performance() *shared.PerformanceMetrics {
	return s.performance
}

// HTTPMetrics returns the upstream HTTP metrics
func (s *ListingsService) HTTPMetrics() *shared.HTTPMetrics {
	return s.httpMetrics
}

func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	normalized := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		normalized = append(normalized, symbol)
	}
	return normalized
}
