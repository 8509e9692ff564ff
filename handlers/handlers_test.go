package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/ksrcrypto/crypto-backend/services"
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubSource struct {
	limits     []int
	metricsErr error
}

func (s *stubSource) FetchListings(ctx context.Context, limit int) []models.MarketEntry {
	s.limits = append(s.limits, limit)
	return services.FallbackListings(limit)
}

func (s *stubSource) FetchQuotes(ctx context.Context, symbols []string) map[string]models.MarketEntry {
	normalized := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		normalized = append(normalized, strings.ToUpper(strings.TrimSpace(symbol)))
	}
	return services.FallbackQuotes(normalized)
}

func (s *stubSource) FetchGlobalMetrics(ctx context.Context) (models.GlobalMetrics, error) {
	if s.metricsErr != nil {
		return models.GlobalMetrics{}, s.metricsErr
	}
	return models.GlobalMetrics{ActiveCryptocurrencies: 9000, BTCDominance: 51.2}, nil
}

type stubCharts struct {
	err error
}

func (s stubCharts) Load(ctx context.Context, timeframe services.Timeframe) (services.ChartSeries, error) {
	if s.err != nil {
		return services.ChartSeries{}, s.err
	}
	prices := make([]float64, timeframe.Days()+1)
	labels := make([]string, len(prices))
	for i := range prices {
		prices[i] = float64(1000 + i)
		labels[i] = "d"
	}
	return services.ChartSeries{Timeframe: timeframe, Labels: labels, Prices: prices, Summary: services.Summarize(prices)}, nil
}

type apiResponse struct {
	Success  bool                `json:"success"`
	Data     json.RawMessage     `json:"data"`
	Error    string              `json:"error"`
	Redirect string              `json:"redirect"`
	Count    int                 `json:"count"`
	View     *services.ViewState `json:"view"`
}

type testServer struct {
	app      *fiber.App
	source   *stubSource
	sessions *services.SessionCache
}

func newTestServer(t *testing.T, charts ChartLoader) *testServer {
	t.Helper()
	source := &stubSource{}
	sessions := services.NewSessionCache(time.Hour, 100)
	auth := services.NewMemoryAuthServiceWithCost(sessions, bcrypt.MinCost)
	portfolio := services.NewPortfolioService(services.MockPortfolioStore{})

	app := fiber.New()
	SetupRoutes(app, Handlers{
		Listings:    NewListingsHandler(source),
		Chart:       NewChartHandler(charts),
		Auth:        NewAuthHandler(auth),
		Portfolio:   NewPortfolioHandler(portfolio),
		Routes:      NewRoutesHandler(auth),
		Metrics:     NewMetricsHandler(shared.NewHTTPMetrics(), shared.NewPerformanceMetrics(), sessions, portfolio.Metrics()),
		AuthService: auth,
	})
	return &testServer{app: app, source: source, sessions: sessions}
}

func (s *testServer) do(t *testing.T, method, target, body, token string) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func decodeRows(t *testing.T, raw json.RawMessage) []ListingRow {
	t.Helper()
	var rows []ListingRow
	require.NoError(t, json.Unmarshal(raw, &rows))
	return rows
}

func TestGetListings(t *testing.T) {
	server := newTestServer(t, stubCharts{})

	status, body := server.do(t, http.MethodGet, "/api/v1/listings?q=usd&sort=name&order=asc", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Count)

	rows := decodeRows(t, body.Data)
	require.Len(t, rows, 2)
	assert.Equal(t, "Tether", rows[0].Name)
	assert.Equal(t, "$1.00", rows[0].Display.Price)
	assert.Equal(t, "$91.20B", rows[0].Display.MarketCap)
	assert.Equal(t, "-0.02%", rows[0].Display.Change7d)
	assert.Equal(t, "USD Coin", rows[1].Name)
	assert.Equal(t, []int{50}, server.source.limits)
}

func TestGetListingsDefaultOrder(t *testing.T) {
	server := newTestServer(t, stubCharts{})

	_, body := server.do(t, http.MethodGet, "/api/v1/listings?limit=10", "", "")
	rows := decodeRows(t, body.Data)
	require.Len(t, rows, 10)
	assert.Equal(t, "Bitcoin", rows[0].Name)
	assert.Equal(t, "$43,250.00", rows[0].Display.Price)
	assert.Equal(t, "Dogecoin", rows[9].Name)
}

func TestGetListingsToggle(t *testing.T) {
	server := newTestServer(t, stubCharts{})

	_, body := server.do(t, http.MethodGet, "/api/v1/listings?sort=price&order=desc&toggle=price", "", "")
	require.NotNil(t, body.View)
	assert.Equal(t, services.SortByPrice, body.View.SortKey)
	assert.Equal(t, services.SortAscending, body.View.SortDirection)
	rows := decodeRows(t, body.Data)
	assert.Equal(t, "Dogecoin", rows[0].Name)

	_, body = server.do(t, http.MethodGet, "/api/v1/listings?sort=price&order=asc&toggle=name", "", "")
	require.NotNil(t, body.View)
	assert.Equal(t, services.SortByName, body.View.SortKey)
	assert.Equal(t, services.SortDescending, body.View.SortDirection)

	status, _ := server.do(t, http.MethodGet, "/api/v1/listings?toggle=rank", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetListingsRejectsBadParameters(t *testing.T) {
	server := newTestServer(t, stubCharts{})

	for _, target := range []string{
		"/api/v1/listings?limit=0",
		"/api/v1/listings?limit=5001",
		"/api/v1/listings?limit=ten",
		"/api/v1/listings?sort=rank",
		"/api/v1/listings?order=sideways",
		"/api/v1/listings/selected?id=abc",
		"/api/v1/quotes",
	} {
		status, body := server.do(t, http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusBadRequest, status, target)
		assert.False(t, body.Success, target)
		assert.NotEmpty(t, body.Error, target)
	}
	assert.Empty(t, server.source.limits, "invalid requests never reach the data source")
}

func TestGetTopAndSelectedListings(t *testing.T) {
	server := newTestServer(t, stubCharts{})

	_, body := server.do(t, http.MethodGet, "/api/v1/listings/top", "", "")
	assert.Len(t, decodeRows(t, body.Data), 10)

	_, body = server.do(t, http.MethodGet, "/api/v1/listings/top?limit=3", "", "")
	rows := decodeRows(t, body.Data)
	assert.Equal(t, "Tether", rows[2].Name)

	_, body = server.do(t, http.MethodGet, "/api/v1/listings/selected?id=52", "", "")
	var row ListingRow
	require.NoError(t, json.Unmarshal(body.Data, &row))
	assert.Equal(t, "XRP", row.Symbol)
	assert.Equal(t, "$0.6200", row.Display.Price)

	_, body = server.do(t, http.MethodGet, "/api/v1/listings/selected", "", "")
	require.NoError(t, json.Unmarshal(body.Data, &row))
	assert.Equal(t, "BTC", row.Symbol)
}

func TestGetQuotesAndGlobalMetrics(t *testing.T) {
	server := newTestServer(t, stubCharts{})

	status, body := server.do(t, http.MethodGet, "/api/v1/quotes?symbols=btc,doge", "", "")
	require.Equal(t, http.StatusOK, status)
	var quotes map[string]ListingRow
	require.NoError(t, json.Unmarshal(body.Data, &quotes))
	assert.Len(t, quotes, 2)
	assert.Equal(t, "$0.0850", quotes["DOGE"].Display.Price)

	status, body = server.do(t, http.MethodGet, "/api/v1/global-metrics", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body.Data), `"btc_dominance":51.2`)

	server.source.metricsErr = errors.New("upstream down")
	status, body = server.do(t, http.MethodGet, "/api/v1/global-metrics", "", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "upstream down", body.Error)
}

func TestGetChart(t *testing.T) {
	server := newTestServer(t, stubCharts{})

	status, body := server.do(t, http.MethodGet, "/api/v1/chart?timeframe=30d", "", "")
	require.Equal(t, http.StatusOK, status)
	var series services.ChartSeries
	require.NoError(t, json.Unmarshal(body.Data, &series))
	assert.Equal(t, services.Timeframe30d, series.Timeframe)
	assert.Len(t, series.Prices, 31)
	assert.True(t, series.Summary.Positive)

	_, body = server.do(t, http.MethodGet, "/api/v1/chart?timeframe=decade", "", "")
	require.NoError(t, json.Unmarshal(body.Data, &series))
	assert.Equal(t, services.Timeframe7d, series.Timeframe)

	failing := newTestServer(t, stubCharts{err: context.Canceled})
	status, _ = failing.do(t, http.MethodGet, "/api/v1/chart", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestAuthFlowAndPortfolio(t *testing.T) {
	server := newTestServer(t, stubCharts{})

	status, body := server.do(t, http.MethodGet, "/api/v1/portfolio", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "/login", body.Redirect)

	status, body = server.do(t, http.MethodPost, "/api/v1/auth/register", `{"display_name":"Ada","email":"ada@example.com","password":"lovelace"}`, "")
	require.Equal(t, http.StatusCreated, status)
	var session services.Session
	require.NoError(t, json.Unmarshal(body.Data, &session))
	require.NotEmpty(t, session.Token)

	status, _ = server.do(t, http.MethodPost, "/api/v1/auth/register", `{"display_name":"Ada","email":"ada@example.com","password":"lovelace"}`, "")
	assert.Equal(t, http.StatusConflict, status)

	status, _ = server.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"ada@example.com","password":"wrong!"}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = server.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"ada@example.com","password":"lovelace"}`, "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &session))

	status, body = server.do(t, http.MethodGet, "/api/v1/auth/me", "", session.Token)
	require.Equal(t, http.StatusOK, status)
	var user models.User
	require.NoError(t, json.Unmarshal(body.Data, &user))
	assert.Equal(t, "Ada", user.DisplayName)

	status, body = server.do(t, http.MethodGet, "/api/v1/portfolio", "", session.Token)
	require.Equal(t, http.StatusOK, status)
	var summary models.PortfolioSummary
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	assert.Len(t, summary.Holdings, 4)
	assert.InDelta(t, 47817.5, summary.TotalValue, 1e-6)

	status, _ = server.do(t, http.MethodPost, "/api/v1/auth/logout", "", session.Token)
	assert.Equal(t, http.StatusOK, status)

	status, body = server.do(t, http.MethodGet, "/api/v1/portfolio", "", session.Token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "/login", body.Redirect)

	status, _ = server.do(t, http.MethodPost, "/api/v1/auth/logout", "", session.Token)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterValidationErrors(t *testing.T) {
	server := newTestServer(t, stubCharts{})

	status, _ := server.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"nope","password":"lovelace"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = server.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"a@b.c","password":"123"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = server.do(t, http.MethodPost, "/api/v1/auth/register", `not json`, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRoutesAndResolveView(t *testing.T) {
	server := newTestServer(t, stubCharts{})

	_, body := server.do(t, http.MethodGet, "/api/v1/routes", "", "")
	var routes []ViewRoute
	require.NoError(t, json.Unmarshal(body.Data, &routes))
	assert.Len(t, routes, 5)

	_, target, ok := ResolveView("/portfolio", false)
	assert.True(t, ok)
	assert.Equal(t, "/login", target)

	_, target, _ = ResolveView("/portfolio", true)
	assert.Equal(t, "/portfolio", target)

	_, target, _ = ResolveView("/prices", false)
	assert.Equal(t, "/prices", target)

	_, _, ok = ResolveView("/admin", true)
	assert.False(t, ok)
}

func TestRoutesResolvePathForSession(t *testing.T) {
	server := newTestServer(t, stubCharts{})

	resolve := func(path, token string) (int, ResolvedView) {
		status, body := server.do(t, http.MethodGet, "/api/v1/routes?path="+path, "", token)
		var view ResolvedView
		if body.Success {
			require.NoError(t, json.Unmarshal(body.Data, &view))
		}
		return status, view
	}

	status, view := resolve("/portfolio", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "portfolio", view.Route.View)
	assert.Equal(t, "/login", view.Target)

	_, view = resolve("/portfolio", "not-a-session")
	assert.Equal(t, "/login", view.Target)

	_, body := server.do(t, http.MethodPost, "/api/v1/auth/register", `{"display_name":"Grace","email":"grace@example.com","password":"hopper12"}`, "")
	var session services.Session
	require.NoError(t, json.Unmarshal(body.Data, &session))

	_, view = resolve("/portfolio", session.Token)
	assert.Equal(t, "/portfolio", view.Target)

	_, view = resolve("/prices", "")
	assert.Equal(t, "/prices", view.Target)

	status, _ = resolve("/admin", session.Token)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetricsAndHealth(t *testing.T) {
	server := newTestServer(t, stubCharts{})

	status, body := server.do(t, http.MethodGet, "/api/v1/metrics", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body.Data), `"sessions"`)
	assert.Contains(t, string(body.Data), `"capacity":100`)
	assert.Contains(t, string(body.Data), `"PortfolioService"`)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := server.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBearerTokenParsing(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(bearerToken(c))
	})

	for header, want := range map[string]string{
		"Bearer abc":  "abc",
		"bearer  xyz": "xyz",
		"Basic abc":   "",
		"Bearer":      "",
		"":            "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(fiber.HeaderAuthorization, header)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		got, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, want, string(got), header)
	}
}
