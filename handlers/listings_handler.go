package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/ksrcrypto/crypto-backend/services"
)

const (
	defaultListingsLimit = 50
	defaultTopLimit      = 10
	maxListingsLimit     = 5000
)

var errInvalidLimit = errors.New("limit must be an integer between 1 and 5000")

// MarketDataSource is the market data the listings endpoints serve
type MarketDataSource interface {
	services.ListingsProvider
	FetchQuotes(ctx context.Context, symbols []string) map[string]models.MarketEntry
	FetchGlobalMetrics(ctx context.Context) (models.GlobalMetrics, error)
}

type ListingsHandler struct {
	Source MarketDataSource
}

func NewListingsHandler(source MarketDataSource) *ListingsHandler {
	return &ListingsHandler{Source: source}
}

// DisplayFields are the table cells as the price page renders them
type DisplayFields struct {
	Price     string `json:"price"`
	Change24h string `json:"change_24h"`
	Change7d  string `json:"change_7d"`
	MarketCap string `json:"market_cap"`
	Volume    string `json:"volume"`
}

// ListingRow is a market entry with its rendered cells
type ListingRow struct {
	models.MarketEntry
	Display DisplayFields `json:"display"`
}

func newListingRow(entry models.MarketEntry) ListingRow {
	change24h := entry.Quote.PercentChange24h
	volume := "N/A"
	if entry.Quote.Volume24hUSD != nil {
		volume = services.FormatVolume(*entry.Quote.Volume24hUSD)
	}
	return ListingRow{
		MarketEntry: entry,
		Display: DisplayFields{
			Price:     services.FormatPrice(entry.Quote.Price),
			Change24h: services.FormatPercentage(&change24h),
			Change7d:  services.FormatPercentage(entry.Quote.PercentChange7d),
			MarketCap: services.FormatMarketCap(entry.Quote.MarketCapUSD),
			Volume:    volume,
		},
	}
}

func newListingRows(entries []models.MarketEntry) []ListingRow {
	rows := make([]ListingRow, len(entries))
	for i, entry := range entries {
		rows[i] = newListingRow(entry)
	}
	return rows
}

func parseLimit(c *fiber.Ctx, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxListingsLimit {
		return 0, errInvalidLimit
	}
	return limit, nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

// GetListings serves the price page: the listing set filtered by q and
// ordered by sort/order
func (h *ListingsHandler) GetListings(c *fiber.Ctx) error {
	limit, err := parseLimit(c, defaultListingsLimit)
	if err != nil {
		return badRequest(c, err)
	}
	sortKey, err := services.ParseSortKey(c.Query("sort"))
	if err != nil {
		return badRequest(c, err)
	}
	direction, err := services.ParseSortDirection(c.Query("order"))
	if err != nil {
		return badRequest(c, err)
	}

	view := services.DefaultViewState()
	view.Query = c.Query("q")
	view.SortKey, view.SortDirection = sortKey, direction

	// toggle is a column header click applied on top of sort/order
	if raw := c.Query("toggle"); raw != "" {
		key, err := services.ParseSortKey(raw)
		if err != nil {
			return badRequest(c, err)
		}
		view = services.ToggleSort(view, key)
	}

	entries := view.Apply(h.Source.FetchListings(c.Context(), limit))

	return c.JSON(fiber.Map{
		"success": true,
		"data":    newListingRows(entries),
		"count":   len(entries),
		"view":    view,
	})
}

// GetTopListings serves the home page: the top entries in upstream order
func (h *ListingsHandler) GetTopListings(c *fiber.Ctx) error {
	limit, err := parseLimit(c, defaultTopLimit)
	if err != nil {
		return badRequest(c, err)
	}
	entries := h.Source.FetchListings(c.Context(), limit)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    newListingRows(entries),
		"count":   len(entries),
	})
}

// GetSelectedListing returns the entry the price page charts: the one with
// id, else the first of the set
func (h *ListingsHandler) GetSelectedListing(c *fiber.Ctx) error {
	limit, err := parseLimit(c, defaultListingsLimit)
	if err != nil {
		return badRequest(c, err)
	}
	id := 0
	if raw := strings.TrimSpace(c.Query("id")); raw != "" {
		id, err = strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, errors.New("id must be an integer"))
		}
	}

	entry, ok := services.SelectEntry(h.Source.FetchListings(c.Context(), limit), id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "no listings available",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    newListingRow(entry),
	})
}

func (h *ListingsHandler) GetQuotes(c *fiber.Ctx) error {
	raw := c.Query("symbols")
	if strings.TrimSpace(raw) == "" {
		return badRequest(c, errors.New("symbols is required"))
	}
	quotes := h.Source.FetchQuotes(c.Context(), strings.Split(raw, ","))

	rows := make(map[string]ListingRow, len(quotes))
	for symbol, entry := range quotes {
		rows[symbol] = newListingRow(entry)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    rows,
	})
}

func (h *ListingsHandler) GetGlobalMetrics(c *fiber.Ctx) error {
	metrics, err := h.Source.FetchGlobalMetrics(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    metrics,
	})
}
