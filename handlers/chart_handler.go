package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/ksrcrypto/crypto-backend/services"
)

// ChartLoader produces a price series for a timeframe
type ChartLoader interface {
	Load(ctx context.Context, timeframe services.Timeframe) (services.ChartSeries, error)
}

type ChartHandler struct {
	Charts ChartLoader
}

func NewChartHandler(charts ChartLoader) *ChartHandler {
	return &ChartHandler{Charts: charts}
}

func (h *ChartHandler) GetChart(c *fiber.Ctx) error {
	timeframe := services.ParseTimeframe(c.Query("timeframe"))
	series, err := h.Charts.Load(c.Context(), timeframe)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    series,
	})
}
