package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/ksrcrypto/crypto-backend/services"
)

// PortfolioReader loads a user's priced portfolio
type PortfolioReader interface {
	GetPortfolio(ctx context.Context, userID uuid.UUID) (models.PortfolioSummary, error)
}

type PortfolioHandler struct {
	Portfolio PortfolioReader
}

func NewPortfolioHandler(portfolio PortfolioReader) *PortfolioHandler {
	return &PortfolioHandler{Portfolio: portfolio}
}

// GetPortfolio must run behind RequireSession
func (h *PortfolioHandler) GetPortfolio(c *fiber.Ctx) error {
	user, ok := sessionUser(c)
	if !ok {
		return unauthorized(c)
	}

	summary, err := h.Portfolio.GetPortfolio(c.Context(), user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	change := summary.TotalChangePct
	return c.JSON(fiber.Map{
		"success": true,
		"data":    summary,
		"display": fiber.Map{
			"total_value":  services.FormatPrice(summary.TotalValue),
			"total_cost":   services.FormatPrice(summary.TotalCost),
			"total_change": services.FormatPercentage(&change),
		},
	})
}
