package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ttms-project/backend/internal/scoring"
	"github.com/ttms-project/backend/internal/services"
)

type PortfolioHandler struct {
	Service *services.PortfolioService
}

func NewPortfolioHandler(service *services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{Service: service}
}

// GetPositions returns the live positions of a session
// GET /api/v1/portfolio/:tag
func (h *PortfolioHandler) GetPositions(c *fiber.Ctx) error {
	positions, err := h.Service.Positions(c.Context(), c.Params("tag"))
	if err != nil {
		return respondError(c, err, "Failed to fetch positions")
	}
	avg, closed, open := scoring.AverageResult(positions)
	return c.JSON(fiber.Map{
		"positions": positions,
		"average":   avg,
		"closed":    closed,
		"open":      open,
	})
}

// GetReturns returns the mean session result over a rolling window
// GET /api/v1/portfolio/returns?window=24h|7d|30d
func (h *PortfolioHandler) GetReturns(c *fiber.Ctx) error {
	ret, err := h.Service.Returns(c.Context(), c.Query("window", "24h"), time.Now().UTC())
	if err != nil {
		return respondError(c, err, "Failed to compute returns")
	}
	return c.JSON(ret)
}
