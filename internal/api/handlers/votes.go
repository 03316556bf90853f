package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ttms-project/backend/internal/services"
)

type VoteHandler struct {
	Service *services.VoteService
}

func NewVoteHandler(service *services.VoteService) *VoteHandler {
	return &VoteHandler{Service: service}
}

type castVoteRequest struct {
	TokenAddress  string `json:"token_address"`
	WalletAddress string `json:"wallet_address"`
}

// CastVote appends one vote
// POST /api/v1/votes
func (h *VoteHandler) CastVote(c *fiber.Ctx) error {
	var req castVoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	vote, err := h.Service.Cast(c.Context(), req.TokenAddress, req.WalletAddress, time.Now().UTC())
	if err != nil {
		return respondError(c, err, "Failed to cast vote")
	}
	return c.Status(fiber.StatusCreated).JSON(vote)
}
