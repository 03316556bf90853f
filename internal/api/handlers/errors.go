package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/services"
	"github.com/ttms-project/backend/internal/store"
)

// respondError maps service errors onto HTTP statuses. Unexpected errors are
// logged and hidden behind fallback.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	status := fiber.StatusInternalServerError
	msg := fallback
	switch {
	case errors.Is(err, store.ErrNotFound):
		status, msg = fiber.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrDuplicateKey):
		status, msg = fiber.StatusConflict, err.Error()
	case errors.Is(err, services.ErrUnknownTag),
		errors.Is(err, services.ErrUnknownWindow),
		errors.Is(err, store.ErrInvalidInput):
		status, msg = fiber.StatusBadRequest, err.Error()
	default:
		logger.Error("API: %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
