package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ttms-project/backend/internal/services"
	"github.com/ttms-project/backend/internal/store"
)

type SnapshotHandler struct {
	Service *services.SnapshotService
}

func NewSnapshotHandler(service *services.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{Service: service}
}

// TakeSnapshot freezes the current ranking under a checkpoint tag for this hour
// POST /api/v1/snapshots/:tag
func (h *SnapshotHandler) TakeSnapshot(c *fiber.Ctx) error {
	snap, err := h.Service.Take(c.Context(), c.Params("tag"), time.Now().UTC())
	if errors.Is(err, store.ErrDuplicateKey) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  "Snapshot already exists for this hour",
			"tag":    snap.Tag,
			"bucket": snap.Bucket,
		})
	}
	if err != nil {
		return respondError(c, err, "Failed to take snapshot")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":     snap.ID,
		"tag":    snap.Tag,
		"bucket": snap.Bucket,
	})
}
