/**
 * @description
 * Ranking API Handlers.
 * Serves the live ranking, checkpoint snapshots, score history and the live
 * update stream.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ttms-project/backend/internal/services"
)

// streamKeepAlive is how often an idle stream sends a comment line.
const streamKeepAlive = 15 * time.Second

type RankingHandler struct {
	Service *services.RankingService
	Hub     *services.RankingStreamHub
}

func NewRankingHandler(service *services.RankingService, hub *services.RankingStreamHub) *RankingHandler {
	return &RankingHandler{Service: service, Hub: hub}
}

// GetRankings returns the current ranking, or the latest snapshot of a checkpoint
// GET /api/v1/rankings?network=&limit=&time=
func (h *RankingHandler) GetRankings(c *fiber.Ctx) error {
	q := services.RankingQuery{
		NetworkID: c.QueryInt("network", 0),
		Limit:     c.QueryInt("limit", 0),
		Tag:       c.Query("time"),
	}
	ranked, err := h.Service.Current(c.Context(), q)
	if err != nil {
		return respondError(c, err, "Failed to fetch rankings")
	}
	return c.JSON(fiber.Map{
		"rankings": ranked,
		"count":    len(ranked),
	})
}

// GetSnapshot returns the latest snapshot of a checkpoint tag
// GET /api/v1/snapshots/:tag
func (h *RankingHandler) GetSnapshot(c *fiber.Ctx) error {
	snap, err := h.Service.Snapshot(c.Context(), c.Params("tag"))
	if err != nil {
		return respondError(c, err, "Failed to fetch snapshot")
	}
	entries, err := snap.Entries()
	if err != nil {
		return respondError(c, err, "Failed to decode snapshot")
	}
	return c.JSON(fiber.Map{
		"tag":      snap.Tag,
		"bucket":   snap.Bucket,
		"rankings": entries,
	})
}

// GetDaily returns the rolling daily averages
// GET /api/v1/scores/daily?limit=
func (h *RankingHandler) GetDaily(c *fiber.Ctx) error {
	rows, err := h.Service.Daily(c.Context(), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err, "Failed to fetch daily scores")
	}
	return c.JSON(rows)
}

// GetHourly returns the hour slots of one token
// GET /api/v1/scores/hourly/:address
func (h *RankingHandler) GetHourly(c *fiber.Ctx) error {
	address := c.Params("address")
	if address == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Token address is required",
		})
	}
	row, err := h.Service.Hourly(c.Context(), address)
	if err != nil {
		return respondError(c, err, "Failed to fetch hourly scores")
	}
	return c.JSON(row)
}

// StreamRankings streams ranking updates over SSE
// GET /api/v1/rankings/stream
func (h *RankingHandler) StreamRankings(c *fiber.Ctx) error {
	if h.Hub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Ranking stream is not available",
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	updates, unsubscribe := h.Hub.Subscribe()
	requestDone := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		// headers only reach the client on the first flush
		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(streamKeepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-requestDone:
				return
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			case msg, ok := <-updates:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", msg)
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})

	return nil
}
