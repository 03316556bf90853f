/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/services
 * - backend/internal/metrics
 */

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/ttms-project/backend/internal/api/handlers"
	"github.com/ttms-project/backend/internal/metrics"
	"github.com/ttms-project/backend/internal/services"
)

// Services are the read-side services behind the API. Hub may be nil.
type Services struct {
	Rankings  *services.RankingService
	Snapshots *services.SnapshotService
	Portfolio *services.PortfolioService
	Votes     *services.VoteService
	Hub       *services.RankingStreamHub
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, svcs Services) {
	rankingHandler := handlers.NewRankingHandler(svcs.Rankings, svcs.Hub)
	snapshotHandler := handlers.NewSnapshotHandler(svcs.Snapshots)
	portfolioHandler := handlers.NewPortfolioHandler(svcs.Portfolio)
	voteHandler := handlers.NewVoteHandler(svcs.Votes)

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1.Get("/rankings", rankingHandler.GetRankings)
	v1.Get("/rankings/stream", rankingHandler.StreamRankings)

	snapshots := v1.Group("/snapshots")
	snapshots.Get("/:tag", rankingHandler.GetSnapshot)
	snapshots.Post("/:tag", snapshotHandler.TakeSnapshot)

	scores := v1.Group("/scores")
	scores.Get("/daily", rankingHandler.GetDaily)
	scores.Get("/hourly/:address", rankingHandler.GetHourly)

	portfolio := v1.Group("/portfolio")
	portfolio.Get("/returns", portfolioHandler.GetReturns)
	portfolio.Get("/:tag", portfolioHandler.GetPositions)

	v1.Post("/votes", voteHandler.CastVote)
}
