package scheduler

import (
	"github.com/redis/go-redis/v9"

	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/notify"
	"github.com/ttms-project/backend/internal/services"
	"github.com/ttms-project/backend/internal/store"
)

// NewServices wires every pipeline stage against one store and signal source.
// rdb and notifier may be nil; the ranking cache and announcements are then skipped.
func NewServices(st store.Store, src services.SignalSource, rdb *redis.Client, notifier *notify.Notifier, cfg *config.Config) Services {
	votes := services.NewVoteService(st)
	volumes := services.NewVolumeService(st, src, cfg)
	rankings := services.NewRankingService(st, rdb)
	rankings.TTL = cfg.Redis.RankingTTL

	return Services{
		Tokens:    services.NewTokenService(st, src, cfg),
		Holders:   services.NewHolderService(st, src, cfg),
		Volumes:   volumes,
		Scores:    services.NewScoreService(st, votes, volumes, rankings),
		Votes:     votes,
		Hourly:    services.NewHourlyService(st),
		Snapshots: services.NewSnapshotService(st, notifier, cfg),
		Portfolio: services.NewPortfolioService(st),
	}
}

// Close releases the worker pool of the holder stage.
func (s Services) Close() {
	if s.Holders != nil && s.Holders.Pool != nil {
		s.Holders.Pool.StopAndWait()
	}
}
