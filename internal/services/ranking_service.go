/**
 * @description
 * Read side of the pipeline.
 * Serves the current ranking from the Redis cache with a store fallback, plus
 * snapshots and score history. Publish refreshes the cache after each solve.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9
 * - backend/internal/store
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/scoring"
	"github.com/ttms-project/backend/internal/store"
)

const (
	CacheKeyRankings = "rankings:current"
	CacheTTL         = 5 * time.Minute

	RankingUpdateChannel = "rankings:updates"

	// updateTopSize is how many addresses a ranking update message carries.
	updateTopSize = 10
)

// ErrUnknownTag is returned for a snapshot tag outside the four checkpoints.
var ErrUnknownTag = errors.New("unknown snapshot tag")

// RankingQuery filters the current ranking.
type RankingQuery struct {
	NetworkID int    // 0 = any
	Limit     int    // <= 0 = all
	Tag       string // checkpoint tag; empty = live ranking
}

// RankingUpdate is the message published on RankingUpdateChannel.
type RankingUpdate struct {
	UpdatedAt time.Time `json:"updated_at"`
	Count     int       `json:"count"`
	Top       []string  `json:"top"`
}

type RankingService struct {
	Store store.Store
	Redis *redis.Client
	TTL   time.Duration // cache lifetime; CacheTTL when zero
}

func NewRankingService(st store.Store, rdb *redis.Client) *RankingService {
	return &RankingService{Store: st, Redis: rdb, TTL: CacheTTL}
}

// Publish caches the ranking and announces the update on RankingUpdateChannel.
func (s *RankingService) Publish(ctx context.Context, ranked []models.RankedToken, now time.Time) error {
	if s.Redis == nil {
		return nil
	}
	data, err := json.Marshal(ranked)
	if err != nil {
		return fmt.Errorf("failed to marshal ranking: %w", err)
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = CacheTTL
	}
	if err := s.Redis.Set(ctx, CacheKeyRankings, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache ranking: %w", err)
	}

	update := RankingUpdate{UpdatedAt: now, Count: len(ranked)}
	for i := 0; i < len(ranked) && i < updateTopSize; i++ {
		update.Top = append(update.Top, ranked[i].Token.Address)
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, RankingUpdateChannel, payload).Err()
}

// Current returns the live ranking, or the latest snapshot of q.Tag.
func (s *RankingService) Current(ctx context.Context, q RankingQuery) ([]models.RankedToken, error) {
	var ranked []models.RankedToken
	if q.Tag != "" {
		snap, err := s.Snapshot(ctx, q.Tag)
		if err != nil {
			return nil, err
		}
		if ranked, err = snap.Entries(); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
	} else {
		var err error
		if ranked, err = s.live(ctx); err != nil {
			return nil, err
		}
	}
	return filterRanking(ranked, q), nil
}

func (s *RankingService) live(ctx context.Context) ([]models.RankedToken, error) {
	// 1. Try Redis
	if s.Redis != nil {
		val, err := s.Redis.Get(ctx, CacheKeyRankings).Result()
		if err == nil {
			var ranked []models.RankedToken
			if err := json.Unmarshal([]byte(val), &ranked); err == nil {
				return ranked, nil
			}
			// If unmarshal fails, fall through to the store
		} else if !errors.Is(err, redis.Nil) {
			logger.Warn("RankingService: Cache read failed: %v", err)
		}
	}

	// 2. Fallback to the store
	scores, err := s.Store.ListScores(ctx)
	if err != nil {
		return nil, err
	}
	tokens, err := s.Store.ListTokens(ctx)
	if err != nil {
		return nil, err
	}
	return scoring.Rank(scores, tokens, 0), nil
}

func filterRanking(ranked []models.RankedToken, q RankingQuery) []models.RankedToken {
	out := make([]models.RankedToken, 0, len(ranked))
	for _, r := range ranked {
		if q.NetworkID != 0 && r.Token.NetworkID != q.NetworkID {
			continue
		}
		out = append(out, r)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}

// Snapshot returns the latest snapshot of a checkpoint tag.
func (s *RankingService) Snapshot(ctx context.Context, tag string) (*models.Snapshot, error) {
	if !models.IsCheckpointTag(tag) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return s.Store.LatestSnapshot(ctx, tag)
}

// Daily returns the daily history ordered by today's average, rows without one last.
func (s *RankingService) Daily(ctx context.Context, limit int) ([]models.DailyScore, error) {
	rows, err := s.Store.ListDaily(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].AverageScoreToday, rows[j].AverageScoreToday
		switch {
		case a == nil && b == nil:
			return rows[i].TokenAddress < rows[j].TokenAddress
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		}
		return rows[i].TokenAddress < rows[j].TokenAddress
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Hourly returns the hour slots of one token.
func (s *RankingService) Hourly(ctx context.Context, tokenAddress string) (*models.ScoreByHour, error) {
	return s.Store.HourlyByToken(ctx, models.NormalizeAddress(tokenAddress))
}
