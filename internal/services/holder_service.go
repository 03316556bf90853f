/**
 * @description
 * Hourly holder sampling and the holder partial scores.
 *
 * @dependencies
 * - github.com/alitto/pond/v2 (chunked fan-out)
 * - backend/internal/codex
 * - backend/internal/scoring
 *
 * @notes
 * Each chunk writes only its own result slot, so the fan-out needs no locking.
 * Samples are written in one batch after every chunk has returned.
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/ttms-project/backend/internal/codex"
	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/scoring"
	"github.com/ttms-project/backend/internal/store"
)

// HolderRetention is how long hourly holder samples are kept.
const HolderRetention = 25 * time.Hour

// HolderStore is the persistence HolderService needs.
type HolderStore interface {
	store.TokenStore
	store.HolderStore
}

type HolderService struct {
	Store     HolderStore
	Source    SignalSource
	NetworkID int
	ChunkSize int
	Pool      pond.Pool
}

func NewHolderService(st HolderStore, src SignalSource, cfg *config.Config) *HolderService {
	workers := cfg.Scoring.HolderWorkers
	if workers <= 0 {
		workers = 4
	}
	return &HolderService{
		Store:     st,
		Source:    src,
		NetworkID: cfg.Codex.NetworkID,
		ChunkSize: cfg.Scoring.HolderChunkSize,
		Pool:      pond.NewPool(workers),
	}
}

// Run samples holder counts for every token, stores the current hour bucket and
// replaces the holder score table.
func (s *HolderService) Run(ctx context.Context, now time.Time) (int, error) {
	tokens, err := s.Store.ListTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load tokens: %w", err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	samples, err := s.collect(ctx, tokens, models.HourBucket(now))
	if err != nil {
		return 0, err
	}

	inserted, err := s.Store.InsertHolderSamples(ctx, samples)
	if err != nil {
		return 0, fmt.Errorf("failed to insert holder samples: %w", err)
	}
	if err := s.Store.PruneHolderSamples(ctx, models.HourBucket(now.Add(-HolderRetention))); err != nil {
		return 0, fmt.Errorf("failed to prune holder samples: %w", err)
	}

	scores, err := s.Score(ctx, now)
	if err != nil {
		return 0, err
	}
	if err := s.Store.ReplaceHolderScores(ctx, scores); err != nil {
		return 0, fmt.Errorf("failed to replace holder scores: %w", err)
	}

	logger.Info("HolderService: Sampled %d tokens (%d new samples), scored %d", len(samples), inserted, len(scores))
	return len(scores), nil
}

func (s *HolderService) collect(ctx context.Context, tokens []models.Token, hour time.Time) ([]models.HolderSample, error) {
	addrs := make([]string, 0, len(tokens))
	for _, t := range tokens {
		addrs = append(addrs, t.Address)
	}
	groups := chunk(addrs, s.ChunkSize)
	results := make([][]codex.TokenResult, len(groups))

	pool := s.Pool
	if pool == nil {
		pool = pond.NewPool(1)
		defer pool.StopAndWait()
	}
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for i, addrGroup := range groups {
		group.SubmitErr(func() error {
			page, err := s.Source.FilterTokens(groupCtx, codex.FilterParams{
				NetworkID: s.NetworkID,
				Tokens:    addrGroup,
				Limit:     len(addrGroup),
			})
			if err != nil {
				return err
			}
			results[i] = page
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if errors.Is(err, pond.ErrGroupStopped) && ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("failed to fetch holders: %w", err)
	}

	var samples []models.HolderSample
	for _, page := range results {
		for _, r := range page {
			addr := models.NormalizeAddress(r.Token.Address)
			if addr == "" || !r.Holders.Valid {
				continue
			}
			samples = append(samples, models.HolderSample{
				TokenAddress: addr,
				Hour:         hour,
				HoldersCount: r.Holders.Int(),
			})
		}
	}
	return samples, nil
}

// Score compares the current hour bucket with the buckets 1h and 24h earlier.
func (s *HolderService) Score(ctx context.Context, now time.Time) ([]models.HolderScore, error) {
	hour := models.HourBucket(now)
	current, err := s.Store.HolderSamplesForHour(ctx, hour)
	if err != nil {
		return nil, fmt.Errorf("failed to load holder samples: %w", err)
	}
	hourAgo, err := s.Store.HolderSamplesForHour(ctx, hour.Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to load holder samples: %w", err)
	}
	dayAgo, err := s.Store.HolderSamplesForHour(ctx, hour.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to load holder samples: %w", err)
	}
	return scoring.ScoreHolders(current, hourAgo, dayAgo, now), nil
}
