/**
 * @description
 * Score solve.
 * Joins every partial set by token address, replaces the score table and publishes
 * the new ranking.
 *
 * @dependencies
 * - backend/internal/scoring
 * - backend/internal/store
 * - backend/internal/metrics
 */

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/metrics"
	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/scoring"
	"github.com/ttms-project/backend/internal/store"
)

type ScoreService struct {
	Store    store.Store
	Votes    *VoteService
	Volumes  *VolumeService
	Rankings *RankingService
}

func NewScoreService(st store.Store, votes *VoteService, volumes *VolumeService, rankings *RankingService) *ScoreService {
	return &ScoreService{Store: st, Votes: votes, Volumes: volumes, Rankings: rankings}
}

// Solve computes and persists the current scores.
func (s *ScoreService) Solve(ctx context.Context, now time.Time) ([]models.Score, error) {
	tokens, err := s.Store.ListTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	votes, err := s.Votes.Partials(ctx, now)
	if err != nil {
		return nil, err
	}
	volumes, err := s.Volumes.Partials(ctx, now, tokens)
	if err != nil {
		return nil, err
	}
	holders, err := s.Store.ListHolderScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load holder scores: %w", err)
	}

	scores := scoring.Merge(scoring.MergeInput{
		Votes:   votes,
		Changes: scoring.PriceChanges(tokens),
		Volumes: volumes,
		Holders: scoring.HolderIndex(holders),
		Tokens:  tokens,
		Now:     now,
	})

	if err := s.Store.ReplaceScores(ctx, scores); err != nil {
		return nil, fmt.Errorf("failed to replace scores: %w", err)
	}
	metrics.ScoredTokens.Set(float64(len(scores)))
	logger.Info("ScoreService: Scored %d of %d tokens", len(scores), len(tokens))

	if s.Rankings != nil {
		if err := s.Rankings.Publish(ctx, scoring.Rank(scores, tokens, 0), now); err != nil {
			logger.Error("ScoreService: Failed to publish ranking: %v", err)
		}
	}
	return scores, nil
}
