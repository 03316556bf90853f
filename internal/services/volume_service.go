/**
 * @description
 * Daily volume sampling and the volume partial score.
 *
 * @dependencies
 * - backend/internal/codex
 * - backend/internal/store
 * - backend/internal/scoring
 *
 * @notes
 * Run mutates the token table in place. It snapshots the table first and writes the
 * snapshot back if any later step fails, so a failed run never leaves half-refreshed rows.
 */

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ttms-project/backend/internal/codex"
	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/scoring"
	"github.com/ttms-project/backend/internal/store"
)

// VolumeRetentionDays is how many day buckets before today are kept.
const VolumeRetentionDays = 2

// VolumeStore is the persistence VolumeService needs.
type VolumeStore interface {
	store.TokenStore
	store.VolumeStore
}

type VolumeService struct {
	Store     VolumeStore
	Source    SignalSource
	NetworkID int
	ChunkSize int
}

func NewVolumeService(st VolumeStore, src SignalSource, cfg *config.Config) *VolumeService {
	return &VolumeService{
		Store:     st,
		Source:    src,
		NetworkID: cfg.Codex.NetworkID,
		ChunkSize: cfg.Scoring.VolumeChunkSize,
	}
}

// Run refreshes volume24/change24 of every token, records today's day-bucket
// sample and prunes samples outside the retention window.
func (s *VolumeService) Run(ctx context.Context, now time.Time) (err error) {
	tokens, err := s.Store.ListTokens(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	backup := make([]models.Token, len(tokens))
	copy(backup, tokens)
	mutated := false
	defer func() {
		if err == nil || !mutated {
			return
		}
		if rerr := s.Store.ReplaceTokens(context.WithoutCancel(ctx), backup); rerr != nil {
			logger.Error("VolumeService: Failed to restore token backup: %v", rerr)
			return
		}
		logger.Warn("VolumeService: Restored %d tokens after failed run: %v", len(backup), err)
	}()

	fresh, err := s.fetch(ctx, tokens)
	if err != nil {
		return err
	}

	updated := make([]models.Token, len(tokens))
	for i, t := range tokens {
		if r, ok := fresh[t.Key()]; ok {
			t.Volume24 = r.Volume24.Float()
			t.Change24 = r.Change24.Float()
			if p := r.PriceUSD.Float(); p > 0 {
				t.PriceUSD = p
			}
			t.UpdatedAt = now
		}
		updated[i] = t
	}

	mutated = true
	if err = s.Store.ReplaceTokens(ctx, updated); err != nil {
		return fmt.Errorf("failed to write refreshed tokens: %w", err)
	}

	day := models.DayBucket(now)
	samples := make([]models.VolumeSample, 0, len(updated))
	for _, t := range updated {
		samples = append(samples, models.VolumeSample{
			TokenAddress: t.Key(),
			Day:          day,
			Volume24:     t.Volume24,
			Change24:     t.Change24,
			CapturedAt:   now,
		})
	}
	inserted, err := s.Store.InsertVolumeSamples(ctx, samples)
	if err != nil {
		return fmt.Errorf("failed to insert volume samples: %w", err)
	}

	if err = s.Store.PruneVolumeSamples(ctx, day.AddDate(0, 0, -VolumeRetentionDays)); err != nil {
		return fmt.Errorf("failed to prune volume samples: %w", err)
	}

	logger.Info("VolumeService: Refreshed %d tokens, %d new samples for %s", len(fresh), inserted, day.Format("2006-01-02"))
	return nil
}

func (s *VolumeService) fetch(ctx context.Context, tokens []models.Token) (map[string]codex.TokenResult, error) {
	addrs := make([]string, 0, len(tokens))
	for _, t := range tokens {
		addrs = append(addrs, t.Address)
	}

	out := make(map[string]codex.TokenResult, len(tokens))
	for _, group := range chunk(addrs, s.ChunkSize) {
		page, err := s.Source.FilterTokens(ctx, codex.FilterParams{
			NetworkID: s.NetworkID,
			Tokens:    group,
			Limit:     len(group),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch volumes: %w", err)
		}
		for _, r := range page {
			out[models.NormalizeAddress(r.Token.Address)] = r
		}
	}
	return out, nil
}

// Partials compares yesterday's samples with the ones from the day before.
func (s *VolumeService) Partials(ctx context.Context, now time.Time, tokens []models.Token) (map[string]scoring.VolumePartial, error) {
	day := models.DayBucket(now)
	current, err := s.Store.VolumeSamplesForDay(ctx, day.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("failed to load volume samples: %w", err)
	}
	previous, err := s.Store.VolumeSamplesForDay(ctx, day.AddDate(0, 0, -2))
	if err != nil {
		return nil, fmt.Errorf("failed to load volume samples: %w", err)
	}
	return scoring.ScoreVolumes(current, previous, models.TokenIndex(tokens)), nil
}
