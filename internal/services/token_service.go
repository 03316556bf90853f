/**
 * @description
 * Token ingestion.
 * Pages the signal source by creation time and replaces the token master table.
 *
 * @dependencies
 * - backend/internal/codex
 * - backend/internal/store
 *
 * @notes
 * - A pass pages with limit/offset until an empty or short page.
 * - When the offset ceiling is reached, a new pass starts from the last seen
 *   createdAt (the resume cursor) with the offset reset to 0.
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ttms-project/backend/internal/codex"
	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/store"
)

// DefaultMaxPasses bounds the number of resumed passes of one refresh.
const DefaultMaxPasses = 50

// ErrNoTokens is returned when the source yields nothing, leaving the table untouched.
var ErrNoTokens = errors.New("signal source returned no tokens")

type TokenService struct {
	Store        store.TokenStore
	Source       SignalSource
	NetworkID    int
	MinLiquidity float64
	PageSize     int
	MaxOffset    int
	MaxPasses    int
}

func NewTokenService(st store.TokenStore, src SignalSource, cfg *config.Config) *TokenService {
	return &TokenService{
		Store:        st,
		Source:       src,
		NetworkID:    cfg.Codex.NetworkID,
		MinLiquidity: cfg.Codex.MinLiquidity,
		PageSize:     cfg.Codex.PageSize,
		MaxOffset:    cfg.Codex.MaxOffset,
		MaxPasses:    DefaultMaxPasses,
	}
}

// Fetch pages through the source and returns the deduplicated token set.
func (s *TokenService) Fetch(ctx context.Context, now time.Time) ([]models.Token, error) {
	limit := s.PageSize
	if limit <= 0 {
		limit = 200
	}
	maxPasses := s.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	dedup := make(map[string]models.Token)
	var order []string
	var cursor int64

	for pass := 0; pass < maxPasses; pass++ {
		offset := 0
		lastSeen := cursor
		ceiling := false

		for {
			if s.MaxOffset > 0 && offset+limit > s.MaxOffset {
				ceiling = true
				break
			}
			params := codex.FilterParams{
				NetworkID:    s.NetworkID,
				MinLiquidity: s.MinLiquidity,
				Limit:        limit,
				Offset:       offset,
			}
			if cursor > 0 {
				// gte: tokens sharing the cursor second are fetched again and deduplicated
				params.CreatedAfter = cursor - 1
			}
			page, err := s.Source.FilterTokens(ctx, params)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch tokens (pass %d, offset %d): %w", pass, offset, err)
			}

			for i := range page {
				t := page[i].ToDBModel(now)
				if t.Address == "" {
					continue
				}
				if _, ok := dedup[t.Address]; !ok {
					order = append(order, t.Address)
				}
				dedup[t.Address] = t
				if t.CreatedAt > lastSeen {
					lastSeen = t.CreatedAt
				}
			}

			if len(page) < limit {
				break
			}
			offset += limit
		}

		if !ceiling {
			break
		}
		if lastSeen <= cursor {
			logger.Warn("TokenService: offset ceiling hit without cursor progress at createdAt %d", cursor)
			break
		}
		cursor = lastSeen
	}

	tokens := make([]models.Token, 0, len(order))
	for _, addr := range order {
		tokens = append(tokens, dedup[addr])
	}
	return tokens, nil
}

// Refresh fetches the full token set and replaces the master table with it.
func (s *TokenService) Refresh(ctx context.Context, now time.Time) (int, error) {
	tokens, err := s.Fetch(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, ErrNoTokens
	}
	if err := s.Store.ReplaceTokens(ctx, tokens); err != nil {
		return 0, fmt.Errorf("failed to replace tokens: %w", err)
	}
	logger.Info("TokenService: Refreshed %d tokens", len(tokens))
	return len(tokens), nil
}
