/**
 * @description
 * Simulated 24h portfolio per session tag (9am / 9pm).
 * Refresh tracks open positions against the latest token prices. Rotate archives
 * the finished session and reseeds it from the new session snapshot.
 *
 * @dependencies
 * - gorm.io/datatypes (archived positions)
 * - backend/internal/scoring (position state machine)
 * - backend/internal/store
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/scoring"
	"github.com/ttms-project/backend/internal/store"
)

// PortfolioResultRetention is how long archived session results are kept.
const PortfolioResultRetention = 30 * 24 * time.Hour

// ErrUnknownWindow is returned for a returns window other than 24h, 7d or 30d.
var ErrUnknownWindow = errors.New("unknown returns window")

// PortfolioStore is the persistence PortfolioService needs.
type PortfolioStore interface {
	store.TokenStore
	store.PortfolioStore
}

type PortfolioService struct {
	Store PortfolioStore
}

func NewPortfolioService(st PortfolioStore) *PortfolioService {
	return &PortfolioService{Store: st}
}

// Refresh advances every open position with the current token price and returns
// how many closed on this update.
func (s *PortfolioService) Refresh(ctx context.Context, now time.Time) (int, error) {
	tokens, err := s.Store.ListTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load tokens: %w", err)
	}
	prices := models.TokenIndex(tokens)

	closed := 0
	for _, tag := range models.SessionTags {
		positions, err := s.Store.ListPositions(ctx, tag)
		if err != nil {
			return closed, fmt.Errorf("failed to load %s positions: %w", tag, err)
		}

		var changed []models.Position
		for i := range positions {
			p := &positions[i]
			if p.Closed() {
				continue
			}
			t, ok := prices[models.NormalizeAddress(p.TokenAddress)]
			if !ok {
				continue
			}
			if scoring.TrackPrice(p, t.PriceUSD, now) {
				closed++
			}
			changed = append(changed, *p)
		}
		if len(changed) == 0 {
			continue
		}
		if err := s.Store.SavePositions(ctx, changed); err != nil {
			return closed, fmt.Errorf("failed to save %s positions: %w", tag, err)
		}
	}
	return closed, nil
}

// Rotate closes the running session of tag into an archived result and opens new
// positions from snap. Calling it again within the same hour bucket is a no-op.
func (s *PortfolioService) Rotate(ctx context.Context, tag string, snap *models.Snapshot, now time.Time) error {
	if !models.IsSessionTag(tag) {
		return fmt.Errorf("%w: %q is not a session tag", ErrUnknownTag, tag)
	}
	bucket := models.HourBucket(now)

	positions, err := s.Store.ListPositions(ctx, tag)
	if err != nil {
		return fmt.Errorf("failed to load %s positions: %w", tag, err)
	}
	for _, p := range positions {
		if !p.OpenedAt.Before(bucket) {
			logger.Info("PortfolioService: %s session already rotated at %s", tag, bucket.Format(time.RFC3339))
			return nil
		}
	}

	if len(positions) > 0 {
		if err := s.archive(ctx, tag, positions, now); err != nil {
			return err
		}
	}

	entries, err := snap.Entries()
	if err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	fresh := make([]models.Position, 0, len(entries))
	for _, e := range entries {
		if e.Token.PriceUSD <= 0 {
			continue
		}
		fresh = append(fresh, scoring.OpenPosition(e, tag, now))
	}
	if err := s.Store.ReplacePositions(ctx, tag, fresh); err != nil {
		return fmt.Errorf("failed to reseed %s positions: %w", tag, err)
	}

	if err := s.Store.PrunePortfolioResults(ctx, now.Add(-PortfolioResultRetention)); err != nil {
		logger.Error("PortfolioService: Failed to prune results: %v", err)
	}
	logger.Info("PortfolioService: Opened %d %s positions", len(fresh), tag)
	return nil
}

func (s *PortfolioService) archive(ctx context.Context, tag string, positions []models.Position, now time.Time) error {
	avg, closed, open := scoring.AverageResult(positions)
	payload, err := json.Marshal(positions)
	if err != nil {
		return fmt.Errorf("failed to marshal positions: %w", err)
	}
	result := &models.PortfolioResult{
		SessionTag:    tag,
		Day:           models.DayBucket(now),
		AverageResult: avg,
		ClosedCount:   closed,
		OpenCount:     open,
		Positions:     datatypes.JSON(payload),
		CreatedAt:     now,
	}
	err = s.Store.CreatePortfolioResult(ctx, result)
	switch {
	case errors.Is(err, store.ErrDuplicateKey):
		logger.Warn("PortfolioService: %s result for %s already archived", tag, result.Day.Format("2006-01-02"))
	case err != nil:
		return fmt.Errorf("failed to archive %s session: %w", tag, err)
	default:
		logger.Info("PortfolioService: Archived %s session: avg %.2f%% (%d closed, %d open)", tag, avg, closed, open)
	}
	return nil
}

// Positions returns the live positions of a session tag.
func (s *PortfolioService) Positions(ctx context.Context, tag string) ([]models.Position, error) {
	if !models.IsSessionTag(tag) {
		return nil, fmt.Errorf("%w: %q is not a session tag", ErrUnknownTag, tag)
	}
	return s.Store.ListPositions(ctx, tag)
}

// Returns aggregates the archived session results of a rolling window.
type Returns struct {
	Window   string  `json:"window"`
	Average  float64 `json:"average"`
	Sessions int     `json:"sessions"`
}

// ParseWindow maps "24h", "7d" and "30d" to durations.
func ParseWindow(window string) (time.Duration, error) {
	switch window {
	case "24h":
		return 24 * time.Hour, nil
	case "7d":
		return 7 * 24 * time.Hour, nil
	case "30d":
		return 30 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWindow, window)
}

// Returns is the mean session result over the window. Sessions that closed no
// position carry no result and are left out.
func (s *PortfolioService) Returns(ctx context.Context, window string, now time.Time) (*Returns, error) {
	d, err := ParseWindow(window)
	if err != nil {
		return nil, err
	}
	results, err := s.Store.PortfolioResultsSince(ctx, now.Add(-d))
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio results: %w", err)
	}

	out := &Returns{Window: window}
	var sum float64
	for _, r := range results {
		if r.ClosedCount == 0 {
			continue
		}
		sum += r.AverageResult
		out.Sessions++
	}
	if out.Sessions > 0 {
		out.Average = sum / float64(out.Sessions)
	}
	return out, nil
}
