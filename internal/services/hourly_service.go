package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/store"
)

// DailyRetention is how long a daily history row survives without a new average.
const DailyRetention = 72 * time.Hour

// HourlyStore is the persistence HourlyService needs.
type HourlyStore interface {
	store.ScoreStore
	store.HourlyStore
	store.DailyStore
}

// HourlyService keeps the per-hour score columns and the rolling daily averages.
type HourlyService struct {
	Store HourlyStore
}

func NewHourlyService(st HourlyStore) *HourlyService {
	return &HourlyService{Store: st}
}

// Write copies the current scores into the slot of now's UTC hour. The first
// write of a new day clears the table, even when the hour-0 write was missed.
// Tokens absent from the current scores keep their earlier slots.
func (s *HourlyService) Write(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	hour := now.Hour()
	day := models.DayBucket(now)

	if err := s.clearStale(ctx, day); err != nil {
		return 0, err
	}

	scores, err := s.Store.ListScores(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load scores: %w", err)
	}
	values := make(map[string]float64, len(scores))
	for _, sc := range scores {
		values[sc.TokenAddress] = sc.TokenScore
	}
	if err := s.Store.WriteHour(ctx, day, hour, values); err != nil {
		return 0, fmt.Errorf("failed to write hour %d: %w", hour, err)
	}
	return len(values), nil
}

// clearStale clears the table unless every row already belongs to day, so a
// retried write does not wipe the slots of its own day.
func (s *HourlyService) clearStale(ctx context.Context, day time.Time) error {
	rows, err := s.Store.ListHourly(ctx)
	if err != nil {
		return fmt.Errorf("failed to load hourly scores: %w", err)
	}
	for _, r := range rows {
		if r.Day.Before(day) {
			if err := s.Store.ClearHourly(ctx); err != nil {
				return fmt.Errorf("failed to clear hourly scores: %w", err)
			}
			logger.Info("HourlyService: Cleared hourly scores for %s", day.Format("2006-01-02"))
			return nil
		}
	}
	return nil
}

// DailyAverages averages the filled slots of each row; rows with fewer than
// models.MinDailySamples filled slots are left out.
func DailyAverages(rows []models.ScoreByHour) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		avg, n := r.Slots.Average()
		if n < models.MinDailySamples {
			continue
		}
		out[r.TokenAddress] = avg
	}
	return out
}

// Rollup shifts today's averages into the daily history and purges rows that
// have not received an average within DailyRetention. It runs at most once per
// UTC day; later calls on the same day are no-ops. Hourly rows left over from an
// earlier day are not averaged.
func (s *HourlyService) Rollup(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	day := models.DayBucket(now)

	daily, err := s.Store.ListDaily(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load daily scores: %w", err)
	}
	for _, d := range daily {
		if d.RolledUpOn(day) {
			logger.Info("HourlyService: Daily rollup for %s already applied", day.Format("2006-01-02"))
			return 0, nil
		}
	}

	rows, err := s.Store.ListHourly(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load hourly scores: %w", err)
	}
	current := make([]models.ScoreByHour, 0, len(rows))
	for _, r := range rows {
		if r.Day.Equal(day) {
			current = append(current, r)
		}
	}
	averages := DailyAverages(current)

	if err := s.Store.ShiftDaily(ctx, averages, now); err != nil {
		return 0, fmt.Errorf("failed to shift daily scores: %w", err)
	}
	if err := s.Store.PurgeDaily(ctx, now.Add(-DailyRetention)); err != nil {
		return 0, fmt.Errorf("failed to purge daily scores: %w", err)
	}
	logger.Info("HourlyService: Rolled up %d daily averages from %d rows", len(averages), len(rows))
	return len(averages), nil
}
