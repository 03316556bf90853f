// Package store defines the persistence contracts used by the scoring pipeline.
// Implementations live in internal/db (PostgreSQL via GORM) and internal/store/memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ttms-project/backend/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a write would create a second row for a unique key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned for records missing their key fields.
	ErrInvalidInput = errors.New("invalid input")
)

// TokenStore provides access to the token master table.
type TokenStore interface {
	// ListTokens returns every token row.
	ListTokens(ctx context.Context) ([]models.Token, error)

	// ReplaceTokens deletes all rows and inserts tokens.
	ReplaceTokens(ctx context.Context, tokens []models.Token) error
}

// VoteStore provides access to the append-only vote log.
type VoteStore interface {
	AppendVote(ctx context.Context, v *models.Vote) error

	// VotesSince returns votes with CreatedAt >= since.
	VotesSince(ctx context.Context, since time.Time) ([]models.Vote, error)
}

// VolumeStore provides access to daily volume samples.
type VolumeStore interface {
	VolumeSamplesForDay(ctx context.Context, day time.Time) ([]models.VolumeSample, error)

	// InsertVolumeSamples writes samples whose (token, day) key is not stored yet and skips the rest.
	InsertVolumeSamples(ctx context.Context, samples []models.VolumeSample) (int, error)

	// PruneVolumeSamples deletes samples with Day < before.
	PruneVolumeSamples(ctx context.Context, before time.Time) error
}

// HolderStore provides access to hourly holder samples and the derived holder scores.
type HolderStore interface {
	HolderSamplesForHour(ctx context.Context, hour time.Time) ([]models.HolderSample, error)

	// InsertHolderSamples writes samples whose (token, hour) key is not stored yet and skips the rest.
	InsertHolderSamples(ctx context.Context, samples []models.HolderSample) (int, error)

	// PruneHolderSamples deletes samples with Hour < before.
	PruneHolderSamples(ctx context.Context, before time.Time) error

	ListHolderScores(ctx context.Context) ([]models.HolderScore, error)
	ReplaceHolderScores(ctx context.Context, scores []models.HolderScore) error
}

// ScoreStore provides access to the current score table.
type ScoreStore interface {
	// ListScores returns scores ordered by TokenScore descending.
	ListScores(ctx context.Context) ([]models.Score, error)

	// ReplaceScores swaps the whole table for scores.
	ReplaceScores(ctx context.Context, scores []models.Score) error
}

// HourlyStore provides access to the 24-slot hourly score table.
type HourlyStore interface {
	ListHourly(ctx context.Context) ([]models.ScoreByHour, error)

	// HourlyByToken returns ErrNotFound when the token has no row.
	HourlyByToken(ctx context.Context, tokenAddress string) (*models.ScoreByHour, error)

	// WriteHour sets slot hour for every token in scores, creating rows as needed.
	// Other slots of existing rows are preserved.
	WriteHour(ctx context.Context, day time.Time, hour int, scores map[string]float64) error

	ClearHourly(ctx context.Context) error
}

// DailyStore provides access to the rolling daily average history.
type DailyStore interface {
	ListDaily(ctx context.Context) ([]models.DailyScore, error)

	// ShiftDaily applies models.ShiftDailyScores to the whole table.
	ShiftDaily(ctx context.Context, averages map[string]float64, at time.Time) error

	// PurgeDaily deletes rows with UpdatedAt < before.
	PurgeDaily(ctx context.Context, before time.Time) error
}

// SnapshotStore provides access to checkpoint snapshots.
type SnapshotStore interface {
	// CreateSnapshot returns ErrDuplicateKey if (tag, bucket) exists.
	CreateSnapshot(ctx context.Context, s *models.Snapshot) error

	// LatestSnapshot returns ErrNotFound when no snapshot exists for tag.
	LatestSnapshot(ctx context.Context, tag string) (*models.Snapshot, error)

	// PruneSnapshots deletes snapshots with CreatedAt < before.
	PruneSnapshots(ctx context.Context, before time.Time) error
}

// PortfolioStore provides access to simulated positions and archived session results.
type PortfolioStore interface {
	ListPositions(ctx context.Context, tag string) ([]models.Position, error)

	// SavePositions upserts positions by (token, session tag).
	SavePositions(ctx context.Context, positions []models.Position) error

	// ReplacePositions deletes every position of tag and inserts positions.
	ReplacePositions(ctx context.Context, tag string, positions []models.Position) error

	// CreatePortfolioResult returns ErrDuplicateKey if (tag, day) exists.
	CreatePortfolioResult(ctx context.Context, r *models.PortfolioResult) error

	// PortfolioResultsSince returns results with CreatedAt >= since, newest first.
	PortfolioResultsSince(ctx context.Context, since time.Time) ([]models.PortfolioResult, error)

	PrunePortfolioResults(ctx context.Context, before time.Time) error
}

// Store is the full persistence surface.
type Store interface {
	TokenStore
	VoteStore
	VolumeStore
	HolderStore
	ScoreStore
	HourlyStore
	DailyStore
	SnapshotStore
	PortfolioStore
}
