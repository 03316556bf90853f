/**
 * @description
 * GORM implementation of store.Store.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgx/v5/pgconn (error classification)
 *
 * @notes
 * Replace* methods delete and insert inside one transaction, so readers never see
 * a half-written table. Sample inserts use ON CONFLICT DO NOTHING to keep the
 * first sample of a bucket.
 */

package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/store"
)

const batchSize = 500

// Repository persists the pipeline tables in PostgreSQL.
type Repository struct {
	DB *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

var _ store.Store = (*Repository)(nil)

func (r *Repository) db(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx)
}

// deleteAll removes every row of model inside tx.
func deleteAll(tx *gorm.DB, model interface{}) error {
	return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error
}

// --- tokens ---

func (r *Repository) ListTokens(ctx context.Context) ([]models.Token, error) {
	var tokens []models.Token
	err := r.db(ctx).Order("address").Find(&tokens).Error
	return tokens, translate(err)
}

func (r *Repository) ReplaceTokens(ctx context.Context, tokens []models.Token) error {
	return withTx(ctx, r.DB, func(tx *gorm.DB) error {
		if err := deleteAll(tx, &models.Token{}); err != nil {
			return err
		}
		if len(tokens) == 0 {
			return nil
		}
		return tx.CreateInBatches(tokens, batchSize).Error
	})
}

// --- votes ---

func (r *Repository) AppendVote(ctx context.Context, v *models.Vote) error {
	if v == nil || v.TokenAddress == "" || v.WalletAddress == "" {
		return store.ErrInvalidInput
	}
	return translate(r.db(ctx).Create(v).Error)
}

func (r *Repository) VotesSince(ctx context.Context, since time.Time) ([]models.Vote, error) {
	var votes []models.Vote
	err := r.db(ctx).Where("created_at >= ?", since).Order("created_at").Find(&votes).Error
	return votes, translate(err)
}

// --- volume samples ---

func (r *Repository) VolumeSamplesForDay(ctx context.Context, day time.Time) ([]models.VolumeSample, error) {
	var samples []models.VolumeSample
	err := r.db(ctx).Where("day = ?", day.UTC()).Order("token_address").Find(&samples).Error
	return samples, translate(err)
}

func (r *Repository) InsertVolumeSamples(ctx context.Context, samples []models.VolumeSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	res := r.db(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(samples, batchSize)
	return int(res.RowsAffected), translate(res.Error)
}

func (r *Repository) PruneVolumeSamples(ctx context.Context, before time.Time) error {
	return translate(r.db(ctx).Where("day < ?", before.UTC()).Delete(&models.VolumeSample{}).Error)
}

// --- holder samples and scores ---

func (r *Repository) HolderSamplesForHour(ctx context.Context, hour time.Time) ([]models.HolderSample, error) {
	var samples []models.HolderSample
	err := r.db(ctx).Where("hour = ?", hour.UTC()).Order("token_address").Find(&samples).Error
	return samples, translate(err)
}

func (r *Repository) InsertHolderSamples(ctx context.Context, samples []models.HolderSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	res := r.db(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(samples, batchSize)
	return int(res.RowsAffected), translate(res.Error)
}

func (r *Repository) PruneHolderSamples(ctx context.Context, before time.Time) error {
	return translate(r.db(ctx).Where("hour < ?", before.UTC()).Delete(&models.HolderSample{}).Error)
}

func (r *Repository) ListHolderScores(ctx context.Context) ([]models.HolderScore, error) {
	var scores []models.HolderScore
	err := r.db(ctx).Order("token_address").Find(&scores).Error
	return scores, translate(err)
}

func (r *Repository) ReplaceHolderScores(ctx context.Context, scores []models.HolderScore) error {
	return withTx(ctx, r.DB, func(tx *gorm.DB) error {
		if err := deleteAll(tx, &models.HolderScore{}); err != nil {
			return err
		}
		if len(scores) == 0 {
			return nil
		}
		return tx.CreateInBatches(scores, batchSize).Error
	})
}

// --- scores ---

func (r *Repository) ListScores(ctx context.Context) ([]models.Score, error) {
	var scores []models.Score
	err := r.db(ctx).Order("token_score DESC").Order("token_address").Find(&scores).Error
	return scores, translate(err)
}

func (r *Repository) ReplaceScores(ctx context.Context, scores []models.Score) error {
	return withTx(ctx, r.DB, func(tx *gorm.DB) error {
		if err := deleteAll(tx, &models.Score{}); err != nil {
			return err
		}
		if len(scores) == 0 {
			return nil
		}
		return tx.CreateInBatches(scores, batchSize).Error
	})
}

// --- hourly and daily history ---

func (r *Repository) ListHourly(ctx context.Context) ([]models.ScoreByHour, error) {
	var rows []models.ScoreByHour
	err := r.db(ctx).Order("token_address").Find(&rows).Error
	return rows, translate(err)
}

func (r *Repository) HourlyByToken(ctx context.Context, tokenAddress string) (*models.ScoreByHour, error) {
	var row models.ScoreByHour
	if err := r.db(ctx).Where("token_address = ?", tokenAddress).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *Repository) WriteHour(ctx context.Context, day time.Time, hour int, scores map[string]float64) error {
	if len(scores) == 0 {
		return nil
	}
	addrs := make([]string, 0, len(scores))
	for addr := range scores {
		addrs = append(addrs, addr)
	}

	return withTx(ctx, r.DB, func(tx *gorm.DB) error {
		var existing []models.ScoreByHour
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_address IN ?", addrs).Find(&existing).Error; err != nil {
			return err
		}
		rows := make(map[string]models.ScoreByHour, len(addrs))
		for _, row := range existing {
			rows[row.TokenAddress] = row
		}

		now := time.Now().UTC()
		out := make([]models.ScoreByHour, 0, len(addrs))
		for _, addr := range addrs {
			row, ok := rows[addr]
			if !ok {
				row = models.ScoreByHour{TokenAddress: addr}
			}
			row.Reset(day.UTC())
			if err := row.Slots.Set(hour, scores[addr]); err != nil {
				return err
			}
			row.UpdatedAt = now
			out = append(out, row)
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_address"}},
			DoUpdates: clause.AssignmentColumns([]string{"day", "slots", "updated_at"}),
		}).CreateInBatches(out, batchSize).Error
	})
}

func (r *Repository) ClearHourly(ctx context.Context) error {
	return withTx(ctx, r.DB, func(tx *gorm.DB) error {
		return deleteAll(tx, &models.ScoreByHour{})
	})
}

func (r *Repository) ListDaily(ctx context.Context) ([]models.DailyScore, error) {
	var rows []models.DailyScore
	err := r.db(ctx).Order("token_address").Find(&rows).Error
	return rows, translate(err)
}

func (r *Repository) ShiftDaily(ctx context.Context, averages map[string]float64, at time.Time) error {
	return withTx(ctx, r.DB, func(tx *gorm.DB) error {
		var existing []models.DailyScore
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Find(&existing).Error; err != nil {
			return err
		}
		shifted := models.ShiftDailyScores(existing, averages, at.UTC())
		if len(shifted) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_address"}},
			DoUpdates: clause.AssignmentColumns([]string{"average_score_today", "average_score_24_ago", "average_score_48_ago", "updated_at", "rolled_up_at"}),
		}).CreateInBatches(shifted, batchSize).Error
	})
}

func (r *Repository) PurgeDaily(ctx context.Context, before time.Time) error {
	return translate(r.db(ctx).Where("updated_at < ?", before.UTC()).Delete(&models.DailyScore{}).Error)
}

// --- snapshots ---

func (r *Repository) CreateSnapshot(ctx context.Context, s *models.Snapshot) error {
	if s == nil || s.Tag == "" {
		return store.ErrInvalidInput
	}
	if err := r.db(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("snapshot %s: %w", s.Tag, translate(err))
	}
	return nil
}

func (r *Repository) LatestSnapshot(ctx context.Context, tag string) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := r.db(ctx).Where("tag = ?", tag).Order("bucket DESC").First(&snap).Error; err != nil {
		return nil, translate(err)
	}
	return &snap, nil
}

func (r *Repository) PruneSnapshots(ctx context.Context, before time.Time) error {
	return translate(r.db(ctx).Where("created_at < ?", before.UTC()).Delete(&models.Snapshot{}).Error)
}

// --- portfolio ---

func (r *Repository) ListPositions(ctx context.Context, tag string) ([]models.Position, error) {
	var positions []models.Position
	err := r.db(ctx).Where("started_at = ?", tag).Order("rank").Order("token_address").Find(&positions).Error
	return positions, translate(err)
}

func (r *Repository) SavePositions(ctx context.Context, positions []models.Position) error {
	if len(positions) == 0 {
		return nil
	}
	for _, p := range positions {
		if p.TokenAddress == "" || p.SessionTag == "" {
			return store.ErrInvalidInput
		}
	}
	return withTx(ctx, r.DB, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(positions, batchSize).Error
	})
}

func (r *Repository) ReplacePositions(ctx context.Context, tag string, positions []models.Position) error {
	return withTx(ctx, r.DB, func(tx *gorm.DB) error {
		if err := tx.Where("started_at = ?", tag).Delete(&models.Position{}).Error; err != nil {
			return err
		}
		if len(positions) == 0 {
			return nil
		}
		for i := range positions {
			positions[i].SessionTag = tag
		}
		return tx.CreateInBatches(positions, batchSize).Error
	})
}

func (r *Repository) CreatePortfolioResult(ctx context.Context, res *models.PortfolioResult) error {
	if res == nil || res.SessionTag == "" {
		return store.ErrInvalidInput
	}
	if err := r.db(ctx).Create(res).Error; err != nil {
		return fmt.Errorf("portfolio result %s: %w", res.SessionTag, translate(err))
	}
	return nil
}

func (r *Repository) PortfolioResultsSince(ctx context.Context, since time.Time) ([]models.PortfolioResult, error) {
	var results []models.PortfolioResult
	err := r.db(ctx).Where("created_at >= ?", since.UTC()).Order("created_at DESC").Find(&results).Error
	return results, translate(err)
}

func (r *Repository) PrunePortfolioResults(ctx context.Context, before time.Time) error {
	return translate(r.db(ctx).Where("created_at < ?", before.UTC()).Delete(&models.PortfolioResult{}).Error)
}
