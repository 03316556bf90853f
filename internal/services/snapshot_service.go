/**
 * @description
 * Checkpoint snapshots of the ranking and their announcement.
 *
 * @dependencies
 * - gorm.io/datatypes (ranking payload)
 * - backend/internal/notify
 * - backend/internal/store
 *
 * @notes
 * At most one snapshot exists per (tag, hour bucket). Take checks before writing
 * and reports an existing one as store.ErrDuplicateKey.
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/notify"
	"github.com/ttms-project/backend/internal/scoring"
	"github.com/ttms-project/backend/internal/store"
)

const (
	// SnapshotRetention is how long snapshots are kept.
	SnapshotRetention = 24 * time.Hour

	// announceSize is how many entries an announcement lists.
	announceSize = 10
)

type SnapshotService struct {
	Store    store.Store
	Notifier *notify.Notifier
	TopN     int
}

func NewSnapshotService(st store.Store, notifier *notify.Notifier, cfg *config.Config) *SnapshotService {
	return &SnapshotService{Store: st, Notifier: notifier, TopN: cfg.Scoring.TopN}
}

// Take freezes the current top-N ranking under tag for now's hour bucket and
// prunes snapshots older than SnapshotRetention.
func (s *SnapshotService) Take(ctx context.Context, tag string, now time.Time) (*models.Snapshot, error) {
	if !models.IsCheckpointTag(tag) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	bucket := models.HourBucket(now)

	latest, err := s.Store.LatestSnapshot(ctx, tag)
	switch {
	case err == nil && latest.Bucket.Equal(bucket):
		return latest, fmt.Errorf("snapshot %s at %s: %w", tag, bucket.Format(time.RFC3339), store.ErrDuplicateKey)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	scores, err := s.Store.ListScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}
	tokens, err := s.Store.ListTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	ranked := scoring.Rank(scores, tokens, s.TopN)

	payload, err := json.Marshal(ranked)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	snap := &models.Snapshot{
		Tag:       tag,
		Bucket:    bucket,
		Ranking:   datatypes.JSON(payload),
		CreatedAt: now,
	}
	if err := s.Store.CreateSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to store snapshot %s: %w", tag, err)
	}

	if err := s.Store.PruneSnapshots(ctx, now.Add(-SnapshotRetention)); err != nil {
		logger.Error("SnapshotService: Failed to prune snapshots: %v", err)
	}
	logger.Info("SnapshotService: Stored %s snapshot with %d entries", tag, len(ranked))
	return snap, nil
}

// FormatAnnouncement renders the top entries of a snapshot as chat text.
func FormatAnnouncement(snap *models.Snapshot, entries []models.RankedToken, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TTMS top %d · %s PST · %s\n", min(limit, len(entries)), snap.Tag, snap.Bucket.UTC().Format("2006-01-02"))
	for i, e := range entries {
		if i == limit {
			break
		}
		fmt.Fprintf(&b, "%d. $%s  %.1f", e.Rank, e.Token.Symbol, e.Score.TokenScore)
		if e.Token.Change24 != 0 {
			fmt.Fprintf(&b, "  (%+.1f%%)", e.Token.Change24*100)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Announce publishes a snapshot to the configured channels and the social sink.
// Delivery is best-effort.
func (s *SnapshotService) Announce(ctx context.Context, snap *models.Snapshot) error {
	if s.Notifier == nil {
		return nil
	}
	entries, err := snap.Entries()
	if err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	text := FormatAnnouncement(snap, entries, announceSize)
	delivered := s.Notifier.Broadcast(ctx, text, notify.FormatPlain)
	posted := s.Notifier.PublishSocialPost(ctx, FormatAnnouncement(snap, entries, 5), nil)
	logger.Info("SnapshotService: Announced %s snapshot (%d messages, %d posts)", snap.Tag, delivered, posted)
	return nil
}
