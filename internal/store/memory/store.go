// Package memory is an in-memory implementation of store.Store.
// It backs tests and the --memory mode of cmd/sync.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/store"
)

// Store keeps every table in maps guarded by a single lock.
type Store struct {
	mu sync.RWMutex

	tokens       map[string]models.Token
	votes        []models.Vote
	volumes      map[string]models.VolumeSample // keyed by (token, day)
	holders      map[string]models.HolderSample // keyed by (token, hour)
	holderScores map[string]models.HolderScore
	scores       map[string]models.Score
	hourly       map[string]models.ScoreByHour
	daily        map[string]models.DailyScore
	snapshots    []models.Snapshot
	positions    map[string]models.Position // keyed by (token, tag)
	results      []models.PortfolioResult
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tokens:       make(map[string]models.Token),
		volumes:      make(map[string]models.VolumeSample),
		holders:      make(map[string]models.HolderSample),
		holderScores: make(map[string]models.HolderScore),
		scores:       make(map[string]models.Score),
		hourly:       make(map[string]models.ScoreByHour),
		daily:        make(map[string]models.DailyScore),
		positions:    make(map[string]models.Position),
	}
}

var _ store.Store = (*Store)(nil)

func bucketKey(addr string, t time.Time) string {
	return addr + "|" + t.UTC().Format(time.RFC3339)
}

func positionKey(addr, tag string) string {
	return addr + "|" + tag
}

// ListTokens returns tokens sorted by address.
func (s *Store) ListTokens(_ context.Context) ([]models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *Store) ReplaceTokens(_ context.Context, tokens []models.Token) error {
	next := make(map[string]models.Token, len(tokens))
	for _, t := range tokens {
		if t.Address == "" {
			return store.ErrInvalidInput
		}
		next[t.Address] = t
	}

	s.mu.Lock()
	s.tokens = next
	s.mu.Unlock()
	return nil
}

func (s *Store) AppendVote(_ context.Context, v *models.Vote) error {
	if v == nil || v.TokenAddress == "" || v.WalletAddress == "" {
		return store.ErrInvalidInput
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.votes = append(s.votes, *v)
	s.mu.Unlock()
	return nil
}

func (s *Store) VotesSince(_ context.Context, since time.Time) ([]models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Vote
	for _, v := range s.votes {
		if !v.CreatedAt.Before(since) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store) VolumeSamplesForDay(_ context.Context, day time.Time) ([]models.VolumeSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.VolumeSample
	for _, v := range s.volumes {
		if v.Day.Equal(day) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenAddress < out[j].TokenAddress })
	return out, nil
}

func (s *Store) InsertVolumeSamples(_ context.Context, samples []models.VolumeSample) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, v := range samples {
		if v.TokenAddress == "" {
			return inserted, store.ErrInvalidInput
		}
		key := bucketKey(v.TokenAddress, v.Day)
		if _, exists := s.volumes[key]; exists {
			continue
		}
		s.volumes[key] = v
		inserted++
	}
	return inserted, nil
}

func (s *Store) PruneVolumeSamples(_ context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, v := range s.volumes {
		if v.Day.Before(before) {
			delete(s.volumes, key)
		}
	}
	return nil
}

func (s *Store) HolderSamplesForHour(_ context.Context, hour time.Time) ([]models.HolderSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.HolderSample
	for _, h := range s.holders {
		if h.Hour.Equal(hour) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenAddress < out[j].TokenAddress })
	return out, nil
}

func (s *Store) InsertHolderSamples(_ context.Context, samples []models.HolderSample) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, h := range samples {
		if h.TokenAddress == "" {
			return inserted, store.ErrInvalidInput
		}
		key := bucketKey(h.TokenAddress, h.Hour)
		if _, exists := s.holders[key]; exists {
			continue
		}
		s.holders[key] = h
		inserted++
	}
	return inserted, nil
}

func (s *Store) PruneHolderSamples(_ context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, h := range s.holders {
		if h.Hour.Before(before) {
			delete(s.holders, key)
		}
	}
	return nil
}

func (s *Store) ListHolderScores(_ context.Context) ([]models.HolderScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.HolderScore, 0, len(s.holderScores))
	for _, h := range s.holderScores {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenAddress < out[j].TokenAddress })
	return out, nil
}

func (s *Store) ReplaceHolderScores(_ context.Context, scores []models.HolderScore) error {
	next := make(map[string]models.HolderScore, len(scores))
	for _, h := range scores {
		next[h.TokenAddress] = h
	}

	s.mu.Lock()
	s.holderScores = next
	s.mu.Unlock()
	return nil
}

func (s *Store) ListScores(_ context.Context) ([]models.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Score, 0, len(s.scores))
	for _, sc := range s.scores {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TokenScore != out[j].TokenScore {
			return out[i].TokenScore > out[j].TokenScore
		}
		return out[i].TokenAddress < out[j].TokenAddress
	})
	return out, nil
}

func (s *Store) ReplaceScores(_ context.Context, scores []models.Score) error {
	next := make(map[string]models.Score, len(scores))
	for _, sc := range scores {
		if sc.TokenAddress == "" {
			return store.ErrInvalidInput
		}
		next[sc.TokenAddress] = sc
	}

	s.mu.Lock()
	s.scores = next
	s.mu.Unlock()
	return nil
}

func (s *Store) ListHourly(_ context.Context) ([]models.ScoreByHour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ScoreByHour, 0, len(s.hourly))
	for _, h := range s.hourly {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenAddress < out[j].TokenAddress })
	return out, nil
}

func (s *Store) HourlyByToken(_ context.Context, tokenAddress string) (*models.ScoreByHour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.hourly[tokenAddress]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &row, nil
}

func (s *Store) WriteHour(_ context.Context, day time.Time, hour int, scores map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for addr, score := range scores {
		row, ok := s.hourly[addr]
		if !ok {
			row = models.ScoreByHour{TokenAddress: addr}
		}
		row.Reset(day)
		if err := row.Slots.Set(hour, score); err != nil {
			return err
		}
		row.UpdatedAt = now
		s.hourly[addr] = row
	}
	return nil
}

func (s *Store) ClearHourly(_ context.Context) error {
	s.mu.Lock()
	s.hourly = make(map[string]models.ScoreByHour)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListDaily(_ context.Context) ([]models.DailyScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DailyScore, 0, len(s.daily))
	for _, d := range s.daily {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenAddress < out[j].TokenAddress })
	return out, nil
}

func (s *Store) ShiftDaily(_ context.Context, averages map[string]float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make([]models.DailyScore, 0, len(s.daily))
	for _, d := range s.daily {
		existing = append(existing, d)
	}
	for _, d := range models.ShiftDailyScores(existing, averages, at) {
		s.daily[d.TokenAddress] = d
	}
	return nil
}

func (s *Store) PurgeDaily(_ context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for addr, d := range s.daily {
		if d.UpdatedAt.Before(before) {
			delete(s.daily, addr)
		}
	}
	return nil
}

func (s *Store) CreateSnapshot(_ context.Context, snap *models.Snapshot) error {
	if snap == nil || snap.Tag == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.snapshots {
		if existing.Tag == snap.Tag && existing.Bucket.Equal(snap.Bucket) {
			return store.ErrDuplicateKey
		}
	}
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	s.snapshots = append(s.snapshots, *snap)
	return nil
}

func (s *Store) LatestSnapshot(_ context.Context, tag string) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Snapshot
	for i := range s.snapshots {
		snap := s.snapshots[i]
		if snap.Tag != tag {
			continue
		}
		if latest == nil || snap.Bucket.After(latest.Bucket) {
			latest = &snap
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

func (s *Store) PruneSnapshots(_ context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.snapshots[:0]
	for _, snap := range s.snapshots {
		if !snap.CreatedAt.Before(before) {
			kept = append(kept, snap)
		}
	}
	s.snapshots = kept
	return nil
}

func (s *Store) ListPositions(_ context.Context, tag string) ([]models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Position
	for _, p := range s.positions {
		if p.SessionTag == tag {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].TokenAddress < out[j].TokenAddress
	})
	return out, nil
}

func (s *Store) SavePositions(_ context.Context, positions []models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range positions {
		if p.TokenAddress == "" || p.SessionTag == "" {
			return store.ErrInvalidInput
		}
		s.positions[positionKey(p.TokenAddress, p.SessionTag)] = p
	}
	return nil
}

func (s *Store) ReplacePositions(_ context.Context, tag string, positions []models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, p := range s.positions {
		if p.SessionTag == tag {
			delete(s.positions, key)
		}
	}
	for _, p := range positions {
		p.SessionTag = tag
		s.positions[positionKey(p.TokenAddress, tag)] = p
	}
	return nil
}

func (s *Store) CreatePortfolioResult(_ context.Context, r *models.PortfolioResult) error {
	if r == nil || r.SessionTag == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.results {
		if existing.SessionTag == r.SessionTag && existing.Day.Equal(r.Day) {
			return store.ErrDuplicateKey
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.results = append(s.results, *r)
	return nil
}

func (s *Store) PortfolioResultsSince(_ context.Context, since time.Time) ([]models.PortfolioResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.PortfolioResult
	for _, r := range s.results {
		if !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) PrunePortfolioResults(_ context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.results[:0]
	for _, r := range s.results {
		if !r.CreatedAt.Before(before) {
			kept = append(kept, r)
		}
	}
	s.results = kept
	return nil
}
