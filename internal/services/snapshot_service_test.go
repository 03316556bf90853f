package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/notify"
	"github.com/ttms-project/backend/internal/store"
	"github.com/ttms-project/backend/internal/store/memory"
)

type recordingSink struct {
	mu    sync.Mutex
	name  string
	err   error
	texts []string
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) PublishMessage(_ context.Context, _ string, text string, _ notify.Format) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.err
}

func (r *recordingSink) PublishSocialPost(_ context.Context, text string, _ []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.err
}

func seedScores(t *testing.T, st *memory.Store, n int) {
	t.Helper()
	ctx := context.Background()
	tokens := make([]models.Token, 0, n)
	scores := make([]models.Score, 0, n)
	for i := 0; i < n; i++ {
		addr := string(rune('a' + i))
		tokens = append(tokens, testToken(addr, float64(i+1)))
		scores = append(scores, models.Score{TokenAddress: addr, TokenScore: float64(100 - i)})
	}
	require.NoError(t, st.ReplaceTokens(ctx, tokens))
	require.NoError(t, st.ReplaceScores(ctx, scores))
}

func TestSnapshotTakeKeepsTopN(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedScores(t, st, 5)
	svc := &SnapshotService{Store: st, TopN: 3}

	snap, err := svc.Take(ctx, models.Tag9am, testNow.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.HourBucket(testNow), snap.Bucket)

	entries, err := snap.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Token.Address)
	assert.Equal(t, 3, entries[2].Rank)

	latest, err := st.LatestSnapshot(ctx, models.Tag9am)
	require.NoError(t, err)
	assert.Equal(t, snap.Bucket, latest.Bucket)
}

func TestSnapshotTakeDuplicateBucket(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedScores(t, st, 2)
	svc := &SnapshotService{Store: st, TopN: 10}

	first, err := svc.Take(ctx, models.Tag3pm, testNow)
	require.NoError(t, err)

	again, err := svc.Take(ctx, models.Tag3pm, testNow.Add(20*time.Minute))
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
	require.NotNil(t, again)
	assert.Equal(t, first.Bucket, again.Bucket)
}

func TestSnapshotTakeRejectsUnknownTag(t *testing.T) {
	_, err := (&SnapshotService{Store: memory.New()}).Take(context.Background(), "noon", testNow)
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestSnapshotTakePrunesOldSnapshots(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedScores(t, st, 1)
	svc := &SnapshotService{Store: st, TopN: 10}

	_, err := svc.Take(ctx, models.Tag3am, testNow.Add(-25*time.Hour))
	require.NoError(t, err)
	_, err = svc.Take(ctx, models.Tag9am, testNow)
	require.NoError(t, err)

	_, err = st.LatestSnapshot(ctx, models.Tag3am)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSnapshotAnnounce(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedScores(t, st, 12)

	chat := &recordingSink{name: "chat"}
	social := &recordingSink{name: "social", err: errors.New("rate limited")}
	svc := &SnapshotService{
		Store:    st,
		Notifier: notify.NewNotifier([]string{"c1", "c2"}, []notify.MessageSink{chat}, []notify.SocialSink{social}),
		TopN:     20,
	}

	snap, err := svc.Take(ctx, models.Tag9pm, testNow)
	require.NoError(t, err)
	require.NoError(t, svc.Announce(ctx, snap))

	require.Len(t, chat.texts, 2)
	assert.Contains(t, chat.texts[0], "TTMS top 10 · 9pm PST")
	assert.Contains(t, chat.texts[0], "1. $Sa  100.0")
	assert.NotContains(t, chat.texts[0], "11. ")
	assert.Len(t, social.texts, 1)
}

func TestFormatAnnouncementShowsChange(t *testing.T) {
	tok := testToken("a", 1)
	tok.Change24 = 0.125
	snap := &models.Snapshot{Tag: models.Tag3am, Bucket: testNow}
	text := FormatAnnouncement(snap, []models.RankedToken{{Rank: 1, Token: tok, Score: models.Score{TokenScore: 42}}}, 10)

	assert.Equal(t, "TTMS top 1 · 3am PST · 2025-03-10\n1. $Sa  42.0  (+12.5%)", text)
}
