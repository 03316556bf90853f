package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/scoring"
	"github.com/ttms-project/backend/internal/store/memory"
)

func snapshotOf(t *testing.T, tag string, bucket time.Time, tokens ...models.Token) *models.Snapshot {
	t.Helper()
	ranked := make([]models.RankedToken, 0, len(tokens))
	for i, tok := range tokens {
		ranked = append(ranked, models.RankedToken{Rank: i + 1, Token: tok})
	}
	payload, err := json.Marshal(ranked)
	require.NoError(t, err)
	return &models.Snapshot{Tag: tag, Bucket: bucket, Ranking: datatypes.JSON(payload), CreatedAt: bucket}
}

func setPrice(t *testing.T, st *memory.Store, addr string, price float64) {
	t.Helper()
	require.NoError(t, st.ReplaceTokens(context.Background(), []models.Token{testToken(addr, price)}))
}

func TestPortfolioSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewPortfolioService(st)
	open := models.HourBucket(testNow)

	snap := snapshotOf(t, models.Tag9am, open, testToken("a", 100), testToken("zero", 0))
	require.NoError(t, svc.Rotate(ctx, models.Tag9am, snap, open.Add(time.Minute)))

	positions, err := svc.Positions(ctx, models.Tag9am)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 100.0, positions[0].PriceUSD)

	// rotating again in the same hour changes nothing
	require.NoError(t, svc.Rotate(ctx, models.Tag9am, snapshotOf(t, models.Tag9am, open, testToken("b", 5)), open.Add(30*time.Minute)))
	positions, _ = svc.Positions(ctx, models.Tag9am)
	require.Len(t, positions, 1)
	assert.Equal(t, "a", positions[0].TokenAddress)

	for i, price := range []float64{150, 143, 142} {
		setPrice(t, st, "a", price)
		closed, err := svc.Refresh(ctx, open.Add(time.Duration(i+1)*time.Hour))
		require.NoError(t, err)
		if price == 142 {
			assert.Equal(t, 1, closed)
		} else {
			assert.Zero(t, closed)
		}
	}
	positions, _ = svc.Positions(ctx, models.Tag9am)
	require.True(t, positions[0].Closed())
	assert.InDelta(t, 42.5, *positions[0].DailyPriceChange, 1e-9)
	assert.Equal(t, models.ExitTrailingStop, positions[0].ExitReason)

	next := open.Add(24 * time.Hour)
	require.NoError(t, svc.Rotate(ctx, models.Tag9am, snapshotOf(t, models.Tag9am, next, testToken("c", 2)), next))

	positions, _ = svc.Positions(ctx, models.Tag9am)
	require.Len(t, positions, 1)
	assert.Equal(t, "c", positions[0].TokenAddress)

	results, err := st.PortfolioResultsSince(ctx, open)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ClosedCount)
	assert.InDelta(t, 42.5, results[0].AverageResult, 1e-9)

	ret, err := svc.Returns(ctx, "24h", next)
	require.NoError(t, err)
	assert.Equal(t, 1, ret.Sessions)
	assert.InDelta(t, 42.5, ret.Average, 1e-9)
}

func TestPortfolioRefreshHardStop(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.ReplacePositions(ctx, models.Tag9pm, []models.Position{
		scoring.OpenPosition(models.RankedToken{Rank: 1, Token: testToken("a", 100)}, models.Tag9pm, testNow),
	}))
	setPrice(t, st, "a", 94)

	closed, err := NewPortfolioService(st).Refresh(ctx, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	positions, _ := st.ListPositions(ctx, models.Tag9pm)
	require.Len(t, positions, 1)
	assert.Equal(t, float64(scoring.HardStopResult), *positions[0].DailyPriceChange)
	assert.InDelta(t, 95, *positions[0].ExitPrice, 1e-9)
}

func TestPortfolioReturnsSkipsEmptySessions(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	for i, r := range []models.PortfolioResult{
		{SessionTag: models.Tag9am, AverageResult: 10, ClosedCount: 2},
		{SessionTag: models.Tag9pm, AverageResult: 0, ClosedCount: 0, OpenCount: 5},
		{SessionTag: models.Tag9am, AverageResult: -4, ClosedCount: 1},
	} {
		r := r
		r.Day = models.DayBucket(testNow).AddDate(0, 0, -i)
		r.CreatedAt = testNow.Add(-time.Duration(i) * 24 * time.Hour)
		require.NoError(t, st.CreatePortfolioResult(ctx, &r))
	}
	svc := NewPortfolioService(st)

	week, err := svc.Returns(ctx, "7d", testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, week.Sessions)
	assert.InDelta(t, 3, week.Average, 1e-9)

	day, err := svc.Returns(ctx, "24h", testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, day.Sessions)

	_, err = svc.Returns(ctx, "1y", testNow)
	assert.ErrorIs(t, err, ErrUnknownWindow)
}

func TestPortfolioRejectsUnknownTag(t *testing.T) {
	svc := NewPortfolioService(memory.New())
	_, err := svc.Positions(context.Background(), models.Tag3am)
	assert.ErrorIs(t, err, ErrUnknownTag)
}
