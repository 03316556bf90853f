package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttms-project/backend/internal/models"
)

var trackStart = time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)

func openAt(price float64) models.Position {
	return OpenPosition(models.RankedToken{
		Rank:  1,
		Token: models.Token{Address: "a", Symbol: "AAA", PriceUSD: price},
	}, models.Tag9am, trackStart)
}

func TestOpenPosition(t *testing.T) {
	p := openAt(2.5)
	assert.Equal(t, "a", p.TokenAddress)
	assert.Equal(t, models.Tag9am, p.SessionTag)
	assert.Equal(t, 2.5, p.PriceUSD)
	assert.Equal(t, 2.5, p.ATH)
	assert.Equal(t, 2.5, p.ATL)
	assert.False(t, p.Closed())
	assert.Nil(t, p.ExitPrice)
}

func TestTrackPriceTrailingStop(t *testing.T) {
	p := openAt(100)

	assert.False(t, TrackPrice(&p, 150, trackStart.Add(time.Hour)))
	assert.Equal(t, 150.0, p.ATH)

	assert.False(t, TrackPrice(&p, 143, trackStart.Add(2*time.Hour)))
	assert.False(t, p.Closed())
	assert.Equal(t, 143.0, p.CurrentPrice)

	assert.True(t, TrackPrice(&p, 142, trackStart.Add(3*time.Hour)))
	require.True(t, p.Closed())
	assert.InDelta(t, 142.5, *p.ExitPrice, 1e-9)
	assert.InDelta(t, 42.5, *p.DailyPriceChange, 1e-9)
	assert.Equal(t, models.ExitTrailingStop, p.ExitReason)
	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, trackStart.Add(3*time.Hour), *p.ClosedAt)
}

func TestTrackPriceHardStop(t *testing.T) {
	p := openAt(100)

	assert.True(t, TrackPrice(&p, 94, trackStart.Add(time.Hour)))
	require.True(t, p.Closed())
	assert.InDelta(t, 95, *p.ExitPrice, 1e-9)
	assert.Equal(t, -5.0, *p.DailyPriceChange)
	assert.Equal(t, models.ExitHardStop, p.ExitReason)
}

func TestTrackPriceLowersATL(t *testing.T) {
	p := openAt(100)

	assert.False(t, TrackPrice(&p, 97, trackStart.Add(time.Hour)))
	assert.Equal(t, 97.0, p.ATL)
	assert.False(t, TrackPrice(&p, 98, trackStart.Add(2*time.Hour)))
	assert.Equal(t, 97.0, p.ATL)
	assert.Equal(t, 100.0, p.ATH)
}

func TestTrackPriceTrailingStopBelowEntry(t *testing.T) {
	p := openAt(100)
	require.False(t, TrackPrice(&p, 102, trackStart.Add(time.Hour)))

	// 102 * 0.95 = 96.9: the retrace stop fires before the hard stop level.
	require.True(t, TrackPrice(&p, 90, trackStart.Add(2*time.Hour)))
	assert.Equal(t, models.ExitTrailingStop, p.ExitReason)
	assert.InDelta(t, 96.9, *p.ExitPrice, 1e-9)
	assert.InDelta(t, -3.1, *p.DailyPriceChange, 1e-9)
}

func TestTrackPriceClosedIsTerminal(t *testing.T) {
	p := openAt(100)
	require.True(t, TrackPrice(&p, 90, trackStart.Add(time.Hour)))
	before := p

	assert.False(t, TrackPrice(&p, 500, trackStart.Add(2*time.Hour)))
	assert.Equal(t, before, p)
}

func TestTrackPriceIgnoresBadPrices(t *testing.T) {
	p := openAt(100)
	for _, price := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.False(t, TrackPrice(&p, price, trackStart.Add(time.Hour)))
	}
	assert.Equal(t, 100.0, p.CurrentPrice)
	assert.False(t, p.Closed())
}

func TestAverageResultExcludesOpen(t *testing.T) {
	win, loss, open := openAt(100), openAt(100), openAt(100)
	TrackPrice(&win, 200, trackStart)
	TrackPrice(&win, 150, trackStart) // exit 190, +90
	TrackPrice(&loss, 80, trackStart) // -5
	TrackPrice(&open, 101, trackStart)

	avg, closed, nOpen := AverageResult([]models.Position{win, loss, open})
	assert.InDelta(t, 42.5, avg, 1e-9)
	assert.Equal(t, 2, closed)
	assert.Equal(t, 1, nOpen)
	assert.False(t, math.IsNaN(avg))

	avg, closed, nOpen = AverageResult([]models.Position{open})
	assert.Zero(t, avg)
	assert.Zero(t, closed)
	assert.Equal(t, 1, nOpen)
}
