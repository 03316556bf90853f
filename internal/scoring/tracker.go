package scoring

import (
	"time"

	"github.com/ttms-project/backend/internal/models"
)

// StopRatio is the fraction of the reference price at which a stop fires.
const StopRatio = 0.95

// HardStopResult is the fixed result of a hard-stopped position, in percent.
const HardStopResult = -5

// OpenPosition seeds a position for session tag from a ranked entry.
func OpenPosition(r models.RankedToken, tag string, at time.Time) models.Position {
	price := r.Token.PriceUSD
	return models.Position{
		TokenAddress: r.Token.Address,
		SessionTag:   tag,
		Symbol:       r.Token.Symbol,
		Rank:         r.Rank,
		PriceUSD:     price,
		CurrentPrice: price,
		ATH:          price,
		ATL:          price,
		OpenedAt:     at,
		UpdatedAt:    at,
	}
}

// TrackPrice advances an open position with the latest price and reports whether
// this update closed it. Closed positions and unusable prices are left untouched.
//
// Once the high-water mark is above entry, a retrace to ATH*StopRatio closes the
// position at that level. Without a gain, a drop to entry*StopRatio closes it at
// HardStopResult.
func TrackPrice(p *models.Position, price float64, at time.Time) bool {
	if p.Closed() || !finite(price) || price <= 0 || p.PriceUSD <= 0 {
		return false
	}
	entry := p.PriceUSD
	p.CurrentPrice = price
	p.UpdatedAt = at

	if p.ATH > entry && price <= p.ATH*StopRatio {
		closePosition(p, p.ATH*StopRatio, (p.ATH*StopRatio-entry)/(entry/100), models.ExitTrailingStop, at)
		return true
	}
	if price >= entry {
		if price > p.ATH {
			p.ATH = price
		}
		return false
	}
	if price <= entry*StopRatio {
		closePosition(p, entry*StopRatio, HardStopResult, models.ExitHardStop, at)
		return true
	}
	if price < p.ATL {
		p.ATL = price
	}
	return false
}

func closePosition(p *models.Position, exit, change float64, reason string, at time.Time) {
	p.ExitPrice = &exit
	p.DailyPriceChange = &change
	p.ExitReason = reason
	closedAt := at
	p.ClosedAt = &closedAt
}

// AverageResult is the mean result of the closed positions. Open positions are
// counted but do not enter the mean; with nothing closed the average is 0.
func AverageResult(positions []models.Position) (avg float64, closed, open int) {
	var sum float64
	for _, p := range positions {
		if !p.Closed() {
			open++
			continue
		}
		sum += *p.DailyPriceChange
		closed++
	}
	if closed == 0 {
		return 0, 0, open
	}
	return sum / float64(closed), closed, open
}
