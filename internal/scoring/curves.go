// Package scoring holds the pure scoring math of the TTMS pipeline: piecewise-linear
// score curves, the per-source aggregations, the keyed merge, and the portfolio
// position state machine. Nothing in this package touches storage or the network.
package scoring

import "math"

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

// Segment maps [From, To) linearly from Y0 to Y1. Flat segments have Y0 == Y1
// and may use infinite bounds.
type Segment struct {
	From, To float64
	Y0, Y1   float64
}

// Curve is an ordered list of non-overlapping segments.
type Curve []Segment

// Eval returns the curve value at x. NaN and infinite inputs, and inputs that
// fall in a gap between segments, contribute 0.
func (c Curve) Eval(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	for _, s := range c {
		if x < s.From || x >= s.To {
			continue
		}
		if s.Y0 == s.Y1 {
			return s.Y0
		}
		return s.Y0 + (x-s.From)*(s.Y1-s.Y0)/(s.To-s.From)
	}
	return 0
}

// Breakpoints lists the finite segment bounds, in order and without duplicates.
func (c Curve) Breakpoints() []float64 {
	var out []float64
	for _, s := range c {
		for _, b := range []float64{s.From, s.To} {
			if math.IsInf(b, 0) {
				continue
			}
			if len(out) > 0 && out[len(out)-1] == b {
				continue
			}
			out = append(out, b)
		}
	}
	return out
}

// PriceChangeCurve scores the 24h price change in percent.
var PriceChangeCurve = Curve{
	{negInf, -50, -15, -15},
	{-50, -30, -15, 0},
	{-30, 0, 0, 0},
	{0, 15, 0, 15},
	{15, 50, 15, 15},
	{50, 100, 15, 0},
	{100, 400, 0, -15},
	{400, posInf, -15, -15},
}

// VolumeCurve scores the day-over-day volume percentage while the price is holding up
// (24h change >= -50%). Declines are negative percentages of the drop; growth is today/previous*100.
var VolumeCurve = Curve{
	{negInf, -100, -10, -10},
	{-100, -50, -10, -5},
	{-50, 0, -5, 0},
	{0, 100, 0, 0},
	{100, 200, 0, 8},
	{200, 300, 8, 0},
	{300, 900, 0, -10},
	{900, posInf, -10, -10},
}

// VolumeCrashCurve scores the volume percentage while the price has collapsed (24h change < -50%).
var VolumeCrashCurve = Curve{
	{negInf, -50, -10, -10},
	{-50, 0, -10, -5},
	{0, 100, -5, -5},
	{100, 200, -5, -2},
	{200, 300, -2, -5},
	{300, 900, -5, -10},
	{900, posInf, -10, -10},
}

// HolderCountCurve scores the absolute holder count.
var HolderCountCurve = Curve{
	{negInf, 50, 0, 0},
	{50, 200, 0, 12},
	{200, 3000, 12, 12},
	{3000, 10000, 12, 1},
	{10000, posInf, 1, 1},
}

// growthCurve builds the up-then-down-then-negative holder growth shape capped at max.
func growthCurve(max float64) Curve {
	return Curve{
		{negInf, 0, 0, 0},
		{0, 50, 0, max},
		{50, 100, max, max},
		{100, 200, max, 0},
		{200, 300, 0, -max / 2},
		{300, posInf, -max / 2, -max / 2},
	}
}

var (
	// HolderGrowth1hCurve scores the 1h holder growth in percent.
	HolderGrowth1hCurve = growthCurve(18)
	// HolderGrowth24hCurve scores the 24h holder growth in percent.
	HolderGrowth24hCurve = growthCurve(12)
)

// capped builds a curve rising linearly from 0 at 0 to max at threshold, flat afterwards.
func capped(threshold, max float64) Curve {
	return Curve{
		{negInf, 0, 0, 0},
		{0, threshold, 0, max},
		{threshold, posInf, max, max},
	}
}

var (
	// UniqueVoterCurve scores a token's share (percent) of today's unique voters.
	UniqueVoterCurve = capped(8, 6)
	// Votes24Curve scores a token's share (percent) of the last 24h votes.
	Votes24Curve = capped(10, 3)
	// Votes7dCurve scores a token's share (percent) of the last 7d votes.
	Votes7dCurve = capped(5, 3)
	// VoteCountCurve scores the raw 24h vote count.
	VoteCountCurve = capped(100, 3)
)

// LiquidityCurve scores pool liquidity in USD.
var LiquidityCurve = Curve{
	{negInf, 5000, -99, -99},
	{5000, 10000, 1, 1},
	{10000, 50000, 10, 10},
	{50000, 500000, 10, 1},
	{500000, posInf, 1, 1},
}

// TokenAgeCurve penalizes young tokens; input is age in hours.
var TokenAgeCurve = Curve{
	{negInf, 24, -40, -40},
	{24, 48, -20, -20},
	{48, 72, -10, -10},
	{72, posInf, 0, 0},
}

// TxnCountCurve penalizes thin trading; input is the 24h transaction count.
var TxnCountCurve = Curve{
	{negInf, 10, -50, -50},
	{10, 20, -5, -5},
	{20, posInf, 0, 0},
}

// LowVolumeThreshold is the earlier-day volume (USD) below which LowVolumePenalty applies.
const LowVolumeThreshold = 500

// LowVolumePenalty is added when the earlier-day volume sample is below LowVolumeThreshold.
const LowVolumePenalty = -50

// PriceChangeScore scores change24 given as a signed decimal fraction (0.1 = +10%).
func PriceChangeScore(change24 float64) float64 {
	return PriceChangeCurve.Eval(change24 * 100)
}

// VolumeScore picks the volume curve by the concurrent price change (percent).
func VolumeScore(volumePercentage, change24Percentage float64) float64 {
	if math.IsNaN(change24Percentage) {
		return 0
	}
	if change24Percentage >= -50 {
		return VolumeCurve.Eval(volumePercentage)
	}
	return VolumeCrashCurve.Eval(volumePercentage)
}

// VolumePercentage derives the directional day-over-day volume figure.
// Growth is current/previous*100; a decline is the negated percentage drop.
// ok is false when previous is not a usable positive number.
func VolumePercentage(current, previous float64) (float64, bool) {
	if !finite(current) || !finite(previous) || previous <= 0 || current < 0 {
		return 0, false
	}
	if current >= previous {
		return current / previous * 100, true
	}
	return -(previous - current) / previous * 100, true
}

// GrowthPercent returns (current-previous)/previous*100; ok is false without a positive previous value.
func GrowthPercent(current, previous float64) (float64, bool) {
	if !finite(current) || !finite(previous) || previous <= 0 {
		return 0, false
	}
	return (current - previous) / previous * 100, true
}

// TokenAgeScore scores a token created at createdAt (unix seconds) as of now (unix seconds).
// An unknown creation time contributes nothing.
func TokenAgeScore(createdAt, now int64) float64 {
	if createdAt <= 0 {
		return 0
	}
	hours := float64(now-createdAt) / 3600
	return TokenAgeCurve.Eval(hours)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
