package scoring

import (
	"time"

	"github.com/ttms-project/backend/internal/models"
)

// ScoreHolders scores the latest holder samples against the samples taken one
// hour and one day earlier. Growth components stay zero when the older sample is
// missing or had no holders.
func ScoreHolders(now, hourAgo, dayAgo []models.HolderSample, at time.Time) []models.HolderScore {
	h1 := indexHolders(hourAgo)
	h24 := indexHolders(dayAgo)

	out := make([]models.HolderScore, 0, len(now))
	seen := make(map[string]struct{}, len(now))
	for _, s := range now {
		key := models.NormalizeAddress(s.TokenAddress)
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		seen[key] = struct{}{}

		hs := models.HolderScore{
			TokenAddress:      key,
			HoldersCount:      s.HoldersCount,
			HoldersCountScore: HolderCountCurve.Eval(float64(s.HoldersCount)),
			UpdatedAt:         at,
		}
		if prev, ok := h1[key]; ok {
			if g, ok := GrowthPercent(float64(s.HoldersCount), float64(prev)); ok {
				hs.Growth1h = &g
				hs.Holders1hScore = HolderGrowth1hCurve.Eval(g)
			}
		}
		if prev, ok := h24[key]; ok {
			if g, ok := GrowthPercent(float64(s.HoldersCount), float64(prev)); ok {
				hs.Growth24h = &g
				hs.Holders24hScore = HolderGrowth24hCurve.Eval(g)
			}
		}
		out = append(out, hs)
	}
	return out
}

func indexHolders(samples []models.HolderSample) map[string]int64 {
	out := make(map[string]int64, len(samples))
	for _, s := range samples {
		out[models.NormalizeAddress(s.TokenAddress)] = s.HoldersCount
	}
	return out
}
