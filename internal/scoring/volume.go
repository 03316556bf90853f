package scoring

import "github.com/ttms-project/backend/internal/models"

// VolumePartial is the volume-derived contribution of one token.
type VolumePartial struct {
	VolumePercentage float64 `json:"volume_percentage"`
	ScoreFromVolume  float64 `json:"score_from_volume"`
	LowVolume        bool    `json:"low_volume"`
}

// Total is the curve score plus the low-volume penalty.
func (v VolumePartial) Total() float64 {
	if v.LowVolume {
		return v.ScoreFromVolume + LowVolumePenalty
	}
	return v.ScoreFromVolume
}

// ScoreVolume compares a token's newer day sample with the one a day earlier.
// change24Percentage selects the curve branch. ok is false when the earlier
// sample cannot serve as a baseline.
func ScoreVolume(current, previous models.VolumeSample, change24Percentage float64) (VolumePartial, bool) {
	pct, ok := VolumePercentage(current.Volume24, previous.Volume24)
	if !ok {
		if finite(previous.Volume24) && previous.Volume24 >= 0 && previous.Volume24 < LowVolumeThreshold {
			return VolumePartial{LowVolume: true}, true
		}
		return VolumePartial{}, false
	}
	return VolumePartial{
		VolumePercentage: pct,
		ScoreFromVolume:  VolumeScore(pct, change24Percentage),
		LowVolume:        previous.Volume24 < LowVolumeThreshold,
	}, true
}

// ScoreVolumes joins the two day buckets by token. The price-change gate comes
// from the token master table when the token is present there, else from the
// newer sample.
func ScoreVolumes(current, previous []models.VolumeSample, tokens map[string]models.Token) map[string]VolumePartial {
	prevByKey := make(map[string]models.VolumeSample, len(previous))
	for _, s := range previous {
		prevByKey[models.NormalizeAddress(s.TokenAddress)] = s
	}

	out := make(map[string]VolumePartial, len(current))
	for _, cur := range current {
		key := models.NormalizeAddress(cur.TokenAddress)
		prev, ok := prevByKey[key]
		if !ok {
			continue
		}
		change := cur.Change24
		if t, ok := tokens[key]; ok {
			change = t.Change24
		}
		if p, ok := ScoreVolume(cur, prev, change*100); ok {
			out[key] = p
		}
	}
	return out
}
