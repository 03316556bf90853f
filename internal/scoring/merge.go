package scoring

import (
	"sort"
	"time"

	"github.com/ttms-project/backend/internal/models"
)

// BaseBonus is the constant added to every merged token.
const BaseBonus = 20

// MergeInput carries the independently produced partial sets, all keyed by
// models.NormalizeAddress. Any set may be nil.
type MergeInput struct {
	Votes   map[string]VotePartial
	Changes map[string]float64 // price-change score
	Volumes map[string]VolumePartial
	Holders map[string]models.HolderScore
	Tokens  []models.Token
	Now     time.Time
}

// PriceChanges scores every token's change24.
func PriceChanges(tokens []models.Token) map[string]float64 {
	out := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		out[t.Key()] = PriceChangeScore(t.Change24)
	}
	return out
}

// HolderIndex keys holder scores by token.
func HolderIndex(scores []models.HolderScore) map[string]models.HolderScore {
	out := make(map[string]models.HolderScore, len(scores))
	for _, s := range scores {
		out[models.NormalizeAddress(s.TokenAddress)] = s
	}
	return out
}

// Merge unions the partial sets by token, sums the contributions, adds the base
// bonus and the token attribute adjustments (liquidity, age, transaction count),
// and drops every token whose total is not positive. Keys missing from the token
// master table are skipped. The result is ordered by score descending, ties by
// address.
func Merge(in MergeInput) []models.Score {
	tokens := models.TokenIndex(in.Tokens)
	acc := make(map[string]*models.Score)

	entry := func(key string) *models.Score {
		if s, ok := acc[key]; ok {
			return s
		}
		t, ok := tokens[key]
		if !ok {
			return nil
		}
		s := &models.Score{TokenAddress: t.Address, NetworkID: t.NetworkID}
		acc[key] = s
		return s
	}

	for key, v := range in.Votes {
		if s := entry(key); s != nil {
			s.ScoreFromVotes24 = v.ScoreFromVotes24
			s.ScoreFromVotes7d = v.ScoreFromVotes7d
			s.ScoreFromUniqueVoters = v.ScoreFromUniqueVoters
			s.ScoreFromVoteCount = v.ScoreFromVoteCount
			s.TokenScore += v.Total()
		}
	}
	for key, c := range in.Changes {
		if s := entry(key); s != nil && finite(c) {
			s.ScoreFromChange24 = c
			s.TokenScore += c
		}
	}
	for key, v := range in.Volumes {
		if s := entry(key); s != nil {
			s.VolumePercentage = v.VolumePercentage
			s.ScoreFromVolume = v.Total()
			s.TokenScore += v.Total()
		}
	}
	for key, h := range in.Holders {
		if s := entry(key); s != nil {
			s.HoldersCount = h.HoldersCount
			s.HoldersCountScore = h.HoldersCountScore
			s.Holders1hScore = h.Holders1hScore
			s.Holders24hScore = h.Holders24hScore
			s.TokenScore += h.Total()
		}
	}

	now := in.Now.Unix()
	out := make([]models.Score, 0, len(acc))
	for key, s := range acc {
		t := tokens[key]
		s.AIScore = BaseBonus
		s.LiquidityScore = LiquidityCurve.Eval(t.Liquidity)
		s.TokenAgeScore = TokenAgeScore(t.CreatedAt, now)
		s.TxnCount24Score = TxnCountCurve.Eval(float64(t.TxnCount24))
		s.TokenScore += s.AIScore + s.LiquidityScore + s.TokenAgeScore + s.TxnCount24Score
		if !finite(s.TokenScore) || s.TokenScore <= 0 {
			continue
		}
		s.CreatedAt = in.Now
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TokenScore != out[j].TokenScore {
			return out[i].TokenScore > out[j].TokenScore
		}
		return out[i].TokenAddress < out[j].TokenAddress
	})
	return out
}

// Rank joins scores with their tokens and returns at most limit entries
// (all when limit <= 0), preserving score order.
func Rank(scores []models.Score, tokens []models.Token, limit int) []models.RankedToken {
	index := models.TokenIndex(tokens)
	out := make([]models.RankedToken, 0, len(scores))
	for _, s := range scores {
		t, ok := index[models.NormalizeAddress(s.TokenAddress)]
		if !ok {
			continue
		}
		out = append(out, models.RankedToken{Rank: len(out) + 1, Token: t, Score: s})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
