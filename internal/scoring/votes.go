package scoring

import (
	"time"

	"github.com/ttms-project/backend/internal/models"
)

// Vote lookback windows.
const (
	VoteWindow24h = 24 * time.Hour
	VoteWindow7d  = 7 * 24 * time.Hour
)

// VotePartial is the vote-derived contribution of one token.
type VotePartial struct {
	Votes24      int `json:"votes_24"`
	Votes7d      int `json:"votes_7d"`
	UniqueVoters int `json:"unique_voters"`

	ScoreFromVotes24      float64 `json:"score_from_votes_24"`
	ScoreFromVotes7d      float64 `json:"score_from_votes_7d"`
	ScoreFromUniqueVoters float64 `json:"score_from_unique_voters"`
	ScoreFromVoteCount    float64 `json:"score_from_vote_count"`
}

// Total sums the four vote components.
func (v VotePartial) Total() float64 {
	return v.ScoreFromVotes24 + v.ScoreFromVotes7d + v.ScoreFromUniqueVoters + v.ScoreFromVoteCount
}

type voteTally struct {
	votes24 int
	votes7d int
	wallets map[string]struct{}
}

// ScoreVotes tallies votes cast within 7 days of now and scores each token by its
// share of all tokens' combined counts. Votes older than 7 days or in the future
// are ignored. A window with no votes contributes zero.
func ScoreVotes(votes []models.Vote, now time.Time) map[string]VotePartial {
	tallies := make(map[string]*voteTally)
	since24 := now.Add(-VoteWindow24h)
	since7d := now.Add(-VoteWindow7d)

	for _, v := range votes {
		if v.CreatedAt.Before(since7d) || v.CreatedAt.After(now) {
			continue
		}
		key := models.NormalizeAddress(v.TokenAddress)
		if key == "" {
			continue
		}
		t, ok := tallies[key]
		if !ok {
			t = &voteTally{wallets: make(map[string]struct{})}
			tallies[key] = t
		}
		t.votes7d++
		if !v.CreatedAt.Before(since24) {
			t.votes24++
			t.wallets[v.WalletAddress] = struct{}{}
		}
	}

	var total24, total7d, totalUnique int
	for _, t := range tallies {
		total24 += t.votes24
		total7d += t.votes7d
		totalUnique += len(t.wallets)
	}

	out := make(map[string]VotePartial, len(tallies))
	for key, t := range tallies {
		p := VotePartial{
			Votes24:      t.votes24,
			Votes7d:      t.votes7d,
			UniqueVoters: len(t.wallets),
		}
		p.ScoreFromVotes24 = Votes24Curve.Eval(share(t.votes24, total24))
		p.ScoreFromVotes7d = Votes7dCurve.Eval(share(t.votes7d, total7d))
		p.ScoreFromUniqueVoters = UniqueVoterCurve.Eval(share(len(t.wallets), totalUnique))
		p.ScoreFromVoteCount = VoteCountCurve.Eval(float64(t.votes24))
		out[key] = p
	}
	return out
}

// share returns n as a percentage of total, or 0 when total is zero.
func share(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
