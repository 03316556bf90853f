package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttms-project/backend/internal/models"
)

var mergeNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// healthyToken has no liquidity, age or transaction penalties and +1 liquidity.
func healthyToken(addr string) models.Token {
	return models.Token{
		Address:    addr,
		NetworkID:  8453,
		Symbol:     "TKN",
		PriceUSD:   1,
		Liquidity:  6000,
		TxnCount24: 100,
		CreatedAt:  mergeNow.Add(-30 * 24 * time.Hour).Unix(),
	}
}

func TestMergeSingleSet(t *testing.T) {
	tok := healthyToken("tokA")

	scores := Merge(MergeInput{
		Votes:  map[string]VotePartial{"tokA": {ScoreFromVotes24: 3, ScoreFromVoteCount: 1.5}},
		Tokens: []models.Token{tok},
		Now:    mergeNow,
	})

	require.Len(t, scores, 1)
	s := scores[0]
	assert.Equal(t, "tokA", s.TokenAddress)
	assert.Equal(t, 8453, s.NetworkID)
	assert.InDelta(t, 4.5+BaseBonus+1, s.TokenScore, 1e-9)
	assert.Equal(t, float64(BaseBonus), s.AIScore)
	assert.Equal(t, 1.0, s.LiquidityScore)
	assert.Zero(t, s.ScoreFromChange24)
	assert.Zero(t, s.ScoreFromVolume)
}

func TestMergeOuterUnion(t *testing.T) {
	a, b, c := healthyToken("tokA"), healthyToken("tokB"), healthyToken("tokC")

	scores := Merge(MergeInput{
		Votes:   map[string]VotePartial{"tokA": {ScoreFromUniqueVoters: 6}},
		Changes: map[string]float64{"tokA": 10, "tokB": 15},
		Volumes: map[string]VolumePartial{"tokC": {VolumePercentage: 200, ScoreFromVolume: 8}},
		Holders: map[string]models.HolderScore{"tokB": {HoldersCount: 500, HoldersCountScore: 12}},
		Tokens:  []models.Token{a, b, c},
		Now:     mergeNow,
	})

	require.Len(t, scores, 3)
	byAddr := map[string]models.Score{}
	for _, s := range scores {
		byAddr[s.TokenAddress] = s
	}
	assert.InDelta(t, 6+10+21, byAddr["tokA"].TokenScore, 1e-9)
	assert.InDelta(t, 15+12+21, byAddr["tokB"].TokenScore, 1e-9)
	assert.Equal(t, int64(500), byAddr["tokB"].HoldersCount)
	assert.InDelta(t, 8+21, byAddr["tokC"].TokenScore, 1e-9)
	assert.Equal(t, 200.0, byAddr["tokC"].VolumePercentage)

	assert.Equal(t, "tokB", scores[0].TokenAddress)
	assert.Equal(t, "tokA", scores[1].TokenAddress)
	assert.Equal(t, "tokC", scores[2].TokenAddress)
}

func TestMergeSkipsUnknownTokens(t *testing.T) {
	scores := Merge(MergeInput{
		Changes: map[string]float64{"ghost": 15, "tokA": 1},
		Tokens:  []models.Token{healthyToken("tokA")},
		Now:     mergeNow,
	})
	require.Len(t, scores, 1)
	assert.Equal(t, "tokA", scores[0].TokenAddress)
}

func TestMergeDropsNonPositive(t *testing.T) {
	thin := healthyToken("thin")
	thin.Liquidity = 1000 // -99

	young := healthyToken("young")
	young.CreatedAt = mergeNow.Add(-2 * time.Hour).Unix()
	young.TxnCount24 = 5 // -40 -50

	exact := healthyToken("exact")

	scores := Merge(MergeInput{
		Changes: map[string]float64{"thin": 15, "young": 15, "exact": 0},
		Volumes: map[string]VolumePartial{"exact": {LowVolume: true, ScoreFromVolume: 29}},
		Tokens:  []models.Token{thin, young, exact},
		Now:     mergeNow,
	})

	// exact: 0 + (29-50) + 20 + 1 = 0, which is dropped too.
	assert.Empty(t, scores)
}

func TestMergeAppliesVolumeLowPenalty(t *testing.T) {
	scores := Merge(MergeInput{
		Changes: map[string]float64{"tokA": 15},
		Volumes: map[string]VolumePartial{"tokA": {LowVolume: true, ScoreFromVolume: 20}},
		Tokens:  []models.Token{healthyToken("tokA")},
		Now:     mergeNow,
	})
	require.Len(t, scores, 1)
	assert.InDelta(t, 15+20-50+21, scores[0].TokenScore, 1e-9)
	assert.InDelta(t, -30, scores[0].ScoreFromVolume, 1e-9)
}

func TestMergeNormalizesHexAddresses(t *testing.T) {
	const mixed = "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"
	tok := healthyToken(mixed)
	key := models.NormalizeAddress(mixed)

	scores := Merge(MergeInput{
		Changes: map[string]float64{key: 5},
		Holders: map[string]models.HolderScore{key: {HoldersCountScore: 2}},
		Tokens:  []models.Token{tok},
		Now:     mergeNow,
	})
	require.Len(t, scores, 1)
	assert.Equal(t, mixed, scores[0].TokenAddress)
	assert.InDelta(t, 5+2+21, scores[0].TokenScore, 1e-9)
}

func TestMergeIsDeterministic(t *testing.T) {
	in := MergeInput{
		Changes: map[string]float64{"b": 5, "a": 5, "c": 7},
		Tokens:  []models.Token{healthyToken("a"), healthyToken("b"), healthyToken("c")},
		Now:     mergeNow,
	}
	first := Merge(in)
	second := Merge(in)
	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{first[0].TokenAddress, first[1].TokenAddress, first[2].TokenAddress})
}

func TestRank(t *testing.T) {
	tokens := []models.Token{healthyToken("a"), healthyToken("b"), healthyToken("c")}
	scores := []models.Score{{TokenAddress: "c", TokenScore: 9}, {TokenAddress: "x", TokenScore: 8}, {TokenAddress: "a", TokenScore: 7}, {TokenAddress: "b", TokenScore: 6}}

	ranked := Rank(scores, tokens, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "c", ranked[0].Token.Address)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, "a", ranked[1].Token.Address)

	assert.Len(t, Rank(scores, tokens, 0), 3)
}
