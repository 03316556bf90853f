package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ttms-project/backend/internal/codex"
	"github.com/ttms-project/backend/internal/models"
)

func num(v float64) codex.Number {
	return codex.Number{Decimal: decimal.NewFromFloat(v), Valid: true}
}

type sourceToken struct {
	Address   string
	CreatedAt int64
	Price     float64
	Change24  float64
	Volume24  float64
	Holders   int64
	Liquidity float64
}

func (t sourceToken) result() codex.TokenResult {
	return codex.TokenResult{
		Token:      codex.EnhancedToken{Address: t.Address, NetworkID: 8453, Symbol: "S" + t.Address},
		PriceUSD:   num(t.Price),
		Change24:   num(t.Change24),
		Liquidity:  num(t.Liquidity),
		Volume24:   num(t.Volume24),
		TxnCount24: num(100),
		Holders:    num(float64(t.Holders)),
		CreatedAt:  num(float64(t.CreatedAt)),
	}
}

// fakeSource answers filterTokens from an in-memory list sorted by creation time.
type fakeSource struct {
	mu     sync.Mutex
	tokens []sourceToken
	err    error
	calls  []codex.FilterParams
}

func newFakeSource(tokens ...sourceToken) *fakeSource {
	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].CreatedAt < tokens[j].CreatedAt })
	return &fakeSource{tokens: tokens}
}

func (f *fakeSource) FilterTokens(_ context.Context, p codex.FilterParams) ([]codex.TokenResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	if f.err != nil {
		return nil, f.err
	}

	if len(p.Tokens) > 0 {
		want := make(map[string]struct{}, len(p.Tokens))
		for _, a := range p.Tokens {
			want[a] = struct{}{}
		}
		var out []codex.TokenResult
		for _, t := range f.tokens {
			if _, ok := want[t.Address]; ok {
				out = append(out, t.result())
			}
		}
		return out, nil
	}

	var filtered []sourceToken
	for _, t := range f.tokens {
		if t.CreatedAt > p.CreatedAfter {
			filtered = append(filtered, t)
		}
	}
	if p.Offset >= len(filtered) {
		return nil, nil
	}
	end := len(filtered)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	out := make([]codex.TokenResult, 0, end-p.Offset)
	for _, t := range filtered[p.Offset:end] {
		out = append(out, t.result())
	}
	return out, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func sourceTokens(n int) []sourceToken {
	out := make([]sourceToken, n)
	for i := range out {
		out[i] = sourceToken{
			Address:   fmt.Sprintf("tok%03d", i),
			CreatedAt: int64(1_700_000_000 + i*60),
			Price:     1,
			Liquidity: 20000,
			Volume24:  1000,
			Holders:   500,
		}
	}
	return out
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testToken(addr string, price float64) models.Token {
	return models.Token{
		Address:    addr,
		NetworkID:  8453,
		Symbol:     "S" + addr,
		PriceUSD:   price,
		Liquidity:  20000,
		TxnCount24: 100,
		CreatedAt:  1_600_000_000,
	}
}
