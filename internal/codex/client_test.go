package codex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const pageJSON = `{"data":{"filterTokens":{"count":2,"page":0,"results":[
 {"token":{"address":"0xAbCdEf0123456789aBcDeF0123456789AbCdEf01","networkId":8453,"symbol":"AAA","name":"Token A","info":{"imageSmallUrl":"https://img/a.png"}},
  "priceUSD":"0.0012","change24":"0.15","liquidity":"12500.5","volume24":"9800","txnCount24":321,"holders":1500,"createdAt":1700000000,
  "quoteToken":"token1","pair":{"address":"0xpair"}},
 {"token":{"address":"So11111111111111111111111111111111111111112","networkId":1399811149,"symbol":"BBB","name":"Token B"},
  "priceUSD":"n/a","change24":null,"liquidity":7000,"volume24":"","txnCount24":"12","holders":null,"createdAt":"1700003600"}
]}}}`

func newTestClient(url string) *Client {
	return &Client{
		BaseURL:    url,
		APIKey:     "secret",
		HTTPClient: &http.Client{Timeout: time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
}

func TestFilterTokens(t *testing.T) {
	var got graphQLRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(pageJSON))
	}))
	defer srv.Close()

	results, err := newTestClient(srv.URL).FilterTokens(context.Background(), FilterParams{
		NetworkID:    8453,
		MinLiquidity: 5000,
		CreatedAfter: 1699999999,
		Limit:        200,
		Offset:       400,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Contains(t, got.Query, "filterTokens")
	assert.EqualValues(t, 200, got.Variables["limit"])
	assert.EqualValues(t, 400, got.Variables["offset"])
	filters := got.Variables["filters"].(map[string]interface{})
	assert.EqualValues(t, []interface{}{float64(8453)}, filters["network"])
	assert.EqualValues(t, map[string]interface{}{"gt": float64(1699999999)}, filters["createdAt"])

	fetched := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	a := results[0].ToDBModel(fetched)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", a.Address)
	assert.Equal(t, 8453, a.NetworkID)
	assert.InDelta(t, 0.0012, a.PriceUSD, 1e-12)
	assert.InDelta(t, 0.15, a.Change24, 1e-12)
	assert.InDelta(t, 12500.5, a.Liquidity, 1e-9)
	assert.Equal(t, int64(321), a.TxnCount24)
	assert.Equal(t, int64(1500), a.HolderCount)
	assert.Equal(t, int64(1700000000), a.CreatedAt)
	assert.Equal(t, "0xpair", a.PairAddress)
	assert.Equal(t, "https://img/a.png", a.Image)
	assert.Equal(t, fetched, a.UpdatedAt)

	b := results[1].ToDBModel(fetched)
	assert.Equal(t, "So11111111111111111111111111111111111111112", b.Address)
	assert.Zero(t, b.PriceUSD)
	assert.Zero(t, b.Change24)
	assert.Equal(t, 7000.0, b.Liquidity)
	assert.Zero(t, b.Volume24)
	assert.Equal(t, int64(12), b.TxnCount24)
	assert.Equal(t, int64(1700003600), b.CreatedAt)
	assert.Empty(t, b.PairAddress)
}

func TestFilterTokensByAddress(t *testing.T) {
	var got graphQLRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"data":{"filterTokens":{"results":[]}}}`))
	}))
	defer srv.Close()

	results, err := newTestClient(srv.URL).FilterTokens(context.Background(), FilterParams{
		NetworkID: 8453,
		Tokens:    []string{"0xa", "0xb"},
	})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.EqualValues(t, []interface{}{"0xa:8453", "0xb:8453"}, got.Variables["tokens"])
	_, hasLimit := got.Variables["limit"]
	assert.False(t, hasLimit)
}

func TestFilterTokensErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FilterTokens(context.Background(), FilterParams{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 429")
	})

	t.Run("graphql", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"bad filter"}]}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FilterTokens(context.Background(), FilterParams{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad filter")
	})

	t.Run("malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FilterTokens(context.Background(), FilterParams{})
		require.Error(t, err)
	})
}

func TestNumberLenient(t *testing.T) {
	var n Number
	require.NoError(t, json.Unmarshal([]byte(`"1.5e3"`), &n))
	assert.Equal(t, 1500.0, n.Float())
	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &n))
	assert.False(t, n.Valid)
	assert.Zero(t, n.Float())
	require.NoError(t, json.Unmarshal([]byte(`-0.25`), &n))
	assert.Equal(t, -0.25, n.Float())
}
