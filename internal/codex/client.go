/**
 * @description
 * HTTP Client for the Codex GraphQL API.
 * Fetches paginated token market data (price, volume, liquidity, holders).
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - golang.org/x/time/rate (request pacing)
 * - backend/internal/config
 */

package codex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/metrics"
)

const (
	DefaultTimeout = 15 * time.Second
)

const filterTokensQuery = `query FilterTokens($filters: TokenFilters, $tokens: [String], $rankings: [TokenRanking], $limit: Int, $offset: Int) {
  filterTokens(filters: $filters, tokens: $tokens, rankings: $rankings, limit: $limit, offset: $offset) {
    count
    page
    results {
      token { address networkId symbol name info { imageSmallUrl } }
      priceUSD
      change24
      liquidity
      volume24
      txnCount24
      holders
      createdAt
      quoteToken
      pair { address }
    }
  }
}`

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg *config.Config) *Client {
	rps := cfg.Codex.RPS
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		BaseURL: cfg.Codex.URL,
		APIKey:  cfg.Codex.APIKey,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// FilterParams holds the filterTokens arguments
type FilterParams struct {
	NetworkID    int
	MinLiquidity float64
	// Tokens restricts the query to specific addresses.
	Tokens []string
	// CreatedAfter resumes a pass from a creation timestamp (unix seconds).
	CreatedAfter int64
	Limit        int
	Offset       int
}

func (p FilterParams) variables() map[string]interface{} {
	filters := map[string]interface{}{}
	if p.NetworkID > 0 {
		filters["network"] = []int{p.NetworkID}
	}
	if p.MinLiquidity > 0 {
		filters["liquidity"] = map[string]interface{}{"gte": p.MinLiquidity}
	}
	if p.CreatedAfter > 0 {
		filters["createdAt"] = map[string]interface{}{"gt": p.CreatedAfter}
	}

	vars := map[string]interface{}{
		"filters":  filters,
		"rankings": []map[string]string{{"attribute": "createdAt", "direction": "ASC"}},
	}
	if len(p.Tokens) > 0 {
		ids := make([]string, 0, len(p.Tokens))
		for _, addr := range p.Tokens {
			if p.NetworkID > 0 {
				ids = append(ids, fmt.Sprintf("%s:%d", addr, p.NetworkID))
			} else {
				ids = append(ids, addr)
			}
		}
		vars["tokens"] = ids
	}
	if p.Limit > 0 {
		vars["limit"] = p.Limit
	}
	if p.Offset > 0 {
		vars["offset"] = p.Offset
	}
	return vars
}

// FilterTokens fetches one page of token results sorted by creation time ascending
func (c *Client) FilterTokens(ctx context.Context, params FilterParams) ([]TokenResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(graphQLRequest{Query: filterTokensQuery, Variables: params.variables()})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequests.WithLabelValues("error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("codex api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out filterTokensResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.UpstreamRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode codex response: %w", err)
	}
	if len(out.Errors) > 0 {
		metrics.UpstreamRequests.WithLabelValues("error").Inc()
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("codex graphql error: %s", strings.Join(msgs, "; "))
	}

	metrics.UpstreamRequests.WithLabelValues("ok").Inc()
	return out.Data.FilterTokens.Results, nil
}
