/**
 * @description
 * Type definitions for the Codex GraphQL API responses.
 * These structs map to the JSON returned by the filterTokens query.
 *
 * @notes
 * Codex returns most market figures as decimal strings. Number accepts both
 * strings and JSON numbers; anything unparsable decodes to zero.
 */

package codex

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ttms-project/backend/internal/models"
)

// Number is a lenient numeric field.
type Number struct {
	decimal.Decimal
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	n.Decimal = d
	n.Valid = true
	return nil
}

// Float returns the value as float64, or 0 when missing.
func (n Number) Float() float64 {
	if !n.Valid {
		return 0
	}
	f, _ := n.Decimal.Float64()
	return f
}

// Int returns the value truncated to int64, or 0 when missing.
func (n Number) Int() int64 {
	if !n.Valid {
		return 0
	}
	return n.Decimal.IntPart()
}

// EnhancedToken is the token object nested in a filterTokens result.
type EnhancedToken struct {
	Address   string `json:"address"`
	NetworkID int    `json:"networkId"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Info      *struct {
		ImageSmallURL string `json:"imageSmallUrl"`
	} `json:"info"`
}

// Pair is the pool a filterTokens result is priced from.
type Pair struct {
	Address string `json:"address"`
}

// TokenResult is one row of a filterTokens page.
type TokenResult struct {
	Token      EnhancedToken `json:"token"`
	PriceUSD   Number        `json:"priceUSD"`
	Change24   Number        `json:"change24"`
	Liquidity  Number        `json:"liquidity"`
	Volume24   Number        `json:"volume24"`
	TxnCount24 Number        `json:"txnCount24"`
	Holders    Number        `json:"holders"`
	CreatedAt  Number        `json:"createdAt"`
	QuoteToken string        `json:"quoteToken"`
	Pair       *Pair         `json:"pair"`
}

// ToDBModel converts a TokenResult to our internal DB model
func (r *TokenResult) ToDBModel(fetchedAt time.Time) models.Token {
	t := models.Token{
		Address:     models.NormalizeAddress(r.Token.Address),
		NetworkID:   r.Token.NetworkID,
		Symbol:      r.Token.Symbol,
		Name:        r.Token.Name,
		QuoteToken:  r.QuoteToken,
		PriceUSD:    r.PriceUSD.Float(),
		Change24:    r.Change24.Float(),
		Liquidity:   r.Liquidity.Float(),
		Volume24:    r.Volume24.Float(),
		TxnCount24:  r.TxnCount24.Int(),
		HolderCount: r.Holders.Int(),
		CreatedAt:   r.CreatedAt.Int(),
		UpdatedAt:   fetchedAt,
	}
	if r.Pair != nil {
		t.PairAddress = r.Pair.Address
	}
	if r.Token.Info != nil {
		t.Image = r.Token.Info.ImageSmallURL
	}
	return t
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type filterTokensResponse struct {
	Data struct {
		FilterTokens struct {
			Count   int           `json:"count"`
			Page    int           `json:"page"`
			Results []TokenResult `json:"results"`
		} `json:"filterTokens"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

var _ json.Unmarshaler = (*Number)(nil)
