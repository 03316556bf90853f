/**
 * @description
 * Token master table model.
 * Maps to the 'tokens' table in PostgreSQL. Rows are replaced wholesale by every ingestion cycle.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/ethereum/go-ethereum/common (address normalization)
 */

package models

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a tracked token as last seen on the upstream data provider
type Token struct {
	Address     string  `gorm:"primaryKey;column:address;size:64" json:"address"`
	NetworkID   int     `gorm:"column:network_id;index" json:"network_id"`
	Symbol      string  `gorm:"column:symbol" json:"symbol"`
	Name        string  `gorm:"column:name" json:"name"`
	QuoteToken  string  `gorm:"column:quote_token" json:"quote_token"`
	PriceUSD    float64 `gorm:"column:price_usd" json:"price_usd"`
	Change24    float64 `gorm:"column:change_24" json:"change_24"` // signed decimal fraction, 0.1 = +10%
	Liquidity   float64 `gorm:"column:liquidity" json:"liquidity"`
	Volume24    float64 `gorm:"column:volume_24" json:"volume_24"`
	TxnCount24  int64   `gorm:"column:txn_count_24" json:"txn_count_24"`
	HolderCount int64   `gorm:"column:holder_count" json:"holder_count"`
	// CreatedAt is the on-chain creation time in unix seconds, not the row insert time.
	CreatedAt   int64     `gorm:"column:created_at;autoCreateTime:false" json:"created_at"`
	PairAddress string    `gorm:"column:pair_address" json:"pair_address"`
	Image       string    `gorm:"column:image" json:"image"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name used by Token to `tokens`
func (Token) TableName() string {
	return "tokens"
}

// Key returns the merge key used by every aggregator.
func (t Token) Key() string {
	return NormalizeAddress(t.Address)
}

// NormalizeAddress produces a stable merge key for a token address.
// EVM hex addresses are case-insensitive and get lower-cased; anything else
// (e.g. base58 Solana mints) is case-sensitive and only trimmed.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if common.IsHexAddress(address) {
		return strings.ToLower(common.HexToAddress(address).Hex())
	}
	return address
}

// TokenIndex builds an address -> token lookup keyed by NormalizeAddress.
func TokenIndex(tokens []Token) map[string]Token {
	out := make(map[string]Token, len(tokens))
	for _, t := range tokens {
		out[t.Key()] = t
	}
	return out
}
