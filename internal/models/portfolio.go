/**
 * @description
 * Snapshot and simulated portfolio models.
 * 'ttms_by_hours' stores one ranked top-N snapshot per checkpoint (tag + hour bucket).
 * 'ttms_portfolio' stores the live simulated positions per session tag.
 * 'average_ttms_portfolio_results' archives a closed session with its aggregate return.
 *
 * @dependencies
 * - gorm.io/gorm
 * - gorm.io/datatypes
 * - github.com/google/uuid
 */

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Checkpoint tags, named after their PST wall-clock time.
const (
	Tag3am = "3am"
	Tag9am = "9am"
	Tag3pm = "3pm"
	Tag9pm = "9pm"
)

// SessionTags are the checkpoints that open and close portfolio sessions.
var SessionTags = []string{Tag9am, Tag9pm}

// IsSessionTag reports whether tag drives a portfolio session.
func IsSessionTag(tag string) bool {
	return tag == Tag9am || tag == Tag9pm
}

// IsCheckpointTag reports whether tag names one of the four daily checkpoints.
func IsCheckpointTag(tag string) bool {
	switch tag {
	case Tag3am, Tag9am, Tag3pm, Tag9pm:
		return true
	}
	return false
}

// Snapshot is a ranked top-N list frozen at a checkpoint.
type Snapshot struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Tag       string         `gorm:"column:tag;size:8;not null;uniqueIndex:idx_snapshot_tag_bucket" json:"tag"`
	Bucket    time.Time      `gorm:"column:bucket;not null;uniqueIndex:idx_snapshot_tag_bucket" json:"bucket"`
	Ranking   datatypes.JSON `gorm:"column:ranking;type:jsonb" json:"ranking"`
	CreatedAt time.Time      `gorm:"column:created_at;index" json:"created_at"`
}

func (Snapshot) TableName() string {
	return "ttms_by_hours"
}

func (s *Snapshot) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// Entries decodes the ranked array.
func (s Snapshot) Entries() ([]RankedToken, error) {
	if len(s.Ranking) == 0 {
		return nil, nil
	}
	var out []RankedToken
	if err := json.Unmarshal(s.Ranking, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Exit reasons for a closed position.
const (
	ExitTrailingStop = "trailing_stop"
	ExitHardStop     = "hard_stop"
)

// Position is a simulated 24h position opened from a session snapshot.
// DailyPriceChange stays nil while the position is open.
type Position struct {
	TokenAddress     string     `gorm:"primaryKey;column:token_address;size:64" json:"token_address"`
	SessionTag       string     `gorm:"primaryKey;column:started_at;size:8" json:"started_at"`
	Symbol           string     `gorm:"column:symbol" json:"symbol"`
	Rank             int        `gorm:"column:rank" json:"rank"`
	PriceUSD         float64    `gorm:"column:price_usd" json:"price_usd"` // entry price
	CurrentPrice     float64    `gorm:"column:current_price" json:"current_price"`
	ATH              float64    `gorm:"column:ath" json:"ath"`
	ATL              float64    `gorm:"column:atl" json:"atl"`
	ExitPrice        *float64   `gorm:"column:exit_price" json:"exit_price"`
	DailyPriceChange *float64   `gorm:"column:daily_price_change" json:"daily_price_change"`
	ExitReason       string     `gorm:"column:exit_reason" json:"exit_reason,omitempty"`
	OpenedAt         time.Time  `gorm:"column:opened_at" json:"opened_at"`
	ClosedAt         *time.Time `gorm:"column:closed_at" json:"closed_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Position) TableName() string {
	return "ttms_portfolio"
}

// Closed reports whether the position has a fixed result.
func (p Position) Closed() bool {
	return p.DailyPriceChange != nil
}

// PortfolioResult archives one closed session window and its aggregate return.
type PortfolioResult struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	SessionTag    string         `gorm:"column:session_tag;size:8;not null;uniqueIndex:idx_portfolio_result_tag_day" json:"session_tag"`
	Day           time.Time      `gorm:"column:day;not null;uniqueIndex:idx_portfolio_result_tag_day" json:"day"`
	AverageResult float64        `gorm:"column:average_result" json:"average_result"`
	ClosedCount   int            `gorm:"column:closed_count" json:"closed_count"`
	OpenCount     int            `gorm:"column:open_count" json:"open_count"`
	Positions     datatypes.JSON `gorm:"column:positions;type:jsonb" json:"positions"`
	CreatedAt     time.Time      `gorm:"column:created_at;index" json:"created_at"`
}

func (PortfolioResult) TableName() string {
	return "average_ttms_portfolio_results"
}

func (r *PortfolioResult) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
