/**
 * @description
 * Score models.
 * 'scores' holds the current composite score per token with every partial component kept for transparency.
 * 'holder_scores' holds the latest holder-derived partials consumed by the score solve.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import "time"

// Score is the composite TTMS score of a token for the latest cycle.
type Score struct {
	TokenAddress string  `gorm:"primaryKey;column:token_address;size:64" json:"token_address"`
	NetworkID    int     `gorm:"column:network_id;index" json:"network_id"`
	TokenScore   float64 `gorm:"column:token_score;index" json:"token_score"`

	ScoreFromVolume  float64 `gorm:"column:score_from_volume" json:"score_from_volume"`
	VolumePercentage float64 `gorm:"column:volume_percentage" json:"volume_percentage"`

	ScoreFromVotes24      float64 `gorm:"column:score_from_votes_24" json:"score_from_votes_24"`
	ScoreFromVotes7d      float64 `gorm:"column:score_from_votes_7d" json:"score_from_votes_7d"`
	ScoreFromUniqueVoters float64 `gorm:"column:score_from_unique_voters" json:"score_from_unique_voters"`
	ScoreFromVoteCount    float64 `gorm:"column:score_from_vote_count" json:"score_from_vote_count"`

	ScoreFromChange24 float64 `gorm:"column:score_from_change_24" json:"score_from_change_24"`
	LiquidityScore    float64 `gorm:"column:liquidity_score" json:"liquidity_score"`
	TokenAgeScore     float64 `gorm:"column:token_age_score" json:"token_age_score"`
	TxnCount24Score   float64 `gorm:"column:txn_count_24_score" json:"txn_count_24_score"`

	HoldersCount      int64   `gorm:"column:holders_count" json:"holders_count"`
	HoldersCountScore float64 `gorm:"column:holders_count_score" json:"holders_count_score"`
	Holders1hScore    float64 `gorm:"column:holders_1h_score" json:"holders_1h_score"`
	Holders24hScore   float64 `gorm:"column:holders_24h_score" json:"holders_24h_score"`

	AIScore float64 `gorm:"column:ai_score" json:"ai_score"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Score) TableName() string {
	return "scores"
}

// HolderScore is the holder-derived partial for one token.
type HolderScore struct {
	TokenAddress      string    `gorm:"primaryKey;column:token_address;size:64" json:"token_address"`
	HoldersCount      int64     `gorm:"column:holders_count" json:"holders_count"`
	Growth1h          *float64  `gorm:"column:growth_1h" json:"growth_1h"`   // percent, nil without a 1h-ago sample
	Growth24h         *float64  `gorm:"column:growth_24h" json:"growth_24h"` // percent, nil without a 24h-ago sample
	HoldersCountScore float64   `gorm:"column:holders_count_score" json:"holders_count_score"`
	Holders1hScore    float64   `gorm:"column:holders_1h_score" json:"holders_1h_score"`
	Holders24hScore   float64   `gorm:"column:holders_24h_score" json:"holders_24h_score"`
	UpdatedAt         time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (HolderScore) TableName() string {
	return "holder_scores"
}

// Total is the holder contribution added to the composite score.
func (h HolderScore) Total() float64 {
	return h.HoldersCountScore + h.Holders1hScore + h.Holders24hScore
}

// RankedToken is a score enriched with token attributes, as served and snapshotted.
type RankedToken struct {
	Rank  int   `json:"rank"`
	Token Token `json:"token"`
	Score Score `json:"score"`
}
