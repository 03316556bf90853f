/**
 * @description
 * Raw signal models: votes, daily volume samples, hourly holder samples.
 * Votes are append-only. Samples are unique per (token, bucket) and pruned by retention windows.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote is a single wallet's vote for a token. Never updated.
type Vote struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TokenAddress  string    `gorm:"column:token_address;size:64;not null;index" json:"token_address"`
	WalletAddress string    `gorm:"column:wallet_address;size:64;not null" json:"wallet_address"`
	CreatedAt     time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Vote) TableName() string {
	return "votes"
}

func (v *Vote) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return
}

// VolumeSample is the 24h volume of a token captured once per UTC day.
type VolumeSample struct {
	TokenAddress string    `gorm:"primaryKey;column:token_address;size:64" json:"token_address"`
	Day          time.Time `gorm:"primaryKey;column:day" json:"day"`
	Volume24     float64   `gorm:"column:volume_24" json:"volume_24"`
	Change24     float64   `gorm:"column:change_24" json:"change_24"`
	CapturedAt   time.Time `gorm:"column:captured_at" json:"captured_at"`
}

func (VolumeSample) TableName() string {
	return "volume_samples"
}

// HolderSample is a token's holder count captured once per UTC hour.
type HolderSample struct {
	TokenAddress string    `gorm:"primaryKey;column:token_address;size:64" json:"token_address"`
	Hour         time.Time `gorm:"primaryKey;column:hour" json:"hour"`
	HoldersCount int64     `gorm:"column:holders_count" json:"holders_count"`
}

func (HolderSample) TableName() string {
	return "holder_samples"
}

// DayBucket truncates t to the start of its UTC day.
func DayBucket(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// HourBucket truncates t to the start of its UTC hour.
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
