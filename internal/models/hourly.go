/**
 * @description
 * Hour-bucketed and daily score history models.
 * 'score_by_hour' keeps 24 hour slots per token for the current UTC day, stored as a JSON array.
 * 'daily_scores' keeps a 3-slot rolling history of daily averages.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// HoursPerDay is the number of hour slots in a ScoreByHour row.
const HoursPerDay = 24

// MinDailySamples is the minimum number of filled hour slots for a daily average.
const MinDailySamples = 2

// HourSlots holds one optional score per UTC hour (index 0..23).
type HourSlots [HoursPerDay]*float64

// Set writes a single slot and leaves the other 23 untouched.
func (s *HourSlots) Set(hour int, score float64) error {
	if hour < 0 || hour >= HoursPerDay {
		return fmt.Errorf("hour %d out of range", hour)
	}
	v := score
	s[hour] = &v
	return nil
}

// Get returns the slot value and whether it is filled.
func (s HourSlots) Get(hour int) (float64, bool) {
	if hour < 0 || hour >= HoursPerDay || s[hour] == nil {
		return 0, false
	}
	return *s[hour], true
}

// Average returns the mean of the filled slots and how many there were.
func (s HourSlots) Average() (float64, int) {
	var sum float64
	var n int
	for _, v := range s {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// Scan implements the sql.Scanner interface
func (s *HourSlots) Scan(src interface{}) error {
	if src == nil {
		*s = HourSlots{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("type assertion failed for HourSlots")
	}
	var values []*float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return err
	}
	var out HourSlots
	copy(out[:], values)
	*s = out
	return nil
}

// Value implements the driver.Valuer interface
func (s HourSlots) Value() (driver.Value, error) {
	b, err := json.Marshal(s[:])
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// ScoreByHour holds a token's scores for each hour of the current UTC day.
type ScoreByHour struct {
	TokenAddress string    `gorm:"primaryKey;column:token_address;size:64" json:"token_address"`
	Day          time.Time `gorm:"column:day" json:"day"`
	Slots        HourSlots `gorm:"column:slots;type:jsonb" json:"slots"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ScoreByHour) TableName() string {
	return "score_by_hour"
}

// DailyScore is a rolling 3-day history of a token's daily average score.
type DailyScore struct {
	TokenAddress      string    `gorm:"primaryKey;column:token_address;size:64" json:"token_address"`
	AverageScoreToday *float64  `gorm:"column:average_score_today" json:"average_score_today"`
	AverageScore24Ago *float64  `gorm:"column:average_score_24_ago" json:"average_score_24_ago"`
	AverageScore48Ago *float64  `gorm:"column:average_score_48_ago" json:"average_score_48_ago"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
	RolledUpAt        time.Time `gorm:"column:rolled_up_at" json:"rolled_up_at"`
}

func (DailyScore) TableName() string {
	return "daily_scores"
}

// Shift moves today -> 24ago -> 48ago (the oldest is dropped) and stores avg as today.
// UpdatedAt only advances when a new average is recorded, so idle rows age out.
// RolledUpAt advances on every shift.
func (d *DailyScore) Shift(avg *float64, at time.Time) {
	d.AverageScore48Ago = d.AverageScore24Ago
	d.AverageScore24Ago = d.AverageScoreToday
	d.AverageScoreToday = avg
	if avg != nil {
		d.UpdatedAt = at
	}
	d.RolledUpAt = at
}

// RolledUpOn reports whether the row was already shifted on day's UTC date.
func (d DailyScore) RolledUpOn(day time.Time) bool {
	return !d.RolledUpAt.IsZero() && DayBucket(d.RolledUpAt).Equal(DayBucket(day))
}

// Reset empties every slot when row belongs to an earlier day than day.
func (r *ScoreByHour) Reset(day time.Time) {
	if r.Day.Before(day) {
		r.Slots = HourSlots{}
	}
	r.Day = day
}

// ShiftDailyScores applies one daily shift to existing rows and adds rows for
// tokens that only appear in averages. The result is keyed by token address.
func ShiftDailyScores(existing []DailyScore, averages map[string]float64, at time.Time) []DailyScore {
	seen := make(map[string]struct{}, len(existing))
	out := make([]DailyScore, 0, len(existing)+len(averages))
	for _, row := range existing {
		seen[row.TokenAddress] = struct{}{}
		var avg *float64
		if v, ok := averages[row.TokenAddress]; ok {
			avg = &v
		}
		row.Shift(avg, at)
		out = append(out, row)
	}
	for addr, v := range averages {
		if _, ok := seen[addr]; ok {
			continue
		}
		v := v
		out = append(out, DailyScore{TokenAddress: addr, AverageScoreToday: &v, UpdatedAt: at, RolledUpAt: at})
	}
	return out
}
