package models

import "time"

// DailyStats is one row per (user, UTC calendar day). Counters only go up,
// via upsert-increments; the sole exception is the admin reset_limits action.
type DailyStats struct {
	ID       string    `gorm:"type:uuid;primaryKey"`
	UserID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_stat_date"`
	StatDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_user_stat_date"`

	ConnectionsSent int `gorm:"default:0;not null"`
	MessagesSent    int `gorm:"default:0;not null"`

	JobsCompleted int `gorm:"default:0;not null"`
	JobsFailed    int `gorm:"default:0;not null"`
	JobsWarned    int `gorm:"default:0;not null"`

	CaptchaDetections int `gorm:"default:0;not null"`
	SecurityWarnings  int `gorm:"default:0;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
