package models

import (
	"time"

	"github.com/reachforge/puppet/internal/config"
)

// Screenshot is the durable evidence captured for one security detection.
// Exactly one row is written per detection event, strictly before the job
// is moved to warning.
type Screenshot struct {
	ID    string `gorm:"type:uuid;primaryKey"`
	JobID string `gorm:"type:uuid;not null;index"`

	DetectionType config.DetectionType `gorm:"type:varchar(30);not null"`
	FileURL       string               `gorm:"type:text;not null"`
	FileSize      int                  `gorm:"not null"`
	PageURL       string               `gorm:"type:text"`

	CapturedAt time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}
