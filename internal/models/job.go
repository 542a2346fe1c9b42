package models

import (
	"time"

	"github.com/reachforge/puppet/internal/config"
	"gorm.io/datatypes"
)

// Job is one scheduled attempt to send a connection request to a target
// profile. Jobs are never deleted; terminal rows are the audit trail.
type Job struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	UserID     string `gorm:"type:uuid;not null;index"`
	CampaignID string `gorm:"type:uuid"`
	LeadID     string `gorm:"type:uuid"`

	ProfileURL string `gorm:"type:text;not null"`
	Message    string `gorm:"type:text"`
	Priority   int    `gorm:"default:5;not null"`

	Status      config.JobStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ScheduledAt time.Time        `gorm:"not null;index"`
	StartedAt   *time.Time
	CompletedAt *time.Time

	RetryCount      int `gorm:"default:0;not null"`
	MaxRetries      int `gorm:"default:3;not null"`
	AdminRetryCount int `gorm:"default:0;not null"`

	Result        datatypes.JSON       `gorm:"type:jsonb"`
	ErrorMessage  string               `gorm:"type:text"`
	DetectionType config.DetectionType `gorm:"type:varchar(30)"`
	EvidenceURL   string               `gorm:"type:text"`

	AdminNotes    string `gorm:"type:text"`
	PausedByAdmin bool   `gorm:"default:false;not null"`

	ExecutorID string `gorm:"type:varchar(64)"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
