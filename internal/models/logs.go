package models

import (
	"time"

	"github.com/reachforge/puppet/internal/config"
	"gorm.io/datatypes"
)

// JobLogEntry is an append-only record of one automation step. Rows are
// never mutated after insert.
type JobLogEntry struct {
	ID    string `gorm:"type:uuid;primaryKey"`
	JobID string `gorm:"type:uuid;not null;index"`

	Level       config.LogLevel `gorm:"type:varchar(10);not null"`
	Message     string          `gorm:"type:text;not null"`
	StepName    string          `gorm:"type:varchar(100)"`
	EvidenceURL string          `gorm:"type:text"`

	ExecutionTimeMS int64 `gorm:"default:0;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// ActivityLogEntry is the append-only consent/mode/workflow audit trail.
type ActivityLogEntry struct {
	ID     string `gorm:"type:uuid;primaryKey"`
	UserID string `gorm:"type:uuid;not null;index"`

	LeadID     string `gorm:"type:uuid"`
	CampaignID string `gorm:"type:uuid"`
	JobID      string `gorm:"type:uuid"`

	ActivityType config.ActivityType `gorm:"type:varchar(30);not null"`
	Description  string              `gorm:"type:text;not null"`
	ProfileURL   string              `gorm:"type:text"`
	Message      string              `gorm:"type:text"`
	Metadata     datatypes.JSON      `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
