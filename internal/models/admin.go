package models

import (
	"time"

	"github.com/reachforge/puppet/internal/config"
	"gorm.io/datatypes"
)

// AdminControls is the single emergency-control row. It is mutated only by
// admin plane actions and read fresh before every dispatch decision, so any
// out-of-process worker with store access observes shutdown state directly.
type AdminControls struct {
	ID int `gorm:"primaryKey"`

	ShutdownMode      bool   `gorm:"default:false;not null"`
	ShutdownReason    string `gorm:"type:text"`
	ShutdownInitiator string `gorm:"type:varchar(255)"`
	ShutdownAt        *time.Time

	MaintenanceMode    bool   `gorm:"default:false;not null"`
	MaintenanceMessage string `gorm:"type:text"`
	MaintenanceUntil   *time.Time

	MaxConcurrentJobs int `gorm:"default:10;not null"`
	MaxJobsPerHour    int `gorm:"default:60;not null"`

	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// MaintenanceActive reports whether new job creation is currently blocked.
// A scheduled_until in the past disables maintenance without an explicit
// admin action.
func (c *AdminControls) MaintenanceActive(now time.Time) bool {
	if !c.MaintenanceMode {
		return false
	}
	if c.MaintenanceUntil != nil && now.After(*c.MaintenanceUntil) {
		return false
	}
	return true
}

// AdminLogEntry is the append-only audit of every administrative action.
type AdminLogEntry struct {
	ID      string `gorm:"type:uuid;primaryKey"`
	AdminID string `gorm:"type:varchar(255);not null"`

	ActionType  config.AdminActionType `gorm:"type:varchar(30);not null;index"`
	Description string                 `gorm:"type:text;not null"`

	TargetJobID   string `gorm:"type:uuid"`
	TargetUserID  string `gorm:"type:uuid"`
	TargetProxyID string `gorm:"type:uuid"`

	Success  bool           `gorm:"not null"`
	Error    string         `gorm:"type:text"`
	Metadata datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
