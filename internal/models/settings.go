package models

import (
	"encoding/json"
	"time"

	"github.com/reachforge/puppet/internal/config"
	"gorm.io/datatypes"
)

// UserAutomationSettings holds one user's automation configuration.
// AutoModeEnabled may be true only while AutomationConsent is true;
// revoking consent forces auto mode off in the same transaction.
type UserAutomationSettings struct {
	ID     string `gorm:"type:uuid;primaryKey"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex"`

	// Encrypted session credential for the automation session.
	SessionCookie string `gorm:"type:text"`

	AutoModeEnabled      bool `gorm:"default:false;not null"`
	DailyConnectionLimit int  `gorm:"default:20;not null"`
	MinDelaySeconds      int  `gorm:"default:30;not null"`
	MaxDelaySeconds      int  `gorm:"default:120;not null"`

	AutomationConsent     bool `gorm:"default:false;not null"`
	AutomationConsentDate *time.Time
	LastManualReviewAt    *time.Time

	ProxyID string `gorm:"type:uuid"`

	DetectionEnabled   bool `gorm:"default:true;not null"`
	AutoPauseOnWarning bool `gorm:"default:true;not null"`

	PausedByAdmin bool `gorm:"default:false;not null"`

	WebhookURL         string         `gorm:"type:text"`
	NotificationEvents datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// SubscribedTo reports whether the user opted into the given event.
func (s *UserAutomationSettings) SubscribedTo(event config.NotificationEvent) bool {
	if len(s.NotificationEvents) == 0 {
		return false
	}
	var events []config.NotificationEvent
	if err := json.Unmarshal(s.NotificationEvents, &events); err != nil {
		return false
	}
	for _, e := range events {
		if e == event {
			return true
		}
	}
	return false
}

// DelayBounds returns the configured inter-action delay window, corrected
// so min never exceeds max.
func (s *UserAutomationSettings) DelayBounds() (time.Duration, time.Duration) {
	min := time.Duration(s.MinDelaySeconds) * time.Second
	max := time.Duration(s.MaxDelaySeconds) * time.Second
	if max < min {
		max = min
	}
	return min, max
}
