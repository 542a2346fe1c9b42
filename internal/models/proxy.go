package models

import (
	"fmt"
	"time"

	"github.com/reachforge/puppet/internal/config"
)

// Proxy is an egress endpoint for automation sessions. A proxy with
// RequestsToday >= DailyLimit must not be checked out until the daily
// counter resets at UTC midnight.
type Proxy struct {
	ID string `gorm:"type:uuid;primaryKey"`

	Provider string `gorm:"type:varchar(100);not null"`
	Endpoint string `gorm:"type:varchar(255);not null"`
	Port     int    `gorm:"not null"`
	Username string `gorm:"type:varchar(255)"`
	Password string `gorm:"type:varchar(255)"`
	Location string `gorm:"type:varchar(100)"`

	Status          config.ProxyStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	LastHealthCheck *time.Time
	FailureCount    int `gorm:"default:0;not null"`
	SuccessCount    int `gorm:"default:0;not null"`

	RequestsToday int       `gorm:"default:0;not null"`
	DailyLimit    int       `gorm:"default:100;not null"`
	LastResetDate time.Time `gorm:"type:date"`
	LastUsedAt    *time.Time

	AssignedUserID string `gorm:"type:uuid;index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Addr returns the host:port form used to configure a session's egress.
func (p *Proxy) Addr() string {
	return fmt.Sprintf("%s:%d", p.Endpoint, p.Port)
}
