package dto

import (
	"time"

	"github.com/reachforge/puppet/internal/config"
)

// NotificationPayload is the structured alert handed to the external
// dispatcher. The core never formats human-readable channels itself.
type NotificationPayload struct {
	EventType     config.NotificationEvent `json:"event_type"`
	UserID        string                   `json:"user_id"`
	JobID         string                   `json:"job_id"`
	Message       string                   `json:"message"`
	DetectionType config.DetectionType     `json:"detection_type,omitempty"`
	EvidenceURL   string                   `json:"evidence_reference,omitempty"`
	Timestamp     time.Time                `json:"timestamp"`
	Metadata      map[string]any           `json:"metadata,omitempty"`
}
