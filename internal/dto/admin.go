package dto

import "time"

type JobActionRequest struct {
	JobID      string `json:"job_id" validate:"required,uuid4"`
	Action     string `json:"action" validate:"required,oneof=retry kill pause add_notes"`
	Reason     string `json:"reason,omitempty"`
	AdminNotes string `json:"admin_notes,omitempty"`
}

type UserActionRequest struct {
	UserID  string `json:"user_id" validate:"required,uuid4"`
	Action  string `json:"action" validate:"required,oneof=pause unpause reset_limits assign_proxy"`
	Reason  string `json:"reason,omitempty"`
	ProxyID string `json:"proxy_id,omitempty" validate:"omitempty,uuid4"`
}

type BulkActionRequest struct {
	Action    string   `json:"action" validate:"required,oneof=retry kill pause pause_user unpause_user"`
	TargetIDs []string `json:"target_ids" validate:"required,min=1,dive,uuid4"`
	Reason    string   `json:"reason,omitempty"`
}

type EmergencyActionRequest struct {
	Action             string     `json:"action" validate:"required,oneof=emergency_shutdown disable_shutdown maintenance_mode disable_maintenance"`
	Reason             string     `json:"reason,omitempty"`
	MaintenanceMessage string     `json:"maintenance_message,omitempty"`
	ScheduledUntil     *time.Time `json:"scheduled_until,omitempty"`
}

// BulkTargetResult reports one target's outcome; bulk actions are not
// transactional across targets, partial success is expected and reported.
type BulkTargetResult struct {
	TargetID string `json:"target_id"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

type BulkActionResponse struct {
	Action    string             `json:"action"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Results   []BulkTargetResult `json:"results"`
}

type ActionResponse struct {
	Message string `json:"message"`
}
