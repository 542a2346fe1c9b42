package dto

// SubmitRequest is an outreach request entering the consent & mode gate.
type SubmitRequest struct {
	UserID         string `json:"user_id" validate:"required,uuid4"`
	ProfileURL     string `json:"target_profile_url" validate:"required,url"`
	DraftedMessage string `json:"drafted_message" validate:"required,max=300"`
	LeadID         string `json:"lead_id,omitempty" validate:"omitempty,uuid4"`
	CampaignID     string `json:"campaign_id,omitempty" validate:"omitempty,uuid4"`
	Priority       int    `json:"priority,omitempty" validate:"gte=0,lte=10"`
}

// SubmitResponse covers both gate outcomes: auto (job queued) and manual
// (drafted message returned for human review or consent collection).
type SubmitResponse struct {
	Mode   string `json:"mode"`
	Action string `json:"action"`

	JobID               string `json:"job_id,omitempty"`
	ActivityLogID       string `json:"activity_log_id,omitempty"`
	DraftedMessage      string `json:"drafted_message,omitempty"`
	DailyLimitRemaining *int   `json:"daily_limit_remaining,omitempty"`
}

// ApproveRequest queues a job after a human reviewed the drafted message.
type ApproveRequest struct {
	UserID        string `json:"user_id" validate:"required,uuid4"`
	ProfileURL    string `json:"target_profile_url" validate:"required,url"`
	Message       string `json:"message" validate:"required,max=300"`
	CampaignID    string `json:"campaign_id,omitempty" validate:"omitempty,uuid4"`
	LeadID        string `json:"lead_id,omitempty" validate:"omitempty,uuid4"`
	Priority      int    `json:"priority,omitempty" validate:"gte=0,lte=10"`
	ActivityLogID string `json:"activity_log_id,omitempty" validate:"omitempty,uuid4"`
}

type ApproveResponse struct {
	JobID string `json:"job_id"`
}

// ConsentUpdateRequest grants or revokes automation consent. Revocation
// atomically forces auto mode off.
type ConsentUpdateRequest struct {
	UserID  string `json:"user_id" validate:"required,uuid4"`
	Consent bool   `json:"consent"`
}
