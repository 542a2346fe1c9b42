package config

type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusQueued      JobStatus = "queued"
	JobStatusRunning     JobStatus = "running"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
	JobStatusWarning     JobStatus = "warning"
	JobStatusCancelled   JobStatus = "cancelled"
	JobStatusRateLimited JobStatus = "rate_limited"
)

// Terminal reports whether a job in this status may never change again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

type DetectionType string

// Declared in scan order. The detection engine evaluates types in exactly
// this order and stops at the first type that fires.
const (
	DetectionCaptcha            DetectionType = "captcha"
	DetectionPhoneVerification  DetectionType = "phone_verification"
	DetectionSecurityCheckpoint DetectionType = "security_checkpoint"
	DetectionAccountRestriction DetectionType = "account_restriction"
	DetectionSuspiciousActivity DetectionType = "suspicious_activity"
	DetectionLoginChallenge     DetectionType = "login_challenge"
)

var DetectionScanOrder = []DetectionType{
	DetectionCaptcha,
	DetectionPhoneVerification,
	DetectionSecurityCheckpoint,
	DetectionAccountRestriction,
	DetectionSuspiciousActivity,
	DetectionLoginChallenge,
}

type ProxyStatus string

const (
	ProxyActive      ProxyStatus = "active"
	ProxyInactive    ProxyStatus = "inactive"
	ProxyFailed      ProxyStatus = "failed"
	ProxyRateLimited ProxyStatus = "rate_limited"
	ProxyBanned      ProxyStatus = "banned"
)

type ActivityType string

const (
	ActivityManualReview     ActivityType = "manual_review"
	ActivityAutoQueue        ActivityType = "auto_queue"
	ActivityConsentGranted   ActivityType = "consent_granted"
	ActivityConsentRevoked   ActivityType = "consent_revoked"
	ActivityAutoModeEnabled  ActivityType = "auto_mode_enabled"
	ActivityAutoModeDisabled ActivityType = "auto_mode_disabled"
	ActivityManualOverride   ActivityType = "manual_override"
)

type NotificationEvent string

const (
	EventWarning            NotificationEvent = "warning"
	EventDailyLimitReached  NotificationEvent = "daily_limit_reached"
	EventJobFailed          NotificationEvent = "job_failed"
	EventJobCompleted       NotificationEvent = "job_completed"
	EventCaptchaDetected    NotificationEvent = "captcha_detected"
	EventSecurityCheckpoint NotificationEvent = "security_checkpoint"
)

type AdminActionType string

const (
	AdminJobRetry        AdminActionType = "job_retry"
	AdminJobKill         AdminActionType = "job_kill"
	AdminJobPause        AdminActionType = "job_pause"
	AdminJobAddNotes     AdminActionType = "job_add_notes"
	AdminUserPause       AdminActionType = "user_pause"
	AdminUserUnpause     AdminActionType = "user_unpause"
	AdminUserResetLimits AdminActionType = "user_reset_limits"
	AdminProxyAssign     AdminActionType = "proxy_assign"
	AdminShutdown        AdminActionType = "emergency_shutdown"
	AdminDisableShutdown AdminActionType = "disable_shutdown"
	AdminMaintenance     AdminActionType = "maintenance_mode"
	AdminBulk            AdminActionType = "bulk_action"
)

type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)
