// Package storage defines the persistence contracts consumed by the engine.
// The postgres subpackage implements them; unit tests use the mocks package
// or an in-memory sqlite database.
package storage

import (
	"context"
	"time"

	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/models"
	"gorm.io/datatypes"
)

type JobRepo interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)

	// ListReady returns pending jobs whose scheduled_at has passed, owned by
	// users not paused by an admin, ordered by (priority ASC, scheduled_at ASC).
	ListReady(ctx context.Context, limit int) ([]models.Job, error)
	CountRunning(ctx context.Context) (int64, error)
	ListByStatus(ctx context.Context, status config.JobStatus, limit int) ([]models.Job, error)
	ListStuckRunning(ctx context.Context, olderThan time.Duration) ([]models.Job, error)

	// MarkQueued transitions pending -> queued and reports whether the row
	// was claimed (false when another dispatcher got there first).
	MarkQueued(ctx context.Context, id string) (bool, error)
	MarkRunning(ctx context.Context, id string, executorID string) error
	// Complete, Fail, Warn and RetryLater act only on a running execution;
	// Cancel only on a non-terminal job. Late writes against a job that
	// already left those states are discarded.
	Complete(ctx context.Context, id string, result datatypes.JSON) error
	Fail(ctx context.Context, id string, errMsg string) error
	Warn(ctx context.Context, id string, detection config.DetectionType, evidenceURL, errMsg string) error
	Cancel(ctx context.Context, id string) error
	SetPaused(ctx context.Context, id string, paused bool) error
	AddNotes(ctx context.Context, id string, notes string) error

	// RetryLater re-pends a job with a backoff and bumps retry_count.
	RetryLater(ctx context.Context, id string, availableAt time.Time) error
	// AdminRetry re-pends a failed/warning job and bumps admin_retry_count.
	AdminRetry(ctx context.Context, id string) error
}

type SettingsRepo interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserAutomationSettings, error)
	SetAutoMode(ctx context.Context, userID string, enabled bool) error
	// SetConsent updates consent and, on revocation, forces auto mode off in
	// the same transaction.
	SetConsent(ctx context.Context, userID string, consent bool) error
	StampManualReview(ctx context.Context, userID string) error
	SetAdminPaused(ctx context.Context, userID string, paused bool) error
	AssignProxy(ctx context.Context, userID string, proxyID string) error
}

type ProxyRepo interface {
	Get(ctx context.Context, id string) (*models.Proxy, error)
	// ListCandidates returns active proxies with remaining daily budget,
	// honoring a user's fixed assignment and an optional location constraint,
	// least recently used first.
	ListCandidates(ctx context.Context, userID, location string) ([]models.Proxy, error)
	IncrementUsage(ctx context.Context, id string) error
	ReportSuccess(ctx context.Context, id string) error
	// ReportFailure bumps failure_count and marks the proxy failed once the
	// count reaches threshold.
	ReportFailure(ctx context.Context, id string, threshold int) error
	ResetStaleCounters(ctx context.Context, today time.Time) (int64, error)
	AssignToUser(ctx context.Context, proxyID, userID string) error
}

// StatDeltas is applied as one atomic upsert-increment per (user, day).
type StatDeltas struct {
	ConnectionsSent   int
	MessagesSent      int
	JobsCompleted     int
	JobsFailed        int
	JobsWarned        int
	CaptchaDetections int
	SecurityWarnings  int
}

type StatsRepo interface {
	GetDay(ctx context.Context, userID string, day time.Time) (*models.DailyStats, error)
	Increment(ctx context.Context, userID string, day time.Time, deltas StatDeltas) error
	ResetDay(ctx context.Context, userID string, day time.Time) error
}

type ActivityRepo interface {
	Insert(ctx context.Context, entry *models.ActivityLogEntry) error
}

type JobLogRepo interface {
	Insert(ctx context.Context, entry *models.JobLogEntry) error
}

type ScreenshotRepo interface {
	Insert(ctx context.Context, shot *models.Screenshot) error
}

type AdminRepo interface {
	// GetControls reads the singleton row fresh; callers must not cache it
	// across dispatch cycles.
	GetControls(ctx context.Context) (*models.AdminControls, error)
	SetShutdown(ctx context.Context, on bool, reason, initiator string) error
	SetMaintenance(ctx context.Context, on bool, message string, until *time.Time) error
	Log(ctx context.Context, entry *models.AdminLogEntry) error
	RecentLogs(ctx context.Context, limit int) ([]models.AdminLogEntry, error)
}
