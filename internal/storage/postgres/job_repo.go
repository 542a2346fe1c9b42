package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/storage"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

var _ storage.JobRepo = (*JobRepository)(nil)

func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job not found: %w", err)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// ListReady returns dispatchable pending jobs in (priority, scheduled_at)
// order. Jobs paused by an admin, and jobs of admin-paused users, never
// leave pending.
func (r *JobRepository) ListReady(ctx context.Context, limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Joins("LEFT JOIN user_automation_settings s ON s.user_id = jobs.user_id").
		Where("jobs.status = ?", config.JobStatusPending).
		Where("jobs.scheduled_at <= ?", time.Now().UTC()).
		Where("jobs.paused_by_admin = ?", false).
		Where("s.paused_by_admin IS NULL OR s.paused_by_admin = ?", false).
		Order("jobs.priority ASC, jobs.scheduled_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list ready jobs: %w", err)
	}
	return jobs, nil
}

func (r *JobRepository) CountRunning(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("status = ?", config.JobStatusRunning).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count running jobs: %w", err)
	}
	return n, nil
}

func (r *JobRepository) ListByStatus(ctx context.Context, status config.JobStatus, limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list jobs by status: %w", err)
	}
	return jobs, nil
}

func (r *JobRepository) ListStuckRunning(ctx context.Context, olderThan time.Duration) ([]models.Job, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", config.JobStatusRunning, cutoff).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list stuck jobs: %w", err)
	}
	return jobs, nil
}

// MarkQueued claims a pending job. The status guard makes the claim safe
// against a concurrent dispatcher: only one caller sees rows affected.
func (r *JobRepository) MarkQueued(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, config.JobStatusPending).
		Update("status", config.JobStatusQueued)
	if res.Error != nil {
		return false, fmt.Errorf("mark queued: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *JobRepository) MarkRunning(ctx context.Context, id string, executorID string) error {
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, config.JobStatusQueued).
		Updates(map[string]any{
			"status":      config.JobStatusRunning,
			"started_at":  time.Now().UTC(),
			"executor_id": executorID,
		}).Error
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return nil
}

func (r *JobRepository) Complete(ctx context.Context, id string, result datatypes.JSON) error {
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, config.JobStatusRunning).
		Updates(map[string]any{
			"status":       config.JobStatusCompleted,
			"result":       result,
			"completed_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// Fail, Warn and RetryLater only apply to a live execution. The status
// guard discards late outcomes of a job an admin already cancelled.
func (r *JobRepository) Fail(ctx context.Context, id string, errMsg string) error {
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, config.JobStatusRunning).
		Updates(map[string]any{
			"status":        config.JobStatusFailed,
			"error_message": errMsg,
			"completed_at":  time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

func (r *JobRepository) Warn(ctx context.Context, id string, detection config.DetectionType, evidenceURL, errMsg string) error {
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, config.JobStatusRunning).
		Updates(map[string]any{
			"status":         config.JobStatusWarning,
			"detection_type": detection,
			"evidence_url":   evidenceURL,
			"error_message":  errMsg,
		}).Error
	if err != nil {
		return fmt.Errorf("warn job: %w", err)
	}
	return nil
}

func (r *JobRepository) Cancel(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status NOT IN ?", id, []config.JobStatus{config.JobStatusCompleted, config.JobStatusCancelled}).
		Updates(map[string]any{
			"status":       config.JobStatusCancelled,
			"completed_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	return nil
}

func (r *JobRepository) SetPaused(ctx context.Context, id string, paused bool) error {
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Update("paused_by_admin", paused).Error
	if err != nil {
		return fmt.Errorf("set job paused: %w", err)
	}
	return nil
}

func (r *JobRepository) AddNotes(ctx context.Context, id string, notes string) error {
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Update("admin_notes", notes).Error
	if err != nil {
		return fmt.Errorf("add job notes: %w", err)
	}
	return nil
}

// RetryLater re-pends a job after a transient failure. Uses gorm.Expr so
// the counter increments atomically at the database level.
func (r *JobRepository) RetryLater(ctx context.Context, id string, availableAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, config.JobStatusRunning).
		Updates(map[string]any{
			"status":       config.JobStatusPending,
			"scheduled_at": availableAt,
			"retry_count":  gorm.Expr("retry_count + ?", 1),
			"executor_id":  "",
		}).Error
	if err != nil {
		return fmt.Errorf("retry later: %w", err)
	}
	return nil
}

func (r *JobRepository) AdminRetry(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status IN ?", id, []config.JobStatus{config.JobStatusFailed, config.JobStatusWarning}).
		Updates(map[string]any{
			"status":            config.JobStatusPending,
			"scheduled_at":      time.Now().UTC(),
			"admin_retry_count": gorm.Expr("admin_retry_count + ?", 1),
			"paused_by_admin":   false,
			"executor_id":       "",
		}).Error
	if err != nil {
		return fmt.Errorf("admin retry: %w", err)
	}
	return nil
}
