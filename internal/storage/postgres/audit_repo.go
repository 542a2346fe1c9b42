package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/storage"
	"gorm.io/gorm"
)

// ActivityRepository, JobLogRepository and ScreenshotRepository are the
// append-only audit tables. Rows are inserted and never updated.

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

var _ storage.ActivityRepo = (*ActivityRepository)(nil)

func (r *ActivityRepository) Insert(ctx context.Context, entry *models.ActivityLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

type JobLogRepository struct {
	db *gorm.DB
}

func NewJobLogRepository(db *gorm.DB) *JobLogRepository {
	return &JobLogRepository{db: db}
}

var _ storage.JobLogRepo = (*JobLogRepository)(nil)

func (r *JobLogRepository) Insert(ctx context.Context, entry *models.JobLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert job log: %w", err)
	}
	return nil
}

type ScreenshotRepository struct {
	db *gorm.DB
}

func NewScreenshotRepository(db *gorm.DB) *ScreenshotRepository {
	return &ScreenshotRepository{db: db}
}

var _ storage.ScreenshotRepo = (*ScreenshotRepository)(nil)

func (r *ScreenshotRepository) Insert(ctx context.Context, shot *models.Screenshot) error {
	if shot.ID == "" {
		shot.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(shot).Error; err != nil {
		return fmt.Errorf("insert screenshot: %w", err)
	}
	return nil
}
