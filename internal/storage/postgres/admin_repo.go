package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/storage"
	"gorm.io/gorm"
)

const adminControlsID = 1

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

var _ storage.AdminRepo = (*AdminRepository)(nil)

// GetControls reads the singleton row fresh on every call. The shutdown
// flag is safety-critical, so there is deliberately no caching here.
func (r *AdminRepository) GetControls(ctx context.Context) (*models.AdminControls, error) {
	var c models.AdminControls
	err := r.db.WithContext(ctx).First(&c, "id = ?", adminControlsID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// First boot: sane defaults, nothing shut down.
			c = models.AdminControls{ID: adminControlsID, MaxConcurrentJobs: 10, MaxJobsPerHour: 60}
			if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
				return nil, fmt.Errorf("seed admin controls: %w", err)
			}
			return &c, nil
		}
		return nil, fmt.Errorf("get admin controls: %w", err)
	}
	return &c, nil
}

func (r *AdminRepository) SetShutdown(ctx context.Context, on bool, reason, initiator string) error {
	updates := map[string]any{
		"shutdown_mode":      on,
		"shutdown_reason":    reason,
		"shutdown_initiator": initiator,
	}
	if on {
		updates["shutdown_at"] = time.Now().UTC()
	} else {
		updates["shutdown_at"] = nil
	}

	if err := r.updateControls(ctx, updates); err != nil {
		return fmt.Errorf("set shutdown mode: %w", err)
	}
	return nil
}

func (r *AdminRepository) SetMaintenance(ctx context.Context, on bool, message string, until *time.Time) error {
	err := r.updateControls(ctx, map[string]any{
		"maintenance_mode":    on,
		"maintenance_message": message,
		"maintenance_until":   until,
	})
	if err != nil {
		return fmt.Errorf("set maintenance mode: %w", err)
	}
	return nil
}

// updateControls writes the singleton row, seeding it first if this store
// was never read. An UPDATE matching zero rows would otherwise report
// success while dropping a shutdown or maintenance toggle on the floor.
func (r *AdminRepository) updateControls(ctx context.Context, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.AdminControls{}).
		Where("id = ?", adminControlsID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if _, err := r.GetControls(ctx); err != nil {
		return err
	}
	res = r.db.WithContext(ctx).Model(&models.AdminControls{}).
		Where("id = ?", adminControlsID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("admin controls row missing after seed")
	}
	return nil
}

func (r *AdminRepository) Log(ctx context.Context, entry *models.AdminLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert admin log: %w", err)
	}
	return nil
}

func (r *AdminRepository) RecentLogs(ctx context.Context, limit int) ([]models.AdminLogEntry, error) {
	var logs []models.AdminLogEntry
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list admin logs: %w", err)
	}
	return logs, nil
}
