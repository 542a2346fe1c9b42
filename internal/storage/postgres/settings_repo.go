package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/storage"
	"gorm.io/gorm"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

var _ storage.SettingsRepo = (*SettingsRepository)(nil)

func (r *SettingsRepository) GetByUserID(ctx context.Context, userID string) (*models.UserAutomationSettings, error) {
	var s models.UserAutomationSettings
	if err := r.db.WithContext(ctx).First(&s, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("settings not found: %w", err)
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

func (r *SettingsRepository) SetAutoMode(ctx context.Context, userID string, enabled bool) error {
	err := r.db.WithContext(ctx).Model(&models.UserAutomationSettings{}).
		Where("user_id = ?", userID).
		Update("auto_mode_enabled", enabled).Error
	if err != nil {
		return fmt.Errorf("set auto mode: %w", err)
	}
	return nil
}

// SetConsent records consent with a timestamp. Revoking consent forces auto
// mode off in the same transaction so the two fields can never disagree.
func (r *SettingsRepository) SetConsent(ctx context.Context, userID string, consent bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"automation_consent": consent}
		if consent {
			updates["automation_consent_date"] = time.Now().UTC()
		} else {
			updates["auto_mode_enabled"] = false
		}
		if err := tx.Model(&models.UserAutomationSettings{}).
			Where("user_id = ?", userID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("set consent: %w", err)
		}
		return nil
	})
}

func (r *SettingsRepository) StampManualReview(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Model(&models.UserAutomationSettings{}).
		Where("user_id = ?", userID).
		Update("last_manual_review_at", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("stamp manual review: %w", err)
	}
	return nil
}

func (r *SettingsRepository) SetAdminPaused(ctx context.Context, userID string, paused bool) error {
	err := r.db.WithContext(ctx).Model(&models.UserAutomationSettings{}).
		Where("user_id = ?", userID).
		Update("paused_by_admin", paused).Error
	if err != nil {
		return fmt.Errorf("set admin paused: %w", err)
	}
	return nil
}

func (r *SettingsRepository) AssignProxy(ctx context.Context, userID string, proxyID string) error {
	err := r.db.WithContext(ctx).Model(&models.UserAutomationSettings{}).
		Where("user_id = ?", userID).
		Update("proxy_id", proxyID).Error
	if err != nil {
		return fmt.Errorf("assign proxy to settings: %w", err)
	}
	return nil
}
