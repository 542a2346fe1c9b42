package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/storage"
	"gorm.io/gorm"
)

type ProxyRepository struct {
	db *gorm.DB
}

func NewProxyRepository(db *gorm.DB) *ProxyRepository {
	return &ProxyRepository{db: db}
}

var _ storage.ProxyRepo = (*ProxyRepository)(nil)

func (r *ProxyRepository) Get(ctx context.Context, id string) (*models.Proxy, error) {
	var p models.Proxy
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("proxy not found: %w", err)
		}
		return nil, fmt.Errorf("get proxy: %w", err)
	}
	return &p, nil
}

// ListCandidates returns checkout candidates least recently used first.
// A user's fixed assignment always wins over the shared pool: shared
// proxies (no assignment) are considered only when the user has no usable
// assigned proxy.
func (r *ProxyRepository) ListCandidates(ctx context.Context, userID, location string) ([]models.Proxy, error) {
	assigned, err := r.listEligible(ctx, location, "assigned_user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	if len(assigned) > 0 {
		return assigned, nil
	}
	return r.listEligible(ctx, location, "assigned_user_id = ''")
}

func (r *ProxyRepository) listEligible(ctx context.Context, location, assignment string, args ...any) ([]models.Proxy, error) {
	q := r.db.WithContext(ctx).
		Where("status = ?", config.ProxyActive).
		Where("requests_today < daily_limit").
		Where(assignment, args...)

	if location != "" {
		q = q.Where("location = ?", location)
	}

	var proxies []models.Proxy
	err := q.Order("last_used_at ASC NULLS FIRST").Find(&proxies).Error
	if err != nil {
		return nil, fmt.Errorf("list proxy candidates: %w", err)
	}
	return proxies, nil
}

// IncrementUsage bumps the daily counter and the LRU stamp atomically.
func (r *ProxyRepository) IncrementUsage(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&models.Proxy{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"requests_today": gorm.Expr("requests_today + ?", 1),
			"last_used_at":   time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("increment proxy usage: %w", err)
	}
	return nil
}

func (r *ProxyRepository) ReportSuccess(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&models.Proxy{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"success_count":     gorm.Expr("success_count + ?", 1),
			"last_health_check": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("report proxy success: %w", err)
	}
	return nil
}

// ReportFailure bumps failure_count and flips the proxy to failed once the
// counter reaches threshold.
func (r *ProxyRepository) ReportFailure(ctx context.Context, id string, threshold int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Proxy{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"failure_count":     gorm.Expr("failure_count + ?", 1),
				"last_health_check": time.Now().UTC(),
			}).Error; err != nil {
			return fmt.Errorf("report proxy failure: %w", err)
		}

		if err := tx.Model(&models.Proxy{}).
			Where("id = ? AND failure_count >= ? AND status = ?", id, threshold, config.ProxyActive).
			Update("status", config.ProxyFailed).Error; err != nil {
			return fmt.Errorf("mark proxy failed: %w", err)
		}
		return nil
	})
}

// ResetStaleCounters zeroes requests_today for every proxy whose
// last_reset_date predates today (UTC). Returns how many rows reset.
func (r *ProxyRepository) ResetStaleCounters(ctx context.Context, today time.Time) (int64, error) {
	day := today.UTC().Truncate(24 * time.Hour)
	res := r.db.WithContext(ctx).Model(&models.Proxy{}).
		Where("last_reset_date < ?", day).
		Updates(map[string]any{
			"requests_today":  0,
			"last_reset_date": day,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("reset proxy counters: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *ProxyRepository) AssignToUser(ctx context.Context, proxyID, userID string) error {
	err := r.db.WithContext(ctx).Model(&models.Proxy{}).
		Where("id = ?", proxyID).
		Update("assigned_user_id", userID).Error
	if err != nil {
		return fmt.Errorf("assign proxy: %w", err)
	}
	return nil
}
