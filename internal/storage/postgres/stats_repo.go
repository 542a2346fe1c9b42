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
	"gorm.io/gorm/clause"
)

type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

var _ storage.StatsRepo = (*StatsRepository)(nil)

func statDay(day time.Time) time.Time {
	return day.UTC().Truncate(24 * time.Hour)
}

func (r *StatsRepository) GetDay(ctx context.Context, userID string, day time.Time) (*models.DailyStats, error) {
	var stats models.DailyStats
	err := r.db.WithContext(ctx).
		First(&stats, "user_id = ? AND stat_date = ?", userID, statDay(day)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No activity yet today: zero-valued row, not an error.
			return &models.DailyStats{UserID: userID, StatDate: statDay(day)}, nil
		}
		return nil, fmt.Errorf("get daily stats: %w", err)
	}
	return &stats, nil
}

// Increment applies the deltas as a single insert-or-add upsert keyed on
// (user_id, stat_date). Concurrent completions racing on the same key are
// resolved by the database, never by read-modify-write.
func (r *StatsRepository) Increment(ctx context.Context, userID string, day time.Time, deltas storage.StatDeltas) error {
	row := models.DailyStats{
		ID:                uuid.NewString(),
		UserID:            userID,
		StatDate:          statDay(day),
		ConnectionsSent:   deltas.ConnectionsSent,
		MessagesSent:      deltas.MessagesSent,
		JobsCompleted:     deltas.JobsCompleted,
		JobsFailed:        deltas.JobsFailed,
		JobsWarned:        deltas.JobsWarned,
		CaptchaDetections: deltas.CaptchaDetections,
		SecurityWarnings:  deltas.SecurityWarnings,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "stat_date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"connections_sent":   gorm.Expr("daily_stats.connections_sent + ?", deltas.ConnectionsSent),
			"messages_sent":      gorm.Expr("daily_stats.messages_sent + ?", deltas.MessagesSent),
			"jobs_completed":     gorm.Expr("daily_stats.jobs_completed + ?", deltas.JobsCompleted),
			"jobs_failed":        gorm.Expr("daily_stats.jobs_failed + ?", deltas.JobsFailed),
			"jobs_warned":        gorm.Expr("daily_stats.jobs_warned + ?", deltas.JobsWarned),
			"captcha_detections": gorm.Expr("daily_stats.captcha_detections + ?", deltas.CaptchaDetections),
			"security_warnings":  gorm.Expr("daily_stats.security_warnings + ?", deltas.SecurityWarnings),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("increment daily stats: %w", err)
	}
	return nil
}

// ResetDay zeroes the current day's counters for one user. Historical days
// are never touched.
func (r *StatsRepository) ResetDay(ctx context.Context, userID string, day time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.DailyStats{}).
		Where("user_id = ? AND stat_date = ?", userID, statDay(day)).
		Updates(map[string]any{
			"connections_sent":   0,
			"messages_sent":      0,
			"jobs_completed":     0,
			"jobs_failed":        0,
			"jobs_warned":        0,
			"captcha_detections": 0,
			"security_warnings":  0,
		}).Error
	if err != nil {
		return fmt.Errorf("reset daily stats: %w", err)
	}
	return nil
}
