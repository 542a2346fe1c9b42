// Package detect scans live automation sessions for security challenges
// and handles positive detections: evidence capture, job warning, stats,
// notifications and auto-pause.
package detect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/reachforge/puppet/internal/browser"
	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/dto"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/storage"
)

// Detection is one positive scan result. EvidenceURL is set before the
// result is returned: evidence exists before any status change.
type Detection struct {
	Type          config.DetectionType
	Confidence    float64
	EvidenceURL   string
	PageURL       string
	FiredMatchers []string
	Timestamp     time.Time
}

// Notifier delivers structured payloads to the external dispatcher.
type Notifier interface {
	Publish(ctx context.Context, payload dto.NotificationPayload) error
}

type Engine struct {
	jobs        storage.JobRepo
	settings    storage.SettingsRepo
	stats       storage.StatsRepo
	screenshots storage.ScreenshotRepo
	blobs       browser.BlobStore
	notifier    Notifier

	settleDelay time.Duration
	log         *logrus.Entry
}

func NewEngine(
	jobs storage.JobRepo,
	settings storage.SettingsRepo,
	stats storage.StatsRepo,
	screenshots storage.ScreenshotRepo,
	blobs browser.BlobStore,
	notifier Notifier,
	settleDelay time.Duration,
) *Engine {
	return &Engine{
		jobs:        jobs,
		settings:    settings,
		stats:       stats,
		screenshots: screenshots,
		blobs:       blobs,
		notifier:    notifier,
		settleDelay: settleDelay,
		log:         logrus.WithField("component", "detect"),
	}
}

// Scan runs one detection pass over the session. Types are evaluated in
// declared order; within a type every matcher runs and the max firing
// confidence is reported; the first firing type ends the pass. Returns nil
// when nothing fires or the user disabled detection.
func (e *Engine) Scan(ctx context.Context, s browser.Session, job *models.Job, settings *models.UserAutomationSettings) (*Detection, error) {
	if !settings.DetectionEnabled {
		return nil, nil
	}

	// Let the page settle before reading it.
	select {
	case <-time.After(e.settleDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	pageText, err := s.VisibleText(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page text: %w", err)
	}
	// Text matchers compare lowercased phrases; normalize here so a driver
	// returning raw-case text cannot silence them.
	pageText = strings.ToLower(pageText)

	for _, dt := range config.DetectionScanOrder {
		det, err := e.scanType(ctx, s, dt, pageText)
		if err != nil {
			return nil, err
		}
		if det == nil {
			continue
		}

		e.log.WithFields(logrus.Fields{
			"job_id":     job.ID,
			"type":       det.Type,
			"confidence": det.Confidence,
		}).Warn("security challenge detected")

		// Evidence is captured before the caller can touch job state.
		e.captureEvidence(ctx, s, job, det)
		return det, nil
	}

	return nil, nil
}

func (e *Engine) scanType(ctx context.Context, s browser.Session, dt config.DetectionType, pageText string) (*Detection, error) {
	var fired []string
	maxConfidence := 0.0

	for _, m := range detectionMatchers[dt] {
		ok, err := m.Match(ctx, s, pageText)
		if err != nil {
			// A broken matcher must not abort the scan pass.
			e.log.WithError(err).Debugf("matcher failed: %s", m.Describe())
			continue
		}
		if ok {
			fired = append(fired, m.Describe())
			if m.Confidence() > maxConfidence {
				maxConfidence = m.Confidence()
			}
		}
	}

	if len(fired) == 0 {
		return nil, nil
	}

	return &Detection{
		Type:          dt,
		Confidence:    maxConfidence,
		PageURL:       s.CurrentURL(),
		FiredMatchers: fired,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// captureEvidence screenshots the page, uploads it and persists exactly one
// Screenshot row. Upload failure leaves EvidenceURL empty but never blocks
// the detection itself.
func (e *Engine) captureEvidence(ctx context.Context, s browser.Session, job *models.Job, det *Detection) {
	img, err := s.Screenshot(ctx)
	if err != nil {
		e.log.WithError(err).WithField("job_id", job.ID).Error("screenshot capture failed")
		return
	}

	key := fmt.Sprintf("security-%s-%s-%d.png", det.Type, job.ID, det.Timestamp.UnixMilli())
	url, err := e.blobs.Upload(ctx, key, img, "image/png")
	if err != nil {
		e.log.WithError(err).WithField("job_id", job.ID).Error("evidence upload failed")
		return
	}
	det.EvidenceURL = url

	shot := &models.Screenshot{
		ID:            uuid.NewString(),
		JobID:         job.ID,
		DetectionType: det.Type,
		FileURL:       url,
		FileSize:      len(img),
		PageURL:       det.PageURL,
		CapturedAt:    det.Timestamp,
	}
	if err := e.screenshots.Insert(ctx, shot); err != nil {
		e.log.WithError(err).WithField("job_id", job.ID).Error("screenshot record insert failed")
	}
}

// Handle runs the four post-detection steps. They are independent and
// best-effort: each failure is logged and the remaining steps still run.
func (e *Engine) Handle(ctx context.Context, job *models.Job, settings *models.UserAutomationSettings, det *Detection) {
	log := e.log.WithFields(logrus.Fields{"job_id": job.ID, "type": det.Type})

	// 1. Move the job to warning with the detection details.
	msg := fmt.Sprintf("security detection: %s (confidence %.2f)", det.Type, det.Confidence)
	if err := e.jobs.Warn(ctx, job.ID, det.Type, det.EvidenceURL, msg); err != nil {
		log.WithError(err).Error("job warning update failed")
	}

	// 2. Notify, if the user subscribed to warning-class events.
	if e.warningSubscribed(settings, det.Type) {
		payload := dto.NotificationPayload{
			EventType:     config.EventWarning,
			UserID:        job.UserID,
			JobID:         job.ID,
			Message:       msg,
			DetectionType: det.Type,
			EvidenceURL:   det.EvidenceURL,
			Timestamp:     det.Timestamp,
			Metadata: map[string]any{
				"confidence":     det.Confidence,
				"page_url":       det.PageURL,
				"fired_matchers": det.FiredMatchers,
			},
		}
		if err := e.notifier.Publish(ctx, payload); err != nil {
			log.WithError(err).Error("warning notification failed")
		}
	}

	// 3. Count the warning in today's stats.
	deltas := storage.StatDeltas{JobsWarned: 1, SecurityWarnings: 1}
	if det.Type == config.DetectionCaptcha {
		deltas.CaptchaDetections = 1
	}
	if err := e.stats.Increment(ctx, job.UserID, det.Timestamp, deltas); err != nil {
		log.WithError(err).Error("daily stats update failed")
	}

	// 4. Auto-pause the user's auto mode if they opted in.
	if settings.AutoPauseOnWarning {
		if err := e.settings.SetAutoMode(ctx, job.UserID, false); err != nil {
			log.WithError(err).Error("auto-pause failed")
		} else {
			log.Info("auto mode disabled after security detection")
		}
	}
}

func (e *Engine) warningSubscribed(settings *models.UserAutomationSettings, dt config.DetectionType) bool {
	if settings.SubscribedTo(config.EventWarning) {
		return true
	}
	if dt == config.DetectionCaptcha && settings.SubscribedTo(config.EventCaptchaDetected) {
		return true
	}
	if dt == config.DetectionSecurityCheckpoint && settings.SubscribedTo(config.EventSecurityCheckpoint) {
		return true
	}
	return false
}
