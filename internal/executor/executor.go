// Package executor drives one browser automation session per job:
// navigate, scan, connect, message, scan again, report.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/reachforge/puppet/internal/browser"
	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/detect"
	"github.com/reachforge/puppet/internal/dto"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/ratelimit"
	"github.com/reachforge/puppet/internal/storage"
)

// Outcome reports one execution to the scheduler, which owns the retry
// policy. Detected is set when the run ended in a security detection (the
// engine has already handled it). ProxyFault marks failures attributable
// to the egress proxy.
type Outcome struct {
	Completed  bool
	Detected   *detect.Detection
	ProxyFault bool
	Err        error
}

type Executor struct {
	sessions browser.Factory
	engine   *detect.Engine
	jobs     storage.JobRepo
	jobLogs  storage.JobLogRepo
	limiter  *ratelimit.Limiter
	notifier detect.Notifier
	log      *logrus.Entry
}

func New(
	sessions browser.Factory,
	engine *detect.Engine,
	jobs storage.JobRepo,
	jobLogs storage.JobLogRepo,
	limiter *ratelimit.Limiter,
	notifier detect.Notifier,
) *Executor {
	return &Executor{
		sessions: sessions,
		engine:   engine,
		jobs:     jobs,
		jobLogs:  jobLogs,
		limiter:  limiter,
		notifier: notifier,
		log:      logrus.WithField("component", "executor"),
	}
}

// Run executes one job end to end. The session's navigation, the detection
// settle delay and the randomized inter-action delays are the only yield
// points; cancellation is observed there and at nowhere else.
func (e *Executor) Run(ctx context.Context, job *models.Job, settings *models.UserAutomationSettings, prx *models.Proxy) Outcome {
	log := e.log.WithFields(logrus.Fields{"job_id": job.ID, "user_id": job.UserID})

	session, err := e.sessions.NewSession(ctx, browser.SessionOptions{
		SessionCookie: settings.SessionCookie,
		ProxyAddr:     prx.Addr(),
		ProxyUsername: prx.Username,
		ProxyPassword: prx.Password,
	})
	if err != nil {
		e.logStep(ctx, job, config.LogError, "session_open", fmt.Sprintf("session open failed: %v", err), 0)
		return Outcome{Err: fmt.Errorf("open session: %w", err), ProxyFault: true}
	}
	defer session.Close()

	start := time.Now()
	if err := session.Navigate(ctx, job.ProfileURL); err != nil {
		e.logStep(ctx, job, config.LogError, "navigate", fmt.Sprintf("navigation failed: %v", err), time.Since(start))
		return Outcome{Err: fmt.Errorf("navigate: %w", err), ProxyFault: true}
	}
	e.logStep(ctx, job, config.LogInfo, "navigate", "profile page loaded", time.Since(start))

	if out, done := e.scan(ctx, session, job, settings, "initial_scan"); done {
		return out
	}

	if err := e.humanDelay(ctx, settings); err != nil {
		return Outcome{Err: err}
	}

	start = time.Now()
	if err := session.ClickConnect(ctx); err != nil {
		e.logStep(ctx, job, config.LogError, "connect", fmt.Sprintf("connect click failed: %v", err), time.Since(start))
		return Outcome{Err: fmt.Errorf("click connect: %w", err)}
	}
	e.logStep(ctx, job, config.LogInfo, "connect", "connection request sent", time.Since(start))

	messageSent := false
	if job.Message != "" {
		if err := e.humanDelay(ctx, settings); err != nil {
			return Outcome{Err: err}
		}

		start = time.Now()
		if err := session.SendNote(ctx, job.Message); err != nil {
			// The connection went out; a lost note is not a failed job.
			e.logStep(ctx, job, config.LogWarn, "send_note", fmt.Sprintf("note delivery failed: %v", err), time.Since(start))
		} else {
			messageSent = true
			e.logStep(ctx, job, config.LogInfo, "send_note", "note attached to request", time.Since(start))
		}
	}

	if out, done := e.scan(ctx, session, job, settings, "post_action_scan"); done {
		return out
	}

	e.complete(ctx, job, settings, session.CurrentURL(), messageSent)
	log.Info("job completed")
	return Outcome{Completed: true}
}

// scan runs one detection pass; on a positive result the engine handles it
// and the run ends as a warning.
func (e *Executor) scan(ctx context.Context, session browser.Session, job *models.Job, settings *models.UserAutomationSettings, step string) (Outcome, bool) {
	start := time.Now()
	det, err := e.engine.Scan(ctx, session, job, settings)
	if err != nil {
		e.logStep(ctx, job, config.LogError, step, fmt.Sprintf("security scan failed: %v", err), time.Since(start))
		return Outcome{Err: fmt.Errorf("security scan: %w", err)}, true
	}
	if det != nil {
		e.logStep(ctx, job, config.LogWarn, step,
			fmt.Sprintf("security challenge detected: %s (confidence %.2f)", det.Type, det.Confidence),
			time.Since(start))
		e.engine.Handle(ctx, job, settings, det)
		return Outcome{Detected: det}, true
	}
	e.logStep(ctx, job, config.LogDebug, step, "no security challenge detected", time.Since(start))
	return Outcome{}, false
}

func (e *Executor) complete(ctx context.Context, job *models.Job, settings *models.UserAutomationSettings, pageURL string, messageSent bool) {
	result, _ := json.Marshal(map[string]any{
		"connected":    true,
		"message_sent": messageSent,
		"page_url":     pageURL,
		"completed_at": time.Now().UTC().Format(time.RFC3339),
	})

	// The status guard in Complete drops the result if the job was killed
	// past our last yield point: the execution finished, the result is moot.
	if err := e.jobs.Complete(ctx, job.ID, datatypes.JSON(result)); err != nil {
		e.log.WithError(err).WithField("job_id", job.ID).Error("completion update failed")
	}

	if err := e.limiter.RecordCompletion(ctx, job.UserID, messageSent); err != nil {
		e.log.WithError(err).WithField("job_id", job.ID).Error("completion stats failed")
	}

	if settings.SubscribedTo(config.EventJobCompleted) {
		e.publish(ctx, job, config.EventJobCompleted, "connection request completed")
	}

	// Tell the user when this completion exhausted today's budget.
	quota, err := e.limiter.Check(ctx, job.UserID, settings.DailyConnectionLimit)
	if err == nil && quota.Exhausted() && settings.SubscribedTo(config.EventDailyLimitReached) {
		e.publish(ctx, job, config.EventDailyLimitReached,
			fmt.Sprintf("daily connection limit reached (%d/%d)", quota.Current, quota.Limit))
	}
}

func (e *Executor) publish(ctx context.Context, job *models.Job, event config.NotificationEvent, msg string) {
	payload := dto.NotificationPayload{
		EventType: event,
		UserID:    job.UserID,
		JobID:     job.ID,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	}
	if err := e.notifier.Publish(ctx, payload); err != nil {
		e.log.WithError(err).WithField("job_id", job.ID).Warn("notification publish failed")
	}
}

// humanDelay sleeps a uniformly random duration within the user's
// configured inter-action bounds.
func (e *Executor) humanDelay(ctx context.Context, settings *models.UserAutomationSettings) error {
	min, max := settings.DelayBounds()
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) logStep(ctx context.Context, job *models.Job, level config.LogLevel, step, msg string, took time.Duration) {
	entry := &models.JobLogEntry{
		JobID:           job.ID,
		Level:           level,
		Message:         msg,
		StepName:        step,
		ExecutionTimeMS: took.Milliseconds(),
	}
	if err := e.jobLogs.Insert(ctx, entry); err != nil {
		e.log.WithError(err).WithField("job_id", job.ID).Debug("job log insert failed")
	}
}
