// Package scheduler owns the job lifecycle: the dispatch contract, retry
// policy, concurrency ceiling and stuck-execution recovery.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/detect"
	"github.com/reachforge/puppet/internal/dto"
	"github.com/reachforge/puppet/internal/executor"
	"github.com/reachforge/puppet/internal/gate"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/proxy"
	"github.com/reachforge/puppet/internal/ratelimit"
	"github.com/reachforge/puppet/internal/storage"
)

// Runner executes one claimed job; the production implementation is the
// browser executor.
type Runner interface {
	Run(ctx context.Context, job *models.Job, settings *models.UserAutomationSettings, prx *models.Proxy) executor.Outcome
}

type Scheduler struct {
	jobs     storage.JobRepo
	admin    storage.AdminRepo
	gate     gate.ServiceInterface
	limiter  *ratelimit.Limiter
	pool     *proxy.Pool
	runner   Runner
	notifier detect.Notifier

	interval time.Duration
	stuckAge time.Duration
	id       string

	// connections_sent only moves at completion, so the limiter alone
	// cannot see executions still in flight. inFlight holds one unit of
	// the user's daily budget per dispatched job until its outcome lands.
	mu       sync.Mutex
	inFlight map[string]int

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	log    *logrus.Entry
}

func New(
	jobs storage.JobRepo,
	admin storage.AdminRepo,
	gateSvc gate.ServiceInterface,
	limiter *ratelimit.Limiter,
	pool *proxy.Pool,
	runner Runner,
	notifier detect.Notifier,
	interval, stuckAge time.Duration,
) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:     jobs,
		admin:    admin,
		gate:     gateSvc,
		limiter:  limiter,
		pool:     pool,
		runner:   runner,
		notifier: notifier,
		interval: interval,
		stuckAge: stuckAge,
		id:       "scheduler-" + uuid.NewString()[:8],
		inFlight: make(map[string]int),
		ctx:      ctx,
		cancel:   cancel,
		log:      logrus.WithField("component", "scheduler"),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			s.cycle(s.ctx)
			select {
			case <-ticker.C:
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// cycle is one dispatch pass. The shutdown flag is read fresh from the
// store every pass; a store failure skips the pass loudly rather than
// dispatching against a possibly stale flag.
func (s *Scheduler) cycle(ctx context.Context) {
	s.pool.ResetDailyCounters(ctx)

	controls, err := s.admin.GetControls(ctx)
	if err != nil {
		s.log.WithError(err).Error("cannot read admin controls, skipping dispatch cycle")
		return
	}
	if controls.ShutdownMode {
		s.log.WithField("reason", controls.ShutdownReason).Warn("shutdown mode active, dispatch halted")
		return
	}

	s.recoverStuck(ctx)

	running, err := s.jobs.CountRunning(ctx)
	if err != nil {
		s.log.WithError(err).Error("cannot count running jobs")
		return
	}
	slots := controls.MaxConcurrentJobs - int(running)
	if slots <= 0 {
		return
	}

	ready, err := s.jobs.ListReady(ctx, slots)
	if err != nil {
		s.log.WithError(err).Error("cannot list ready jobs")
		return
	}

	for i := range ready {
		if ctx.Err() != nil {
			return
		}
		s.dispatch(ctx, &ready[i])
	}
}

// dispatch applies the dispatch contract to one pending job: gate check,
// quota check, proxy checkout, then claim and run. Any refusal leaves the
// job in pending without consuming quota or a proxy slot.
func (s *Scheduler) dispatch(ctx context.Context, job *models.Job) {
	log := s.log.WithFields(logrus.Fields{"job_id": job.ID, "user_id": job.UserID})

	settings, err := s.gate.CheckDispatch(ctx, job.UserID)
	if err != nil {
		log.WithError(err).Debug("gate refused dispatch, job stays pending")
		return
	}

	quota, err := s.limiter.Check(ctx, job.UserID, settings.DailyConnectionLimit)
	if err != nil {
		log.WithError(err).Error("quota check failed, job stays pending")
		return
	}
	if !s.reserveQuota(job.UserID, quota.Remaining) {
		log.Debug("daily quota exhausted, job stays pending")
		return
	}

	prx, err := s.pool.Checkout(ctx, job.UserID, "")
	if err != nil {
		s.releaseQuota(job.UserID)
		if errors.Is(err, proxy.ErrNoProxyAvailable) {
			log.Debug("no proxy available, job stays pending")
		} else {
			log.WithError(err).Error("proxy checkout failed, job stays pending")
		}
		return
	}

	claimed, err := s.jobs.MarkQueued(ctx, job.ID)
	if err != nil || !claimed {
		// Lost the claim (or store error): free the lease untouched.
		s.pool.Abort(ctx, prx.ID)
		s.releaseQuota(job.UserID)
		if err != nil {
			log.WithError(err).Error("claim failed")
		}
		return
	}

	if err := s.jobs.MarkRunning(ctx, job.ID, s.id); err != nil {
		log.WithError(err).Error("mark running failed")
		s.pool.Abort(ctx, prx.ID)
		s.releaseQuota(job.UserID)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		outcome := s.runner.Run(s.ctx, job, settings, prx)
		s.pool.Release(context.Background(), prx.ID, outcome.ProxyFault)
		s.handleOutcome(context.Background(), job, settings, outcome)
		s.releaseQuota(job.UserID)
	}()
}

// reserveQuota holds one unit of the user's remaining daily budget. It
// refuses once the in-flight holds consume everything the limiter still
// reports free.
func (s *Scheduler) reserveQuota(userID string, remaining int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if remaining-s.inFlight[userID] <= 0 {
		return false
	}
	s.inFlight[userID]++
	return true
}

func (s *Scheduler) releaseQuota(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[userID] > 1 {
		s.inFlight[userID]--
	} else {
		delete(s.inFlight, userID)
	}
}

// handleOutcome applies the retry policy. Completions and detections were
// already persisted by the executor and the detection engine; only
// transient failures are decided here.
func (s *Scheduler) handleOutcome(ctx context.Context, job *models.Job, settings *models.UserAutomationSettings, outcome executor.Outcome) {
	if outcome.Completed || outcome.Detected != nil || outcome.Err == nil {
		return
	}

	log := s.log.WithFields(logrus.Fields{"job_id": job.ID, "retry_count": job.RetryCount})

	if job.RetryCount >= job.MaxRetries {
		msg := fmt.Sprintf("failed after %d retries: %v", job.RetryCount, outcome.Err)
		if err := s.jobs.Fail(ctx, job.ID, msg); err != nil {
			log.WithError(err).Error("terminal failure update failed")
		}
		if err := s.limiter.RecordFailure(ctx, job.UserID); err != nil {
			log.WithError(err).Error("failure stats update failed")
		}
		if settings.SubscribedTo(config.EventJobFailed) {
			payload := dto.NotificationPayload{
				EventType: config.EventJobFailed,
				UserID:    job.UserID,
				JobID:     job.ID,
				Message:   msg,
				Timestamp: time.Now().UTC(),
			}
			if err := s.notifier.Publish(ctx, payload); err != nil {
				log.WithError(err).Warn("failure notification failed")
			}
		}
		log.WithError(outcome.Err).Warn("job terminally failed")
		return
	}

	backoff := s.retryBackoff(settings)
	if err := s.jobs.RetryLater(ctx, job.ID, time.Now().UTC().Add(backoff)); err != nil {
		log.WithError(err).Error("retry reschedule failed")
		return
	}
	log.WithError(outcome.Err).WithField("backoff", backoff).Info("job rescheduled after transient failure")
}

// retryBackoff draws a randomized delay from the user's inter-action
// bounds; transient retries look like ordinary pacing, not a tight loop.
func (s *Scheduler) retryBackoff(settings *models.UserAutomationSettings) time.Duration {
	min, max := settings.DelayBounds()
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// recoverStuck re-pends executions whose process died mid-run, so their
// jobs are not lost to a phantom running state.
func (s *Scheduler) recoverStuck(ctx context.Context) {
	stuck, err := s.jobs.ListStuckRunning(ctx, s.stuckAge)
	if err != nil {
		s.log.WithError(err).Error("stuck job scan failed")
		return
	}
	for _, j := range stuck {
		s.log.WithField("job_id", j.ID).Warn("recovering stuck job")
		if err := s.jobs.RetryLater(ctx, j.ID, time.Now().UTC()); err != nil {
			s.log.WithError(err).WithField("job_id", j.ID).Error("stuck job recovery failed")
		}
	}
}
