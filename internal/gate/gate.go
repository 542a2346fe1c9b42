// Package gate decides, per outreach request, whether a job may be
// auto-queued or must wait for manual approval, based on stored consent
// and the user's auto-mode toggle.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/reachforge/puppet/common"
	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/dto"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/ratelimit"
	"github.com/reachforge/puppet/internal/storage"
)

const (
	defaultPriority   = 5
	defaultMaxRetries = 3
	profilePathMarker = "linkedin.com/in/"
)

type Service struct {
	jobs     storage.JobRepo
	settings storage.SettingsRepo
	activity storage.ActivityRepo
	admin    storage.AdminRepo
	limiter  *ratelimit.Limiter
	log      *logrus.Entry
}

func NewService(
	jobs storage.JobRepo,
	settings storage.SettingsRepo,
	activity storage.ActivityRepo,
	admin storage.AdminRepo,
	limiter *ratelimit.Limiter,
) *Service {
	return &Service{
		jobs:     jobs,
		settings: settings,
		activity: activity,
		admin:    admin,
		limiter:  limiter,
		log:      logrus.WithField("component", "gate"),
	}
}

var _ ServiceInterface = (*Service)(nil)

// Submit evaluates the decision table in fixed order: credential, consent,
// quota, auto mode, manual review. Every branch writes exactly one
// activity entry.
func (s *Service) Submit(ctx context.Context, req *dto.SubmitRequest) (*dto.SubmitResponse, error) {
	if !strings.Contains(req.ProfileURL, profilePathMarker) {
		return nil, common.Errf(http.StatusBadRequest, "target_profile_url must be a profile link")
	}

	if err := s.creationAllowed(ctx); err != nil {
		return nil, err
	}

	settings, err := s.settings.GetByUserID(ctx, req.UserID)
	if err != nil || settings.SessionCookie == "" {
		s.logActivity(ctx, req, "", config.ActivityManualReview,
			"outreach request rejected: no session credential configured",
			map[string]any{"reject_code": common.CodeCredentialMissing})
		return nil, common.CodedErrf(http.StatusBadRequest, common.CodeCredentialMissing,
			"session credential not configured; set up the integration first")
	}

	if !settings.AutomationConsent {
		id := s.logActivity(ctx, req, "", config.ActivityManualReview,
			"outreach request held: automation consent required",
			map[string]any{"consent_required": true})
		return &dto.SubmitResponse{
			Mode:           "manual",
			Action:         "consent_required",
			DraftedMessage: req.DraftedMessage,
			ActivityLogID:  id,
		}, nil
	}

	quota, err := s.limiter.Check(ctx, req.UserID, settings.DailyConnectionLimit)
	if err != nil {
		return nil, common.Errf(http.StatusInternalServerError, "failed to check daily limit")
	}
	if quota.Exhausted() {
		s.logActivity(ctx, req, "", config.ActivityManualReview,
			fmt.Sprintf("outreach request rejected: daily connection limit reached (%d/%d)", quota.Current, quota.Limit),
			map[string]any{"reject_code": common.CodeRateLimited})
		return nil, common.APIError{
			Status:  http.StatusTooManyRequests,
			Code:    common.CodeRateLimited,
			Message: fmt.Sprintf("daily connection limit reached (%d/%d), resets at UTC midnight", quota.Current, quota.Limit),
			Fields:  map[string]any{"daily_limit_remaining": 0},
		}
	}

	if settings.AutoModeEnabled {
		job, err := s.createJob(ctx, req.UserID, req.ProfileURL, req.DraftedMessage, req.CampaignID, req.LeadID, req.Priority)
		if err != nil {
			return nil, common.Errf(http.StatusInternalServerError, "failed to queue job")
		}
		id := s.logActivity(ctx, req, job.ID, config.ActivityAutoQueue,
			"connection request auto-queued", nil)

		remaining := quota.Remaining
		return &dto.SubmitResponse{
			Mode:                "auto",
			Action:              "queued_immediately",
			JobID:               job.ID,
			ActivityLogID:       id,
			DailyLimitRemaining: &remaining,
		}, nil
	}

	if err := s.settings.StampManualReview(ctx, req.UserID); err != nil {
		s.log.WithError(err).WithField("user_id", req.UserID).Warn("manual review stamp failed")
	}
	id := s.logActivity(ctx, req, "", config.ActivityManualReview,
		"manual review initiated for connection request", nil)

	return &dto.SubmitResponse{
		Mode:           "manual",
		Action:         "review_required",
		DraftedMessage: req.DraftedMessage,
		ActivityLogID:  id,
	}, nil
}

// Approve queues a job after human review and records the manual override.
func (s *Service) Approve(ctx context.Context, req *dto.ApproveRequest) (*dto.ApproveResponse, error) {
	if !strings.Contains(req.ProfileURL, profilePathMarker) {
		return nil, common.Errf(http.StatusBadRequest, "target_profile_url must be a profile link")
	}

	if err := s.creationAllowed(ctx); err != nil {
		return nil, err
	}

	job, err := s.createJob(ctx, req.UserID, req.ProfileURL, req.Message, req.CampaignID, req.LeadID, req.Priority)
	if err != nil {
		return nil, common.Errf(http.StatusInternalServerError, "failed to queue job")
	}

	entry := &models.ActivityLogEntry{
		UserID:       req.UserID,
		LeadID:       req.LeadID,
		CampaignID:   req.CampaignID,
		JobID:        job.ID,
		ActivityType: config.ActivityManualOverride,
		Description:  "connection request manually approved and queued",
		ProfileURL:   req.ProfileURL,
		Message:      req.Message,
	}
	if req.ActivityLogID != "" {
		meta, _ := json.Marshal(map[string]any{"original_activity_log_id": req.ActivityLogID})
		entry.Metadata = datatypes.JSON(meta)
	}
	if err := s.activity.Insert(ctx, entry); err != nil {
		s.log.WithError(err).WithField("job_id", job.ID).Warn("manual override activity insert failed")
	}

	return &dto.ApproveResponse{JobID: job.ID}, nil
}

// UpdateConsent records grant/revocation. Revocation forces auto mode off
// atomically in the repository transaction.
func (s *Service) UpdateConsent(ctx context.Context, req *dto.ConsentUpdateRequest) error {
	if _, err := s.settings.GetByUserID(ctx, req.UserID); err != nil {
		return common.CodedErrf(http.StatusNotFound, common.CodeNotFound, "automation settings not found")
	}

	if err := s.settings.SetConsent(ctx, req.UserID, req.Consent); err != nil {
		return common.Errf(http.StatusInternalServerError, "failed to update consent")
	}

	activityType := config.ActivityConsentGranted
	description := "automation consent granted"
	if !req.Consent {
		activityType = config.ActivityConsentRevoked
		description = "automation consent revoked, auto mode disabled"
	}
	entry := &models.ActivityLogEntry{
		UserID:       req.UserID,
		ActivityType: activityType,
		Description:  description,
	}
	if err := s.activity.Insert(ctx, entry); err != nil {
		s.log.WithError(err).WithField("user_id", req.UserID).Warn("consent activity insert failed")
	}

	return nil
}

// CheckDispatch is the scheduler's pre-dispatch gate check: credential and
// consent must still hold when the job is about to leave pending.
func (s *Service) CheckDispatch(ctx context.Context, userID string) (*models.UserAutomationSettings, error) {
	settings, err := s.settings.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("dispatch gate: %w", err)
	}
	if settings.SessionCookie == "" {
		return nil, fmt.Errorf("dispatch gate: no session credential for user %s", userID)
	}
	if !settings.AutomationConsent {
		return nil, fmt.Errorf("dispatch gate: consent revoked for user %s", userID)
	}
	return settings, nil
}

// creationAllowed refuses new job creation while maintenance mode is
// active. Already-pending jobs are unaffected.
func (s *Service) creationAllowed(ctx context.Context) error {
	controls, err := s.admin.GetControls(ctx)
	if err != nil {
		return common.Errf(http.StatusInternalServerError, "failed to read system controls")
	}
	if controls.MaintenanceActive(time.Now().UTC()) {
		msg := controls.MaintenanceMessage
		if msg == "" {
			msg = "system is under maintenance, new requests are temporarily disabled"
		}
		return common.CodedErrf(http.StatusServiceUnavailable, common.CodeMaintenance, "%s", msg)
	}
	return nil
}

func (s *Service) createJob(ctx context.Context, userID, profileURL, message, campaignID, leadID string, priority int) (*models.Job, error) {
	if priority == 0 {
		priority = defaultPriority
	}
	job := &models.Job{
		ID:          uuid.NewString(),
		UserID:      userID,
		CampaignID:  campaignID,
		LeadID:      leadID,
		ProfileURL:  profileURL,
		Message:     message,
		Priority:    priority,
		Status:      config.JobStatusPending,
		ScheduledAt: time.Now().UTC(),
		MaxRetries:  defaultMaxRetries,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// logActivity writes one audit entry and returns its id; failures are
// logged but never fail the request.
func (s *Service) logActivity(ctx context.Context, req *dto.SubmitRequest, jobID string, activityType config.ActivityType, description string, metadata map[string]any) string {
	entry := &models.ActivityLogEntry{
		UserID:       req.UserID,
		LeadID:       req.LeadID,
		CampaignID:   req.CampaignID,
		JobID:        jobID,
		ActivityType: activityType,
		Description:  description,
		ProfileURL:   req.ProfileURL,
		Message:      req.DraftedMessage,
	}
	if metadata != nil {
		meta, _ := json.Marshal(metadata)
		entry.Metadata = datatypes.JSON(meta)
	}
	if err := s.activity.Insert(ctx, entry); err != nil {
		s.log.WithError(err).WithField("user_id", req.UserID).Warn("activity insert failed")
		return ""
	}
	return entry.ID
}
