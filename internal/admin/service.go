// Package admin is the emergency control plane: per-job and per-user
// interventions, bulk operations and the global shutdown and maintenance
// switches, every action audited.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/reachforge/puppet/common"
	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/dto"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/scheduler"
	"github.com/reachforge/puppet/internal/storage"
)

type Service struct {
	jobs     storage.JobRepo
	settings storage.SettingsRepo
	stats    storage.StatsRepo
	proxies  storage.ProxyRepo
	admin    storage.AdminRepo
	log      *logrus.Entry
}

func NewService(
	jobs storage.JobRepo,
	settings storage.SettingsRepo,
	stats storage.StatsRepo,
	proxies storage.ProxyRepo,
	adminRepo storage.AdminRepo,
) *Service {
	return &Service{
		jobs:     jobs,
		settings: settings,
		stats:    stats,
		proxies:  proxies,
		admin:    adminRepo,
		log:      logrus.WithField("component", "admin"),
	}
}

var _ ServiceInterface = (*Service)(nil)

var jobActionTypes = map[string]config.AdminActionType{
	"retry":     config.AdminJobRetry,
	"kill":      config.AdminJobKill,
	"pause":     config.AdminJobPause,
	"add_notes": config.AdminJobAddNotes,
}

// JobAction applies one intervention to one job. The audit row is written
// whether the action succeeds or not.
func (s *Service) JobAction(ctx context.Context, adminID string, req *dto.JobActionRequest) (*dto.ActionResponse, error) {
	entry := &models.AdminLogEntry{
		AdminID:     adminID,
		ActionType:  jobActionTypes[req.Action],
		TargetJobID: req.JobID,
	}

	msg, err := s.applyJobAction(ctx, req)
	s.audit(ctx, entry, msg, err)
	if err != nil {
		return nil, err
	}
	return &dto.ActionResponse{Message: msg}, nil
}

func (s *Service) applyJobAction(ctx context.Context, req *dto.JobActionRequest) (string, error) {
	job, err := s.jobs.Get(ctx, req.JobID)
	if err != nil {
		return "", common.CodedErrf(http.StatusNotFound, common.CodeNotFound, "job not found")
	}

	switch req.Action {
	case "retry":
		if req.Reason == "" {
			return "", common.CodedErrf(http.StatusBadRequest, common.CodeInvalidAction,
				"a reason is required to retry a job")
		}
		if job.Status != config.JobStatusFailed && job.Status != config.JobStatusWarning {
			return "", common.CodedErrf(http.StatusConflict, common.CodeInvalidState,
				"cannot retry a job in status %s", job.Status)
		}
		if err := s.jobs.AdminRetry(ctx, job.ID); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to retry job")
		}
		return fmt.Sprintf("job requeued for retry: %s", req.Reason), nil

	case "kill":
		if !scheduler.CanTransition(job.Status, config.JobStatusCancelled) {
			return "", common.CodedErrf(http.StatusConflict, common.CodeInvalidState,
				"cannot kill a job in status %s", job.Status)
		}
		if err := s.jobs.Cancel(ctx, job.ID); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to kill job")
		}
		return "job cancelled", nil

	case "pause":
		if job.Status.Terminal() {
			return "", common.CodedErrf(http.StatusConflict, common.CodeInvalidState,
				"cannot pause a job in status %s", job.Status)
		}
		if err := s.jobs.SetPaused(ctx, job.ID, true); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to pause job")
		}
		return "job paused", nil

	case "add_notes":
		if req.AdminNotes == "" {
			return "", common.CodedErrf(http.StatusBadRequest, common.CodeInvalidAction,
				"admin_notes must not be empty")
		}
		if err := s.jobs.AddNotes(ctx, job.ID, req.AdminNotes); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to add notes")
		}
		return "notes added", nil
	}

	return "", common.CodedErrf(http.StatusBadRequest, common.CodeInvalidAction, "unknown job action %q", req.Action)
}

var userActionTypes = map[string]config.AdminActionType{
	"pause":        config.AdminUserPause,
	"unpause":      config.AdminUserUnpause,
	"reset_limits": config.AdminUserResetLimits,
	"assign_proxy": config.AdminProxyAssign,
}

// UserAction applies one intervention to one user's automation.
func (s *Service) UserAction(ctx context.Context, adminID string, req *dto.UserActionRequest) (*dto.ActionResponse, error) {
	entry := &models.AdminLogEntry{
		AdminID:       adminID,
		ActionType:    userActionTypes[req.Action],
		TargetUserID:  req.UserID,
		TargetProxyID: req.ProxyID,
	}

	msg, err := s.applyUserAction(ctx, req)
	s.audit(ctx, entry, msg, err)
	if err != nil {
		return nil, err
	}
	return &dto.ActionResponse{Message: msg}, nil
}

func (s *Service) applyUserAction(ctx context.Context, req *dto.UserActionRequest) (string, error) {
	if _, err := s.settings.GetByUserID(ctx, req.UserID); err != nil {
		return "", common.CodedErrf(http.StatusNotFound, common.CodeNotFound, "user automation settings not found")
	}

	switch req.Action {
	case "pause":
		if err := s.settings.SetAdminPaused(ctx, req.UserID, true); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to pause user")
		}
		return "user automation paused", nil

	case "unpause":
		if err := s.settings.SetAdminPaused(ctx, req.UserID, false); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to unpause user")
		}
		return "user automation resumed", nil

	case "reset_limits":
		if err := s.stats.ResetDay(ctx, req.UserID, time.Now().UTC()); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to reset daily limits")
		}
		return "daily counters reset", nil

	case "assign_proxy":
		if req.ProxyID == "" {
			return "", common.CodedErrf(http.StatusBadRequest, common.CodeInvalidAction,
				"proxy_id is required for assign_proxy")
		}
		if _, err := s.proxies.Get(ctx, req.ProxyID); err != nil {
			return "", common.CodedErrf(http.StatusNotFound, common.CodeNotFound, "proxy not found")
		}
		if err := s.proxies.AssignToUser(ctx, req.ProxyID, req.UserID); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to assign proxy")
		}
		if err := s.settings.AssignProxy(ctx, req.UserID, req.ProxyID); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to assign proxy")
		}
		return "proxy assigned", nil
	}

	return "", common.CodedErrf(http.StatusBadRequest, common.CodeInvalidAction, "unknown user action %q", req.Action)
}

// BulkAction applies one action across targets independently. There is no
// transaction across targets; each outcome is reported on its own.
func (s *Service) BulkAction(ctx context.Context, adminID string, req *dto.BulkActionRequest) (*dto.BulkActionResponse, error) {
	resp := &dto.BulkActionResponse{Action: req.Action}

	for _, target := range req.TargetIDs {
		var err error
		switch req.Action {
		case "retry", "kill", "pause":
			_, err = s.applyJobAction(ctx, &dto.JobActionRequest{
				JobID:  target,
				Action: req.Action,
				Reason: req.Reason,
			})
		case "pause_user":
			_, err = s.applyUserAction(ctx, &dto.UserActionRequest{UserID: target, Action: "pause", Reason: req.Reason})
		case "unpause_user":
			_, err = s.applyUserAction(ctx, &dto.UserActionRequest{UserID: target, Action: "unpause", Reason: req.Reason})
		default:
			err = common.CodedErrf(http.StatusBadRequest, common.CodeInvalidAction, "unknown bulk action %q", req.Action)
		}

		result := dto.BulkTargetResult{TargetID: target, Success: err == nil}
		if err != nil {
			result.Error = err.Error()
			resp.Failed++
		} else {
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, result)
	}

	meta, _ := json.Marshal(map[string]any{
		"targets":   len(req.TargetIDs),
		"succeeded": resp.Succeeded,
		"failed":    resp.Failed,
	})
	entry := &models.AdminLogEntry{
		AdminID:    adminID,
		ActionType: config.AdminBulk,
		Metadata:   datatypes.JSON(meta),
	}
	s.audit(ctx, entry, fmt.Sprintf("bulk %s: %d succeeded, %d failed", req.Action, resp.Succeeded, resp.Failed), nil)

	return resp, nil
}

var emergencyActionTypes = map[string]config.AdminActionType{
	"emergency_shutdown":  config.AdminShutdown,
	"disable_shutdown":    config.AdminDisableShutdown,
	"maintenance_mode":    config.AdminMaintenance,
	"disable_maintenance": config.AdminMaintenance,
}

// EmergencyAction flips the global switches. Shutdown halts all dispatch
// from the next scheduler pass; maintenance only blocks new job creation.
func (s *Service) EmergencyAction(ctx context.Context, adminID string, req *dto.EmergencyActionRequest) (*dto.ActionResponse, error) {
	entry := &models.AdminLogEntry{
		AdminID:    adminID,
		ActionType: emergencyActionTypes[req.Action],
	}

	msg, err := s.applyEmergencyAction(ctx, adminID, req)
	s.audit(ctx, entry, msg, err)
	if err != nil {
		return nil, err
	}
	return &dto.ActionResponse{Message: msg}, nil
}

func (s *Service) applyEmergencyAction(ctx context.Context, adminID string, req *dto.EmergencyActionRequest) (string, error) {
	switch req.Action {
	case "emergency_shutdown":
		if req.Reason == "" {
			return "", common.CodedErrf(http.StatusBadRequest, common.CodeInvalidAction,
				"a reason is required for an emergency shutdown")
		}
		if err := s.admin.SetShutdown(ctx, true, req.Reason, adminID); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to enable shutdown")
		}
		return "emergency shutdown enabled, all dispatch halted", nil

	case "disable_shutdown":
		if err := s.admin.SetShutdown(ctx, false, "", adminID); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to disable shutdown")
		}
		return "shutdown disabled, dispatch resumes next cycle", nil

	case "maintenance_mode":
		if err := s.admin.SetMaintenance(ctx, true, req.MaintenanceMessage, req.ScheduledUntil); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to enable maintenance mode")
		}
		return "maintenance mode enabled, new job creation blocked", nil

	case "disable_maintenance":
		if err := s.admin.SetMaintenance(ctx, false, "", nil); err != nil {
			return "", common.Errf(http.StatusInternalServerError, "failed to disable maintenance mode")
		}
		return "maintenance mode disabled", nil
	}

	return "", common.CodedErrf(http.StatusBadRequest, common.CodeInvalidAction, "unknown emergency action %q", req.Action)
}

const defaultListLimit = 50

func (s *Service) ListJobs(ctx context.Context, status string, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.jobs.ListByStatus(ctx, config.JobStatus(status), limit)
}

func (s *Service) RecentLogs(ctx context.Context, limit int) ([]models.AdminLogEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.admin.RecentLogs(ctx, limit)
}

// audit records one admin log row. A failed audit write is logged but never
// turns a succeeded action into a failure.
func (s *Service) audit(ctx context.Context, entry *models.AdminLogEntry, msg string, actionErr error) {
	entry.ID = uuid.NewString()
	entry.Success = actionErr == nil
	if actionErr != nil {
		entry.Error = actionErr.Error()
		entry.Description = fmt.Sprintf("%s failed: %s", entry.ActionType, actionErr.Error())
	} else {
		entry.Description = msg
	}
	if err := s.admin.Log(ctx, entry); err != nil {
		s.log.WithError(err).WithField("action", entry.ActionType).Error("admin audit write failed")
	}
}
