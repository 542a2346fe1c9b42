package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/storage"
)

type JobRepoMock struct {
	mock.Mock
}

func (m *JobRepoMock) Create(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *JobRepoMock) Get(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(ctx, id)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *JobRepoMock) ListReady(ctx context.Context, limit int) ([]models.Job, error) {
	args := m.Called(ctx, limit)

	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *JobRepoMock) CountRunning(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *JobRepoMock) ListByStatus(ctx context.Context, status config.JobStatus, limit int) ([]models.Job, error) {
	args := m.Called(ctx, status, limit)

	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *JobRepoMock) ListStuckRunning(ctx context.Context, olderThan time.Duration) ([]models.Job, error) {
	args := m.Called(ctx, olderThan)

	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *JobRepoMock) MarkQueued(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *JobRepoMock) MarkRunning(ctx context.Context, id string, executorID string) error {
	args := m.Called(ctx, id, executorID)
	return args.Error(0)
}

func (m *JobRepoMock) Complete(ctx context.Context, id string, result datatypes.JSON) error {
	args := m.Called(ctx, id, result)
	return args.Error(0)
}

func (m *JobRepoMock) Fail(ctx context.Context, id string, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

func (m *JobRepoMock) Warn(ctx context.Context, id string, detection config.DetectionType, evidenceURL, errMsg string) error {
	args := m.Called(ctx, id, detection, evidenceURL, errMsg)
	return args.Error(0)
}

func (m *JobRepoMock) Cancel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *JobRepoMock) SetPaused(ctx context.Context, id string, paused bool) error {
	args := m.Called(ctx, id, paused)
	return args.Error(0)
}

func (m *JobRepoMock) AddNotes(ctx context.Context, id string, notes string) error {
	args := m.Called(ctx, id, notes)
	return args.Error(0)
}

func (m *JobRepoMock) RetryLater(ctx context.Context, id string, availableAt time.Time) error {
	args := m.Called(ctx, id, availableAt)
	return args.Error(0)
}

func (m *JobRepoMock) AdminRetry(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type SettingsRepoMock struct {
	mock.Mock
}

func (m *SettingsRepoMock) GetByUserID(ctx context.Context, userID string) (*models.UserAutomationSettings, error) {
	args := m.Called(ctx, userID)

	s, _ := args.Get(0).(*models.UserAutomationSettings)
	return s, args.Error(1)
}

func (m *SettingsRepoMock) SetAutoMode(ctx context.Context, userID string, enabled bool) error {
	args := m.Called(ctx, userID, enabled)
	return args.Error(0)
}

func (m *SettingsRepoMock) SetConsent(ctx context.Context, userID string, consent bool) error {
	args := m.Called(ctx, userID, consent)
	return args.Error(0)
}

func (m *SettingsRepoMock) StampManualReview(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *SettingsRepoMock) SetAdminPaused(ctx context.Context, userID string, paused bool) error {
	args := m.Called(ctx, userID, paused)
	return args.Error(0)
}

func (m *SettingsRepoMock) AssignProxy(ctx context.Context, userID string, proxyID string) error {
	args := m.Called(ctx, userID, proxyID)
	return args.Error(0)
}

type ProxyRepoMock struct {
	mock.Mock
}

func (m *ProxyRepoMock) Get(ctx context.Context, id string) (*models.Proxy, error) {
	args := m.Called(ctx, id)

	p, _ := args.Get(0).(*models.Proxy)
	return p, args.Error(1)
}

func (m *ProxyRepoMock) ListCandidates(ctx context.Context, userID, location string) ([]models.Proxy, error) {
	args := m.Called(ctx, userID, location)

	proxies, _ := args.Get(0).([]models.Proxy)
	return proxies, args.Error(1)
}

func (m *ProxyRepoMock) IncrementUsage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProxyRepoMock) ReportSuccess(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProxyRepoMock) ReportFailure(ctx context.Context, id string, threshold int) error {
	args := m.Called(ctx, id, threshold)
	return args.Error(0)
}

func (m *ProxyRepoMock) ResetStaleCounters(ctx context.Context, today time.Time) (int64, error) {
	args := m.Called(ctx, today)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ProxyRepoMock) AssignToUser(ctx context.Context, proxyID, userID string) error {
	args := m.Called(ctx, proxyID, userID)
	return args.Error(0)
}

type StatsRepoMock struct {
	mock.Mock
}

func (m *StatsRepoMock) GetDay(ctx context.Context, userID string, day time.Time) (*models.DailyStats, error) {
	args := m.Called(ctx, userID, day)

	stats, _ := args.Get(0).(*models.DailyStats)
	return stats, args.Error(1)
}

func (m *StatsRepoMock) Increment(ctx context.Context, userID string, day time.Time, deltas storage.StatDeltas) error {
	args := m.Called(ctx, userID, day, deltas)
	return args.Error(0)
}

func (m *StatsRepoMock) ResetDay(ctx context.Context, userID string, day time.Time) error {
	args := m.Called(ctx, userID, day)
	return args.Error(0)
}

type ActivityRepoMock struct {
	mock.Mock
}

func (m *ActivityRepoMock) Insert(ctx context.Context, entry *models.ActivityLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type JobLogRepoMock struct {
	mock.Mock
}

func (m *JobLogRepoMock) Insert(ctx context.Context, entry *models.JobLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type ScreenshotRepoMock struct {
	mock.Mock
}

func (m *ScreenshotRepoMock) Insert(ctx context.Context, shot *models.Screenshot) error {
	args := m.Called(ctx, shot)
	return args.Error(0)
}

type AdminRepoMock struct {
	mock.Mock
}

func (m *AdminRepoMock) GetControls(ctx context.Context) (*models.AdminControls, error) {
	args := m.Called(ctx)

	c, _ := args.Get(0).(*models.AdminControls)
	return c, args.Error(1)
}

func (m *AdminRepoMock) SetShutdown(ctx context.Context, on bool, reason, initiator string) error {
	args := m.Called(ctx, on, reason, initiator)
	return args.Error(0)
}

func (m *AdminRepoMock) SetMaintenance(ctx context.Context, on bool, message string, until *time.Time) error {
	args := m.Called(ctx, on, message, until)
	return args.Error(0)
}

func (m *AdminRepoMock) Log(ctx context.Context, entry *models.AdminLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *AdminRepoMock) RecentLogs(ctx context.Context, limit int) ([]models.AdminLogEntry, error) {
	args := m.Called(ctx, limit)

	logs, _ := args.Get(0).([]models.AdminLogEntry)
	return logs, args.Error(1)
}
