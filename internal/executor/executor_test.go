package executor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	"github.com/reachforge/puppet/internal/browser"
	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/detect"
	"github.com/reachforge/puppet/internal/mocks"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/ratelimit"
)

type execMocks struct {
	sessions    *mocks.FactoryMock
	session     *mocks.SessionMock
	jobs        *mocks.JobRepoMock
	jobLogs     *mocks.JobLogRepoMock
	stats       *mocks.StatsRepoMock
	settings    *mocks.SettingsRepoMock
	screenshots *mocks.ScreenshotRepoMock
	blobs       *mocks.BlobStoreMock
	notifier    *mocks.NotifierMock
}

func newExecutor() (*Executor, *execMocks) {
	m := &execMocks{
		sessions:    new(mocks.FactoryMock),
		session:     new(mocks.SessionMock),
		jobs:        new(mocks.JobRepoMock),
		jobLogs:     new(mocks.JobLogRepoMock),
		stats:       new(mocks.StatsRepoMock),
		settings:    new(mocks.SettingsRepoMock),
		screenshots: new(mocks.ScreenshotRepoMock),
		blobs:       new(mocks.BlobStoreMock),
		notifier:    new(mocks.NotifierMock),
	}
	limiter := ratelimit.NewLimiter(m.stats)
	engine := detect.NewEngine(m.jobs, m.settings, m.stats, m.screenshots, m.blobs, m.notifier, 0)
	e := New(m.sessions, engine, m.jobs, m.jobLogs, limiter, m.notifier)
	return e, m
}

func execJob() *models.Job {
	return &models.Job{
		ID:         "job-1",
		UserID:     "user-1",
		ProfileURL: "https://www.linkedin.com/in/some-lead",
		Status:     config.JobStatusRunning,
	}
}

// Detection is off here so runs exercise the action path without scan noise.
func execSettings() *models.UserAutomationSettings {
	return &models.UserAutomationSettings{
		UserID:               "user-1",
		SessionCookie:        "enc:cookie",
		AutomationConsent:    true,
		DailyConnectionLimit: 20,
	}
}

func execProxy() *models.Proxy {
	return &models.Proxy{ID: "proxy-1", Endpoint: "10.0.0.1", Port: 8080, Username: "u", Password: "p"}
}

func TestExecutor_Run_CompletesWithoutNote(t *testing.T) {
	e, m := newExecutor()
	job := execJob()

	m.sessions.On("NewSession", mock.Anything, mock.MatchedBy(func(o browser.SessionOptions) bool {
		return o.SessionCookie == "enc:cookie" && o.ProxyAddr == "10.0.0.1:8080"
	})).Return(m.session, nil)
	m.session.On("Navigate", mock.Anything, job.ProfileURL).Return(nil)
	m.session.On("ClickConnect", mock.Anything).Return(nil)
	m.session.On("CurrentURL").Return(job.ProfileURL)
	m.session.On("Close").Return(nil)
	m.jobLogs.On("Insert", mock.Anything, mock.Anything).Return(nil)
	m.jobs.On("Complete", mock.Anything, "job-1", mock.MatchedBy(func(r datatypes.JSON) bool {
		var body map[string]any
		if err := json.Unmarshal(r, &body); err != nil {
			return false
		}
		return body["connected"] == true && body["message_sent"] == false
	})).Return(nil)
	m.stats.On("Increment", mock.Anything, "user-1", mock.Anything, mock.Anything).Return(nil)
	m.stats.On("GetDay", mock.Anything, "user-1", mock.Anything).
		Return(&models.DailyStats{UserID: "user-1", ConnectionsSent: 5}, nil)

	out := e.Run(context.Background(), job, execSettings(), execProxy())

	assert.True(t, out.Completed)
	assert.NoError(t, out.Err)
	assert.Nil(t, out.Detected)
	m.session.AssertNotCalled(t, "SendNote", mock.Anything, mock.Anything)
	m.jobs.AssertExpectations(t)
}

func TestExecutor_Run_SessionOpenFailureIsProxyFault(t *testing.T) {
	e, m := newExecutor()

	m.sessions.On("NewSession", mock.Anything, mock.Anything).
		Return(nil, errors.New("proxy refused connection"))
	m.jobLogs.On("Insert", mock.Anything, mock.Anything).Return(nil)

	out := e.Run(context.Background(), execJob(), execSettings(), execProxy())

	assert.Error(t, out.Err)
	assert.True(t, out.ProxyFault)
	assert.False(t, out.Completed)
}

func TestExecutor_Run_NavigateFailureIsProxyFault(t *testing.T) {
	e, m := newExecutor()

	m.sessions.On("NewSession", mock.Anything, mock.Anything).Return(m.session, nil)
	m.session.On("Navigate", mock.Anything, mock.Anything).Return(errors.New("tunnel closed"))
	m.session.On("Close").Return(nil)
	m.jobLogs.On("Insert", mock.Anything, mock.Anything).Return(nil)

	out := e.Run(context.Background(), execJob(), execSettings(), execProxy())

	assert.Error(t, out.Err)
	assert.True(t, out.ProxyFault)
}

func TestExecutor_Run_LostNoteStillCompletes(t *testing.T) {
	e, m := newExecutor()
	job := execJob()
	job.Message = "great to meet you"

	m.sessions.On("NewSession", mock.Anything, mock.Anything).Return(m.session, nil)
	m.session.On("Navigate", mock.Anything, job.ProfileURL).Return(nil)
	m.session.On("ClickConnect", mock.Anything).Return(nil)
	m.session.On("SendNote", mock.Anything, job.Message).Return(errors.New("note box missing"))
	m.session.On("CurrentURL").Return(job.ProfileURL)
	m.session.On("Close").Return(nil)
	m.jobLogs.On("Insert", mock.Anything, mock.Anything).Return(nil)
	m.jobs.On("Complete", mock.Anything, "job-1", mock.MatchedBy(func(r datatypes.JSON) bool {
		var body map[string]any
		_ = json.Unmarshal(r, &body)
		return body["message_sent"] == false
	})).Return(nil)
	m.stats.On("Increment", mock.Anything, "user-1", mock.Anything, mock.Anything).Return(nil)
	m.stats.On("GetDay", mock.Anything, "user-1", mock.Anything).
		Return(&models.DailyStats{UserID: "user-1", ConnectionsSent: 5}, nil)

	out := e.Run(context.Background(), job, execSettings(), execProxy())

	assert.True(t, out.Completed)
	assert.NoError(t, out.Err)
}

func TestExecutor_Run_InitialScanDetectionEndsRun(t *testing.T) {
	e, m := newExecutor()
	job := execJob()
	settings := execSettings()
	settings.DetectionEnabled = true

	m.sessions.On("NewSession", mock.Anything, mock.Anything).Return(m.session, nil)
	m.session.On("Navigate", mock.Anything, job.ProfileURL).Return(nil)
	m.session.On("ElementVisible", mock.Anything, mock.Anything).Return(false, nil)
	m.session.On("VisibleText", mock.Anything).Return("please verify you are human", nil)
	m.session.On("CurrentURL").Return("https://www.linkedin.com/checkpoint/challenge")
	m.session.On("Screenshot", mock.Anything).Return([]byte("png"), nil)
	m.session.On("Close").Return(nil)
	m.jobLogs.On("Insert", mock.Anything, mock.Anything).Return(nil)
	m.blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything, "image/png").
		Return("https://evidence/shot.png", nil)
	m.screenshots.On("Insert", mock.Anything, mock.Anything).Return(nil)
	m.jobs.On("Warn", mock.Anything, "job-1", config.DetectionCaptcha, "https://evidence/shot.png", mock.Anything).Return(nil)
	m.stats.On("Increment", mock.Anything, "user-1", mock.Anything, mock.Anything).Return(nil)

	out := e.Run(context.Background(), job, settings, execProxy())

	assert.NotNil(t, out.Detected)
	assert.Equal(t, config.DetectionCaptcha, out.Detected.Type)
	assert.False(t, out.Completed)
	m.session.AssertNotCalled(t, "ClickConnect", mock.Anything)
	m.jobs.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	m.jobs.AssertExpectations(t)
}
