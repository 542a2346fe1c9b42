package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	"github.com/reachforge/puppet/internal/browser"
	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/dto"
	"github.com/reachforge/puppet/internal/mocks"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/storage"
)

// stubMatcher fires (or errors) unconditionally and records that it ran.
type stubMatcher struct {
	name  string
	fire  bool
	conf  float64
	err   error
	ran   *bool
}

func (m stubMatcher) Match(context.Context, browser.Session, string) (bool, error) {
	if m.ran != nil {
		*m.ran = true
	}
	return m.fire, m.err
}

func (m stubMatcher) Confidence() float64 { return m.conf }

func (m stubMatcher) Describe() string { return m.name }

type engineMocks struct {
	jobs        *mocks.JobRepoMock
	settings    *mocks.SettingsRepoMock
	stats       *mocks.StatsRepoMock
	screenshots *mocks.ScreenshotRepoMock
	blobs       *mocks.BlobStoreMock
	notifier    *mocks.NotifierMock
}

func newEngine() (*Engine, *engineMocks) {
	m := &engineMocks{
		jobs:        new(mocks.JobRepoMock),
		settings:    new(mocks.SettingsRepoMock),
		stats:       new(mocks.StatsRepoMock),
		screenshots: new(mocks.ScreenshotRepoMock),
		blobs:       new(mocks.BlobStoreMock),
		notifier:    new(mocks.NotifierMock),
	}
	e := NewEngine(m.jobs, m.settings, m.stats, m.screenshots, m.blobs, m.notifier, 0)
	return e, m
}

func swapMatchers(t *testing.T, replacement map[config.DetectionType][]Matcher) {
	t.Helper()
	saved := detectionMatchers
	detectionMatchers = replacement
	t.Cleanup(func() { detectionMatchers = saved })
}

func detectionJob() *models.Job {
	return &models.Job{ID: "job-1", UserID: "user-1", Status: config.JobStatusRunning}
}

func enabledSettings() *models.UserAutomationSettings {
	return &models.UserAutomationSettings{UserID: "user-1", DetectionEnabled: true}
}

func TestEngine_Scan_DisabledByUser(t *testing.T) {
	e, _ := newEngine()
	session := new(mocks.SessionMock)

	det, err := e.Scan(context.Background(), session, detectionJob(),
		&models.UserAutomationSettings{DetectionEnabled: false})

	assert.NoError(t, err)
	assert.Nil(t, det)
	session.AssertNotCalled(t, "VisibleText", mock.Anything)
}

func TestEngine_Scan_ReportsMaxConfidenceAcrossFiringMatchers(t *testing.T) {
	e, m := newEngine()
	swapMatchers(t, map[config.DetectionType][]Matcher{
		config.DetectionCaptcha: {
			stubMatcher{name: "weak", fire: true, conf: 0.6},
			stubMatcher{name: "mid", fire: true, conf: 0.8},
			stubMatcher{name: "strong", fire: true, conf: 0.95},
		},
	})

	session := new(mocks.SessionMock)
	session.On("VisibleText", mock.Anything).Return("page text", nil)
	session.On("CurrentURL").Return("https://www.linkedin.com/checkpoint")
	session.On("Screenshot", mock.Anything).Return([]byte("png"), nil)
	m.blobs.On("Upload", mock.Anything, mock.Anything, []byte("png"), "image/png").
		Return("https://evidence/shot.png", nil)
	m.screenshots.On("Insert", mock.Anything, mock.MatchedBy(func(s *models.Screenshot) bool {
		return s.JobID == "job-1" && s.DetectionType == config.DetectionCaptcha
	})).Return(nil)

	det, err := e.Scan(context.Background(), session, detectionJob(), enabledSettings())

	assert.NoError(t, err)
	assert.NotNil(t, det)
	assert.Equal(t, config.DetectionCaptcha, det.Type)
	assert.InDelta(t, 0.95, det.Confidence, 1e-9)
	assert.Len(t, det.FiredMatchers, 3)
	assert.Equal(t, "https://evidence/shot.png", det.EvidenceURL)
	m.screenshots.AssertExpectations(t)
}

func TestEngine_Scan_TextMatchOutscoresWeakStructural(t *testing.T) {
	e, m := newEngine()
	swapMatchers(t, map[config.DetectionType][]Matcher{
		config.DetectionCaptcha: {
			stubMatcher{name: "selector", fire: true, conf: 0.6},
			TextContains{Phrase: "verify you are human"},
		},
	})

	session := new(mocks.SessionMock)
	session.On("VisibleText", mock.Anything).Return("please verify you are human to continue", nil)
	session.On("CurrentURL").Return("https://www.linkedin.com/checkpoint")
	session.On("Screenshot", mock.Anything).Return([]byte("png"), nil)
	m.blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://evidence/shot.png", nil)
	m.screenshots.On("Insert", mock.Anything, mock.Anything).Return(nil)

	det, err := e.Scan(context.Background(), session, detectionJob(), enabledSettings())

	assert.NoError(t, err)
	assert.NotNil(t, det)
	assert.InDelta(t, textMatchConfidence, det.Confidence, 1e-9)
}

func TestEngine_Scan_TextMatcherIgnoresDriverCasing(t *testing.T) {
	e, m := newEngine()
	swapMatchers(t, map[config.DetectionType][]Matcher{
		config.DetectionCaptcha: {TextContains{Phrase: "verify you are human"}},
	})

	session := new(mocks.SessionMock)
	session.On("VisibleText", mock.Anything).Return("Please VERIFY You Are Human to continue", nil)
	session.On("CurrentURL").Return("https://www.linkedin.com/checkpoint")
	session.On("Screenshot", mock.Anything).Return([]byte("png"), nil)
	m.blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://evidence/shot.png", nil)
	m.screenshots.On("Insert", mock.Anything, mock.Anything).Return(nil)

	det, err := e.Scan(context.Background(), session, detectionJob(), enabledSettings())

	assert.NoError(t, err)
	assert.NotNil(t, det)
	assert.InDelta(t, textMatchConfidence, det.Confidence, 1e-9)
}

func TestEngine_Scan_FirstFiringTypeEndsThePass(t *testing.T) {
	e, m := newEngine()
	laterRan := false
	swapMatchers(t, map[config.DetectionType][]Matcher{
		config.DetectionCaptcha: {
			stubMatcher{name: "captcha", fire: true, conf: 0.9},
		},
		config.DetectionPhoneVerification: {
			stubMatcher{name: "phone", fire: true, conf: 0.95, ran: &laterRan},
		},
	})

	session := new(mocks.SessionMock)
	session.On("VisibleText", mock.Anything).Return("page text", nil)
	session.On("CurrentURL").Return("url")
	session.On("Screenshot", mock.Anything).Return([]byte("png"), nil)
	m.blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://evidence/shot.png", nil)
	m.screenshots.On("Insert", mock.Anything, mock.Anything).Return(nil)

	det, err := e.Scan(context.Background(), session, detectionJob(), enabledSettings())

	assert.NoError(t, err)
	assert.Equal(t, config.DetectionCaptcha, det.Type)
	assert.False(t, laterRan, "later detection types must not be evaluated")
}

func TestEngine_Scan_NothingFires(t *testing.T) {
	e, _ := newEngine()
	swapMatchers(t, map[config.DetectionType][]Matcher{
		config.DetectionCaptcha: {stubMatcher{name: "quiet", fire: false, conf: 0.9}},
	})

	session := new(mocks.SessionMock)
	session.On("VisibleText", mock.Anything).Return("an ordinary profile page", nil)

	det, err := e.Scan(context.Background(), session, detectionJob(), enabledSettings())

	assert.NoError(t, err)
	assert.Nil(t, det)
	session.AssertNotCalled(t, "Screenshot", mock.Anything)
}

func TestEngine_Scan_MatcherErrorDoesNotAbortPass(t *testing.T) {
	e, m := newEngine()
	swapMatchers(t, map[config.DetectionType][]Matcher{
		config.DetectionCaptcha: {
			stubMatcher{name: "broken", err: errors.New("stale element")},
			stubMatcher{name: "good", fire: true, conf: 0.8},
		},
	})

	session := new(mocks.SessionMock)
	session.On("VisibleText", mock.Anything).Return("page text", nil)
	session.On("CurrentURL").Return("url")
	session.On("Screenshot", mock.Anything).Return([]byte("png"), nil)
	m.blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://evidence/shot.png", nil)
	m.screenshots.On("Insert", mock.Anything, mock.Anything).Return(nil)

	det, err := e.Scan(context.Background(), session, detectionJob(), enabledSettings())

	assert.NoError(t, err)
	assert.NotNil(t, det)
	assert.InDelta(t, 0.8, det.Confidence, 1e-9)
	assert.Equal(t, []string{"good"}, det.FiredMatchers)
}

func TestEngine_Scan_UploadFailureStillReturnsDetection(t *testing.T) {
	e, m := newEngine()
	swapMatchers(t, map[config.DetectionType][]Matcher{
		config.DetectionCaptcha: {stubMatcher{name: "captcha", fire: true, conf: 0.9}},
	})

	session := new(mocks.SessionMock)
	session.On("VisibleText", mock.Anything).Return("page text", nil)
	session.On("CurrentURL").Return("url")
	session.On("Screenshot", mock.Anything).Return([]byte("png"), nil)
	m.blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("store unavailable"))

	det, err := e.Scan(context.Background(), session, detectionJob(), enabledSettings())

	assert.NoError(t, err)
	assert.NotNil(t, det)
	assert.Empty(t, det.EvidenceURL)
	m.screenshots.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestEngine_Handle_RunsAllSteps(t *testing.T) {
	e, m := newEngine()

	job := detectionJob()
	settings := &models.UserAutomationSettings{
		UserID:             "user-1",
		DetectionEnabled:   true,
		AutoPauseOnWarning: true,
		NotificationEvents: datatypes.JSON([]byte(`["warning"]`)),
	}
	det := &Detection{
		Type:        config.DetectionCaptcha,
		Confidence:  0.95,
		EvidenceURL: "https://evidence/shot.png",
	}

	m.jobs.On("Warn", mock.Anything, job.ID, config.DetectionCaptcha, det.EvidenceURL, mock.Anything).Return(nil)
	m.notifier.On("Publish", mock.Anything, mock.MatchedBy(func(p dto.NotificationPayload) bool {
		return p.EventType == config.EventWarning &&
			p.DetectionType == config.DetectionCaptcha &&
			p.EvidenceURL == det.EvidenceURL
	})).Return(nil)
	m.stats.On("Increment", mock.Anything, job.UserID, mock.Anything, storage.StatDeltas{
		JobsWarned:        1,
		SecurityWarnings:  1,
		CaptchaDetections: 1,
	}).Return(nil)
	m.settings.On("SetAutoMode", mock.Anything, job.UserID, false).Return(nil)

	e.Handle(context.Background(), job, settings, det)

	m.jobs.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
	m.stats.AssertExpectations(t)
	m.settings.AssertExpectations(t)
}

func TestEngine_Handle_StepsAreIndependent(t *testing.T) {
	e, m := newEngine()

	job := detectionJob()
	settings := &models.UserAutomationSettings{
		UserID:             "user-1",
		AutoPauseOnWarning: true,
	}
	det := &Detection{Type: config.DetectionPhoneVerification, Confidence: 0.9}

	// The warning update fails; stats and auto-pause must still run. No
	// notification: the user is not subscribed.
	m.jobs.On("Warn", mock.Anything, job.ID, det.Type, "", mock.Anything).
		Return(errors.New("db down"))
	m.stats.On("Increment", mock.Anything, job.UserID, mock.Anything, storage.StatDeltas{
		JobsWarned:       1,
		SecurityWarnings: 1,
	}).Return(nil)
	m.settings.On("SetAutoMode", mock.Anything, job.UserID, false).Return(nil)

	e.Handle(context.Background(), job, settings, det)

	m.stats.AssertExpectations(t)
	m.settings.AssertExpectations(t)
	m.notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestEngine_Handle_NoAutoPauseWhenOptedOut(t *testing.T) {
	e, m := newEngine()

	job := detectionJob()
	settings := &models.UserAutomationSettings{UserID: "user-1", AutoPauseOnWarning: false}
	det := &Detection{Type: config.DetectionSecurityCheckpoint, Confidence: 0.9}

	m.jobs.On("Warn", mock.Anything, job.ID, det.Type, "", mock.Anything).Return(nil)
	m.stats.On("Increment", mock.Anything, job.UserID, mock.Anything, mock.Anything).Return(nil)

	e.Handle(context.Background(), job, settings, det)

	m.settings.AssertNotCalled(t, "SetAutoMode", mock.Anything, mock.Anything, mock.Anything)
}
