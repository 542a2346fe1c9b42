package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reachforge/puppet/internal/models"
)

func seedSettings(t *testing.T, repo *SettingsRepository) {
	t.Helper()
	require.NoError(t, repo.db.Create(&models.UserAutomationSettings{
		ID:                "s-1",
		UserID:            "user-1",
		SessionCookie:     "enc:cookie",
		AutomationConsent: true,
		AutoModeEnabled:   true,
	}).Error)
}

func TestSettingsRepository_SetConsent_RevocationForcesAutoModeOff(t *testing.T) {
	repo := NewSettingsRepository(SetupTestDB(t))
	ctx := context.Background()
	seedSettings(t, repo)

	require.NoError(t, repo.SetConsent(ctx, "user-1", false))

	s, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, s.AutomationConsent)
	assert.False(t, s.AutoModeEnabled)
}

func TestSettingsRepository_SetConsent_GrantStampsDate(t *testing.T) {
	repo := NewSettingsRepository(SetupTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.db.Create(&models.UserAutomationSettings{
		ID: "s-1", UserID: "user-1",
	}).Error)

	require.NoError(t, repo.SetConsent(ctx, "user-1", true))

	s, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, s.AutomationConsent)
	assert.NotNil(t, s.AutomationConsentDate)
}

func TestSettingsRepository_StampManualReview(t *testing.T) {
	repo := NewSettingsRepository(SetupTestDB(t))
	ctx := context.Background()
	seedSettings(t, repo)

	require.NoError(t, repo.StampManualReview(ctx, "user-1"))

	s, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.NotNil(t, s.LastManualReviewAt)
}

func TestSettingsRepository_GetByUserID_NotFound(t *testing.T) {
	repo := NewSettingsRepository(SetupTestDB(t))

	_, err := repo.GetByUserID(context.Background(), "ghost")

	assert.Error(t, err)
}
