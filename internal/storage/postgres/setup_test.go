package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/reachforge/puppet/internal/models"
)

func SetupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Job{},
		&models.UserAutomationSettings{},
		&models.Proxy{},
		&models.DailyStats{},
		&models.Screenshot{},
		&models.JobLogEntry{},
		&models.ActivityLogEntry{},
		&models.AdminControls{},
		&models.AdminLogEntry{},
	)
	require.NoError(t, err)

	return db
}
