package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/reachforge/puppet/internal/admin"
	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/gate"
	"github.com/reachforge/puppet/internal/models"
	"github.com/reachforge/puppet/internal/ratelimit"
	"github.com/reachforge/puppet/internal/storage/postgres"
	"github.com/reachforge/puppet/middleware"
)

func main() {
	_ = godotenv.Load()
	logrus.SetFormatter(&logrus.JSONFormatter{})

	ctx := context.Background()

	appCfg, err := config.LoadAppFromEnv(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load app config")
	}

	dbCfg, err := postgres.LoadConfigFromEnv(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load db config")
	}

	db, err := postgres.ConnectDB(dbCfg)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}

	if err := postgres.MigrateModels(db,
		&models.Job{},
		&models.UserAutomationSettings{},
		&models.Proxy{},
		&models.DailyStats{},
		&models.Screenshot{},
		&models.JobLogEntry{},
		&models.ActivityLogEntry{},
		&models.AdminControls{},
		&models.AdminLogEntry{},
	); err != nil {
		logrus.WithError(err).Fatal("migration failed")
	}
	logrus.Info("database connected")

	jobRepo := postgres.NewJobRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)
	statsRepo := postgres.NewStatsRepository(db)
	proxyRepo := postgres.NewProxyRepository(db)
	activityRepo := postgres.NewActivityRepository(db)
	adminRepo := postgres.NewAdminRepository(db)

	limiter := ratelimit.NewLimiter(statsRepo)

	gateService := gate.NewService(jobRepo, settingsRepo, activityRepo, adminRepo, limiter)
	gateHandler := gate.NewHandler(gateService)

	adminService := admin.NewService(jobRepo, settingsRepo, statsRepo, proxyRepo, adminRepo)
	adminHandler := admin.NewHandler(adminService)

	r := gin.Default()
	r.Use(middleware.ErrorHandler())

	api := r.Group("/api")
	{
		api.POST("/linkedin/request", gateHandler.Submit)
		api.POST("/linkedin/approve", gateHandler.Approve)
		api.POST("/consent", gateHandler.UpdateConsent)
	}

	adm := r.Group("/admin", middleware.RequireAdmin(appCfg.JWTSecret))
	{
		adm.POST("/jobs/action", adminHandler.JobAction)
		adm.POST("/users/action", adminHandler.UserAction)
		adm.POST("/bulk", adminHandler.BulkAction)
		adm.POST("/emergency", adminHandler.EmergencyAction)
		adm.GET("/jobs", adminHandler.ListJobs)
		adm.GET("/logs", adminHandler.RecentLogs)
	}

	logrus.WithField("port", appCfg.ServerPort).Info("api listening")
	if err := r.Run(":" + appCfg.ServerPort); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}
