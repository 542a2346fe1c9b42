package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/reachforge/puppet/internal/browser"
	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/detect"
	"github.com/reachforge/puppet/internal/executor"
	"github.com/reachforge/puppet/internal/gate"
	"github.com/reachforge/puppet/internal/notify"
	"github.com/reachforge/puppet/internal/proxy"
	"github.com/reachforge/puppet/internal/ratelimit"
	"github.com/reachforge/puppet/internal/scheduler"
	"github.com/reachforge/puppet/internal/storage/postgres"
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
	logrus.Info("database connected")

	jobRepo := postgres.NewJobRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)
	statsRepo := postgres.NewStatsRepository(db)
	proxyRepo := postgres.NewProxyRepository(db)
	activityRepo := postgres.NewActivityRepository(db)
	jobLogRepo := postgres.NewJobLogRepository(db)
	screenshotRepo := postgres.NewScreenshotRepository(db)
	adminRepo := postgres.NewAdminRepository(db)

	var lease proxy.Lease = proxy.NewMemoryLease()
	if appCfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Fatal("redis connection failed")
		}
		lease = proxy.NewRedisLease(rdb)
		logrus.Info("redis proxy leases enabled")
	} else {
		logrus.Warn("REDIS_ADDR not set, using in-process proxy leases")
	}

	var notifier detect.Notifier = notify.LogNotifier{}
	if appCfg.AMQPURL != "" {
		pub, err := notify.NewPublisher(appCfg.AMQPURL, appCfg.NotificationQueue)
		if err != nil {
			logrus.WithError(err).Fatal("notification broker connection failed")
		}
		defer pub.Close()
		notifier = pub
		logrus.Info("notification publisher connected")
	} else {
		logrus.Warn("AMQP_URL not set, notifications go to the process log")
	}

	blobs, err := browser.NewDirBlobStore(appCfg.EvidenceDir, appCfg.EvidenceBaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("evidence store init failed")
	}
	sessions := browser.NewRemoteFactory(appCfg.BrowserDriverURL)

	limiter := ratelimit.NewLimiter(statsRepo)
	pool := proxy.NewPool(proxyRepo, lease, appCfg.ProxyLeaseTTL, appCfg.ProxyFailureThreshold)
	engine := detect.NewEngine(jobRepo, settingsRepo, statsRepo, screenshotRepo, blobs, notifier, appCfg.SettleDelay)
	exec := executor.New(sessions, engine, jobRepo, jobLogRepo, limiter, notifier)
	gateService := gate.NewService(jobRepo, settingsRepo, activityRepo, adminRepo, limiter)

	sched := scheduler.New(
		jobRepo,
		adminRepo,
		gateService,
		limiter,
		pool,
		exec,
		notifier,
		appCfg.DispatchInterval,
		appCfg.StuckJobAge,
	)

	sched.Start()
	logrus.Info("scheduler active")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sched.Stop()
	logrus.Info("shutdown complete")
}
