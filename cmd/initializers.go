package main

import (
	"fmt"
	"net/http"
	"time"

	"storepulse/app/handler"
	"storepulse/app/router"
	"storepulse/internal/analytics"
	"storepulse/internal/anomaly"
	"storepulse/internal/scheduler"
	"storepulse/internal/service"
	"storepulse/pkg/appstore"
	"storepulse/pkg/config"
	"storepulse/pkg/credentials"
	"storepulse/pkg/googleplay"
	"storepulse/pkg/lock"
	"storepulse/pkg/logger"
	"storepulse/pkg/notification"
	"storepulse/pkg/retry"
	mysqlstore "storepulse/pkg/store/mysql"
	redisstore "storepulse/pkg/store/redis"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.Sync()
	})
	return nil
}

// initMySQL initializes MySQL and migrates the schema
func (app *Application) initMySQL() error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		app.config.MySQL.User,
		app.config.MySQL.Password,
		app.config.MySQL.Host,
		app.config.MySQL.Port,
		app.config.MySQL.Database,
	)

	repo, err := mysqlstore.NewRepository(dsn)
	if err != nil {
		return err
	}
	if err := repo.GetDatastore().AutoMigrate(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	app.mysqlRepo = repo
	app.registerCleanup(func() {
		repo.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})

	return nil
}

// initRedis initializes Redis. Redis only backs the multi-replica tick
// lock, so a missing address degrades to single-instance mode instead of
// failing startup.
func (app *Application) initRedis() error {
	if app.config.Redis.Addr == "" {
		logger.Warn("redis not configured, scheduler runs in single-instance mode")
		return nil
	}

	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		return err
	}

	app.redisClient = client
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})

	return nil
}

// initServices initializes the collection pipeline
func (app *Application) initServices() error {
	app.credentials = credentials.NewConfigProvider()
	app.notifier = notification.NewLarkNotifier()
	app.analyzer = analytics.NewAnalyzer(app.mysqlRepo.MetricRecord)
	app.detector = anomaly.NewDetector(app.mysqlRepo.AlertRule)

	collectorCfg := app.config.Collector
	clients := app.buildVendorClients(collectorCfg)

	app.ingestionService = service.NewIngestionService(
		app.mysqlRepo.App,
		app.mysqlRepo.MetricRecord,
		app.mysqlRepo.AlertLog,
		app.mysqlRepo.ReportConfig,
		clients,
		app.analyzer,
		app.detector,
		app.notifier,
		collectorCfg.FetchDelayDays,
	)
	return nil
}

// buildVendorClients constructs one vendor client per platform with
// resolvable credentials. A platform with broken credentials is skipped so
// the other platform keeps collecting.
func (app *Application) buildVendorClients(collectorCfg config.CollectorConfig) map[string]service.VendorClient {
	retryCfg := retry.Config{
		MaxAttempts:   collectorCfg.MaxRetries,
		BaseDelay:     time.Duration(collectorCfg.RetryDelaySec) * time.Second,
		BackoffFactor: 2.0,
	}

	clients := make(map[string]service.VendorClient)

	if creds, err := app.credentials.PlatformConfig(mysqlstore.PlatformIOS); err != nil {
		logger.Warnf("app store client disabled: %v", err)
	} else {
		client, err := appstore.NewClient(
			creds[credentials.IssuerID],
			creds[credentials.KeyID],
			creds[credentials.PrivateKey],
			appstore.WithRetryConfig(retryCfg),
		)
		if err != nil {
			logger.Warnf("app store client disabled: %v", err)
		} else {
			clients[mysqlstore.PlatformIOS] = client
		}
	}

	if creds, err := app.credentials.PlatformConfig(mysqlstore.PlatformAndroid); err != nil {
		logger.Warnf("google play client disabled: %v", err)
	} else {
		client, err := googleplay.NewClient(
			app.ctx,
			creds[credentials.ServiceAccountPath],
			creds[credentials.ReportBucket],
			googleplay.WithRetryConfig(retryCfg),
		)
		if err != nil {
			logger.Warnf("google play client disabled: %v", err)
		} else {
			clients[mysqlstore.PlatformAndroid] = client
		}
	}

	return clients
}

// initScheduler initializes the executor and the tick loop
func (app *Application) initScheduler() error {
	app.executor = scheduler.NewExecutor(app.mysqlRepo.Schedule, app.mysqlRepo.Execution, app.ingestionService)

	if !app.config.Scheduler.Enabled {
		logger.Warn("scheduler disabled, collection runs only on manual triggers")
		return nil
	}

	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}
	tickLock := lock.NewRedisDistributedLock(
		redisClient,
		app.config.Scheduler.LockKey,
		time.Duration(app.config.Scheduler.LockTTLSec)*time.Second,
	)
	app.scheduler = scheduler.NewScheduler(app.mysqlRepo.Schedule, app.executor, tickLock)
	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	app.appHandler = handler.NewAppHandler(app.mysqlRepo.App)
	app.taskHandler = handler.NewTaskHandler(app.executor, app.ingestionService, app.scheduler, app.mysqlRepo.Execution, app.mysqlRepo.Schedule)
	app.scheduleHandler = handler.NewScheduleHandler(app.mysqlRepo.Schedule)
	app.metricHandler = handler.NewMetricHandler(app.mysqlRepo.MetricRecord, app.analyzer)
	app.alertHandler = handler.NewAlertHandler(app.mysqlRepo.AlertRule, app.mysqlRepo.AlertLog, app.notifier)
	return nil
}

// initHTTPServer initializes HTTP server
func (app *Application) initHTTPServer() error {
	if app.config.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	app.ginEngine = gin.New()

	r := router.NewRouter(app.appHandler, app.taskHandler, app.scheduleHandler, app.metricHandler, app.alertHandler)
	r.Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}
	return nil
}
