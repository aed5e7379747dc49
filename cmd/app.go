package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"storepulse/app/handler"
	"storepulse/internal/analytics"
	"storepulse/internal/anomaly"
	"storepulse/internal/scheduler"
	"storepulse/internal/service"
	"storepulse/pkg/config"
	"storepulse/pkg/credentials"
	"storepulse/pkg/logger"
	"storepulse/pkg/notification"
	mysqlstore "storepulse/pkg/store/mysql"
	redisstore "storepulse/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// Application manages the lifecycle of the entire application
type Application struct {
	// Infrastructure components
	config      *config.Config
	mysqlRepo   *mysqlstore.Repository
	redisClient *redisstore.RedisClient

	// Credential resolution
	credentials credentials.Provider

	// Service layer
	notifier         *notification.LarkNotifier
	analyzer         *analytics.Analyzer
	detector         *anomaly.Detector
	ingestionService *service.IngestionService
	executor         *scheduler.Executor
	scheduler        *scheduler.Scheduler

	// Handler layer
	appHandler      *handler.AppHandler
	taskHandler     *handler.TaskHandler
	scheduleHandler *handler.ScheduleHandler
	metricHandler   *handler.MetricHandler
	alertHandler    *handler.AlertHandler

	// HTTP server
	httpServer *http.Server
	ginEngine  *gin.Engine

	// Context management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Background task cleanup functions
	cleanupFuncs []func()
}

// NewApplication creates a new Application instance
func NewApplication() *Application {
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		ctx:          ctx,
		cancel:       cancel,
		cleanupFuncs: make([]func(), 0),
	}
}

// Initialize initializes all application components
func (app *Application) Initialize() error {
	// Initialize components in order
	steps := []struct {
		name string
		fn   func() error
	}{
		{"Configuration", app.initConfig},
		{"Logging", app.initLogger},
		{"MySQL", app.initMySQL},
		{"Redis", app.initRedis},
		{"Service Layer", app.initServices},
		{"Scheduler", app.initScheduler},
		{"Handler Layer", app.initHandlers},
		{"HTTP Server", app.initHTTPServer},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		logger.Infof("%s initialized", step.name)
	}

	return nil
}

// Start starts all components
func (app *Application) Start() error {
	if app.scheduler != nil {
		app.scheduler.Start(app.ctx)
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		addr := fmt.Sprintf(":%d", app.config.Server.Port)
		logger.InfoCtx(app.ctx, "HTTP server listening on: %s", addr)
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	logger.InfoCtx(app.ctx, "All components started successfully")
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown(timeout time.Duration) error {
	logger.InfoCtx(app.ctx, "Starting graceful shutdown (timeout: %v)...", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 1. Stop the tick loop so no new executions launch
	app.cancel()
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	// 2. Stop HTTP server (stop accepting new requests)
	logger.InfoCtx(app.ctx, "Shutting down HTTP server...")
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(app.ctx, "HTTP server shutdown error: %v", err)
	}

	// 3. Wait for in-flight executions and background tasks to finish
	logger.InfoCtx(app.ctx, "Waiting for in-flight executions...")
	done := make(chan struct{})
	go func() {
		if app.executor != nil {
			app.executor.Wait()
		}
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.InfoCtx(app.ctx, "All background tasks completed")
	case <-shutdownCtx.Done():
		logger.WarnCtx(app.ctx, "Shutdown timeout, some executions may not have completed")
	}

	// 4. Execute all cleanup functions (in reverse registration order)
	for i := len(app.cleanupFuncs) - 1; i >= 0; i-- {
		app.cleanupFuncs[i]()
	}

	// 5. Sync logs
	logger.Sync()

	logger.InfoCtx(app.ctx, "Graceful shutdown completed")
	return nil
}

// registerCleanup registers cleanup function
func (app *Application) registerCleanup(cleanup func()) {
	app.cleanupFuncs = append(app.cleanupFuncs, cleanup)
}
