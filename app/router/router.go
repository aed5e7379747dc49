package router

import (
	"net/http"

	"storepulse/app/handler"
	"storepulse/app/middleware"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	appHandler      *handler.AppHandler
	taskHandler     *handler.TaskHandler
	scheduleHandler *handler.ScheduleHandler
	metricHandler   *handler.MetricHandler
	alertHandler    *handler.AlertHandler
}

// NewRouter creates a new Router
func NewRouter(appHandler *handler.AppHandler, taskHandler *handler.TaskHandler, scheduleHandler *handler.ScheduleHandler, metricHandler *handler.MetricHandler, alertHandler *handler.AlertHandler) *Router {
	return &Router{
		appHandler:      appHandler,
		taskHandler:     taskHandler,
		scheduleHandler: scheduleHandler,
		metricHandler:   metricHandler,
		alertHandler:    alertHandler,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// V1 API - management interface
	v1 := engine.Group("/v1")
	v1.Use(middleware.AuthMiddleware())
	{
		// Tracked apps
		v1.GET("/apps", r.appHandler.List)
		v1.POST("/apps", r.appHandler.Create)
		v1.GET("/apps/:id", r.appHandler.Get)
		v1.PUT("/apps/:id", r.appHandler.Update)

		// Per-app data
		v1.GET("/apps/:id/metrics", r.metricHandler.ListRecords)
		v1.GET("/apps/:id/trend", r.metricHandler.Trend)
		v1.GET("/apps/:id/alert-rules", r.alertHandler.ListRules)

		// Collection runs
		v1.POST("/tasks/run", r.taskHandler.Run)
		v1.GET("/executions", r.taskHandler.ListExecutions)
		v1.GET("/executions/:id", r.taskHandler.GetExecution)
		v1.POST("/executions/:id/retry", r.taskHandler.Retry)
		v1.GET("/scheduler/status", r.taskHandler.SchedulerStatus)

		// Schedules
		v1.GET("/schedules", r.scheduleHandler.List)
		v1.POST("/schedules", r.scheduleHandler.Create)
		v1.PUT("/schedules/:id", r.scheduleHandler.Update)

		// Alerts
		v1.POST("/alert-rules", r.alertHandler.CreateRule)
		v1.GET("/alerts", r.alertHandler.ListLogs)
		v1.POST("/webhook/test", r.alertHandler.TestWebhook)
	}
}
