package handler

import (
	"net/http"
	"strconv"
	"time"

	"storepulse/internal/scheduler"
	"storepulse/internal/service"
	"storepulse/pkg/logger"
	"storepulse/pkg/store/mysql"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles manual task triggering and execution records
type TaskHandler struct {
	executor   *scheduler.Executor
	runner     scheduler.Runner
	sched      *scheduler.Scheduler
	executions *mysql.ExecutionRepository
	schedules  *mysql.ScheduleRepository
}

// NewTaskHandler creates task handler. sched may be nil when the
// scheduler is disabled; manual runs still work through the executor.
func NewTaskHandler(executor *scheduler.Executor, runner scheduler.Runner, sched *scheduler.Scheduler, executions *mysql.ExecutionRepository, schedules *mysql.ScheduleRepository) *TaskHandler {
	return &TaskHandler{
		executor:   executor,
		runner:     runner,
		sched:      sched,
		executions: executions,
		schedules:  schedules,
	}
}

// RunRequest is the payload for a manual collection run
type RunRequest struct {
	AppID      *int64 `json:"app_id,omitempty"`      // nil runs all active apps
	TargetDate string `json:"target_date,omitempty"` // YYYY-MM-DD, empty uses the default delay
	DryRun     bool   `json:"dry_run,omitempty"`     // fetch and analyze without persisting or notifying
}

// Run triggers a manual collection run
// @Summary Trigger manual run
// @Description Launch a collection run outside any schedule and return its execution record. With dry_run the run executes inline without persisting or notifying and the summary is returned instead.
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body RunRequest true "Run parameters"
// @Success 200 {object} model.RunSummary
// @Success 202 {object} mysql.TaskExecution
// @Router /tasks/run [post]
func (h *TaskHandler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var targetDate *time.Time
	if req.TargetDate != "" {
		parsed, err := time.Parse("2006-01-02", req.TargetDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "target_date must be YYYY-MM-DD"})
			return
		}
		targetDate = &parsed
	}

	if req.DryRun {
		date := h.runner.DefaultTargetDate(time.Now())
		if targetDate != nil {
			date = *targetDate
		}
		summary := h.runner.RunWithOptions(c.Request.Context(), service.RunOptions{
			AppID:      req.AppID,
			TargetDate: date,
			DryRun:     true,
		})
		c.JSON(http.StatusOK, summary)
		return
	}

	exec, err := h.executor.StartManual(c.Request.Context(), req.AppID, targetDate)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to start manual run: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, exec)
}

// ListExecutions lists recent executions
// @Summary List executions
// @Tags tasks
// @Produce json
// @Param schedule_id query int false "Filter by schedule"
// @Param limit query int false "Max rows (default 50)"
// @Success 200 {array} mysql.TaskExecution
// @Router /executions [get]
func (h *TaskHandler) ListExecutions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var (
		executions []*mysql.TaskExecution
		err        error
	)
	if scheduleParam := c.Query("schedule_id"); scheduleParam != "" {
		scheduleID, parseErr := strconv.ParseInt(scheduleParam, 10, 64)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule_id"})
			return
		}
		executions, err = h.executions.ListBySchedule(c.Request.Context(), scheduleID, limit)
	} else {
		executions, err = h.executions.ListRecent(c.Request.Context(), limit)
	}
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list executions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": executions})
}

// GetExecution retrieves one execution
// @Summary Get execution
// @Tags tasks
// @Produce json
// @Param id path int true "Execution ID"
// @Success 200 {object} mysql.TaskExecution
// @Router /executions/{id} [get]
func (h *TaskHandler) GetExecution(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid execution id"})
		return
	}

	exec, err := h.executions.Get(c.Request.Context(), id)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to get execution %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if exec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "execution not found"})
		return
	}
	c.JSON(http.StatusOK, exec)
}

// Retry creates a retry execution for a failed or timed-out run
// @Summary Retry execution
// @Description Create a new execution with trigger_type=retry; the original record is untouched
// @Tags tasks
// @Produce json
// @Param id path int true "Execution ID"
// @Success 202 {object} mysql.TaskExecution
// @Router /executions/{id}/retry [post]
func (h *TaskHandler) Retry(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid execution id"})
		return
	}

	exec, err := h.executor.StartRetry(c.Request.Context(), id)
	if err != nil {
		logger.WarnCtx(c.Request.Context(), "retry of execution %d rejected: %v", id, err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, exec)
}

// SchedulerStatus reports whether the tick loop is running
// @Summary Scheduler status
// @Tags tasks
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /scheduler/status [get]
func (h *TaskHandler) SchedulerStatus(c *gin.Context) {
	enabled := h.sched != nil
	running := enabled && h.sched.Running()
	c.JSON(http.StatusOK, gin.H{"enabled": enabled, "running": running})
}
