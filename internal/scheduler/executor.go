package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"storepulse/internal/model"
	"storepulse/internal/service"
	"storepulse/pkg/logger"
	"storepulse/pkg/store/mysql"
)

const defaultTimeoutMinutes = 30

// Runner is the ingestion entry point an execution drives.
type Runner interface {
	RunWithOptions(ctx context.Context, opts service.RunOptions) *model.RunSummary
	DefaultTargetDate(now time.Time) time.Time
}

// ScheduleStore resolves schedules for retries.
type ScheduleStore interface {
	Get(ctx context.Context, id int64) (*mysql.TaskSchedule, error)
}

// ExecutionStore persists execution lifecycle state.
type ExecutionStore interface {
	Create(ctx context.Context, exec *mysql.TaskExecution) error
	Get(ctx context.Context, id int64) (*mysql.TaskExecution, error)
	CountRunningBySchedule(ctx context.Context, scheduleID int64) (int64, error)
	UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string, updates map[string]interface{}) error
}

// Executor owns TaskExecution records: it creates them at trigger time and
// is the only writer that moves them to a terminal state. Runs launched
// with Start* methods are asynchronous; Wait blocks until they drain.
type Executor struct {
	schedules  ScheduleStore
	executions ExecutionStore
	runner     Runner

	now func() time.Time
	wg  sync.WaitGroup
}

// NewExecutor creates an executor over the given stores and runner.
func NewExecutor(schedules ScheduleStore, executions ExecutionStore, runner Runner) *Executor {
	return &Executor{
		schedules:  schedules,
		executions: executions,
		runner:     runner,
		now:        time.Now,
	}
}

// StartScheduled triggers an execution for a matched schedule. A schedule
// with an execution still running is skipped without creating a record.
// The returned execution is pending; the run completes in the background.
func (e *Executor) StartScheduled(ctx context.Context, schedule *mysql.TaskSchedule) (*mysql.TaskExecution, error) {
	running, err := e.executions.CountRunningBySchedule(ctx, schedule.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check running executions for schedule %d: %w", schedule.ID, err)
	}
	if running > 0 {
		logger.Warnf("schedule %s (%d) already has a running execution, skipping trigger", schedule.Name, schedule.ID)
		return nil, nil
	}

	exec := &mysql.TaskExecution{
		ScheduleID:  &schedule.ID,
		TriggerType: mysql.TriggerScheduled,
		Status:      mysql.ExecutionPending,
		AppID:       schedule.AppID,
	}
	return e.start(ctx, exec, schedule)
}

// StartManual triggers an execution outside any schedule. The concurrency
// guard does not apply: there is no schedule to guard against.
func (e *Executor) StartManual(ctx context.Context, appID *int64, targetDate *time.Time) (*mysql.TaskExecution, error) {
	exec := &mysql.TaskExecution{
		TriggerType: mysql.TriggerManual,
		Status:      mysql.ExecutionPending,
		AppID:       appID,
		TargetDate:  targetDate,
	}
	return e.start(ctx, exec, nil)
}

// StartRetry creates a fresh execution referencing the failed one's
// schedule with an incremented retry count. The failed execution itself is
// never mutated.
func (e *Executor) StartRetry(ctx context.Context, executionID int64) (*mysql.TaskExecution, error) {
	prev, err := e.executions.Get(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution %d: %w", executionID, err)
	}
	if prev == nil {
		return nil, fmt.Errorf("execution %d not found", executionID)
	}

	var schedule *mysql.TaskSchedule
	maxRetries := 0
	if prev.ScheduleID != nil {
		schedule, err = e.schedules.Get(ctx, *prev.ScheduleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load schedule %d: %w", *prev.ScheduleID, err)
		}
		if schedule != nil {
			maxRetries = schedule.RetryCount
		}
	}
	if !prev.CanRetry(maxRetries) {
		return nil, fmt.Errorf("execution %d is not retryable (status %s, retry %d/%d)",
			executionID, prev.Status, prev.RetryCount, maxRetries)
	}

	exec := &mysql.TaskExecution{
		ScheduleID:  prev.ScheduleID,
		TriggerType: mysql.TriggerRetry,
		Status:      mysql.ExecutionPending,
		AppID:       prev.AppID,
		TargetDate:  prev.TargetDate,
		RetryCount:  prev.RetryCount + 1,
	}
	return e.start(ctx, exec, schedule)
}

// Wait blocks until all in-flight executions finish.
func (e *Executor) Wait() {
	e.wg.Wait()
}

func (e *Executor) start(ctx context.Context, exec *mysql.TaskExecution, schedule *mysql.TaskSchedule) (*mysql.TaskExecution, error) {
	if err := e.executions.Create(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		// The run outlives the trigger's context (an HTTP request or a
		// scheduler tick); its lifetime is bounded by the timeout below.
		e.run(context.Background(), exec, schedule)
	}()
	return exec, nil
}

// run drives one execution from pending to a terminal state.
func (e *Executor) run(ctx context.Context, exec *mysql.TaskExecution, schedule *mysql.TaskSchedule) {
	startedAt := e.now()
	err := e.executions.UpdateStatus(ctx, exec.ID, mysql.ExecutionPending, mysql.ExecutionRunning, map[string]interface{}{
		"started_at": startedAt,
	})
	if err != nil {
		logger.Errorf("failed to mark execution %d running: %v", exec.ID, err)
		return
	}

	timeout := time.Duration(defaultTimeoutMinutes) * time.Minute
	skipNotifications := false
	if schedule != nil {
		timeout = schedule.Timeout(defaultTimeoutMinutes)
		skipNotifications = schedule.SkipNotifications
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	targetDate := e.runner.DefaultTargetDate(startedAt)
	if exec.TargetDate != nil {
		targetDate = *exec.TargetDate
	}

	logger.Infof("execution %d started (%s trigger, target %s)", exec.ID, exec.TriggerType, model.DateKey(targetDate))
	summary := e.runner.RunWithOptions(runCtx, service.RunOptions{
		AppID:             exec.AppID,
		TargetDate:        targetDate,
		SkipNotifications: skipNotifications,
	})

	completedAt := e.now()
	status := finalStatus(runCtx, summary)
	duration := int64(completedAt.Sub(startedAt).Seconds())
	updates := map[string]interface{}{
		"completed_at":       completedAt,
		"duration_seconds":   duration,
		"success_count":      summary.SuccessCount,
		"error_count":        summary.ErrorCount,
		"alerts_generated":   summary.AlertsGenerated,
		"notifications_sent": summary.NotificationsSent,
		"output_log":         renderOutputLog(summary),
		"error_log":          strings.Join(summary.Errors, "\n"),
	}
	err = e.executions.UpdateStatus(ctx, exec.ID, mysql.ExecutionRunning, status, updates)
	if err != nil {
		logger.Errorf("failed to finalize execution %d as %s: %v", exec.ID, status, err)
		return
	}
	logger.Infof("execution %d finished with status %s in %ds", exec.ID, status, duration)
}

// finalStatus derives the terminal state from the run context and summary.
// A deadline hit takes precedence: side effects past it are not attributed
// to this run.
func finalStatus(runCtx context.Context, summary *model.RunSummary) string {
	if runCtx.Err() == context.DeadlineExceeded {
		return mysql.ExecutionTimeout
	}
	if summary.FullyFailed() {
		return mysql.ExecutionFailed
	}
	return mysql.ExecutionSuccess
}

func renderOutputLog(summary *model.RunSummary) string {
	return fmt.Sprintf("target=%s apps=%d succeeded=%d failed=%d alerts=%d notifications=%d",
		summary.TargetDate, summary.TotalApps, summary.SuccessCount, summary.ErrorCount,
		summary.AlertsGenerated, summary.NotificationsSent)
}
