package model

import "time"

// Execution trigger types
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerRetry     = "retry"
)

// Execution statuses. pending and running are live; the rest are terminal.
const (
	ExecutionPending   = "pending"
	ExecutionRunning   = "running"
	ExecutionSuccess   = "success"
	ExecutionFailed    = "failed"
	ExecutionTimeout   = "timeout"
	ExecutionCancelled = "cancelled"
)

// TaskExecution MySQL model for task_executions table
// One row per triggered run. Only the executor that created the row mutates
// it; terminal rows are never updated again.
type TaskExecution struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ScheduleID  *int64     `gorm:"column:schedule_id;index:idx_schedule_status,priority:1" json:"schedule_id,omitempty"`
	TriggerType string     `gorm:"column:trigger_type;type:varchar(20);not null;default:'scheduled'" json:"trigger_type"`
	Status      string     `gorm:"column:status;type:varchar(20);not null;default:'pending';index:idx_schedule_status,priority:2" json:"status"`
	AppID       *int64     `gorm:"column:app_id" json:"app_id,omitempty"`
	TargetDate  *time.Time `gorm:"column:target_date;type:date" json:"target_date,omitempty"`

	StartedAt       *time.Time `gorm:"column:started_at;type:datetime(3)" json:"started_at,omitempty"`
	CompletedAt     *time.Time `gorm:"column:completed_at;type:datetime(3)" json:"completed_at,omitempty"`
	DurationSeconds *int64     `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`

	SuccessCount      int `gorm:"column:success_count;not null;default:0" json:"success_count"`
	ErrorCount        int `gorm:"column:error_count;not null;default:0" json:"error_count"`
	AlertsGenerated   int `gorm:"column:alerts_generated;not null;default:0" json:"alerts_generated"`
	NotificationsSent int `gorm:"column:notifications_sent;not null;default:0" json:"notifications_sent"`

	OutputLog  string `gorm:"column:output_log;type:text" json:"output_log"`
	ErrorLog   string `gorm:"column:error_log;type:text" json:"error_log"`
	RetryCount int    `gorm:"column:retry_count;not null;default:0" json:"retry_count"`

	CreatedAt time.Time `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3);index:idx_exec_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"updated_at"`
}

// TableName specifies the table name for TaskExecution
func (TaskExecution) TableName() string {
	return "task_executions"
}

// IsTerminal reports whether no further status transition is allowed.
func (e *TaskExecution) IsTerminal() bool {
	switch e.Status {
	case ExecutionSuccess, ExecutionFailed, ExecutionTimeout, ExecutionCancelled:
		return true
	}
	return false
}

// CanRetry reports whether a retry execution may be created, given the
// owning schedule's retry budget.
func (e *TaskExecution) CanRetry(maxRetries int) bool {
	if e.Status != ExecutionFailed && e.Status != ExecutionTimeout {
		return false
	}
	return e.RetryCount < maxRetries
}
