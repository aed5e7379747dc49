package mysql

import (
	"context"
	"fmt"

	"storepulse/pkg/store/mysql/model"

	"gorm.io/gorm"
)

// ExecutionRepository handles task execution persistence in MySQL
type ExecutionRepository struct {
	ds *Datastore
}

// NewExecutionRepository creates a new execution repository
func NewExecutionRepository(ds *Datastore) *ExecutionRepository {
	return &ExecutionRepository{ds: ds}
}

// Create creates a new execution record
func (r *ExecutionRepository) Create(ctx context.Context, exec *TaskExecution) error {
	return r.ds.DB(ctx).Create(exec).Error
}

// Get retrieves an execution by ID
func (r *ExecutionRepository) Get(ctx context.Context, id int64) (*TaskExecution, error) {
	var exec TaskExecution
	err := r.ds.DB(ctx).Where("id = ?", id).First(&exec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}
	return &exec, nil
}

// CountRunningBySchedule counts executions of a schedule still in running
// state. The executor uses this as its concurrency guard before creating a
// new execution.
func (r *ExecutionRepository) CountRunningBySchedule(ctx context.Context, scheduleID int64) (int64, error) {
	var count int64
	err := r.ds.DB(ctx).Model(&TaskExecution{}).
		Where("schedule_id = ? AND status = ?", scheduleID, model.ExecutionRunning).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count running executions: %w", err)
	}
	return count, nil
}

// UpdateStatus transitions an execution with CAS on the current status.
// Returns an error when the execution is missing or the status changed
// underneath, which keeps terminal states immutable.
func (r *ExecutionRepository) UpdateStatus(ctx context.Context, id int64, fromStatus, toStatus string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = toStatus

	result := r.ds.DB(ctx).Model(&TaskExecution{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update execution status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("execution not found or invalid status transition: id=%d, from=%s, to=%s", id, fromStatus, toStatus)
	}
	return nil
}

// ListBySchedule retrieves executions for a schedule, newest first
func (r *ExecutionRepository) ListBySchedule(ctx context.Context, scheduleID int64, limit int) ([]*TaskExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	var execs []*TaskExecution
	err := r.ds.DB(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("id DESC").
		Limit(limit).
		Find(&execs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	return execs, nil
}

// ListRecent retrieves the latest executions across all schedules
func (r *ExecutionRepository) ListRecent(ctx context.Context, limit int) ([]*TaskExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	var execs []*TaskExecution
	err := r.ds.DB(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&execs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent executions: %w", err)
	}
	return execs, nil
}
