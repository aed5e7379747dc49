package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ScheduleRepository handles task schedule persistence in MySQL
// Schedules are created and edited externally; the scheduler only reads.
type ScheduleRepository struct {
	ds *Datastore
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(ds *Datastore) *ScheduleRepository {
	return &ScheduleRepository{ds: ds}
}

// Get retrieves a schedule by ID
func (r *ScheduleRepository) Get(ctx context.Context, id int64) (*TaskSchedule, error) {
	var schedule TaskSchedule
	err := r.ds.DB(ctx).Where("id = ?", id).First(&schedule).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &schedule, nil
}

// ListActive retrieves all active schedules
func (r *ScheduleRepository) ListActive(ctx context.Context) ([]*TaskSchedule, error) {
	var schedules []*TaskSchedule
	err := r.ds.DB(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}
	return schedules, nil
}

// List retrieves all schedules
func (r *ScheduleRepository) List(ctx context.Context) ([]*TaskSchedule, error) {
	var schedules []*TaskSchedule
	err := r.ds.DB(ctx).Order("id ASC").Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

// Create creates a new schedule
func (r *ScheduleRepository) Create(ctx context.Context, schedule *TaskSchedule) error {
	return r.ds.DB(ctx).Create(schedule).Error
}

// Update applies partial updates to a schedule
func (r *ScheduleRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	result := r.ds.DB(ctx).Model(&TaskSchedule{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update schedule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("schedule not found: id=%d", id)
	}
	return nil
}
