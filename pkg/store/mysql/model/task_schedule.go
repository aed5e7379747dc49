package model

import (
	"fmt"
	"time"
)

// Task types a schedule can run
const (
	TaskTypeDailyCollection = "daily_collection"
)

// Schedule frequencies
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// TaskSchedule MySQL model for task_schedules table
// A nil AppID means the task covers all active apps. Weekday is 0=Monday
// through 6=Sunday, used only for weekly frequency; DayOfMonth only for
// monthly.
type TaskSchedule struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string    `gorm:"column:name;type:varchar(200);not null" json:"name"`
	TaskType          string    `gorm:"column:task_type;type:varchar(50);not null;default:'daily_collection'" json:"task_type"`
	AppID             *int64    `gorm:"column:app_id" json:"app_id,omitempty"`
	Frequency         string    `gorm:"column:frequency;type:varchar(20);not null;default:'daily'" json:"frequency"`
	Hour              int       `gorm:"column:hour;not null;default:0" json:"hour"`
	Minute            int       `gorm:"column:minute;not null;default:0" json:"minute"`
	Weekday           *int      `gorm:"column:weekday" json:"weekday,omitempty"`
	DayOfMonth        *int      `gorm:"column:day_of_month" json:"day_of_month,omitempty"`
	IsActive          bool      `gorm:"column:is_active;not null;default:1;index:idx_schedule_active" json:"is_active"`
	SkipNotifications bool      `gorm:"column:skip_notifications;not null;default:0" json:"skip_notifications"`
	RetryCount        int       `gorm:"column:retry_count;not null;default:3" json:"retry_count"`
	TimeoutMinutes    int       `gorm:"column:timeout_minutes;not null;default:30" json:"timeout_minutes"`
	CreatedAt         time.Time `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"updated_at"`
}

// TableName specifies the table name for TaskSchedule
func (TaskSchedule) TableName() string {
	return "task_schedules"
}

// MatchesTick reports whether the schedule should fire at the given local
// time. Matching is minute-granular; the caller ticks once per minute.
func (s *TaskSchedule) MatchesTick(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	if now.Hour() != s.Hour || now.Minute() != s.Minute {
		return false
	}

	switch s.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		if s.Weekday == nil {
			return false
		}
		// time.Weekday has Sunday=0; schedules use Monday=0
		return (int(now.Weekday())+6)%7 == *s.Weekday
	case FrequencyMonthly:
		if s.DayOfMonth == nil {
			return false
		}
		return now.Day() == *s.DayOfMonth
	}
	return false
}

// Timeout returns the execution deadline for this schedule, applying the
// given default when the schedule has no timeout configured.
func (s *TaskSchedule) Timeout(defaultMinutes int) time.Duration {
	minutes := s.TimeoutMinutes
	if minutes <= 0 {
		minutes = defaultMinutes
	}
	if minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}

// CronExpression renders the schedule in crontab notation for display.
func (s *TaskSchedule) CronExpression() string {
	switch s.Frequency {
	case FrequencyWeekly:
		if s.Weekday != nil {
			// crontab has Sunday=0; schedules use Monday=0
			return fmt.Sprintf("%d %d * * %d", s.Minute, s.Hour, (*s.Weekday+1)%7)
		}
	case FrequencyMonthly:
		if s.DayOfMonth != nil {
			return fmt.Sprintf("%d %d %d * *", s.Minute, s.Hour, *s.DayOfMonth)
		}
	}
	return fmt.Sprintf("%d %d * * *", s.Minute, s.Hour)
}
