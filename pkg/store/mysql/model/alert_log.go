package model

import "time"

// Alert types recorded in alert_logs
const (
	AlertTypeAnomaly = "anomaly"
	AlertTypeSystem  = "system"
)

// AlertLog MySQL model for alert_logs table
// AppID is nullable so system-level alerts (scheduler failures, credential
// problems) can be recorded without an app.
type AlertLog struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	AppID          *int64     `gorm:"column:app_id;index:idx_app_id" json:"app_id,omitempty"`
	AlertType      string     `gorm:"column:alert_type;type:varchar(20);not null;default:'anomaly'" json:"alert_type"`
	Metric         string     `gorm:"column:metric;type:varchar(50)" json:"metric"`
	Message        string     `gorm:"column:message;type:text;not null" json:"message"`
	Severity       string     `gorm:"column:severity;type:varchar(20)" json:"severity"`
	CurrentValue   *float64   `gorm:"column:current_value;type:double" json:"current_value,omitempty"`
	ThresholdValue *float64   `gorm:"column:threshold_value;type:double" json:"threshold_value,omitempty"`
	IsSent         bool       `gorm:"column:is_sent;not null;default:0" json:"is_sent"`
	SentAt         *time.Time `gorm:"column:sent_at;type:datetime(3)" json:"sent_at,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3);index:idx_created_at" json:"created_at"`
}

// TableName specifies the table name for AlertLog
func (AlertLog) TableName() string {
	return "alert_logs"
}
