package model

import "time"

// ReportConfig MySQL model for report_configs table
// One per app. Controls where the daily report for the app is delivered.
type ReportConfig struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AppID       int64     `gorm:"column:app_id;not null;uniqueIndex:idx_report_app_unique" json:"app_id"`
	WebhookURL  string    `gorm:"column:webhook_url;type:varchar(1000)" json:"webhook_url"`
	LarkSheetID string    `gorm:"column:lark_sheet_id;type:varchar(100)" json:"lark_sheet_id"`
	IsActive    bool      `gorm:"column:is_active;not null;default:1" json:"is_active"`
	CreatedAt   time.Time `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"updated_at"`
}

// TableName specifies the table name for ReportConfig
func (ReportConfig) TableName() string {
	return "report_configs"
}
