package model

import "time"

// Metric names referenced by alert rules and growth rates
const (
	MetricDownloads            = "downloads"
	MetricSessions             = "sessions"
	MetricUninstalls           = "uninstalls"
	MetricUniqueDevices        = "unique_devices"
	MetricSearchDownloads      = "downloads_app_store_search"
	MetricWebReferrerDownloads = "downloads_web_referrer"
	MetricAppReferrerDownloads = "downloads_app_referrer"
	MetricBrowseDownloads      = "downloads_app_store_browse"
)

// Comparison modes for alert rules
const (
	ComparisonDayOverDay   = "dod"
	ComparisonWeekOverWeek = "wow"
	ComparisonAbsolute     = "absolute"
)

// AlertRule MySQL model for alert_rules table
// At most one rule exists per (app, metric, comparison mode). A nil
// threshold means that bound is not checked.
type AlertRule struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AppID          int64     `gorm:"column:app_id;not null;uniqueIndex:idx_app_metric_cmp_unique,priority:1" json:"app_id"`
	Metric         string    `gorm:"column:metric;type:varchar(50);not null;uniqueIndex:idx_app_metric_cmp_unique,priority:2" json:"metric"`
	ComparisonType string    `gorm:"column:comparison_type;type:varchar(20);not null;uniqueIndex:idx_app_metric_cmp_unique,priority:3" json:"comparison_type"`
	ThresholdMin   *float64  `gorm:"column:threshold_min;type:double" json:"threshold_min,omitempty"`
	ThresholdMax   *float64  `gorm:"column:threshold_max;type:double" json:"threshold_max,omitempty"`
	IsActive       bool      `gorm:"column:is_active;not null;default:1" json:"is_active"`
	WebhookURL     string    `gorm:"column:webhook_url;type:varchar(1000)" json:"webhook_url"`
	CreatedAt      time.Time `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"updated_at"`
}

// TableName specifies the table name for AlertRule
func (AlertRule) TableName() string {
	return "alert_rules"
}
