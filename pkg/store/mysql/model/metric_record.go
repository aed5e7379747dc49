package model

import "time"

// MetricRecord MySQL model for metric_records table
// One row per (app, date). Channel columns break first-time downloads down
// by acquisition source; they may undercount the download total when the
// vendor withholds attribution.
type MetricRecord struct {
	ID    int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AppID int64     `gorm:"column:app_id;not null;uniqueIndex:idx_app_date_unique,priority:1" json:"app_id"`
	Date  time.Time `gorm:"column:date;type:date;not null;uniqueIndex:idx_app_date_unique,priority:2;index:idx_date" json:"date"`

	Downloads     int64 `gorm:"column:downloads;not null;default:0" json:"downloads"`
	Sessions      int64 `gorm:"column:sessions;not null;default:0" json:"sessions"`
	Uninstalls    int64 `gorm:"column:uninstalls;not null;default:0" json:"uninstalls"`
	UniqueDevices int64 `gorm:"column:unique_devices;not null;default:0" json:"unique_devices"`

	// First-time download source channels
	DownloadsAppStoreSearch int64 `gorm:"column:downloads_app_store_search;not null;default:0" json:"downloads_app_store_search"`
	DownloadsWebReferrer    int64 `gorm:"column:downloads_web_referrer;not null;default:0" json:"downloads_web_referrer"`
	DownloadsAppReferrer    int64 `gorm:"column:downloads_app_referrer;not null;default:0" json:"downloads_app_referrer"`
	DownloadsAppStoreBrowse int64 `gorm:"column:downloads_app_store_browse;not null;default:0" json:"downloads_app_store_browse"`
	DownloadsInstitutional  int64 `gorm:"column:downloads_institutional;not null;default:0" json:"downloads_institutional"`
	DownloadsOther          int64 `gorm:"column:downloads_other;not null;default:0" json:"downloads_other"`

	Revenue *float64 `gorm:"column:revenue;type:decimal(12,2)" json:"revenue,omitempty"`
	Rating  *float64 `gorm:"column:rating;type:double" json:"rating,omitempty"`

	RawData JSONMap `gorm:"column:raw_data;type:json" json:"raw_data,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"updated_at"`
}

// TableName specifies the table name for MetricRecord
func (MetricRecord) TableName() string {
	return "metric_records"
}

// ChannelTotal sums the six download-source channels.
func (r *MetricRecord) ChannelTotal() int64 {
	return r.DownloadsAppStoreSearch +
		r.DownloadsWebReferrer +
		r.DownloadsAppReferrer +
		r.DownloadsAppStoreBrowse +
		r.DownloadsInstitutional +
		r.DownloadsOther
}

// MetricValue returns the named metric value, used by rule evaluation in
// absolute comparison mode.
func (r *MetricRecord) MetricValue(metric string) (float64, bool) {
	switch metric {
	case MetricDownloads:
		return float64(r.Downloads), true
	case MetricSessions:
		return float64(r.Sessions), true
	case MetricUninstalls:
		return float64(r.Uninstalls), true
	case MetricUniqueDevices:
		return float64(r.UniqueDevices), true
	case MetricSearchDownloads:
		return float64(r.DownloadsAppStoreSearch), true
	case MetricWebReferrerDownloads:
		return float64(r.DownloadsWebReferrer), true
	case MetricAppReferrerDownloads:
		return float64(r.DownloadsAppReferrer), true
	case MetricBrowseDownloads:
		return float64(r.DownloadsAppStoreBrowse), true
	}
	return 0, false
}
