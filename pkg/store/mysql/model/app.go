package model

import "time"

// Platform values for App.Platform
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// App MySQL model for apps table
// BundleID holds the vendor-facing identifier: the bundle id for iOS,
// the package name for Android.
type App struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Platform  string    `gorm:"column:platform;type:varchar(20);not null;index:idx_platform" json:"platform"`
	BundleID  string    `gorm:"column:bundle_id;type:varchar(255);not null;uniqueIndex:idx_bundle_id_unique" json:"bundle_id"`
	IsActive  bool      `gorm:"column:is_active;not null;default:1" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"updated_at"`
}

// TableName specifies the table name for App
func (App) TableName() string {
	return "apps"
}
