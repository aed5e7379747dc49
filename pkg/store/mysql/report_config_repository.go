package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ReportConfigRepository handles daily report configuration in MySQL
type ReportConfigRepository struct {
	ds *Datastore
}

// NewReportConfigRepository creates a new report config repository
func NewReportConfigRepository(ds *Datastore) *ReportConfigRepository {
	return &ReportConfigRepository{ds: ds}
}

// GetActiveByApp retrieves the active report config for an app, nil when
// the app has no daily report configured
func (r *ReportConfigRepository) GetActiveByApp(ctx context.Context, appID int64) (*ReportConfig, error) {
	var cfg ReportConfig
	err := r.ds.DB(ctx).
		Where("app_id = ? AND is_active = ?", appID, true).
		First(&cfg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report config: %w", err)
	}
	return &cfg, nil
}

// Create creates a new report config
func (r *ReportConfigRepository) Create(ctx context.Context, cfg *ReportConfig) error {
	return r.ds.DB(ctx).Create(cfg).Error
}
