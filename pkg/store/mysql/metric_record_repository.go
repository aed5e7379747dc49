package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetricRecordRepository handles metric record persistence in MySQL
type MetricRecordRepository struct {
	ds *Datastore
}

// NewMetricRecordRepository creates a new metric record repository
func NewMetricRecordRepository(ds *Datastore) *MetricRecordRepository {
	return &MetricRecordRepository{ds: ds}
}

// Get retrieves the record for an (app, date) pair, nil when absent
func (r *MetricRecordRepository) Get(ctx context.Context, appID int64, date time.Time) (*MetricRecord, error) {
	var record MetricRecord
	err := r.ds.DB(ctx).
		Where("app_id = ? AND date = ?", appID, date.Format("2006-01-02")).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get metric record: %w", err)
	}
	return &record, nil
}

// Upsert inserts or replaces the record for its (app, date) pair.
// Concurrent writers of the same pair resolve last-write-wins; the unique
// index plus ON DUPLICATE KEY UPDATE keeps the write atomic under race.
func (r *MetricRecordRepository) Upsert(ctx context.Context, record *MetricRecord) error {
	err := r.ds.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "app_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"downloads", "sessions", "uninstalls", "unique_devices",
			"downloads_app_store_search", "downloads_web_referrer",
			"downloads_app_referrer", "downloads_app_store_browse",
			"downloads_institutional", "downloads_other",
			"revenue", "rating", "raw_data", "updated_at",
		}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert metric record: %w", err)
	}
	return nil
}

// ListRange retrieves records for an app within [from, to], ordered by date
func (r *MetricRecordRepository) ListRange(ctx context.Context, appID int64, from, to time.Time) ([]*MetricRecord, error) {
	var records []*MetricRecord
	err := r.ds.DB(ctx).
		Where("app_id = ? AND date >= ? AND date <= ?", appID, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("date ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list metric records: %w", err)
	}
	return records, nil
}

// ListRecent retrieves the latest records for an app, newest first
func (r *MetricRecordRepository) ListRecent(ctx context.Context, appID int64, limit int) ([]*MetricRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	var records []*MetricRecord
	err := r.ds.DB(ctx).
		Where("app_id = ?", appID).
		Order("date DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent metric records: %w", err)
	}
	return records, nil
}
