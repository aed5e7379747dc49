package mysql

import (
	"context"
	"fmt"
	"time"
)

// AlertRuleRepository handles alert rule persistence in MySQL
type AlertRuleRepository struct {
	ds *Datastore
}

// NewAlertRuleRepository creates a new alert rule repository
func NewAlertRuleRepository(ds *Datastore) *AlertRuleRepository {
	return &AlertRuleRepository{ds: ds}
}

// ListActiveByApp retrieves the active rules for an app
func (r *AlertRuleRepository) ListActiveByApp(ctx context.Context, appID int64) ([]*AlertRule, error) {
	var rules []*AlertRule
	err := r.ds.DB(ctx).
		Where("app_id = ? AND is_active = ?", appID, true).
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	return rules, nil
}

// Create creates a new alert rule
func (r *AlertRuleRepository) Create(ctx context.Context, rule *AlertRule) error {
	return r.ds.DB(ctx).Create(rule).Error
}

// AlertLogRepository handles alert log persistence in MySQL
type AlertLogRepository struct {
	ds *Datastore
}

// NewAlertLogRepository creates a new alert log repository
func NewAlertLogRepository(ds *Datastore) *AlertLogRepository {
	return &AlertLogRepository{ds: ds}
}

// Create appends a new alert log entry
func (r *AlertLogRepository) Create(ctx context.Context, entry *AlertLog) error {
	return r.ds.DB(ctx).Create(entry).Error
}

// MarkSent flags an alert as delivered and stamps the delivery time
func (r *AlertLogRepository) MarkSent(ctx context.Context, id int64) error {
	now := time.Now()
	result := r.ds.DB(ctx).Model(&AlertLog{}).
		Where("id = ? AND is_sent = ?", id, false).
		Updates(map[string]interface{}{
			"is_sent": true,
			"sent_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark alert sent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("alert not found or already sent: id=%d", id)
	}
	return nil
}

// ListRecent retrieves the latest alert logs, newest first
func (r *AlertLogRepository) ListRecent(ctx context.Context, limit int) ([]*AlertLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []*AlertLog
	err := r.ds.DB(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alert logs: %w", err)
	}
	return logs, nil
}
