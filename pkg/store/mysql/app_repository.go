package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// AppRepository handles app persistence in MySQL
type AppRepository struct {
	ds *Datastore
}

// NewAppRepository creates a new app repository
func NewAppRepository(ds *Datastore) *AppRepository {
	return &AppRepository{ds: ds}
}

// Create creates a new app
func (r *AppRepository) Create(ctx context.Context, app *App) error {
	return r.ds.DB(ctx).Create(app).Error
}

// Get retrieves an app by ID
func (r *AppRepository) Get(ctx context.Context, id int64) (*App, error) {
	var app App
	err := r.ds.DB(ctx).Where("id = ?", id).First(&app).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get app: %w", err)
	}
	return &app, nil
}

// GetByBundleID retrieves an app by its vendor-facing identifier
func (r *AppRepository) GetByBundleID(ctx context.Context, bundleID string) (*App, error) {
	var app App
	err := r.ds.DB(ctx).Where("bundle_id = ?", bundleID).First(&app).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get app by bundle id: %w", err)
	}
	return &app, nil
}

// ListActive retrieves all apps with monitoring enabled
func (r *AppRepository) ListActive(ctx context.Context) ([]*App, error) {
	var apps []*App
	err := r.ds.DB(ctx).Where("is_active = ?", true).Order("id ASC").Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active apps: %w", err)
	}
	return apps, nil
}

// List retrieves all apps
func (r *AppRepository) List(ctx context.Context) ([]*App, error) {
	var apps []*App
	err := r.ds.DB(ctx).Order("id ASC").Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	return apps, nil
}

// Update saves changed app fields
func (r *AppRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	return r.ds.DB(ctx).Model(&App{}).Where("id = ?", id).Updates(updates).Error
}
