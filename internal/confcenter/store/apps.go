package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kart-io/confcenter/internal/model"
)

// AppStore defines application storage.
type AppStore interface {
	Create(ctx context.Context, app *model.App) error
	Update(ctx context.Context, app *model.App) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.App, error)
	List(ctx context.Context, offset, limit int) (int64, []*model.App, error)
}

type apps struct {
	db *gorm.DB
}

func newApps(db *gorm.DB) *apps {
	return &apps{db}
}

// Create creates a new application.
func (a *apps) Create(ctx context.Context, app *model.App) error {
	return a.db.WithContext(ctx).Create(app).Error
}

// Update updates an existing application.
func (a *apps) Update(ctx context.Context, app *model.App) error {
	return a.db.WithContext(ctx).Save(app).Error
}

// Delete deletes an application by id.
func (a *apps) Delete(ctx context.Context, id string) error {
	return a.db.WithContext(ctx).Where("id = ?", id).Delete(&model.App{}).Error
}

// Get retrieves an application by id. Returns nil, nil when the app does not
// exist so callers can distinguish absence from failure.
func (a *apps) Get(ctx context.Context, id string) (*model.App, error) {
	var app model.App
	if err := a.db.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

// List lists applications with pagination.
func (a *apps) List(ctx context.Context, offset, limit int) (int64, []*model.App, error) {
	var count int64
	var list []*model.App

	if err := a.db.WithContext(ctx).Model(&model.App{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}

	if err := a.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return 0, nil, err
	}

	return count, list, nil
}
