package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kart-io/confcenter/internal/model"
)

// ItemStore defines config item storage.
type ItemStore interface {
	Create(ctx context.Context, item *model.ConfigItem) error
	Update(ctx context.Context, item *model.ConfigItem) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.ConfigItem, error)
	GetByKey(ctx context.Context, appID string, env model.Environment, key string) (*model.ConfigItem, error)
	ListByAppEnv(ctx context.Context, appID string, env model.Environment) ([]*model.ConfigItem, error)
	ListReleased(ctx context.Context, appID string, env model.Environment) ([]*model.ConfigItem, error)
	Search(ctx context.Context, appID string, env model.Environment, group, keyPrefix string, offset, limit int) (int64, []*model.ConfigItem, error)

	// UpdatePublished applies a publish mutation guarded by the optimistic
	// version token: the row is updated only when its current version still
	// equals expectedVersion. Returns the number of rows affected.
	UpdatePublished(ctx context.Context, id string, newValue string, expectedVersion int64) (int64, error)
}

type items struct {
	db *gorm.DB
}

func newItems(db *gorm.DB) *items {
	return &items{db}
}

// Create creates a new config item.
func (i *items) Create(ctx context.Context, item *model.ConfigItem) error {
	return i.db.WithContext(ctx).Create(item).Error
}

// Update updates an existing config item.
func (i *items) Update(ctx context.Context, item *model.ConfigItem) error {
	return i.db.WithContext(ctx).Save(item).Error
}

// Delete deletes a config item by id.
func (i *items) Delete(ctx context.Context, id string) error {
	return i.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ConfigItem{}).Error
}

// Get retrieves a config item by id. Returns nil, nil when absent.
func (i *items) Get(ctx context.Context, id string) (*model.ConfigItem, error) {
	var item model.ConfigItem
	if err := i.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// GetByKey retrieves an item by its unique (app, environment, key) triple.
// Returns nil, nil when absent.
func (i *items) GetByKey(ctx context.Context, appID string, env model.Environment, key string) (*model.ConfigItem, error) {
	var item model.ConfigItem
	err := i.db.WithContext(ctx).
		Where("app_id = ? AND environment = ? AND `key` = ?", appID, env, key).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListByAppEnv lists all items for an (app, environment) pair.
func (i *items) ListByAppEnv(ctx context.Context, appID string, env model.Environment) ([]*model.ConfigItem, error) {
	var list []*model.ConfigItem
	err := i.db.WithContext(ctx).
		Where("app_id = ? AND environment = ?", appID, env).
		Order("`key`").
		Find(&list).Error
	return list, err
}

// ListReleased lists the Released items for an (app, environment) pair.
// Only these participate in resolution.
func (i *items) ListReleased(ctx context.Context, appID string, env model.Environment) ([]*model.ConfigItem, error) {
	var list []*model.ConfigItem
	err := i.db.WithContext(ctx).
		Where("app_id = ? AND environment = ? AND status = ?", appID, env, model.StatusReleased).
		Order("`key`").
		Find(&list).Error
	return list, err
}

// Search lists items filtered by group and key prefix with pagination.
func (i *items) Search(ctx context.Context, appID string, env model.Environment, group, keyPrefix string, offset, limit int) (int64, []*model.ConfigItem, error) {
	q := i.db.WithContext(ctx).Model(&model.ConfigItem{}).
		Where("app_id = ? AND environment = ?", appID, env)
	if group != "" {
		q = q.Where("`group` = ?", group)
	}
	if keyPrefix != "" {
		q = q.Where("`key` LIKE ?", keyPrefix+"%")
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, nil, err
	}

	var list []*model.ConfigItem
	if err := q.Order("`key`").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return 0, nil, err
	}

	return count, list, nil
}

// UpdatePublished performs the guarded publish write. The WHERE clause on
// version makes two racing publishes produce exactly one winner: the loser
// matches zero rows.
func (i *items) UpdatePublished(ctx context.Context, id string, newValue string, expectedVersion int64) (int64, error) {
	res := i.db.WithContext(ctx).Model(&model.ConfigItem{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"value":   newValue,
			"status":  model.StatusReleased,
			"version": gorm.Expr("version + 1"),
		})
	return res.RowsAffected, res.Error
}
