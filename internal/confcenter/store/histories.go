package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kart-io/confcenter/internal/model"
)

// HistoryStore defines publish history storage. The ledger is append-only:
// there are deliberately no update or delete operations.
type HistoryStore interface {
	Create(ctx context.Context, h *model.ConfigPublishHistory) error
	CreateItems(ctx context.Context, rows []*model.ConfigItemPublishHistory) error
	Get(ctx context.Context, id string) (*model.ConfigPublishHistory, error)
	List(ctx context.Context, appID string, env model.Environment, offset, limit int) (int64, []*model.ConfigPublishHistory, error)
	ItemsByHistory(ctx context.Context, historyID string) ([]*model.ConfigItemPublishHistory, error)

	// NextVersion returns the next per-(app, environment) publish sequence
	// number. Must be called inside the publish transaction.
	NextVersion(ctx context.Context, appID string, env model.Environment) (int64, error)
}

type histories struct {
	db *gorm.DB
}

func newHistories(db *gorm.DB) *histories {
	return &histories{db}
}

// Create appends one publish history record.
func (h *histories) Create(ctx context.Context, rec *model.ConfigPublishHistory) error {
	return h.db.WithContext(ctx).Create(rec).Error
}

// CreateItems appends the per-item diff rows for one publish.
func (h *histories) CreateItems(ctx context.Context, rows []*model.ConfigItemPublishHistory) error {
	if len(rows) == 0 {
		return nil
	}
	return h.db.WithContext(ctx).Create(rows).Error
}

// Get retrieves one publish history record by id. Returns nil, nil when absent.
func (h *histories) Get(ctx context.Context, id string) (*model.ConfigPublishHistory, error) {
	var rec model.ConfigPublishHistory
	if err := h.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// List lists publish history for an (app, environment) pair, newest first.
func (h *histories) List(ctx context.Context, appID string, env model.Environment, offset, limit int) (int64, []*model.ConfigPublishHistory, error) {
	q := h.db.WithContext(ctx).Model(&model.ConfigPublishHistory{}).
		Where("app_id = ? AND environment = ?", appID, env)

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, nil, err
	}

	var list []*model.ConfigPublishHistory
	if err := q.Order("version DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return 0, nil, err
	}

	return count, list, nil
}

// ItemsByHistory returns the diff rows recorded for one publish snapshot.
func (h *histories) ItemsByHistory(ctx context.Context, historyID string) ([]*model.ConfigItemPublishHistory, error) {
	var rows []*model.ConfigItemPublishHistory
	err := h.db.WithContext(ctx).
		Where("config_publish_history_id = ?", historyID).
		Order("`key`").
		Find(&rows).Error
	return rows, err
}

// NextVersion computes max(version)+1 for the (app, environment) publish
// sequence. Runs inside the caller's transaction; if two concurrent
// publishes read the same max, the unique (app, environment, version)
// index rejects the second insert and its transaction rolls back.
func (h *histories) NextVersion(ctx context.Context, appID string, env model.Environment) (int64, error) {
	var max int64
	err := h.db.WithContext(ctx).Model(&model.ConfigPublishHistory{}).
		Where("app_id = ? AND environment = ?", appID, env).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
