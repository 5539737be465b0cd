package biz

import (
	"context"

	"github.com/kart-io/confcenter/internal/confcenter/store"
	"github.com/kart-io/confcenter/internal/model"
	"github.com/kart-io/confcenter/pkg/errors"
)

// ItemService handles the config item authoring workflow.
type ItemService struct {
	store    store.Factory
	publish  *PublishService
	notifier Notifier
}

// NewItemService creates a new ItemService.
func NewItemService(store store.Factory, publish *PublishService, notifier Notifier) *ItemService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ItemService{store: store, publish: publish, notifier: notifier}
}

// Create creates a config item in Init status. The (app, environment, key)
// triple must be unique.
func (s *ItemService) Create(ctx context.Context, item *model.ConfigItem) error {
	app, err := s.store.Apps().Get(ctx, item.AppID)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if app == nil {
		return errors.ErrAppNotFound.WithMessagef("application %q not found", item.AppID)
	}
	if !item.Environment.Valid() {
		return errors.ErrValidationFailed.WithMessagef("invalid environment %q", item.Environment)
	}
	if item.Key == "" {
		return errors.ErrValidationFailed.WithMessage("key is required")
	}
	if item.ValueType == "" {
		item.ValueType = model.ValueTypeString
	}
	if !item.ValueType.Valid() {
		return errors.ErrValidationFailed.WithMessagef("invalid value type %q", item.ValueType)
	}

	existing, err := s.store.Items().GetByKey(ctx, item.AppID, item.Environment, item.Key)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if existing != nil {
		return errors.ErrItemExists.WithMessagef(
			"config item %s/%s/%s already exists", item.AppID, item.Environment, item.Key)
	}

	item.ID = newID()
	item.Status = model.StatusInit
	item.Version = 0
	if err := s.store.Items().Create(ctx, item); err != nil {
		return errors.ErrDatabase.WithCause(err)
	}

	if app.AutoPublish {
		return s.autoPublish(ctx, item, item.Value)
	}
	return nil
}

// UpdateValue edits an item's value. A Released item moves back to Editing;
// the edit becomes visible to resolution only after the next publish. When
// the owning app has AutoPublish enabled the edit skips the Editing hold
// state and is committed immediately as a single-item publish batch.
func (s *ItemService) UpdateValue(ctx context.Context, id, newValue, updatedBy string) error {
	item, err := s.store.Items().Get(ctx, id)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if item == nil {
		return errors.ErrItemNotFound.WithMessagef("config item %q not found", id)
	}

	app, err := s.store.Apps().Get(ctx, item.AppID)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if app != nil && app.AutoPublish {
		return s.autoPublishBy(ctx, item, newValue, updatedBy)
	}

	wasReleased := item.Status == model.StatusReleased
	item.Value = newValue
	if wasReleased {
		item.Status = model.StatusEditing
	}
	if err := s.store.Items().Update(ctx, item); err != nil {
		return err
	}
	// Demoting a released item removes its value from resolution, so the
	// edit changes what clients see even before the next publish.
	if wasReleased {
		s.notifier.NotifyConfigChanged(item.AppID, item.Environment)
	}
	return nil
}

// Delete removes a config item. The history ledger keeps its past publishes.
// Deleting a released item changes resolution without a publish, so it emits
// a change event of its own.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	item, err := s.store.Items().Get(ctx, id)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if item == nil {
		return errors.ErrItemNotFound.WithMessagef("config item %q not found", id)
	}
	if err := s.store.Items().Delete(ctx, id); err != nil {
		return err
	}
	if item.Status == model.StatusReleased {
		s.notifier.NotifyConfigChanged(item.AppID, item.Environment)
	}
	return nil
}

// Get retrieves a config item.
func (s *ItemService) Get(ctx context.Context, id string) (*model.ConfigItem, error) {
	item, err := s.store.Items().Get(ctx, id)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if item == nil {
		return nil, errors.ErrItemNotFound.WithMessagef("config item %q not found", id)
	}
	return item, nil
}

// Search lists items for an (app, environment) filtered by group and key prefix.
func (s *ItemService) Search(ctx context.Context, appID string, env model.Environment, group, keyPrefix string, offset, limit int) (*model.ConfigItemList, error) {
	count, list, err := s.store.Items().Search(ctx, appID, env, group, keyPrefix, offset, limit)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return &model.ConfigItemList{TotalCount: count, Items: list}, nil
}

func (s *ItemService) autoPublish(ctx context.Context, item *model.ConfigItem, newValue string) error {
	return s.autoPublishBy(ctx, item, newValue, "auto-publish")
}

func (s *ItemService) autoPublishBy(ctx context.Context, item *model.ConfigItem, newValue, by string) error {
	_, err := s.publish.Publish(ctx, item.AppID, item.Environment, "Auto publish "+item.Key, by,
		[]PublishItem{{ItemID: item.ID, NewValue: newValue, ExpectedVersion: item.Version}})
	return err
}
