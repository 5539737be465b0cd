package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/confcenter/internal/confcenter/store"
	"github.com/kart-io/confcenter/internal/model"
	"github.com/kart-io/confcenter/pkg/errors"
)

// Notifier receives change events after a successful publish commit. The
// event carries no config data; subscribers pull fresh state themselves.
type Notifier interface {
	NotifyConfigChanged(appID string, env model.Environment)
}

// NopNotifier discards change events. Used by tests and batch tools.
type NopNotifier struct{}

// NotifyConfigChanged implements Notifier.
func (NopNotifier) NotifyConfigChanged(string, model.Environment) {}

// PublishItem names one item of a publish batch with its optimistic token.
type PublishItem struct {
	ItemID          string `json:"item_id"`
	NewValue        string `json:"new_value"`
	ExpectedVersion int64  `json:"expected_version"`
}

// PublishService implements the batch publish commit protocol and rollback.
type PublishService struct {
	store    store.Factory
	notifier Notifier
}

// NewPublishService creates a new PublishService.
func NewPublishService(store store.Factory, notifier Notifier) *PublishService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PublishService{store: store, notifier: notifier}
}

// Publish atomically commits a batch of edited items into a new immutable
// publish snapshot. All-or-nothing: if any item's current version does not
// equal the caller's expected version the entire batch is rejected with a
// Conflict error listing the offending item ids, and nothing is applied.
// On commit a change event scoped to (appID, env) is emitted.
func (s *PublishService) Publish(ctx context.Context, appID string, env model.Environment, description, createdBy string, batch []PublishItem) (*model.ConfigPublishHistory, error) {
	if len(batch) == 0 {
		return nil, errors.ErrEmptyPublish
	}
	if !env.Valid() {
		return nil, errors.ErrValidationFailed.WithMessagef("invalid environment %q", env)
	}

	var history *model.ConfigPublishHistory
	err := s.store.WithTx(ctx, func(tx store.Factory) error {
		// Phase 1: read every item and verify the expected versions. Any
		// mismatch aborts the batch before a single write happens.
		var conflicts []string
		current := make([]*model.ConfigItem, 0, len(batch))
		for _, p := range batch {
			item, err := tx.Items().Get(ctx, p.ItemID)
			if err != nil {
				return errors.ErrDatabase.WithCause(err)
			}
			if item == nil {
				return errors.ErrItemNotFound.WithMessagef("config item %q not found", p.ItemID)
			}
			if item.AppID != appID || item.Environment != env {
				return errors.ErrValidationFailed.WithMessagef(
					"config item %q does not belong to %s/%s", p.ItemID, appID, env)
			}
			if item.Version != p.ExpectedVersion {
				conflicts = append(conflicts, p.ItemID)
			}
			current = append(current, item)
		}
		if len(conflicts) > 0 {
			return errors.ErrVersionConflict.WithDetails(conflicts...)
		}

		// Phase 2: apply. Each write is still guarded by the version token so
		// a publish racing between our read and write loses cleanly.
		seq, err := tx.Histories().NextVersion(ctx, appID, env)
		if err != nil {
			return errors.ErrDatabase.WithCause(err)
		}

		history = &model.ConfigPublishHistory{
			ID:          newID(),
			AppID:       appID,
			Environment: env,
			Description: description,
			Version:     seq,
			CreatedBy:   createdBy,
		}
		if err := tx.Histories().Create(ctx, history); err != nil {
			return errors.ErrDatabase.WithCause(err)
		}

		diffs := make([]*model.ConfigItemPublishHistory, 0, len(batch))
		for idx, p := range batch {
			item := current[idx]
			affected, err := tx.Items().UpdatePublished(ctx, p.ItemID, p.NewValue, p.ExpectedVersion)
			if err != nil {
				return errors.ErrDatabase.WithCause(err)
			}
			if affected == 0 {
				return errors.ErrVersionConflict.WithDetails(p.ItemID)
			}
			diffs = append(diffs, &model.ConfigItemPublishHistory{
				ID:                     newID(),
				ConfigPublishHistoryID: history.ID,
				ConfigItemID:           item.ID,
				Key:                    item.Key,
				Group:                  item.Group,
				OldValue:               item.Value,
				NewValue:               p.NewValue,
				Version:                item.Version + 1,
				ValueType:              item.ValueType,
			})
		}

		return tx.Histories().CreateItems(ctx, diffs)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("publish committed",
		"app_id", appID, "environment", env,
		"version", history.Version, "items", len(batch), "created_by", createdBy)
	s.notifier.NotifyConfigChanged(appID, env)

	return history, nil
}

// Rollback replays a historical snapshot forward: the item values recorded in
// the target snapshot's diff rows become the NewValues of a fresh publish
// batch. History is never rewritten or truncated; in the ledger a rollback is
// indistinguishable from a manual publish whose values happen to match an
// earlier snapshot.
func (s *PublishService) Rollback(ctx context.Context, historyID, createdBy string) (*model.ConfigPublishHistory, error) {
	target, err := s.store.Histories().Get(ctx, historyID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if target == nil {
		return nil, errors.ErrHistoryNotFound.WithMessagef("publish history %q not found", historyID)
	}

	rows, err := s.store.Histories().ItemsByHistory(ctx, historyID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if len(rows) == 0 {
		return nil, errors.ErrEmptyPublish.WithMessage("target snapshot records no item changes")
	}

	batch := make([]PublishItem, 0, len(rows))
	for _, row := range rows {
		item, err := s.store.Items().Get(ctx, row.ConfigItemID)
		if err != nil {
			return nil, errors.ErrDatabase.WithCause(err)
		}
		if item == nil {
			// The item was deleted after the snapshot; skip it rather than
			// failing the rest of the rollback.
			logger.Warnw("rollback skipping deleted config item",
				"history_id", historyID, "item_id", row.ConfigItemID, "key", row.Key)
			continue
		}
		batch = append(batch, PublishItem{
			ItemID:          item.ID,
			NewValue:        row.NewValue,
			ExpectedVersion: item.Version,
		})
	}
	if len(batch) == 0 {
		return nil, errors.ErrEmptyPublish.WithMessage("no items from target snapshot still exist")
	}

	desc := fmt.Sprintf("Rollback to version %d", target.Version)
	return s.Publish(ctx, target.AppID, target.Environment, desc, createdBy, batch)
}

// HistoryList returns a page of publish history, newest first.
func (s *PublishService) HistoryList(ctx context.Context, appID string, env model.Environment, offset, limit int) (*model.PublishHistoryList, error) {
	count, list, err := s.store.Histories().List(ctx, appID, env, offset, limit)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return &model.PublishHistoryList{TotalCount: count, Items: list}, nil
}

// HistoryDetail returns the diff rows of one publish snapshot.
func (s *PublishService) HistoryDetail(ctx context.Context, historyID string) ([]*model.ConfigItemPublishHistory, error) {
	rec, err := s.store.Histories().Get(ctx, historyID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if rec == nil {
		return nil, errors.ErrHistoryNotFound.WithMessagef("publish history %q not found", historyID)
	}
	rows, err := s.store.Histories().ItemsByHistory(ctx, historyID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return rows, nil
}
