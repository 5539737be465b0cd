package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kart-io/confcenter/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, NewFactory(db).AutoMigrate())
	return db
}

func TestAppStore_CRUD(t *testing.T) {
	db := setupTestDB(t)
	factory := NewFactory(db)
	ctx := context.Background()

	app := &model.App{
		ID:      "public",
		Name:    "Public Defaults",
		Secret:  "s3cret",
		Enabled: true,
	}
	require.NoError(t, factory.Apps().Create(ctx, app))
	assert.NotZero(t, app.CreatedAt)

	got, err := factory.Apps().Get(ctx, "public")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Public Defaults", got.Name)
	assert.True(t, got.Enabled)

	got.InheritedAppID = "base"
	require.NoError(t, factory.Apps().Update(ctx, got))

	got, err = factory.Apps().Get(ctx, "public")
	require.NoError(t, err)
	assert.Equal(t, "base", got.InheritedAppID)

	require.NoError(t, factory.Apps().Delete(ctx, "public"))

	got, err = factory.Apps().Get(ctx, "public")
	require.NoError(t, err)
	assert.Nil(t, got, "deleted app should read back as absent")
}

func TestAppStore_GetMissingIsNilNil(t *testing.T) {
	db := setupTestDB(t)
	factory := NewFactory(db)

	got, err := factory.Apps().Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAppStore_List(t *testing.T) {
	db := setupTestDB(t)
	factory := NewFactory(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, factory.Apps().Create(ctx, &model.App{
			ID:      fmt.Sprintf("app-%d", i),
			Name:    fmt.Sprintf("App %d", i),
			Secret:  "s",
			Enabled: true,
		}))
	}

	count, list, err := factory.Apps().List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
	require.Len(t, list, 2)
	assert.Equal(t, "app-1", list[0].ID)
	assert.Equal(t, "app-2", list[1].ID)
}

func TestItemStore_UniqueKeyPerAppEnv(t *testing.T) {
	db := setupTestDB(t)
	factory := NewFactory(db)
	ctx := context.Background()

	item := &model.ConfigItem{
		ID:          "i1",
		AppID:       "public",
		Environment: model.EnvProduction,
		Key:         "Logging.Level",
		Value:       "Warning",
		ValueType:   model.ValueTypeString,
	}
	require.NoError(t, factory.Items().Create(ctx, item))

	dup := &model.ConfigItem{
		ID:          "i2",
		AppID:       "public",
		Environment: model.EnvProduction,
		Key:         "Logging.Level",
		Value:       "Debug",
		ValueType:   model.ValueTypeString,
	}
	assert.Error(t, factory.Items().Create(ctx, dup))

	// Same key in a different environment is fine.
	other := &model.ConfigItem{
		ID:          "i3",
		AppID:       "public",
		Environment: model.EnvDevelopment,
		Key:         "Logging.Level",
		Value:       "Debug",
		ValueType:   model.ValueTypeString,
	}
	assert.NoError(t, factory.Items().Create(ctx, other))
}

func TestItemStore_ListReleasedFiltersStatus(t *testing.T) {
	db := setupTestDB(t)
	factory := NewFactory(db)
	ctx := context.Background()

	seed := []*model.ConfigItem{
		{ID: "a", AppID: "app", Environment: model.EnvProduction, Key: "k1", Value: "v1", Status: model.StatusReleased},
		{ID: "b", AppID: "app", Environment: model.EnvProduction, Key: "k2", Value: "v2", Status: model.StatusEditing},
		{ID: "c", AppID: "app", Environment: model.EnvProduction, Key: "k3", Value: "v3", Status: model.StatusInit},
		{ID: "d", AppID: "app", Environment: model.EnvStaging, Key: "k4", Value: "v4", Status: model.StatusReleased},
	}
	for _, it := range seed {
		require.NoError(t, factory.Items().Create(ctx, it))
	}

	released, err := factory.Items().ListReleased(ctx, "app", model.EnvProduction)
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, "k1", released[0].Key)
}

func TestItemStore_Search(t *testing.T) {
	db := setupTestDB(t)
	factory := NewFactory(db)
	ctx := context.Background()

	seed := []*model.ConfigItem{
		{ID: "a", AppID: "app", Environment: model.EnvProduction, Key: "Logging.Level", Group: "logging"},
		{ID: "b", AppID: "app", Environment: model.EnvProduction, Key: "Logging.Format", Group: "logging"},
		{ID: "c", AppID: "app", Environment: model.EnvProduction, Key: "Db.Host", Group: "database"},
	}
	for _, it := range seed {
		require.NoError(t, factory.Items().Create(ctx, it))
	}

	count, list, err := factory.Items().Search(ctx, "app", model.EnvProduction, "logging", "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Len(t, list, 2)

	count, list, err = factory.Items().Search(ctx, "app", model.EnvProduction, "", "Logging.L", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, list, 1)
	assert.Equal(t, "Logging.Level", list[0].Key)
}

func TestItemStore_UpdatePublishedGuardsVersion(t *testing.T) {
	db := setupTestDB(t)
	factory := NewFactory(db)
	ctx := context.Background()

	item := &model.ConfigItem{
		ID: "i1", AppID: "app", Environment: model.EnvProduction,
		Key: "k", Value: "old", Status: model.StatusEditing, Version: 3,
	}
	require.NoError(t, factory.Items().Create(ctx, item))

	affected, err := factory.Items().UpdatePublished(ctx, "i1", "new", 2)
	require.NoError(t, err)
	assert.Zero(t, affected, "stale version must match no rows")

	got, err := factory.Items().Get(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "old", got.Value, "losing write must not change the row")
	assert.Equal(t, int64(3), got.Version)

	affected, err = factory.Items().UpdatePublished(ctx, "i1", "new", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err = factory.Items().Get(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Value)
	assert.Equal(t, model.StatusReleased, got.Status)
	assert.Equal(t, int64(4), got.Version)
}

func TestHistoryStore_NextVersionPerAppEnv(t *testing.T) {
	db := setupTestDB(t)
	factory := NewFactory(db)
	ctx := context.Background()

	v, err := factory.Histories().NextVersion(ctx, "app", model.EnvProduction)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v, "empty ledger starts at 1")

	require.NoError(t, factory.Histories().Create(ctx, &model.ConfigPublishHistory{
		ID: "h1", AppID: "app", Environment: model.EnvProduction, Version: 1,
	}))
	require.NoError(t, factory.Histories().Create(ctx, &model.ConfigPublishHistory{
		ID: "h2", AppID: "app", Environment: model.EnvProduction, Version: 2,
	}))

	v, err = factory.Histories().NextVersion(ctx, "app", model.EnvProduction)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	// Other scopes keep their own sequence.
	v, err = factory.Histories().NextVersion(ctx, "app", model.EnvStaging)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestHistoryStore_DuplicateScopeVersionRejected(t *testing.T) {
	db := setupTestDB(t)
	factory := NewFactory(db)
	ctx := context.Background()

	require.NoError(t, factory.Histories().Create(ctx, &model.ConfigPublishHistory{
		ID: "h1", AppID: "app", Environment: model.EnvProduction, Version: 1,
	}))

	// Two writers that both computed max+1 cannot both land: the unique
	// (app, environment, version) index fails the second insert.
	err := factory.Histories().Create(ctx, &model.ConfigPublishHistory{
		ID: "h2", AppID: "app", Environment: model.EnvProduction, Version: 1,
	})
	require.Error(t, err)

	// The same version number is free in other scopes.
	require.NoError(t, factory.Histories().Create(ctx, &model.ConfigPublishHistory{
		ID: "h3", AppID: "app", Environment: model.EnvStaging, Version: 1,
	}))
	require.NoError(t, factory.Histories().Create(ctx, &model.ConfigPublishHistory{
		ID: "h4", AppID: "other", Environment: model.EnvProduction, Version: 1,
	}))
}

func TestHistoryStore_ListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	factory := NewFactory(db)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, factory.Histories().Create(ctx, &model.ConfigPublishHistory{
			ID: fmt.Sprintf("h%d", i), AppID: "app", Environment: model.EnvProduction, Version: int64(i),
		}))
	}

	count, list, err := factory.Histories().List(ctx, "app", model.EnvProduction, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	require.Len(t, list, 3)
	assert.Equal(t, int64(3), list[0].Version)
	assert.Equal(t, int64(1), list[2].Version)
}

func TestHistoryStore_ItemsByHistory(t *testing.T) {
	db := setupTestDB(t)
	factory := NewFactory(db)
	ctx := context.Background()

	rows := []*model.ConfigItemPublishHistory{
		{ID: "r1", ConfigPublishHistoryID: "h1", ConfigItemID: "i1", Key: "b.key", OldValue: "1", NewValue: "2", Version: 1},
		{ID: "r2", ConfigPublishHistoryID: "h1", ConfigItemID: "i2", Key: "a.key", OldValue: "x", NewValue: "y", Version: 1},
		{ID: "r3", ConfigPublishHistoryID: "h2", ConfigItemID: "i1", Key: "b.key", OldValue: "2", NewValue: "3", Version: 2},
	}
	require.NoError(t, factory.Histories().CreateItems(ctx, rows))

	got, err := factory.Histories().ItemsByHistory(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.key", got[0].Key, "rows are ordered by key")
	assert.Equal(t, "b.key", got[1].Key)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	factory := NewFactory(db)
	ctx := context.Background()

	err := factory.WithTx(ctx, func(tx Factory) error {
		if err := tx.Apps().Create(ctx, &model.App{ID: "tx-app", Name: "n", Secret: "s"}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	got, err := factory.Apps().Get(ctx, "tx-app")
	require.NoError(t, err)
	assert.Nil(t, got, "rolled-back create must not be visible")
}
