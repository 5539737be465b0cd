// Package store implements config persistence on top of GORM.
//
// The publish commit protocol is the sole mutation path that spans multiple
// rows; it runs inside WithTx so the version-check-then-increment sequence is
// atomic per item. History stores are append-only by construction: they
// expose no update or delete methods.
package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/confcenter/internal/model"
)

// Factory defines the factory interface for creating stores.
type Factory interface {
	Apps() AppStore
	Items() ItemStore
	Histories() HistoryStore

	// WithTx runs fn with a Factory bound to a single database transaction.
	// If fn returns an error the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Factory) error) error

	// AutoMigrate creates or updates the config schema.
	AutoMigrate() error
}

type datastore struct {
	db *gorm.DB
}

// NewFactory creates a store Factory backed by the given gorm database.
func NewFactory(db *gorm.DB) Factory {
	return &datastore{db: db}
}

func (ds *datastore) Apps() AppStore {
	return newApps(ds.db)
}

func (ds *datastore) Items() ItemStore {
	return newItems(ds.db)
}

func (ds *datastore) Histories() HistoryStore {
	return newHistories(ds.db)
}

func (ds *datastore) WithTx(ctx context.Context, fn func(Factory) error) error {
	return ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&datastore{db: tx})
	})
}

func (ds *datastore) AutoMigrate() error {
	return ds.db.AutoMigrate(
		&model.App{},
		&model.ConfigItem{},
		&model.ConfigPublishHistory{},
		&model.ConfigItemPublishHistory{},
	)
}
