// Package database constructs the gorm client backing the config store.
//
// Two drivers are supported: mysql for production deployments and sqlite
// (pure-Go, glebarez) for development and tests. The returned client owns the
// connection pool and is closed by the application on shutdown.
package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/confcenter/pkg/options/database"
)

// Client wraps gorm.DB for the config store.
type Client struct {
	db   *gorm.DB
	opts *database.Options
}

// New creates a new database client from the provided options.
func New(opts *database.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("database options cannot be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.LogLevel(opts.LogLevel)),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch opts.Driver {
	case database.DriverSQLite:
		db, err = gorm.Open(sqlite.Open(opts.DSN()), cfg)
	default:
		db, err = gorm.Open(mysqldriver.Open(opts.DSN()), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConnections)
	sqlDB.SetConnMaxLifetime(opts.MaxConnectionLifeTime)

	return &Client{db: db, opts: opts}, nil
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Close closes the database connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
