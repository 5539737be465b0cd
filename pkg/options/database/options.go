// Package database provides database configuration options.
package database

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

// Supported drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Options defines configuration options for the config store database.
type Options struct {
	Driver                string        `json:"driver" mapstructure:"driver"`
	Host                  string        `json:"host" mapstructure:"host"`
	Port                  int           `json:"port" mapstructure:"port"`
	Username              string        `json:"username" mapstructure:"username"`
	Password              string        `json:"password" mapstructure:"password"`
	Database              string        `json:"database" mapstructure:"database"`
	Path                  string        `json:"path" mapstructure:"path"`
	MaxIdleConnections    int           `json:"max-idle-connections" mapstructure:"max-idle-connections"`
	MaxOpenConnections    int           `json:"max-open-connections" mapstructure:"max-open-connections"`
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time" mapstructure:"max-connection-life-time"`
	LogLevel              int           `json:"log-level" mapstructure:"log-level"`
}

// NewOptions creates a new Options object with default values.
// The default driver is sqlite so a fresh checkout runs without a database
// server; production deployments switch to mysql.
func NewOptions() *Options {
	return &Options{
		Driver:                DriverSQLite,
		Host:                  "127.0.0.1",
		Port:                  3306,
		Username:              "root",
		Database:              "confcenter",
		Path:                  "confcenter.db",
		MaxIdleConnections:    10,
		MaxOpenConnections:    100,
		MaxConnectionLifeTime: 10 * time.Second,
		LogLevel:              1, // Silent
	}
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	switch o.Driver {
	case DriverMySQL:
		if o.Password == "" {
			o.Password = os.Getenv("CONFCENTER_DB_PASSWORD")
		}
		if o.Database == "" {
			return fmt.Errorf("database name is required for mysql driver")
		}
	case DriverSQLite:
		if o.Path == "" {
			return fmt.Errorf("database path is required for sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", o.Driver)
	}
	return nil
}

// DSN builds the driver-specific data source name.
func (o *Options) DSN() string {
	if o.Driver == DriverSQLite {
		return o.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		o.Username, o.Password, o.Host, o.Port, o.Database)
}

// AddFlags adds flags for database options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Driver, "db.driver", o.Driver, "Database driver (mysql|sqlite)")
	fs.StringVar(&o.Host, "db.host", o.Host, "MySQL host")
	fs.IntVar(&o.Port, "db.port", o.Port, "MySQL port")
	fs.StringVar(&o.Username, "db.username", o.Username, "MySQL username")
	fs.StringVar(&o.Password, "db.password", o.Password, "MySQL password (prefer CONFCENTER_DB_PASSWORD env var)")
	fs.StringVar(&o.Database, "db.database", o.Database, "MySQL database name")
	fs.StringVar(&o.Path, "db.path", o.Path, "SQLite database file path")
	fs.IntVar(&o.MaxIdleConnections, "db.max-idle-connections", o.MaxIdleConnections, "Max idle connections")
	fs.IntVar(&o.MaxOpenConnections, "db.max-open-connections", o.MaxOpenConnections, "Max open connections")
	fs.DurationVar(&o.MaxConnectionLifeTime, "db.max-connection-life-time", o.MaxConnectionLifeTime, "Max connection life time")
	fs.IntVar(&o.LogLevel, "db.log-level", o.LogLevel, "GORM log level (1 silent, 2 error, 3 warn, 4 info)")
}
