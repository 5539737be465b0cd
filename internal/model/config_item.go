package model

import (
	"time"

	"gorm.io/gorm"
)

// Environment is a named deployment tier that partitions config values.
type Environment string

// Supported environments.
const (
	EnvDevelopment Environment = "Development"
	EnvStaging     Environment = "Staging"
	EnvProduction  Environment = "Production"
)

// Environments lists every supported tier.
var Environments = []Environment{EnvDevelopment, EnvStaging, EnvProduction}

// Valid reports whether the environment is one of the supported tiers.
func (e Environment) Valid() bool {
	switch e {
	case EnvDevelopment, EnvStaging, EnvProduction:
		return true
	}
	return false
}

// ValueType describes how a config item's string value should be interpreted.
type ValueType string

// Supported value types.
const (
	ValueTypeString    ValueType = "String"
	ValueTypeInt       ValueType = "Int"
	ValueTypeDouble    ValueType = "Double"
	ValueTypeBoolean   ValueType = "Boolean"
	ValueTypeJSON      ValueType = "Json"
	ValueTypeEncrypted ValueType = "Encrypted"
)

// Valid reports whether the value type is supported.
func (v ValueType) Valid() bool {
	switch v {
	case ValueTypeString, ValueTypeInt, ValueTypeDouble, ValueTypeBoolean, ValueTypeJSON, ValueTypeEncrypted:
		return true
	}
	return false
}

// ItemStatus is the authoring state of a config item.
type ItemStatus int

// Item status workflow: Init -> Editing -> Released, and back to Editing
// when a released value is changed but not yet published again.
const (
	StatusInit ItemStatus = iota
	StatusEditing
	StatusReleased
)

// ConfigItem is a single configuration entry scoped to (app, environment).
// (AppID, Environment, Key) is unique. Version is the optimistic-concurrency
// token: it is bumped on every successful publish of this item, and a caller
// may only publish an item whose current Version matches the value they read.
type ConfigItem struct {
	ID          string      `json:"id" gorm:"primaryKey;size:32"`
	AppID       string      `json:"app_id" gorm:"size:64;not null;uniqueIndex:uk_app_env_key;index:idx_item_app"`
	Environment Environment `json:"environment" gorm:"size:16;not null;uniqueIndex:uk_app_env_key"`
	Key         string      `json:"key" gorm:"size:256;not null;uniqueIndex:uk_app_env_key"`
	Group       string      `json:"group" gorm:"size:128;index:idx_item_group"`
	Value       string      `json:"value" gorm:"type:text"`
	ValueType   ValueType   `json:"value_type" gorm:"size:16;not null;default:String"`
	Status      ItemStatus  `json:"status" gorm:"not null;default:0"`
	Version     int64       `json:"version" gorm:"not null;default:0"`
	CreatedAt   int64       `json:"created_at" gorm:"autoCreateTime:milli"`
	UpdatedAt   int64       `json:"updated_at" gorm:"autoUpdateTime:milli"`
}

// ConfigItemList contains a list of config items and pagination info.
type ConfigItemList struct {
	TotalCount int64         `json:"totalCount"`
	Items      []*ConfigItem `json:"items"`
}

// TableName returns the table name for GORM.
func (c *ConfigItem) TableName() string {
	return "config_items"
}

// BeforeCreate sets the CreatedAt and UpdatedAt fields.
func (c *ConfigItem) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now().UnixMilli()
	c.CreatedAt = now
	c.UpdatedAt = now
	return
}

// BeforeUpdate sets the UpdatedAt field.
func (c *ConfigItem) BeforeUpdate(tx *gorm.DB) (err error) {
	c.UpdatedAt = time.Now().UnixMilli()
	return
}
