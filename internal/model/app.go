package model

import (
	"time"

	"gorm.io/gorm"
)

// App represents a registered application that owns configuration.
// The Id is a stable string key chosen by the operator (or by the client on
// self-registration); it doubles as the credential subject for the Secret.
type App struct {
	ID             string `json:"id" gorm:"primaryKey;size:64"`
	Name           string `json:"name" gorm:"size:128;not null"`
	Secret         string `json:"-" gorm:"size:64;not null"`
	Enabled        bool   `json:"enabled" gorm:"default:true;index:idx_enabled"`
	AutoPublish    bool   `json:"auto_publish" gorm:"default:false"`
	InheritedAppID string `json:"inherited_app_id" gorm:"size:64;index:idx_inherited"`
	Tag            string `json:"tag" gorm:"size:64"`
	CreatedAt      int64  `json:"created_at" gorm:"autoCreateTime:milli"`
	UpdatedAt      int64  `json:"updated_at" gorm:"autoUpdateTime:milli"`
}

// AppList contains a list of apps and pagination info.
type AppList struct {
	TotalCount int64  `json:"totalCount"`
	Items      []*App `json:"items"`
}

// TableName returns the table name for GORM.
func (a *App) TableName() string {
	return "apps"
}

// BeforeCreate sets the CreatedAt and UpdatedAt fields.
func (a *App) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now().UnixMilli()
	a.CreatedAt = now
	a.UpdatedAt = now
	return
}

// BeforeUpdate sets the UpdatedAt field.
func (a *App) BeforeUpdate(tx *gorm.DB) (err error) {
	a.UpdatedAt = time.Now().UnixMilli()
	return
}
