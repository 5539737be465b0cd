package model

// ConfigPublishHistory records one publish (or rollback) action for an
// (app, environment) pair. Rows are append-only: they are never mutated or
// deleted, and Version is a monotonic per-(app, environment) sequence. The
// unique index on (AppID, Environment, Version) is load-bearing: the sequence
// number is computed as max+1 inside the publish transaction, and under
// REPEATABLE READ two concurrent publishes over disjoint items can read the
// same max. The index makes the second insert fail instead of forking the
// sequence.
type ConfigPublishHistory struct {
	ID          string      `json:"id" gorm:"primaryKey;size:32"`
	AppID       string      `json:"app_id" gorm:"size:64;not null;uniqueIndex:uk_hist_scope_version"`
	Environment Environment `json:"environment" gorm:"size:16;not null;uniqueIndex:uk_hist_scope_version"`
	Description string      `json:"description" gorm:"size:256"`
	Version     int64       `json:"version" gorm:"not null;uniqueIndex:uk_hist_scope_version"`
	CreatedAt   int64       `json:"created_at" gorm:"autoCreateTime:milli"`
	CreatedBy   string      `json:"created_by" gorm:"size:64"`
}

// TableName returns the table name for GORM.
func (h *ConfigPublishHistory) TableName() string {
	return "config_publish_histories"
}

// ConfigItemPublishHistory is the per-item diff ledger for one publish
// snapshot: one row per item changed in that publish.
type ConfigItemPublishHistory struct {
	ID                     string    `json:"id" gorm:"primaryKey;size:32"`
	ConfigPublishHistoryID string    `json:"config_publish_history_id" gorm:"size:32;not null;index:idx_item_hist"`
	ConfigItemID           string    `json:"config_item_id" gorm:"size:32;not null;index:idx_item_hist_item"`
	Key                    string    `json:"key" gorm:"size:256;not null"`
	Group                  string    `json:"group" gorm:"size:128"`
	OldValue               string    `json:"old_value" gorm:"type:text"`
	NewValue               string    `json:"new_value" gorm:"type:text"`
	Version                int64     `json:"version" gorm:"not null"`
	ValueType              ValueType `json:"value_type" gorm:"size:16"`
}

// TableName returns the table name for GORM.
func (h *ConfigItemPublishHistory) TableName() string {
	return "config_item_publish_histories"
}

// PublishHistoryList contains a page of publish history records.
type PublishHistoryList struct {
	TotalCount int64                   `json:"totalCount"`
	Items      []*ConfigPublishHistory `json:"items"`
}
