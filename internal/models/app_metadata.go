package models

import "time"

// AppMetadata is a small key/value table for job bookkeeping
type AppMetadata struct {
	Key       string    `gorm:"size:100;primaryKey" json:"key"`
	Value     string    `gorm:"size:500;not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (AppMetadata) TableName() string {
	return "app_metadata"
}

// Metadata keys
const (
	MetadataLastPopulateRun = "last_populate_run"
	MetadataLastMigration   = "last_image_migration"
)
