package models

import (
	"fmt"
	"time"
)

// PropertyMedia is one photo of a listing. Source fields come from the feed;
// storage fields are written only by the image processor.
type PropertyMedia struct {
	ID            string  `gorm:"size:100;primaryKey" json:"id"`
	PropertyID    string  `gorm:"size:64;not null;index;uniqueIndex:idx_property_media_order,priority:1" json:"property_id"`
	Order         int     `gorm:"column:sort_order;not null;uniqueIndex:idx_property_media_order,priority:2" json:"order"`
	MediaKey      *string `gorm:"size:128" json:"media_key,omitempty"`
	SourceURL     string  `gorm:"size:1000" json:"source_url"`
	IsPreferred   bool    `gorm:"not null" json:"is_preferred"`
	ImageWidth    *int    `json:"image_width,omitempty"`
	ImageHeight   *int    `json:"image_height,omitempty"`
	MediaCategory *string `gorm:"size:64" json:"media_category,omitempty"`

	StorageKey  *string    `gorm:"size:255" json:"storage_key,omitempty"`
	StorageURL  *string    `gorm:"size:1000" json:"storage_url,omitempty"`
	StoredAt    *time.Time `gorm:"index" json:"stored_at,omitempty"`
	FileSize    *int64     `json:"file_size,omitempty"`
	ContentType *string    `gorm:"size:64" json:"content_type,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for PropertyMedia
func (PropertyMedia) TableName() string {
	return "property_media"
}

// IsStored reports whether an optimized copy exists in object storage.
func (m *PropertyMedia) IsStored() bool {
	return m.StoredAt != nil && m.StorageURL != nil && *m.StorageURL != ""
}

// MediaID is the deterministic row id for a property's photo at order.
func MediaID(propertyID string, order int) string {
	return fmt.Sprintf("%s_%d", propertyID, order)
}

// StorageInfo is the set of storage fields written after a successful upload.
type StorageInfo struct {
	Key         string
	URL         string
	StoredAt    time.Time
	FileSize    int64
	ContentType string
}
