package models

import "time"

// DeleteLog represents a record of physically deleted properties
type DeleteLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID string    `gorm:"size:64;not null;index" json:"property_id"`
	ListingID  string    `gorm:"size:64" json:"listing_id"`
	Address    string    `gorm:"size:500" json:"address"`
	MediaCount int       `json:"media_count"`
	DeletedAt  time.Time `gorm:"not null;autoCreateTime;index" json:"deleted_at"`
	Reason     string    `gorm:"size:50;not null" json:"reason"`
}

// TableName specifies the table name
func (DeleteLog) TableName() string {
	return "delete_logs"
}

// DeleteReason constants
const (
	DeleteReasonNoStoredImages = "no_stored_images"
	DeleteReasonManual         = "manual_deletion"
)
