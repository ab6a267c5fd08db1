package models

import "time"

// PropertyChange is one detected change to a listing between ingestion runs
type PropertyChange struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID      string    `gorm:"size:64;not null;index" json:"property_id"`
	RunID           string    `gorm:"size:36;index" json:"run_id,omitempty"`
	ChangeType      string    `gorm:"size:50;not null" json:"change_type"`
	OldValue        string    `gorm:"size:255" json:"old_value,omitempty"`
	NewValue        string    `gorm:"size:255" json:"new_value,omitempty"`
	ChangeMagnitude *float64  `json:"change_magnitude,omitempty"` // For numerical changes
	DetectedAt      time.Time `gorm:"not null;autoCreateTime;index" json:"detected_at"`
}

// TableName specifies the table name
func (PropertyChange) TableName() string {
	return "property_changes"
}

// ChangeType constants
const (
	ChangeTypePrice     = "price_changed"
	ChangeTypeStatus    = "status_changed"
	ChangeTypeMlsStatus = "mls_status_changed"
	ChangeTypeNew       = "new_listing"
)
