package models

import "time"

type Property struct {
	// Identity
	ID         string  `gorm:"size:64;primaryKey" json:"id"`
	ListingID  string  `gorm:"size:64;not null;uniqueIndex" json:"listing_id"`
	ListingKey *string `gorm:"size:64" json:"listing_key,omitempty"`

	// Address
	StreetNumber    *string `gorm:"size:32" json:"street_number,omitempty"`
	StreetName      *string `gorm:"size:255" json:"street_name,omitempty"`
	City            *string `gorm:"size:120;index:idx_properties_city_state,priority:1;index:idx_properties_status_city,priority:2" json:"city,omitempty"`
	StateOrProvince *string `gorm:"size:32;index:idx_properties_city_state,priority:2" json:"state_or_province,omitempty"`
	PostalCode      *string `gorm:"size:20;index" json:"postal_code,omitempty"`
	UnparsedAddress *string `gorm:"size:500" json:"unparsed_address,omitempty"`

	// Filterable attributes
	ListPrice             *int     `gorm:"index" json:"list_price,omitempty"`
	StandardStatus        *string  `gorm:"size:64" json:"standard_status,omitempty"`
	MlsStatus             *string  `gorm:"column:mls_status;size:64" json:"mls_status,omitempty"`
	Status                *string  `gorm:"size:32;index;index:idx_properties_status_city,priority:1" json:"status,omitempty"`
	PropertyType          *string  `gorm:"size:64" json:"property_type,omitempty"`
	PropertySubType       *string  `gorm:"size:64" json:"property_sub_type,omitempty"`
	HomeType              *string  `gorm:"size:32;index" json:"home_type,omitempty"`
	BedroomsTotal         *int     `gorm:"index" json:"bedrooms_total,omitempty"`
	BathroomsTotalInteger *int     `gorm:"index" json:"bathrooms_total_integer,omitempty"`
	BathroomsFull         *int     `json:"bathrooms_full,omitempty"`
	BathroomsHalf         *int     `json:"bathrooms_half,omitempty"`
	LivingArea            *float64 `json:"living_area,omitempty"`
	LotSizeSquareFeet     *float64 `json:"lot_size_square_feet,omitempty"`
	LotSizeAcres          *float64 `json:"lot_size_acres,omitempty"`
	YearBuilt             *int     `json:"year_built,omitempty"`
	Latitude              *float64 `json:"latitude,omitempty"`
	Longitude             *float64 `json:"longitude,omitempty"`

	// Description and listing agent
	PublicRemarks         *string    `json:"public_remarks,omitempty"`
	ListAgentFullName     *string    `gorm:"size:255" json:"list_agent_full_name,omitempty"`
	ListAgentEmail        *string    `gorm:"size:255" json:"list_agent_email,omitempty"`
	ListAgentPhone        *string    `gorm:"size:64" json:"list_agent_phone,omitempty"`
	ListDate              *time.Time `json:"list_date,omitempty"`
	ModificationTimestamp *time.Time `json:"modification_timestamp,omitempty"`

	// Media summary
	MediaCount        int     `gorm:"not null;default:0" json:"media_count"`
	PrimaryImageURL   *string `gorm:"size:1000" json:"primary_image_url,omitempty"`
	PrimaryImageOrder *int    `json:"primary_image_order,omitempty"`

	Details PropertyDetails `gorm:"embedded" json:"details"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Property) TableName() string {
	return "properties"
}

// Derived status values
const (
	StatusForSale   = "For Sale"
	StatusPending   = "Pending"
	StatusSold      = "Sold"
	StatusOffMarket = "Off Market"
)

// Derived home type values
const (
	HomeTypeSingleFamily = "Single Family"
	HomeTypeMultiFamily  = "Multi Family"
	HomeTypeCondo        = "Condo"
	HomeTypeLand         = "Land"
	HomeTypeManufactured = "Manufactured"
	HomeTypeOther        = "Other"
)

// FullAddress returns the unparsed address, or one assembled from its parts.
func (p *Property) FullAddress() string {
	if p.UnparsedAddress != nil && *p.UnparsedAddress != "" {
		return *p.UnparsedAddress
	}
	street := joinNonEmpty(" ", deref(p.StreetNumber), deref(p.StreetName))
	region := joinNonEmpty(" ", deref(p.StateOrProvince), deref(p.PostalCode))
	return joinNonEmpty(", ", street, deref(p.City), region)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func joinNonEmpty(sep string, parts ...string) string {
	out := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += part
	}
	return out
}
