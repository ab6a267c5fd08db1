// Package ingest normalizes feed records and upserts them into the store.
package ingest

import (
	"strings"

	"mls-property-api/internal/errs"
	"mls-property-api/internal/mls"
	"mls-property-api/internal/models"
)

// Transform maps one feed record onto a property and its ordered media.
// Fields that are missing or malformed become nil; only a record without
// any listing identifier is rejected.
func Transform(raw mls.Record) (*models.Property, []models.PropertyMedia, error) {
	r := record(raw)

	listingID := r.str("ListingId")
	if listingID == nil {
		listingID = r.str("ListingKey")
	}
	if listingID == nil {
		return nil, nil, errs.Invalid("ListingId", "record has neither ListingId nor ListingKey")
	}
	id := *listingID

	p := &models.Property{
		ID:         id,
		ListingID:  id,
		ListingKey: r.str("ListingKey"),

		StreetNumber:    r.str("StreetNumber"),
		StreetName:      r.str("StreetName"),
		City:            r.str("City"),
		StateOrProvince: r.str("StateOrProvince"),
		PostalCode:      r.str("PostalCode"),
		UnparsedAddress: r.str("UnparsedAddress"),

		ListPrice:             r.integer("ListPrice"),
		StandardStatus:        r.str("StandardStatus"),
		MlsStatus:             r.str("MlsStatus"),
		PropertyType:          r.str("PropertyType"),
		PropertySubType:       r.str("PropertySubType"),
		BedroomsTotal:         r.integer("BedroomsTotal"),
		BathroomsTotalInteger: r.integer("BathroomsTotalInteger"),
		BathroomsFull:         r.integer("BathroomsFull"),
		BathroomsHalf:         r.integer("BathroomsHalf"),
		LivingArea:            r.float("LivingArea"),
		LotSizeSquareFeet:     r.float("LotSizeSquareFeet"),
		LotSizeAcres:          r.float("LotSizeAcres"),
		YearBuilt:             r.integer("YearBuilt"),
		Latitude:              r.float("Latitude"),
		Longitude:             r.float("Longitude"),

		PublicRemarks:         r.str("PublicRemarks"),
		ListAgentFullName:     firstString(r.str("ListAgentFullName"), r.str("ListingAgentFullName")),
		ListAgentEmail:        r.str("ListAgentEmail"),
		ListAgentPhone:        r.str("ListAgentPhone"),
		ListDate:              r.time("ListDate"),
		ModificationTimestamp: r.time("ModificationTimestamp"),

		Details: transformDetails(r),
	}
	p.Status = DeriveStatus(p.MlsStatus, p.StandardStatus)
	p.HomeType = DeriveHomeType(p.PropertySubType, p.PropertyType)

	media := transformMedia(id, r.media())
	p.MediaCount = len(media)
	for i := range media {
		if media[i].IsPreferred {
			url := media[i].SourceURL
			order := media[i].Order
			if url != "" {
				p.PrimaryImageURL = &url
			}
			p.PrimaryImageOrder = &order
			break
		}
	}

	return p, media, nil
}

// transformMedia orders media by array position and marks exactly one item
// preferred: the first flagged by the feed, else the first item.
func transformMedia(propertyID string, items []interface{}) []models.PropertyMedia {
	media := make([]models.PropertyMedia, 0, len(items))
	preferred := -1
	for idx, item := range items {
		fields, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		m := record(fields)

		sourceURL := ""
		if u := m.str("MediaURL"); u != nil {
			sourceURL = *u
		}
		media = append(media, models.PropertyMedia{
			ID:            models.MediaID(propertyID, idx),
			PropertyID:    propertyID,
			Order:         idx,
			MediaKey:      m.str("MediaKey"),
			SourceURL:     sourceURL,
			ImageWidth:    m.integer("ImageWidth"),
			ImageHeight:   m.integer("ImageHeight"),
			MediaCategory: m.str("MediaCategory"),
		})
		if flag := m.boolean("PreferredPhotoYN"); preferred < 0 && flag != nil && *flag {
			preferred = len(media) - 1
		}
	}
	if len(media) == 0 {
		return nil
	}
	if preferred < 0 {
		preferred = 0
	}
	media[preferred].IsPreferred = true
	return media
}

func transformDetails(r record) models.PropertyDetails {
	return models.PropertyDetails{
		Appliances:               r.str("Appliances"),
		ArchitecturalStyle:       r.str("ArchitecturalStyle"),
		AttachedGarageYN:         r.boolean("AttachedGarageYN"),
		BuildingName:             r.str("BuildingName"),
		BuyerAgentFullName:       r.str("BuyerAgentFullName"),
		BuyerOfficeName:          r.str("BuyerOfficeName"),
		CarportYN:                r.boolean("CarportYN"),
		CloseDate:                r.time("CloseDate"),
		ClosePrice:               r.integer("ClosePrice"),
		CoveredSpaces:            r.float("CoveredSpaces"),
		CumulateDaysOnMarket:     firstInt(r.integer("CumulativeDaysOnMarket"), r.integer("CumulateDaysOnMarket")),
		ElementarySchool:         r.str("ElementarySchool"),
		MiddleOrJuniorSchool:     r.str("MiddleOrJuniorSchool"),
		HighSchool:               r.str("HighSchool"),
		HighSchoolDistrict:       r.str("HighSchoolDistrict"),
		ExteriorFeatures:         r.str("ExteriorFeatures"),
		FireplaceFeatures:        r.str("FireplaceFeatures"),
		FireplaceYN:              r.boolean("FireplaceYN"),
		FireplacesTotal:          r.integer("FireplacesTotal"),
		Flooring:                 r.str("Flooring"),
		FoundationDetails:        r.str("FoundationDetails"),
		Furnished:                r.str("Furnished"),
		GarageSpaces:             r.float("GarageSpaces"),
		GarageYN:                 r.boolean("GarageYN"),
		Inclusions:               r.str("Inclusions"),
		InteriorFeatures:         r.str("InteriorFeatures"),
		Levels:                   r.str("Levels"),
		ListOfficeName:           r.str("ListOfficeName"),
		ListOfficePhone:          r.str("ListOfficePhone"),
		ListingTerms:             r.str("ListingTerms"),
		LotFeatures:              r.str("LotFeatures"),
		NewConstructionYN:        r.boolean("NewConstructionYN"),
		OffMarketDate:            r.time("OffMarketDate"),
		OnMarketDate:             r.time("OnMarketDate"),
		OriginalListPrice:        r.integer("OriginalListPrice"),
		ParcelNumber:             r.str("ParcelNumber"),
		ParkingFeatures:          r.str("ParkingFeatures"),
		ParkingTotal:             r.float("ParkingTotal"),
		Possession:               r.str("Possession"),
		PropertyCondition:        r.str("PropertyCondition"),
		Roof:                     r.str("Roof"),
		SecurityFeatures:         r.str("SecurityFeatures"),
		Sewer:                    r.str("Sewer"),
		SpecialListingConditions: r.str("SpecialListingConditions"),
		SubdivisionName:          r.str("SubdivisionName"),
		TaxAnnualAmount:          r.float("TaxAnnualAmount"),
		TaxYear:                  r.integer("TaxYear"),
		Topography:               r.str("Topography"),
		Utilities:                r.str("Utilities"),
		Vegetation:               r.str("Vegetation"),
		View:                     r.str("View"),
		WaterSource:              r.str("WaterSource"),
		WaterfrontYN:             r.boolean("WaterfrontYN"),
		ZoningDescription:        r.str("ZoningDescription"),
		OriginatingSystemName:    r.str("OriginatingSystemName"),
	}
}

func firstString(values ...*string) *string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return v
		}
	}
	return nil
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
