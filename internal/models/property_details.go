package models

import "time"

// PropertyDetails holds the descriptive listing attributes. None of them
// take part in indexed queries; they are stored and returned as-is.
type PropertyDetails struct {
	Appliances               *string    `json:"appliances"`
	ArchitecturalStyle       *string    `json:"architecturalStyle"`
	AttachedGarageYN         *bool      `json:"attachedGarageYN"`
	BuildingName             *string    `json:"buildingName"`
	BuyerAgentFullName       *string    `json:"buyerAgentFullName"`
	BuyerOfficeName          *string    `json:"buyerOfficeName"`
	CarportYN                *bool      `json:"carportYN"`
	CloseDate                *time.Time `json:"closeDate"`
	ClosePrice               *int       `json:"closePrice"`
	CoveredSpaces            *float64   `json:"coveredSpaces"`
	CumulateDaysOnMarket     *int       `json:"cumulateDaysOnMarket"`
	ElementarySchool         *string    `json:"elementarySchool"`
	MiddleOrJuniorSchool     *string    `json:"middleOrJuniorSchool"`
	HighSchool               *string    `json:"highSchool"`
	HighSchoolDistrict       *string    `json:"highSchoolDistrict"`
	ExteriorFeatures         *string    `json:"exteriorFeatures"`
	FireplaceFeatures        *string    `json:"fireplaceFeatures"`
	FireplaceYN              *bool      `json:"fireplaceYN"`
	FireplacesTotal          *int       `json:"fireplacesTotal"`
	Flooring                 *string    `json:"flooring"`
	FoundationDetails        *string    `json:"foundationDetails"`
	Furnished                *string    `json:"furnished"`
	GarageSpaces             *float64   `json:"garageSpaces"`
	GarageYN                 *bool      `json:"garageYN"`
	Inclusions               *string    `json:"inclusions"`
	InteriorFeatures         *string    `json:"interiorFeatures"`
	Levels                   *string    `json:"levels"`
	ListOfficeName           *string    `json:"listOfficeName"`
	ListOfficePhone          *string    `json:"listOfficePhone"`
	ListingTerms             *string    `json:"listingTerms"`
	LotFeatures              *string    `json:"lotFeatures"`
	NewConstructionYN        *bool      `json:"newConstructionYN"`
	OffMarketDate            *time.Time `json:"offMarketDate"`
	OnMarketDate             *time.Time `json:"onMarketDate"`
	OriginalListPrice        *int       `json:"originalListPrice"`
	ParcelNumber             *string    `json:"parcelNumber"`
	ParkingFeatures          *string    `json:"parkingFeatures"`
	ParkingTotal             *float64   `json:"parkingTotal"`
	Possession               *string    `json:"possession"`
	PropertyCondition        *string    `json:"propertyCondition"`
	Roof                     *string    `json:"roof"`
	SecurityFeatures         *string    `json:"securityFeatures"`
	Sewer                    *string    `json:"sewer"`
	SpecialListingConditions *string    `json:"specialListingConditions"`
	SubdivisionName          *string    `json:"subdivisionName"`
	TaxAnnualAmount          *float64   `json:"taxAnnualAmount"`
	TaxYear                  *int       `json:"taxYear"`
	Topography               *string    `json:"topography"`
	Utilities                *string    `json:"utilities"`
	Vegetation               *string    `json:"vegetation"`
	View                     *string    `json:"view"`
	WaterSource              *string    `json:"waterSource"`
	WaterfrontYN             *bool      `json:"waterfrontYN"`
	ZoningDescription        *string    `json:"zoningDescription"`
	OriginatingSystemName    *string    `json:"originatingSystemName"`
}
