package ingest

import (
	"strings"

	"mls-property-api/internal/models"
)

type keywordRule struct {
	value    string
	keywords []string
}

// Checked in order; the first rule with a matching keyword wins.
var statusRules = []keywordRule{
	{models.StatusPending, []string{"pending", "contingent", "under contract"}},
	{models.StatusSold, []string{"sold", "closed"}},
	{models.StatusOffMarket, []string{"inactive", "expired", "withdrawn", "cancelled", "canceled", "terminated", "off market", "hold"}},
	{models.StatusForSale, []string{"active", "coming soon", "new"}},
}

var homeTypeRules = []keywordRule{
	{models.HomeTypeCondo, []string{"condo", "co-op", "coop", "townhouse", "townhome"}},
	{models.HomeTypeMultiFamily, []string{"multi", "income", "duplex", "triplex", "fourplex", "apartment"}},
	{models.HomeTypeManufactured, []string{"manufactured", "mobile"}},
	{models.HomeTypeLand, []string{"land", "lot", "acreage", "farm"}},
	{models.HomeTypeSingleFamily, []string{"single family", "detached", "residential"}},
}

// DeriveStatus maps the MLS status (falling back to the standard status)
// onto the portal's status buckets. Unrecognized values yield nil.
func DeriveStatus(mlsStatus, standardStatus *string) *string {
	for _, candidate := range []*string{mlsStatus, standardStatus} {
		if v := matchRule(statusRules, candidate); v != nil {
			return v
		}
	}
	return nil
}

// DeriveHomeType maps sub-type (falling back to property type) onto the
// portal's home type buckets. Nil only when both inputs are empty.
func DeriveHomeType(propertySubType, propertyType *string) *string {
	for _, candidate := range []*string{propertySubType, propertyType} {
		if v := matchRule(homeTypeRules, candidate); v != nil {
			return v
		}
	}
	if isBlank(propertySubType) && isBlank(propertyType) {
		return nil
	}
	other := models.HomeTypeOther
	return &other
}

func matchRule(rules []keywordRule, raw *string) *string {
	if isBlank(raw) {
		return nil
	}
	s := strings.ToLower(*raw)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(s, kw) {
				v := rule.value
				return &v
			}
		}
	}
	return nil
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
