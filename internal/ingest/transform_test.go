package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"mls-property-api/internal/errs"
	"mls-property-api/internal/mls"
	"mls-property-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode builds a record the way the feed client does, so numbers are float64.
func decode(t *testing.T, raw string) mls.Record {
	t.Helper()
	var rec mls.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

func TestTransformMapsCoreFields(t *testing.T) {
	rec := decode(t, `{
		"ListingId": "NWM1234",
		"ListingKey": "abc-key",
		"UnparsedAddress": "123 Main St, Seattle, WA 98101",
		"StreetNumber": "123",
		"StreetName": "Main St",
		"City": "Seattle",
		"StateOrProvince": "WA",
		"PostalCode": "98101",
		"ListPrice": 550000,
		"BedroomsTotal": 3,
		"BathroomsTotalInteger": "2",
		"LivingArea": 1850.5,
		"LotSizeAcres": 0.25,
		"StandardStatus": "Active",
		"MlsStatus": "Active",
		"PropertyType": "Residential",
		"PropertySubType": "Single Family Residence",
		"Appliances": ["Dishwasher", "", "Range", null],
		"FireplaceYN": "Yes",
		"WaterfrontYN": false,
		"ListDate": "2026-02-01",
		"ModificationTimestamp": "2026-02-03T10:15:30.123Z",
		"Media": [
			{"MediaKey": "m0", "MediaURL": "https://media.example.com/0.jpg"},
			{"MediaKey": "m1", "MediaURL": "https://media.example.com/1.jpg", "PreferredPhotoYN": true, "ImageWidth": 1024}
		]
	}`)

	p, media, err := Transform(rec)
	require.NoError(t, err)

	assert.Equal(t, "NWM1234", p.ID)
	assert.Equal(t, "NWM1234", p.ListingID)
	assert.Equal(t, "abc-key", *p.ListingKey)
	assert.Equal(t, "Seattle", *p.City)
	assert.Equal(t, 550000, *p.ListPrice)
	assert.Equal(t, 3, *p.BedroomsTotal)
	assert.Equal(t, 2, *p.BathroomsTotalInteger)
	assert.Equal(t, 1850.5, *p.LivingArea)
	assert.Equal(t, 0.25, *p.LotSizeAcres)
	assert.Nil(t, p.LotSizeSquareFeet)
	assert.Equal(t, models.StatusForSale, *p.Status)
	assert.Equal(t, models.HomeTypeSingleFamily, *p.HomeType)
	assert.Equal(t, "Dishwasher, Range", *p.Details.Appliances)
	assert.True(t, *p.Details.FireplaceYN)
	assert.False(t, *p.Details.WaterfrontYN)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *p.ListDate)
	assert.Equal(t, 2026, p.ModificationTimestamp.Year())

	require.Len(t, media, 2)
	assert.Equal(t, 2, p.MediaCount)
	assert.Equal(t, "NWM1234_0", media[0].ID)
	assert.Equal(t, 0, media[0].Order)
	assert.False(t, media[0].IsPreferred)
	assert.True(t, media[1].IsPreferred)
	assert.Equal(t, 1024, *media[1].ImageWidth)
	assert.Equal(t, "https://media.example.com/1.jpg", *p.PrimaryImageURL)
	assert.Equal(t, 1, *p.PrimaryImageOrder)
}

func TestTransformMissingAndMalformedFieldsAreNil(t *testing.T) {
	rec := decode(t, `{
		"ListingKey": "KEY-ONLY",
		"ListPrice": "call for price",
		"BedroomsTotal": null,
		"Latitude": {"bad": true},
		"ListDate": "not a date",
		"City": "   "
	}`)

	p, media, err := Transform(rec)
	require.NoError(t, err)
	assert.Equal(t, "KEY-ONLY", p.ID)
	assert.Nil(t, p.ListPrice)
	assert.Nil(t, p.BedroomsTotal)
	assert.Nil(t, p.Latitude)
	assert.Nil(t, p.ListDate)
	assert.Nil(t, p.City)
	assert.Nil(t, p.Status)
	assert.Nil(t, p.HomeType)
	assert.Nil(t, p.PrimaryImageURL)
	assert.Empty(t, media)
	assert.Equal(t, 0, p.MediaCount)
}

func TestTransformRejectsRecordWithoutIdentifier(t *testing.T) {
	_, _, err := Transform(mls.Record{"City": "Seattle"})
	var verr *errs.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTransformDefaultsPreferredToFirstImage(t *testing.T) {
	rec := decode(t, `{"ListingId": "X", "Media": [
		{"MediaURL": "https://m/0.jpg", "PreferredPhotoYN": false},
		{"MediaURL": "https://m/1.jpg"},
		"garbage",
		{"MediaURL": "https://m/3.jpg"}
	]}`)

	p, media, err := Transform(rec)
	require.NoError(t, err)
	require.Len(t, media, 3)
	assert.True(t, media[0].IsPreferred)
	assert.False(t, media[1].IsPreferred)
	assert.Equal(t, 3, media[2].Order, "order follows position in the feed array")
	assert.Equal(t, "X_3", media[2].ID)
	assert.Equal(t, "https://m/0.jpg", *p.PrimaryImageURL)
}

func TestTransformOnlyFirstFlaggedImageIsPreferred(t *testing.T) {
	rec := decode(t, `{"ListingId": "X", "Media": [
		{"MediaURL": "https://m/0.jpg"},
		{"MediaURL": "https://m/1.jpg", "PreferredPhotoYN": "Y"},
		{"MediaURL": "https://m/2.jpg", "PreferredPhotoYN": true}
	]}`)

	_, media, err := Transform(rec)
	require.NoError(t, err)
	preferred := 0
	for _, m := range media {
		if m.IsPreferred {
			preferred++
			assert.Equal(t, 1, m.Order)
		}
	}
	assert.Equal(t, 1, preferred)
}

func TestDeriveStatus(t *testing.T) {
	s := func(v string) *string { return &v }
	cases := []struct {
		mls, standard *string
		want          *string
	}{
		{s("Active"), nil, s(models.StatusForSale)},
		{s("Active Under Contract"), s("Active"), s(models.StatusPending)},
		{s("Pending Inspection"), nil, s(models.StatusPending)},
		{s("Closed"), nil, s(models.StatusSold)},
		{s("Inactive"), nil, s(models.StatusOffMarket)},
		{s("Cancelled"), nil, s(models.StatusOffMarket)},
		{s("Something Odd"), s("Coming Soon"), s(models.StatusForSale)},
		{nil, nil, nil},
		{s("Unknown"), nil, nil},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DeriveStatus(c.mls, c.standard))
	}
}

func TestDeriveHomeType(t *testing.T) {
	s := func(v string) *string { return &v }
	assert.Equal(t, models.HomeTypeCondo, *DeriveHomeType(s("Condominium"), s("Residential")))
	assert.Equal(t, models.HomeTypeCondo, *DeriveHomeType(s("Townhouse"), nil))
	assert.Equal(t, models.HomeTypeMultiFamily, *DeriveHomeType(s("Duplex"), nil))
	assert.Equal(t, models.HomeTypeMultiFamily, *DeriveHomeType(nil, s("Residential Income")))
	assert.Equal(t, models.HomeTypeManufactured, *DeriveHomeType(s("Manufactured On Land"), nil))
	assert.Equal(t, models.HomeTypeLand, *DeriveHomeType(nil, s("Land")))
	assert.Equal(t, models.HomeTypeSingleFamily, *DeriveHomeType(s("Single Family Residence"), s("Residential")))
	assert.Equal(t, models.HomeTypeOther, *DeriveHomeType(nil, s("Commercial Sale")))
	assert.Nil(t, DeriveHomeType(nil, s("")))
}
