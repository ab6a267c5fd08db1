package search

import (
	"strings"

	"mls-property-api/internal/models"

	"github.com/meilisearch/meilisearch-go"
)

// Document is the flat form of a listing kept in the keyword index.
type Document struct {
	ID              string   `json:"id"`
	ListingID       string   `json:"listing_id"`
	Address         string   `json:"address"`
	City            string   `json:"city,omitempty"`
	State           string   `json:"state,omitempty"`
	PostalCode      string   `json:"postal_code,omitempty"`
	ListPrice       *int     `json:"list_price,omitempty"`
	Status          string   `json:"status,omitempty"`
	HomeType        string   `json:"home_type,omitempty"`
	Bedrooms        *int     `json:"bedrooms,omitempty"`
	Bathrooms       *int     `json:"bathrooms,omitempty"`
	LivingArea      *float64 `json:"living_area,omitempty"`
	Remarks         string   `json:"remarks,omitempty"`
	PrimaryImageURL string   `json:"primary_image_url,omitempty"`
}

// NewDocument flattens a property for indexing.
func NewDocument(p *models.Property) Document {
	return Document{
		ID:              p.ID,
		ListingID:       p.ListingID,
		Address:         p.FullAddress(),
		City:            deref(p.City),
		State:           deref(p.StateOrProvince),
		PostalCode:      deref(p.PostalCode),
		ListPrice:       p.ListPrice,
		Status:          deref(p.Status),
		HomeType:        deref(p.HomeType),
		Bedrooms:        p.BedroomsTotal,
		Bathrooms:       p.BathroomsTotalInteger,
		LivingArea:      p.LivingArea,
		Remarks:         deref(p.PublicRemarks),
		PrimaryImageURL: deref(p.PrimaryImageURL),
	}
}

// SearchClient mirrors listings into a Meilisearch index for keyword lookups.
type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = "properties"
	}

	return &SearchClient{
		client: client,
		index:  index,
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"address",
		"city",
		"postal_code",
		"listing_id",
		"remarks",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"city",
		"state",
		"status",
		"home_type",
		"list_price",
		"bedrooms",
		"bathrooms",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"list_price",
		"living_area",
		"bedrooms",
	})
	return err
}

// IndexProperties indexes multiple properties
func (s *SearchClient) IndexProperties(properties []models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	docs := make([]Document, len(properties))
	for i := range properties {
		docs[i] = NewDocument(&properties[i])
	}
	_, err := s.client.Index(s.index).AddDocuments(docs)
	return err
}

// DeleteDocuments removes listings from the index.
func (s *SearchClient) DeleteDocuments(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.client.Index(s.index).DeleteDocuments(ids)
	return err
}

// KeywordRequest is a quick lookup against the mirror.
type KeywordRequest struct {
	Query  string
	Filter KeywordFilter
	SortBy string
	Limit  int64
	Offset int64
}

// KeywordResult carries the hits of a keyword lookup.
type KeywordResult struct {
	Hits           []Document `json:"hits"`
	TotalHits      int64      `json:"total_hits"`
	ProcessingTime int64      `json:"processing_time_ms"`
}

// KeywordSearch runs a keyword query with optional filters.
func (s *SearchClient) KeywordSearch(req KeywordRequest) (*KeywordResult, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if filter := req.Filter.Build(); filter != "" {
		searchReq.Filter = filter
	}
	if sort := keywordSort(req.SortBy); sort != "" {
		searchReq.Sort = []string{sort}
	}

	searchRes, err := s.client.Index(s.index).Search(req.Query, searchReq)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		if hitMap, ok := hit.(map[string]interface{}); ok {
			docs = append(docs, documentFromHit(hitMap))
		}
	}

	return &KeywordResult{
		Hits:           docs,
		TotalHits:      searchRes.EstimatedTotalHits,
		ProcessingTime: searchRes.ProcessingTimeMs,
	}, nil
}

// documentFromHit converts a search hit to a Document
func documentFromHit(hit map[string]interface{}) Document {
	doc := Document{
		ID:              getString(hit, "id"),
		ListingID:       getString(hit, "listing_id"),
		Address:         getString(hit, "address"),
		City:            getString(hit, "city"),
		State:           getString(hit, "state"),
		PostalCode:      getString(hit, "postal_code"),
		Status:          getString(hit, "status"),
		HomeType:        getString(hit, "home_type"),
		Remarks:         getString(hit, "remarks"),
		PrimaryImageURL: getString(hit, "primary_image_url"),
	}

	if price, ok := hit["list_price"].(float64); ok {
		p := int(price)
		doc.ListPrice = &p
	}
	if beds, ok := hit["bedrooms"].(float64); ok {
		b := int(beds)
		doc.Bedrooms = &b
	}
	if baths, ok := hit["bathrooms"].(float64); ok {
		b := int(baths)
		doc.Bathrooms = &b
	}
	if area, ok := hit["living_area"].(float64); ok {
		doc.LivingArea = &area
	}
	return doc
}

// getString safely extracts a string from map
func getString(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
