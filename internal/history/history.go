// Package history records price and status changes between ingestion runs.
package history

import (
	"context"
	"fmt"
	"time"

	"mls-property-api/internal/models"

	"gorm.io/gorm"
)

// Service handles listing change history
type Service struct {
	db *gorm.DB
}

// NewService creates a new history service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// DetectChanges compares a listing's previous stored state with the state
// about to be written. A nil prev means the listing is new.
func DetectChanges(prev, next *models.Property) []models.PropertyChange {
	now := time.Now()
	if prev == nil {
		return []models.PropertyChange{{
			PropertyID: next.ID,
			ChangeType: models.ChangeTypeNew,
			NewValue:   formatPrice(next.ListPrice),
			DetectedAt: now,
		}}
	}

	changes := []models.PropertyChange{}

	if !equal(prev.ListPrice, next.ListPrice) {
		var magnitude *float64
		if prev.ListPrice != nil && next.ListPrice != nil {
			m := float64(*next.ListPrice - *prev.ListPrice)
			magnitude = &m
		}
		changes = append(changes, models.PropertyChange{
			PropertyID:      next.ID,
			ChangeType:      models.ChangeTypePrice,
			OldValue:        formatPrice(prev.ListPrice),
			NewValue:        formatPrice(next.ListPrice),
			ChangeMagnitude: magnitude,
			DetectedAt:      now,
		})
	}

	if !equal(prev.Status, next.Status) {
		changes = append(changes, models.PropertyChange{
			PropertyID: next.ID,
			ChangeType: models.ChangeTypeStatus,
			OldValue:   deref(prev.Status),
			NewValue:   deref(next.Status),
			DetectedAt: now,
		})
	}

	if !equal(prev.MlsStatus, next.MlsStatus) {
		changes = append(changes, models.PropertyChange{
			PropertyID: next.ID,
			ChangeType: models.ChangeTypeMlsStatus,
			OldValue:   deref(prev.MlsStatus),
			NewValue:   deref(next.MlsStatus),
			DetectedAt: now,
		})
	}

	return changes
}

// Record saves detected changes, tagging them with the ingestion run.
func (s *Service) Record(ctx context.Context, runID string, changes []models.PropertyChange) error {
	if len(changes) == 0 {
		return nil
	}
	for i := range changes {
		changes[i].RunID = runID
	}
	if err := s.db.WithContext(ctx).Create(&changes).Error; err != nil {
		return fmt.Errorf("record %d changes: %w", len(changes), err)
	}
	return nil
}

// GetPropertyHistory returns a listing's changes, newest first.
func (s *Service) GetPropertyHistory(ctx context.Context, propertyID string, limit int) ([]models.PropertyChange, error) {
	var changes []models.PropertyChange
	query := s.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("detected_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}

// GetRecentChanges returns the latest changes across all listings.
func (s *Service) GetRecentChanges(ctx context.Context, limit int) ([]models.PropertyChange, error) {
	var changes []models.PropertyChange
	query := s.db.WithContext(ctx).Order("detected_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}

func formatPrice(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d", *p)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func equal[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
