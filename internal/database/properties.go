package database

import (
	"context"
	"errors"
	"fmt"

	"mls-property-api/internal/errs"
	"mls-property-api/internal/models"

	"gorm.io/gorm"
)

// UpsertOutcome describes what UpsertListing did.
type UpsertOutcome struct {
	Created bool
	// Previous is the row as it was before the update; nil when created.
	Previous *models.Property
}

// UpsertListing saves a property and its media in one transaction, keyed by
// property id. Existing media rows keep their storage fields.
func (s *Store) UpsertListing(ctx context.Context, p *models.Property, media []models.PropertyMedia) (*UpsertOutcome, error) {
	if p.ID == "" {
		return nil, errs.Invalid("id", "property id is required")
	}

	outcome := &UpsertOutcome{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Property
		result := tx.Where("id = ?", p.ID).First(&existing)

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			if err := tx.Create(p).Error; err != nil {
				return err
			}
			outcome.Created = true
		} else if result.Error != nil {
			return result.Error
		} else {
			// Update existing (keep original CreatedAt)
			p.CreatedAt = existing.CreatedAt
			if err := tx.Save(p).Error; err != nil {
				return err
			}
			outcome.Previous = &existing
		}

		return saveMedia(tx, p.ID, media)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert listing %s: %w", p.ID, err)
	}
	return outcome, nil
}

// saveMedia merges the feed's media list into property_media by order.
// If media is empty, does nothing (a feed page without the Media expansion
// must not wipe photos that were already processed).
func saveMedia(tx *gorm.DB, propertyID string, media []models.PropertyMedia) error {
	if len(media) == 0 {
		return nil
	}

	var existing []models.PropertyMedia
	if err := tx.Where("property_id = ?", propertyID).Find(&existing).Error; err != nil {
		return err
	}
	byOrder := make(map[int]models.PropertyMedia, len(existing))
	for _, m := range existing {
		byOrder[m.Order] = m
	}

	orders := make([]int, 0, len(media))
	for i := range media {
		m := &media[i]
		m.PropertyID = propertyID
		orders = append(orders, m.Order)

		current, ok := byOrder[m.Order]
		if !ok {
			m.ID = models.MediaID(propertyID, m.Order)
			if err := tx.Create(m).Error; err != nil {
				return err
			}
			continue
		}

		m.ID = current.ID
		err := tx.Model(&models.PropertyMedia{}).
			Where("id = ?", current.ID).
			Updates(map[string]interface{}{
				"media_key":      m.MediaKey,
				"source_url":     m.SourceURL,
				"is_preferred":   m.IsPreferred,
				"image_width":    m.ImageWidth,
				"image_height":   m.ImageHeight,
				"media_category": m.MediaCategory,
			}).Error
		if err != nil {
			return err
		}
	}

	// Rows the feed no longer lists stay (their stored copies are still
	// served) but can no longer be the preferred photo.
	return tx.Model(&models.PropertyMedia{}).
		Where("property_id = ? AND sort_order NOT IN ?", propertyID, orders).
		Update("is_preferred", false).Error
}

// GetProperty retrieves a property by ID
func (s *Store) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&property).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("property %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// ListPropertyIDs returns up to limit ids greater than afterID, in id order.
// Callers page through the table by passing the last id they saw.
func (s *Store) ListPropertyIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// ListProperties is the keyset-paged equivalent of ListPropertyIDs that
// returns full rows.
func (s *Store) ListProperties(ctx context.Context, afterID string, limit int) ([]models.Property, error) {
	var properties []models.Property
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&properties).Error
	return properties, err
}

// CountProperties returns the number of stored listings
func (s *Store) CountProperties(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Property{}).Count(&count).Error
	return count, err
}

// CountByStatus returns listing counts grouped by derived status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status *string
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Property{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		key := "unknown"
		if r.Status != nil {
			key = *r.Status
		}
		counts[key] += r.Count
	}
	return counts, nil
}
