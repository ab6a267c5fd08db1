package database

import (
	"context"
	"errors"
	"fmt"

	"mls-property-api/internal/errs"
	"mls-property-api/internal/models"

	"gorm.io/gorm"
)

// GetMedia returns a property's media ordered by sort order.
func (s *Store) GetMedia(ctx context.Context, propertyID string) ([]models.PropertyMedia, error) {
	var media []models.PropertyMedia
	err := s.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("sort_order ASC").
		Find(&media).Error
	return media, err
}

// GetMediaByOrder looks up one photo by its position in the feed's list.
func (s *Store) GetMediaByOrder(ctx context.Context, propertyID string, order int) (*models.PropertyMedia, error) {
	var media models.PropertyMedia
	err := s.db.WithContext(ctx).
		Where("property_id = ? AND sort_order = ?", propertyID, order).
		First(&media).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("image %d of property %s: %w", order, propertyID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &media, nil
}

// UpdateMediaStorage records a successful upload. All storage fields are
// written in a single statement.
func (s *Store) UpdateMediaStorage(ctx context.Context, mediaID string, info models.StorageInfo) error {
	result := s.db.WithContext(ctx).
		Model(&models.PropertyMedia{}).
		Where("id = ?", mediaID).
		Updates(map[string]interface{}{
			"storage_key":  info.Key,
			"storage_url":  info.URL,
			"stored_at":    info.StoredAt,
			"file_size":    info.FileSize,
			"content_type": info.ContentType,
		})
	if result.Error != nil {
		return fmt.Errorf("update storage for media %s: %w", mediaID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("media %s: %w", mediaID, errs.ErrNotFound)
	}
	return nil
}

// MediaStats summarizes migration progress across all photos.
type MediaStats struct {
	Total     int64   `json:"total"`
	Stored    int64   `json:"stored"`
	Pending   int64   `json:"pending"`
	StoredMiB float64 `json:"stored_mib"`
}

// GetMediaStats counts stored and pending photos.
func (s *Store) GetMediaStats(ctx context.Context) (*MediaStats, error) {
	var row struct {
		Total  int64
		Stored int64
		Bytes  *int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.PropertyMedia{}).
		Select("COUNT(*) AS total, " +
			"COALESCE(SUM(CASE WHEN stored_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS stored, " +
			"SUM(file_size) AS bytes").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	stats := &MediaStats{
		Total:   row.Total,
		Stored:  row.Stored,
		Pending: row.Total - row.Stored,
	}
	if row.Bytes != nil {
		stats.StoredMiB = float64(*row.Bytes) / (1 << 20)
	}
	return stats, nil
}
