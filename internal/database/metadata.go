package database

import (
	"context"
	"errors"

	"mls-property-api/internal/models"

	"gorm.io/gorm"
)

// SetMetadata stores a job bookkeeping value
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.AppMetadata
		result := tx.Where(&models.AppMetadata{Key: key}).First(&existing)

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tx.Create(&models.AppMetadata{Key: key, Value: value}).Error
		} else if result.Error != nil {
			return result.Error
		}

		existing.Value = value
		return tx.Save(&existing).Error
	})
}

// GetMetadata returns the stored value, or "" with ok=false when unset.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, bool, error) {
	var meta models.AppMetadata
	err := s.db.WithContext(ctx).Where(&models.AppMetadata{Key: key}).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return meta.Value, true, nil
}
