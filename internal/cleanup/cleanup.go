// Package cleanup physically removes listings that cannot be shown with
// owned images, keeping an audit trail in delete_logs.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mls-property-api/internal/errs"
	"mls-property-api/internal/models"

	"gorm.io/gorm"
)

// withoutStoredImages matches listings none of whose photos are in the bucket.
const withoutStoredImages = "NOT EXISTS (SELECT 1 FROM property_media pm " +
	"WHERE pm.property_id = properties.id AND pm.storage_key IS NOT NULL AND pm.storage_key <> '')"

// ObjectRemover deletes stored photos from the bucket.
type ObjectRemover interface {
	Remove(ctx context.Context, key string) error
}

// IndexRemover deletes documents from the keyword mirror.
type IndexRemover interface {
	DeleteDocuments(ids []string) error
}

// Service handles physical deletion of listings
type Service struct {
	db      *gorm.DB
	objects ObjectRemover
	index   IndexRemover
}

// NewService creates a new cleanup service. objects and index may be nil.
func NewService(db *gorm.DB, objects ObjectRemover, index IndexRemover) *Service {
	return &Service{db: db, objects: objects, index: index}
}

// Config holds configuration for cleanup operations
type Config struct {
	MaxDeletionCount  int  // Refuse to run when more listings than this match
	DryRun            bool // Only report what would be deleted
	DeleteFromSearch  bool // Also remove documents from the keyword mirror
	DeleteFromStorage bool // Also remove stored photos from the bucket
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MaxDeletionCount:  10000,
		DeleteFromSearch:  true,
		DeleteFromStorage: true,
	}
}

// Result holds the result of a cleanup operation
type Result struct {
	TargetCount       int       `json:"target_count"`
	DeletedCount      int       `json:"deleted_count"`
	ErrorCount        int       `json:"error_count"`
	DryRun            bool      `json:"dry_run"`
	ExecutedAt        time.Time `json:"executed_at"`
	DeletedProperties []string  `json:"deleted_properties"`
	Errors            []string  `json:"errors,omitempty"`
}

// FindPropertiesWithoutImages returns listings with no photo in object storage.
func (s *Service) FindPropertiesWithoutImages(ctx context.Context) ([]models.Property, error) {
	var properties []models.Property
	err := s.db.WithContext(ctx).
		Where(withoutStoredImages).
		Order("id ASC").
		Find(&properties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find properties without images: %w", err)
	}
	return properties, nil
}

// RemoveWithoutImages deletes every listing without a stored photo.
func (s *Service) RemoveWithoutImages(ctx context.Context, cfg Config) (*Result, error) {
	result := &Result{
		DryRun:            cfg.DryRun,
		ExecutedAt:        time.Now(),
		DeletedProperties: []string{},
	}

	targets, err := s.FindPropertiesWithoutImages(ctx)
	if err != nil {
		return nil, err
	}
	result.TargetCount = len(targets)

	if result.TargetCount == 0 {
		log.Println("[Cleanup] no properties without stored images")
		return result, nil
	}

	if cfg.MaxDeletionCount > 0 && result.TargetCount > cfg.MaxDeletionCount {
		return nil, fmt.Errorf("safety check failed: %d properties exceed max deletion limit of %d",
			result.TargetCount, cfg.MaxDeletionCount)
	}

	log.Printf("[Cleanup] %d properties without stored images (dry-run: %v)", result.TargetCount, cfg.DryRun)

	for i := range targets {
		prop := &targets[i]
		if cfg.DryRun {
			log.Printf("[Cleanup] [DRY-RUN] would delete %s (%s)", prop.ID, prop.FullAddress())
			result.DeletedProperties = append(result.DeletedProperties, prop.ID)
			result.DeletedCount++
			continue
		}

		if err := s.deleteProperty(ctx, prop, models.DeleteReasonNoStoredImages, cfg); err != nil {
			result.Errors = append(result.Errors, err.Error())
			result.ErrorCount++
			continue
		}
		result.DeletedProperties = append(result.DeletedProperties, prop.ID)
		result.DeletedCount++
	}

	s.removeFromSearch(result.DeletedProperties, cfg)

	log.Printf("[Cleanup] completed: %d/%d deleted, %d errors (dry-run: %v)",
		result.DeletedCount, result.TargetCount, result.ErrorCount, cfg.DryRun)
	return result, nil
}

// DeleteProperty removes one listing by id, including its stored photos.
func (s *Service) DeleteProperty(ctx context.Context, id string, cfg Config) error {
	var prop models.Property
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&prop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("property %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if cfg.DryRun {
		log.Printf("[Cleanup] [DRY-RUN] would delete %s (%s)", prop.ID, prop.FullAddress())
		return nil
	}
	if err := s.deleteProperty(ctx, &prop, models.DeleteReasonManual, cfg); err != nil {
		return err
	}
	s.removeFromSearch([]string{id}, cfg)
	return nil
}

// deleteProperty writes the delete log and removes the listing and its media
// in one transaction. Bucket objects are removed after commit.
func (s *Service) deleteProperty(ctx context.Context, prop *models.Property, reason string, cfg Config) error {
	var media []models.PropertyMedia
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", prop.ID).Find(&media).Error; err != nil {
			return err
		}

		entry := models.DeleteLog{
			PropertyID: prop.ID,
			ListingID:  prop.ListingID,
			Address:    prop.FullAddress(),
			MediaCount: len(media),
			Reason:     reason,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("create delete log: %w", err)
		}
		if err := tx.Where("property_id = ?", prop.ID).Delete(&models.PropertyMedia{}).Error; err != nil {
			return fmt.Errorf("delete media: %w", err)
		}
		if err := tx.Where("property_id = ?", prop.ID).Delete(&models.PropertyChange{}).Error; err != nil {
			return fmt.Errorf("delete history: %w", err)
		}
		return tx.Where("id = ?", prop.ID).Delete(&models.Property{}).Error
	})
	if err != nil {
		msg := fmt.Errorf("failed to delete property %s: %w", prop.ID, err)
		log.Printf("[Cleanup] ERROR: %v", msg)
		return msg
	}

	if cfg.DeleteFromStorage && s.objects != nil {
		for _, m := range media {
			if m.StorageKey == nil || *m.StorageKey == "" {
				continue
			}
			if err := s.objects.Remove(ctx, *m.StorageKey); err != nil {
				log.Printf("[Cleanup] failed to remove object %s: %v", *m.StorageKey, err)
			}
		}
	}

	log.Printf("[Cleanup] deleted property %s (%s, %d photos)", prop.ID, reason, len(media))
	return nil
}

func (s *Service) removeFromSearch(ids []string, cfg Config) {
	if cfg.DryRun || !cfg.DeleteFromSearch || s.index == nil || len(ids) == 0 {
		return
	}
	if err := s.index.DeleteDocuments(ids); err != nil {
		log.Printf("[Cleanup] failed to remove %d documents from search: %v", len(ids), err)
	}
}

// DeleteStats summarizes the delete log.
type DeleteStats struct {
	TotalDeleted      int64            `json:"total_deleted"`
	ByReason          map[string]int64 `json:"by_reason"`
	DeletedLast30Days int64            `json:"deleted_last_30_days"`
	WithoutImagesNow  int64            `json:"without_images_now"`
}

// GetDeleteStats returns statistics about deleted properties
func (s *Service) GetDeleteStats(ctx context.Context) (*DeleteStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DeleteStats{ByReason: map[string]int64{}}

	if err := db.Model(&models.DeleteLog{}).Count(&stats.TotalDeleted).Error; err != nil {
		return nil, err
	}

	var reasonCounts []struct {
		Reason string
		Count  int64
	}
	if err := db.Model(&models.DeleteLog{}).
		Select("reason, count(*) as count").
		Group("reason").
		Scan(&reasonCounts).Error; err != nil {
		return nil, err
	}
	for _, rc := range reasonCounts {
		stats.ByReason[rc.Reason] = rc.Count
	}

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	if err := db.Model(&models.DeleteLog{}).
		Where("deleted_at >= ?", thirtyDaysAgo).
		Count(&stats.DeletedLast30Days).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Property{}).
		Where(withoutStoredImages).
		Count(&stats.WithoutImagesNow).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// GetRecentDeleteLogs returns recent delete log entries
func (s *Service) GetRecentDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error) {
	var logs []models.DeleteLog
	err := s.db.WithContext(ctx).Order("deleted_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
