// Package images moves listing photos into owned object storage and serves
// them, redirecting to stored copies and proxying the rest.
package images

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"mls-property-api/internal/imaging"
	"mls-property-api/internal/lock"
	"mls-property-api/internal/metrics"
	"mls-property-api/internal/mls"
	"mls-property-api/internal/models"
	"mls-property-api/internal/objectstore"

	"github.com/pkg/errors"
)

// Image outcomes.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// MediaStore is the slice of the Property Store the processor needs.
type MediaStore interface {
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	GetMedia(ctx context.Context, propertyID string) ([]models.PropertyMedia, error)
	UpdateMediaStorage(ctx context.Context, mediaID string, info models.StorageInfo) error
}

// Fetcher downloads source photos.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) (*mls.Media, error)
}

// Uploader writes optimized photos to object storage.
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) (string, error)
}

// ImageResult is the outcome for one photo.
type ImageResult struct {
	Order      int    `json:"order"`
	Status     string `json:"status"`
	StorageKey string `json:"storageKey,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// ProcessResult summarizes one property run.
type ProcessResult struct {
	PropertyID string        `json:"propertyId"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Images     []ImageResult `json:"images"`
	DurationMs int64         `json:"durationMs"`
}

func (r *ProcessResult) add(img ImageResult) {
	switch img.Status {
	case StatusSucceeded:
		r.Succeeded++
	case StatusFailed:
		r.Failed++
	default:
		r.Skipped++
	}
	r.Images = append(r.Images, img)
	metrics.ProcessedImages.WithLabelValues(img.Status).Inc()
}

// Processor stores optimized copies of a property's photos.
type Processor struct {
	store    MediaStore
	fetcher  Fetcher
	uploader Uploader
	locker   lock.Locker
	opts     imaging.Options
	now      func() time.Time
}

// NewProcessor wires a processor. A nil locker serializes in-process only.
func NewProcessor(store MediaStore, fetcher Fetcher, uploader Uploader, locker lock.Locker, opts imaging.Options) *Processor {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = imaging.DefaultOptions.MaxDimension
	}
	if opts.Quality <= 0 {
		opts.Quality = imaging.DefaultOptions.Quality
	}
	return &Processor{
		store:    store,
		fetcher:  fetcher,
		uploader: uploader,
		locker:   locker,
		opts:     opts,
		now:      time.Now,
	}
}

// ProcessProperty handles every photo of a property in order. Photos that
// are already stored are skipped unless force is set. A failed photo never
// stops the rest; the returned error is reserved for property-level problems.
func (p *Processor) ProcessProperty(ctx context.Context, propertyID string, force bool) (*ProcessResult, error) {
	start := time.Now()

	if _, err := p.store.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}

	unlock, err := p.locker.Lock(ctx, "property:"+propertyID)
	if err != nil {
		return nil, fmt.Errorf("lock property %s: %w", propertyID, err)
	}
	defer unlock()

	media, err := p.store.GetMedia(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("load media for %s: %w", propertyID, err)
	}

	result := &ProcessResult{PropertyID: propertyID, Images: make([]ImageResult, 0, len(media))}
	for i := range media {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.add(p.processImage(ctx, &media[i], force))
	}
	result.DurationMs = time.Since(start).Milliseconds()

	log.Printf("[Images] %s: succeeded=%d failed=%d skipped=%d duration_ms=%d",
		propertyID, result.Succeeded, result.Failed, result.Skipped, result.DurationMs)
	return result, nil
}

func (p *Processor) processImage(ctx context.Context, m *models.PropertyMedia, force bool) ImageResult {
	res := ImageResult{Order: m.Order}

	if m.StoredAt != nil && !force {
		res.Status = StatusSkipped
		res.Reason = "already stored"
		if m.StorageKey != nil {
			res.StorageKey = *m.StorageKey
		}
		return res
	}
	if m.SourceURL == "" {
		res.Status = StatusSkipped
		res.Reason = "no source url"
		return res
	}

	key := objectstore.MediaKey(m.PropertyID, m.Order)
	res.StorageKey = key

	info, err := p.upload(ctx, m, key)
	if err != nil {
		log.Printf("[Images] %s #%d failed: %v", m.PropertyID, m.Order, err)
		res.Status = StatusFailed
		res.Reason = err.Error()
		return res
	}

	if err := p.store.UpdateMediaStorage(ctx, m.ID, *info); err != nil {
		log.Printf("[Images] %s #%d uploaded but not recorded: %v", m.PropertyID, m.Order, err)
		res.Status = StatusFailed
		res.Reason = err.Error()
		return res
	}

	res.Status = StatusSucceeded
	return res
}

// upload fetches, optimizes and stores one photo. Storage fields are only
// returned after the object is in the bucket.
func (p *Processor) upload(ctx context.Context, m *models.PropertyMedia, key string) (*models.StorageInfo, error) {
	src, err := p.fetcher.Fetch(ctx, m.SourceURL)
	if err != nil {
		return nil, errors.Wrap(err, "fetch")
	}

	optimized, err := imaging.Optimize(src.Data, src.ContentType, p.opts)
	if err != nil {
		return nil, errors.Wrap(err, "optimize")
	}

	url, err := p.uploader.Put(ctx, key, optimized.Data, optimized.ContentType, map[string]string{
		"property-id": m.PropertyID,
		"image-index": strconv.Itoa(m.Order),
	})
	if err != nil {
		return nil, errors.Wrap(err, "upload")
	}

	return &models.StorageInfo{
		Key:         key,
		URL:         url,
		StoredAt:    p.now().UTC(),
		FileSize:    int64(len(optimized.Data)),
		ContentType: optimized.ContentType,
	}, nil
}
