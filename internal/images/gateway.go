package images

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"mls-property-api/internal/cache"
	"mls-property-api/internal/errs"
	"mls-property-api/internal/metrics"
	"mls-property-api/internal/mls"
	"mls-property-api/internal/models"
)

// GatewayStore looks up a single photo row.
type GatewayStore interface {
	GetMediaByOrder(ctx context.Context, propertyID string, order int) (*models.PropertyMedia, error)
}

// Opener performs a single bounded download of a source photo.
type Opener interface {
	Open(ctx context.Context, sourceURL string) (*mls.Media, error)
}

// Resolution is where an image request should be answered from. Exactly one
// of RedirectURL and SourceURL is set.
type Resolution struct {
	RedirectURL string
	SourceURL   string
}

// Gateway answers image requests from storage when possible and from the
// listing's media host otherwise.
type Gateway struct {
	store  GatewayStore
	opener Opener
	cache  cache.ImageCache
}

// NewGateway creates a gateway. imageCache may be nil.
func NewGateway(store GatewayStore, opener Opener, imageCache cache.ImageCache) *Gateway {
	return &Gateway{store: store, opener: opener, cache: imageCache}
}

// Resolve picks the redirect or proxy path for a photo.
func (g *Gateway) Resolve(ctx context.Context, propertyID string, index int) (*Resolution, error) {
	m, err := g.store.GetMediaByOrder(ctx, propertyID, index)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			metrics.GatewayResponses.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}
	if m.StorageURL != nil && *m.StorageURL != "" {
		metrics.GatewayResponses.WithLabelValues("redirect").Inc()
		return &Resolution{RedirectURL: *m.StorageURL}, nil
	}
	if m.SourceURL == "" {
		metrics.GatewayResponses.WithLabelValues("not_found").Inc()
		return nil, errs.ErrNotFound
	}
	return &Resolution{SourceURL: m.SourceURL}, nil
}

// Proxy writes the source photo to w. Nothing is written when the download
// fails; the caller reports the returned error.
func (g *Gateway) Proxy(ctx context.Context, w http.ResponseWriter, sourceURL string) error {
	img, fromCache := g.cached(ctx, sourceURL)
	if img == nil {
		media, err := g.opener.Open(ctx, sourceURL)
		if err != nil {
			metrics.GatewayResponses.WithLabelValues("upstream_error").Inc()
			var upstream *errs.UpstreamError
			if !errors.As(err, &upstream) {
				err = &errs.UpstreamError{URL: sourceURL, Err: err}
			}
			return err
		}
		img = &cache.Image{Data: media.Data, ContentType: media.ContentType}
		if g.cache != nil {
			if err := g.cache.Set(ctx, sourceURL, img); err != nil {
				log.Printf("[Gateway] cache write failed: %v", err)
			}
		}
	}

	path := "proxy"
	if fromCache {
		path = "cache"
	}
	metrics.GatewayResponses.WithLabelValues(path).Inc()

	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Data); err != nil {
		log.Printf("[Gateway] write %s: %v", sourceURL, err)
	}
	return nil
}

func (g *Gateway) cached(ctx context.Context, sourceURL string) (*cache.Image, bool) {
	if g.cache == nil {
		return nil, false
	}
	img, err := g.cache.Get(ctx, sourceURL)
	if err != nil {
		log.Printf("[Gateway] cache read failed: %v", err)
		return nil, false
	}
	return img, img != nil
}
