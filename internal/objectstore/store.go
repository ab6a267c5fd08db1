// Package objectstore uploads optimized listing photos to an S3-compatible
// bucket. Cloudflare R2 is the default target.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"mls-property-api/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// Store writes objects to a single bucket.
type Store struct {
	client       *minio.Client
	bucket       string
	region       string
	cacheControl string
	baseURL      string
}

// New connects to the bucket described by cfg. The configuration must
// already have passed Validate.
func New(cfg config.StorageConfig, cacheControl string) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	endpoint, secure := Endpoint(cfg)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create object storage client")
	}

	return &Store{
		client:       client,
		bucket:       cfg.Bucket,
		region:       cfg.Region,
		cacheControl: cacheControl,
		baseURL:      PublicBaseURL(cfg),
	}, nil
}

// Endpoint returns the host the client dials and whether TLS is used.
func Endpoint(cfg config.StorageConfig) (string, bool) {
	if cfg.Endpoint == "" {
		return fmt.Sprintf("%s.r2.cloudflarestorage.com", cfg.AccountID), true
	}
	switch {
	case strings.HasPrefix(cfg.Endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(cfg.Endpoint, "https://"), "/"), true
	case strings.HasPrefix(cfg.Endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(cfg.Endpoint, "http://"), "/"), false
	default:
		return strings.TrimSuffix(cfg.Endpoint, "/"), cfg.UseSSL
	}
}

// PublicBaseURL is the prefix public object URLs are built on.
func PublicBaseURL(cfg config.StorageConfig) string {
	if cfg.CDNDomain != "" {
		domain := strings.TrimSuffix(cfg.CDNDomain, "/")
		if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
			return domain
		}
		return "https://" + domain
	}
	endpoint, secure := Endpoint(cfg)
	scheme := "https"
	if !secure {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.Bucket)
}

// MediaKey is the object key for a property's photo at order.
func MediaKey(propertyID string, order int) string {
	return fmt.Sprintf("properties/%s/%d.webp", propertyID, order)
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrapf(err, "check bucket %s", s.bucket)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return errors.Wrapf(err, "create bucket %s", s.bucket)
	}
	log.Printf("[Storage] created bucket %s", s.bucket)
	return nil
}

// Put uploads data under key and returns its public URL.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: s.cacheControl,
		UserMetadata: meta,
	})
	if err != nil {
		return "", errors.Wrapf(err, "upload %s", key)
	}
	return s.PublicURL(key), nil
}

// Remove deletes an object. Missing objects are not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, "remove %s", key)
	}
	return nil
}

// PublicURL returns the URL clients use to fetch key.
func (s *Store) PublicURL(key string) string {
	return s.baseURL + "/" + key
}
