package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"mls-property-api/internal/database"
	"mls-property-api/internal/history"
	"mls-property-api/internal/metrics"
	"mls-property-api/internal/mls"
	"mls-property-api/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Feed pages through upstream listings.
type Feed interface {
	FirstPageURL(top int) string
	FetchPage(ctx context.Context, url string) (*mls.Page, error)
}

// ListingStore is the part of the property store ingestion writes to.
type ListingStore interface {
	UpsertListing(ctx context.Context, p *models.Property, media []models.PropertyMedia) (*database.UpsertOutcome, error)
	SetMetadata(ctx context.Context, key, value string) error
}

// ChangeRecorder persists detected price and status changes.
type ChangeRecorder interface {
	Record(ctx context.Context, runID string, changes []models.PropertyChange) error
}

// Indexer mirrors upserted listings into the keyword index.
type Indexer interface {
	IndexProperties(properties []models.Property) error
}

// Options configures a Pipeline. Changes and Indexer are optional.
type Options struct {
	Concurrency int
	PageSize    int
	Changes     ChangeRecorder
	Indexer     Indexer
}

// Result summarizes an ingestion run.
type Result struct {
	RunID    string        `json:"run_id"`
	Pages    int           `json:"pages"`
	Fetched  int           `json:"fetched"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`

	mu sync.Mutex
}

func (r *Result) add(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch outcome {
	case "created":
		r.Created++
	case "updated":
		r.Updated++
	case "skipped":
		r.Skipped++
	case "failed":
		r.Failed++
	}
	metrics.IngestedRecords.WithLabelValues(outcome).Inc()
}

// Pipeline pulls feed pages and upserts normalized listings.
type Pipeline struct {
	feed        Feed
	store       ListingStore
	changes     ChangeRecorder
	indexer     Indexer
	concurrency int
	pageSize    int
}

// NewPipeline creates an ingestion pipeline
func NewPipeline(feed Feed, store ListingStore, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 500
	}
	return &Pipeline{
		feed:        feed,
		store:       store,
		changes:     opts.Changes,
		indexer:     opts.Indexer,
		concurrency: opts.Concurrency,
		pageSize:    opts.PageSize,
	}
}

// Run ingests up to limit records (0 for all), following next links until
// the feed is exhausted. A page that cannot be fetched ends the run; the
// partial result is returned with the error.
func (p *Pipeline) Run(ctx context.Context, limit int) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	log.Printf("[Ingest] run=%s starting (limit=%d, concurrency=%d)", result.RunID, limit, p.concurrency)

	top := p.pageSize
	if limit > 0 && limit < top {
		top = limit
	}
	url := p.feed.FirstPageURL(top)

	for url != "" {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		page, err := p.feed.FetchPage(ctx, url)
		if err != nil {
			result.Duration = time.Since(start)
			log.Printf("[Ingest] run=%s page %d fetch failed: %v", result.RunID, result.Pages+1, err)
			return result, fmt.Errorf("fetch page %d: %w", result.Pages+1, err)
		}
		result.Pages++

		records := page.Records
		if limit > 0 && result.Fetched+len(records) > limit {
			records = records[:limit-result.Fetched]
		}
		p.ingest(ctx, result, records)
		log.Printf("[Ingest] run=%s page=%d records=%d created=%d updated=%d skipped=%d failed=%d",
			result.RunID, result.Pages, len(records), result.Created, result.Updated, result.Skipped, result.Failed)

		if limit > 0 && result.Fetched >= limit {
			break
		}
		url = page.NextLink
	}

	result.Duration = time.Since(start)
	if err := p.store.SetMetadata(ctx, models.MetadataLastPopulateRun, time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Printf("[Ingest] run=%s failed to record last run: %v", result.RunID, err)
	}
	log.Printf("[Ingest] run=%s finished in %v: fetched=%d created=%d updated=%d skipped=%d failed=%d",
		result.RunID, result.Duration.Round(time.Millisecond), result.Fetched, result.Created, result.Updated, result.Skipped, result.Failed)
	return result, nil
}

// IngestRecords ingests records already in memory.
func (p *Pipeline) IngestRecords(ctx context.Context, records []mls.Record) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	p.ingest(ctx, result, records)
	result.Duration = time.Since(start)
	return result, ctx.Err()
}

// ingest upserts one page of records with bounded parallelism. Record-level
// failures are counted and logged; they never stop the page.
func (p *Pipeline) ingest(ctx context.Context, result *Result, records []mls.Record) {
	result.Fetched += len(records)

	var (
		mu      sync.Mutex
		indexed []models.Property
	)

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for _, rec := range records {
		rec := rec
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			property, ok := p.ingestOne(ctx, result, rec)
			if ok && p.indexer != nil {
				mu.Lock()
				indexed = append(indexed, *property)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if p.indexer != nil && len(indexed) > 0 {
		if err := p.indexer.IndexProperties(indexed); err != nil {
			log.Printf("[Ingest] run=%s keyword index update failed for %d listings: %v", result.RunID, len(indexed), err)
		}
	}
}

func (p *Pipeline) ingestOne(ctx context.Context, result *Result, rec mls.Record) (*models.Property, bool) {
	property, media, err := Transform(rec)
	if err != nil {
		log.Printf("[Ingest] run=%s skipping record: %v", result.RunID, err)
		result.add("skipped")
		return nil, false
	}

	outcome, err := p.store.UpsertListing(ctx, property, media)
	if err != nil {
		log.Printf("[Ingest] run=%s failed to upsert %s: %v", result.RunID, property.ID, err)
		result.add("failed")
		return nil, false
	}

	if outcome.Created {
		result.add("created")
	} else {
		result.add("updated")
	}

	if p.changes != nil {
		changes := history.DetectChanges(outcome.Previous, property)
		if err := p.changes.Record(ctx, result.RunID, changes); err != nil {
			log.Printf("[Ingest] run=%s failed to record changes for %s: %v", result.RunID, property.ID, err)
		}
	}
	return property, true
}
