// Package migration walks every stored property through the image processor
// in fixed-size batches.
package migration

import (
	"context"
	"log"
	"sync"
	"time"

	"mls-property-api/internal/images"
	"mls-property-api/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize   = 20
	DefaultConcurrency = 4
)

// PropertySource lists property ids in id order.
type PropertySource interface {
	ListPropertyIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	SetMetadata(ctx context.Context, key, value string) error
}

// Processor handles a single property's photos.
type Processor interface {
	ProcessProperty(ctx context.Context, propertyID string, force bool) (*images.ProcessResult, error)
}

// Options controls a migration run. Limit 0 processes every property.
type Options struct {
	BatchSize   int
	Limit       int
	Concurrency int
	Force       bool
	Progress    func(BatchProgress)
}

// BatchProgress is reported after every batch.
type BatchProgress struct {
	Batch      int `json:"batch"`
	Properties int `json:"properties"`
	Processed  int `json:"processed"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// PropertyFailure records a property that had at least one failed image or
// could not be processed at all.
type PropertyFailure struct {
	PropertyID string               `json:"propertyId"`
	Error      string               `json:"error,omitempty"`
	Images     []images.ImageResult `json:"images,omitempty"`
}

// Report summarizes a migration run.
type Report struct {
	RunID               string            `json:"runId"`
	Batches             int               `json:"batches"`
	PropertiesProcessed int               `json:"propertiesProcessed"`
	ImagesSucceeded     int               `json:"imagesSucceeded"`
	ImagesFailed        int               `json:"imagesFailed"`
	ImagesSkipped       int               `json:"imagesSkipped"`
	Failures            []PropertyFailure `json:"failures"`
	DurationMs          int64             `json:"durationMs"`

	mu sync.Mutex
}

func (r *Report) record(id string, res *images.ProcessResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.PropertiesProcessed++
	if err != nil {
		r.Failures = append(r.Failures, PropertyFailure{PropertyID: id, Error: err.Error()})
		return
	}
	r.ImagesSucceeded += res.Succeeded
	r.ImagesFailed += res.Failed
	r.ImagesSkipped += res.Skipped
	if res.Failed > 0 {
		failure := PropertyFailure{PropertyID: id}
		for _, img := range res.Images {
			if img.Status == images.StatusFailed {
				failure.Images = append(failure.Images, img)
			}
		}
		r.Failures = append(r.Failures, failure)
	}
}

// HasFailures reports whether any image or property failed.
func (r *Report) HasFailures() bool {
	return len(r.Failures) > 0
}

// Orchestrator runs migrations.
type Orchestrator struct {
	source    PropertySource
	processor Processor
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(source PropertySource, processor Processor) *Orchestrator {
	return &Orchestrator{source: source, processor: processor}
}

// Migrate processes properties batch by batch. Failures inside a property are
// collected in the report; only listing errors and cancellation stop the run.
// Reruns resume where a previous run left off because stored photos are
// skipped unless Force is set.
func (o *Orchestrator) Migrate(ctx context.Context, opts Options) (*Report, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Failures: []PropertyFailure{}}
	log.Printf("[Migration] run=%s starting (batch_size=%d, limit=%d, concurrency=%d, force=%v)",
		report.RunID, opts.BatchSize, opts.Limit, opts.Concurrency, opts.Force)

	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			report.DurationMs = time.Since(start).Milliseconds()
			return report, err
		}

		size := opts.BatchSize
		if opts.Limit > 0 {
			remaining := opts.Limit - report.PropertiesProcessed
			if remaining <= 0 {
				break
			}
			if remaining < size {
				size = remaining
			}
		}

		ids, err := o.source.ListPropertyIDs(ctx, cursor, size)
		if err != nil {
			report.DurationMs = time.Since(start).Milliseconds()
			return report, err
		}
		if len(ids) == 0 {
			break
		}
		cursor = ids[len(ids)-1]
		report.Batches++

		before := report.snapshot()
		o.runBatch(ctx, report, ids, opts)
		progress := report.progress(report.Batches, len(ids), before)
		log.Printf("[Migration] run=%s batch=%d properties=%d succeeded=%d failed=%d skipped=%d total_processed=%d",
			report.RunID, progress.Batch, progress.Properties, progress.Succeeded, progress.Failed, progress.Skipped, progress.Processed)
		if opts.Progress != nil {
			opts.Progress(progress)
		}

		if len(ids) < size {
			break
		}
	}

	report.DurationMs = time.Since(start).Milliseconds()
	if err := o.source.SetMetadata(ctx, models.MetadataLastMigration, time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Printf("[Migration] run=%s failed to record last run: %v", report.RunID, err)
	}
	log.Printf("[Migration] run=%s finished in %dms: properties=%d succeeded=%d failed=%d skipped=%d properties_with_failures=%d",
		report.RunID, report.DurationMs, report.PropertiesProcessed, report.ImagesSucceeded, report.ImagesFailed,
		report.ImagesSkipped, len(report.Failures))
	return report, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, report *Report, ids []string, opts Options) {
	g := new(errgroup.Group)
	g.SetLimit(opts.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			res, err := o.processor.ProcessProperty(ctx, id, opts.Force)
			if err != nil {
				log.Printf("[Migration] property %s failed: %v", id, err)
			}
			report.record(id, res, err)
			return nil
		})
	}
	_ = g.Wait()
}

type counts struct{ succeeded, failed, skipped int }

func (r *Report) snapshot() counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return counts{r.ImagesSucceeded, r.ImagesFailed, r.ImagesSkipped}
}

func (r *Report) progress(batch, properties int, before counts) BatchProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return BatchProgress{
		Batch:      batch,
		Properties: properties,
		Processed:  r.PropertiesProcessed,
		Succeeded:  r.ImagesSucceeded - before.succeeded,
		Failed:     r.ImagesFailed - before.failed,
		Skipped:    r.ImagesSkipped - before.skipped,
	}
}
