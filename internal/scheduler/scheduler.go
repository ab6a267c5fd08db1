package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"mls-property-api/internal/config"
	"mls-property-api/internal/ingest"
	"mls-property-api/internal/migration"

	"github.com/robfig/cron/v3"
)

// Job names
const (
	JobIngest    = "ingest"
	JobMigration = "migration"
)

// ErrJobRunning is returned when a job is triggered while it is still running.
var ErrJobRunning = errors.New("job already running")

// Ingester runs an ingestion pass.
type Ingester interface {
	Run(ctx context.Context, limit int) (*ingest.Result, error)
}

// Migrator runs an image migration pass.
type Migrator interface {
	Migrate(ctx context.Context, opts migration.Options) (*migration.Report, error)
}

// JobStatus describes the last run of a job.
type JobStatus struct {
	Running    bool       `json:"running"`
	Scheduled  string     `json:"scheduled,omitempty"`
	LastStart  *time.Time `json:"last_start,omitempty"`
	LastFinish *time.Time `json:"last_finish,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// Scheduler handles scheduled ingestion and migration runs
type Scheduler struct {
	cron      *cron.Cron
	ingester  Ingester
	migrator  Migrator
	config    *config.Config
	isRunning bool

	mu   sync.Mutex
	jobs map[string]*JobStatus
}

// NewScheduler creates a new scheduler. Either job may be nil.
func NewScheduler(cfg *config.Config, ingester Ingester, migrator Migrator) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		ingester: ingester,
		migrator: migrator,
		config:   cfg,
		jobs: map[string]*JobStatus{
			JobIngest:    {},
			JobMigration: {},
		},
	}
}

// Start registers the enabled daily jobs and starts the cron loop
func (s *Scheduler) Start() error {
	registered := 0

	if s.config.Ingest.DailyRunEnabled && s.ingester != nil {
		spec := parseDailyRunTime(s.config.Ingest.DailyRunTime, "0 2 * * *")
		if _, err := s.cron.AddFunc(spec, func() {
			if _, err := s.RunIngestNow(context.Background(), s.config.Ingest.Limit); errors.Is(err, ErrJobRunning) {
				log.Println("Scheduler: Skipping daily ingestion, previous run still in progress")
			}
		}); err != nil {
			return fmt.Errorf("schedule ingestion: %w", err)
		}
		s.setScheduled(JobIngest, spec)
		registered++
		log.Printf("Scheduler: Daily ingestion at %s (cron: %s)", s.config.Ingest.DailyRunTime, spec)
	}

	if s.config.Migration.DailyRunEnabled && s.migrator != nil {
		spec := parseDailyRunTime(s.config.Migration.DailyRunTime, "0 4 * * *")
		if _, err := s.cron.AddFunc(spec, func() {
			if _, err := s.RunMigrationNow(context.Background(), migration.Options{
				BatchSize:   s.config.Migration.BatchSize,
				Concurrency: s.config.Migration.Concurrency,
			}); errors.Is(err, ErrJobRunning) {
				log.Println("Scheduler: Skipping nightly migration, previous run still in progress")
			}
		}); err != nil {
			return fmt.Errorf("schedule migration: %w", err)
		}
		s.setScheduled(JobMigration, spec)
		registered++
		log.Printf("Scheduler: Nightly migration at %s (cron: %s)", s.config.Migration.DailyRunTime, spec)
	}

	if registered == 0 {
		log.Println("Scheduler: No daily jobs enabled in configuration")
		return nil
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Scheduler: Started with %d job(s)", registered)
	return nil
}

// Stop stops the scheduler and waits for running jobs to return
func (s *Scheduler) Stop() {
	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		log.Println("Scheduler: Stopped")
	}
}

// RunIngestNow runs ingestion immediately. Overlapping runs are refused.
func (s *Scheduler) RunIngestNow(ctx context.Context, limit int) (*ingest.Result, error) {
	if s.ingester == nil {
		return nil, errors.New("ingestion is not configured")
	}
	if err := s.begin(JobIngest); err != nil {
		return nil, err
	}
	return s.runIngest(ctx, limit)
}

// TriggerIngest starts ingestion in the background. It fails fast when the
// job is already running.
func (s *Scheduler) TriggerIngest(limit int) error {
	if s.ingester == nil {
		return errors.New("ingestion is not configured")
	}
	if err := s.begin(JobIngest); err != nil {
		return err
	}
	go func() {
		_, _ = s.runIngest(context.Background(), limit)
	}()
	return nil
}

func (s *Scheduler) runIngest(ctx context.Context, limit int) (*ingest.Result, error) {
	log.Printf("Scheduler: Starting ingestion (limit=%d)...", limit)
	result, err := s.ingester.Run(ctx, limit)
	s.finish(JobIngest, err)
	if err != nil {
		log.Printf("Scheduler: Ingestion failed: %v", err)
	} else {
		log.Println("Scheduler: Ingestion completed successfully")
	}
	return result, err
}

// RunMigrationNow runs an image migration immediately. Overlapping runs are refused.
func (s *Scheduler) RunMigrationNow(ctx context.Context, opts migration.Options) (*migration.Report, error) {
	if s.migrator == nil {
		return nil, errors.New("image migration is not configured")
	}
	if err := s.begin(JobMigration); err != nil {
		return nil, err
	}
	return s.runMigration(ctx, opts)
}

// TriggerMigration starts an image migration in the background.
func (s *Scheduler) TriggerMigration(opts migration.Options) error {
	if s.migrator == nil {
		return errors.New("image migration is not configured")
	}
	if err := s.begin(JobMigration); err != nil {
		return err
	}
	go func() {
		_, _ = s.runMigration(context.Background(), opts)
	}()
	return nil
}

func (s *Scheduler) runMigration(ctx context.Context, opts migration.Options) (*migration.Report, error) {
	log.Printf("Scheduler: Starting image migration (batch_size=%d, limit=%d)...", opts.BatchSize, opts.Limit)
	report, err := s.migrator.Migrate(ctx, opts)
	s.finish(JobMigration, err)
	if err != nil {
		log.Printf("Scheduler: Image migration failed: %v", err)
	} else {
		log.Println("Scheduler: Image migration completed successfully")
	}
	return report, err
}

// Status returns a copy of every job's status.
func (s *Scheduler) Status() map[string]JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]JobStatus, len(s.jobs))
	for name, st := range s.jobs {
		out[name] = *st
	}
	return out
}

func (s *Scheduler) begin(job string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.jobs[job]
	if st.Running {
		return fmt.Errorf("%s: %w", job, ErrJobRunning)
	}
	now := time.Now()
	st.Running = true
	st.LastStart = &now
	return nil
}

func (s *Scheduler) finish(job string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.jobs[job]
	now := time.Now()
	st.Running = false
	st.LastFinish = &now
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
}

func (s *Scheduler) setScheduled(job, spec string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job].Scheduled = spec
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "02:00" -> "0 2 * * *" (run at 2:00 AM every day)
func parseDailyRunTime(timeStr, fallback string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	log.Printf("Scheduler: Failed to parse time '%s', using default %q", timeStr, fallback)
	return fallback
}
