package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"mls-property-api/internal/cleanup"
	"mls-property-api/internal/database"
	"mls-property-api/internal/migration"
	"mls-property-api/internal/models"
	"mls-property-api/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// StatsStore reports catalogue and migration counts.
type StatsStore interface {
	CountProperties(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	GetMediaStats(ctx context.Context) (*database.MediaStats, error)
	GetMetadata(ctx context.Context, key string) (string, bool, error)
}

// JobRunner starts background jobs and reports their status.
type JobRunner interface {
	TriggerIngest(limit int) error
	TriggerMigration(opts migration.Options) error
	Status() map[string]scheduler.JobStatus
}

// Cleaner removes listings.
type Cleaner interface {
	RemoveWithoutImages(ctx context.Context, cfg cleanup.Config) (*cleanup.Result, error)
	DeleteProperty(ctx context.Context, id string, cfg cleanup.Config) error
	GetDeleteStats(ctx context.Context) (*cleanup.DeleteStats, error)
	GetRecentDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error)
}

// FeedStats exposes upstream client health.
type FeedStats interface {
	Stats() map[string]interface{}
}

// AdminHandler handles admin-related requests
type AdminHandler struct {
	store     StatsStore
	jobs      JobRunner
	cleaner   Cleaner
	history   HistoryReader
	feed      FeedStats
	migration migration.Options
}

// NewAdminHandler creates a new admin handler. Any collaborator except store
// may be nil; the matching endpoints then answer 503.
func NewAdminHandler(store StatsStore, jobs JobRunner, cleaner Cleaner, history HistoryReader, feed FeedStats, defaults migration.Options) *AdminHandler {
	return &AdminHandler{
		store:     store,
		jobs:      jobs,
		cleaner:   cleaner,
		history:   history,
		feed:      feed,
		migration: defaults,
	}
}

// GetStats returns system statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := make(map[string]interface{})

	total, err := h.store.CountProperties(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	byStatus, err := h.store.CountByStatus(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	stats["properties"] = map[string]interface{}{
		"total":     total,
		"by_status": byStatus,
	}

	media, err := h.store.GetMediaStats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	stats["images"] = media

	runs := map[string]string{}
	for _, key := range []string{models.MetadataLastPopulateRun, models.MetadataLastMigration} {
		if v, ok, err := h.store.GetMetadata(ctx, key); err == nil && ok {
			runs[key] = v
		}
	}
	stats["last_runs"] = runs

	if h.jobs != nil {
		stats["jobs"] = h.jobs.Status()
	}
	if h.feed != nil {
		stats["feed"] = h.feed.Stats()
	}
	if h.cleaner != nil {
		deleteStats, err := h.cleaner.GetDeleteStats(ctx)
		if err != nil {
			log.Printf("Admin: Failed to get delete stats: %v", err)
		} else {
			stats["deletions"] = deleteStats
		}
	}

	c.JSON(http.StatusOK, stats)
}

// TriggerIngest handles POST /api/admin/ingest?limit=
func (h *AdminHandler) TriggerIngest(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not available"})
		return
	}
	limit, err := queryIntDefault(c, "limit", 0)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("Admin: Manual ingestion trigger requested (limit=%d)", limit)
	if err := h.jobs.TriggerIngest(limit); err != nil {
		respondJobError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Ingestion job started",
		"status":  "running",
	})
}

// TriggerMigration handles POST /api/admin/migrate?batch_size=&limit=&concurrency=&force=
func (h *AdminHandler) TriggerMigration(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not available"})
		return
	}

	opts := h.migration
	var err error
	if opts.BatchSize, err = queryIntDefault(c, "batch_size", opts.BatchSize); err != nil {
		respondError(c, err)
		return
	}
	if opts.Limit, err = queryIntDefault(c, "limit", 0); err != nil {
		respondError(c, err)
		return
	}
	if opts.Concurrency, err = queryIntDefault(c, "concurrency", opts.Concurrency); err != nil {
		respondError(c, err)
		return
	}
	if opts.Force, err = queryBool(c, "force", false); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("Admin: Manual migration trigger requested (batch_size=%d, limit=%d, force=%v)",
		opts.BatchSize, opts.Limit, opts.Force)
	if err := h.jobs.TriggerMigration(opts); err != nil {
		respondJobError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Image migration job started",
		"status":  "running",
	})
}

// GetJobStatus returns the status of background jobs
func (h *AdminHandler) GetJobStatus(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not available"})
		return
	}
	c.JSON(http.StatusOK, h.jobs.Status())
}

func respondJobError(c *gin.Context, err error) {
	if errors.Is(err, scheduler.ErrJobRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
}

// RunCleanup handles POST /api/admin/cleanup/without-images?dry_run=&max=
// Dry run is the default.
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	if h.cleaner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cleanup not available"})
		return
	}

	cfg := cleanup.DefaultConfig()
	var err error
	if cfg.DryRun, err = queryBool(c, "dry_run", true); err != nil {
		respondError(c, err)
		return
	}
	if cfg.MaxDeletionCount, err = queryIntDefault(c, "max", cfg.MaxDeletionCount); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("Admin: Running cleanup (max: %d, dry-run: %v)", cfg.MaxDeletionCount, cfg.DryRun)
	result, err := h.cleaner.RemoveWithoutImages(c.Request.Context(), cfg)
	if err != nil {
		log.Printf("Admin: Cleanup failed: %v", err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteProperty handles DELETE /api/admin/properties/:id
func (h *AdminHandler) DeleteProperty(c *gin.Context) {
	if h.cleaner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cleanup not available"})
		return
	}
	cfg := cleanup.DefaultConfig()
	if err := h.cleaner.DeleteProperty(c.Request.Context(), c.Param("id"), cfg); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

// GetDeleteLogs returns recent delete log entries
func (h *AdminHandler) GetDeleteLogs(c *gin.Context) {
	if h.cleaner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cleanup not available"})
		return
	}
	limit, err := queryIntDefault(c, "limit", 100)
	if err != nil {
		respondError(c, err)
		return
	}

	logs, err := h.cleaner.GetRecentDeleteLogs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// GetRecentChanges returns recent price and status changes
func (h *AdminHandler) GetRecentChanges(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is not available"})
		return
	}
	limit, err := queryIntDefault(c, "limit", 100)
	if err != nil {
		respondError(c, err)
		return
	}

	changes, err := h.history.GetRecentChanges(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"changes": changes,
		"count":   len(changes),
	})
}
