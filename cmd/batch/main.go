// Command batch runs ingestion, image migration and cleanup outside the API
// process.
//
//	batch ingest  -limit 1000
//	batch migrate -batch-size 20 -limit 100 -concurrency 4 -force
//	batch cleanup -dry-run=false -max 500
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mls-property-api/internal/app"
	"mls-property-api/internal/cleanup"
	"mls-property-api/internal/config"
	"mls-property-api/internal/migration"

	"github.com/joho/godotenv"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <ingest|migrate|cleanup> [flags]\n", os.Args[0])
	os.Exit(2)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if len(os.Args) < 2 {
		usage()
	}
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", configPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var report interface{}
	switch os.Args[1] {
	case "ingest":
		report, err = runIngest(ctx, cfg, os.Args[2:])
	case "migrate":
		report, err = runMigrate(ctx, cfg, os.Args[2:])
	case "cleanup":
		report, err = runCleanup(ctx, cfg, os.Args[2:])
	default:
		usage()
	}

	if report != nil {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func build(ctx context.Context, cfg *config.Config) *app.App {
	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}
	return a
}

func runIngest(ctx context.Context, cfg *config.Config, args []string) (interface{}, error) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	limit := fs.Int("limit", cfg.Ingest.Limit, "maximum records to ingest (0 for all)")
	_ = fs.Parse(args)

	a := build(ctx, cfg)
	defer a.Close()

	result, err := a.Pipeline.Run(ctx, *limit)
	return result, err
}

func runMigrate(ctx context.Context, cfg *config.Config, args []string) (interface{}, error) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	batchSize := fs.Int("batch-size", cfg.Migration.BatchSize, "properties per batch")
	limit := fs.Int("limit", 0, "maximum properties to process (0 for all)")
	concurrency := fs.Int("concurrency", cfg.Migration.Concurrency, "properties processed in parallel")
	force := fs.Bool("force", false, "reprocess images that are already stored")
	_ = fs.Parse(args)

	a := build(ctx, cfg)
	defer a.Close()

	report, err := a.Migrator.Migrate(ctx, migration.Options{
		BatchSize:   *batchSize,
		Limit:       *limit,
		Concurrency: *concurrency,
		Force:       *force,
		Progress: func(p migration.BatchProgress) {
			fmt.Fprintf(os.Stderr, "batch %d: %d properties, %d succeeded, %d failed, %d skipped (%d total)\n",
				p.Batch, p.Properties, p.Succeeded, p.Failed, p.Skipped, p.Processed)
		},
	})
	if err == nil && report.HasFailures() {
		log.Printf("%d properties had failures; rerun to retry them", len(report.Failures))
	}
	return report, err
}

func runCleanup(ctx context.Context, cfg *config.Config, args []string) (interface{}, error) {
	defaults := cleanup.DefaultConfig()
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", true, "only report what would be deleted")
	maxDelete := fs.Int("max", defaults.MaxDeletionCount, "refuse to delete more than this many properties")
	_ = fs.Parse(args)

	a := build(ctx, cfg)
	defer a.Close()

	cc := defaults
	cc.DryRun = *dryRun
	cc.MaxDeletionCount = *maxDelete
	result, err := a.Cleanup.RemoveWithoutImages(ctx, cc)
	return result, err
}
