package smoketest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/irakobi/wildlife-conservation-backend/pkg/logger"
)

// Run executes the complete submission smoke test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("smoketest")

	log.Info(ctx, "starting submission smoke test",
		logger.String("baseURL", config.BaseURL),
		logger.String("formUID", config.FormUID),
		logger.Int("submissions", config.NumSubmissions),
		logger.Int("workers", config.Workers),
	)

	c := newClient(config.BaseURL, config.Timeout)

	// Step 1: the service must be up.
	if err := c.health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}
	log.Info(ctx, "service is healthy")

	// Step 2: fetch the schema the payloads must conform to.
	schema, err := c.getSchema(ctx, config.FormUID)
	if err != nil {
		return fmt.Errorf("schema fetch failed: %w", err)
	}
	log.Info(ctx, "fetched form schema",
		logger.String("formName", schema.FormName),
		logger.Int("questions", len(schema.Questions)),
	)

	// Step 3: generate payloads.
	payloads := make([]map[string]any, config.NumSubmissions)
	for i := range payloads {
		payloads[i] = generateSubmission(schema)
	}
	stats.Generated = len(payloads)

	// Step 4: post them concurrently.
	if err := postAll(ctx, c, config, payloads, stats, log); err != nil {
		return fmt.Errorf("submission posting failed: %w", err)
	}

	// Step 5: confirm the backend stored them.
	stored, err := c.countSubmissions(ctx, config.FormUID)
	if err != nil {
		return fmt.Errorf("stored count check failed: %w", err)
	}
	log.Info(ctx, "backend reports stored submissions", logger.Int("stored", stored))

	// Step 6: optionally kick off a provider sync pass.
	if config.Sync {
		queued, err := c.triggerSync(ctx)
		if err != nil {
			return fmt.Errorf("sync trigger failed: %w", err)
		}
		stats.Queued = queued
		log.Info(ctx, "sync pass queued", logger.Int("queued", queued))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats, log)

	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d submissions failed", stats.Failed, stats.Posted)
	}
	log.Info(ctx, "smoke test completed successfully")
	return nil
}

// postAll distributes the payloads over config.Workers goroutines.
func postAll(ctx context.Context, c *client, config *Config, payloads []map[string]any, stats *Stats, log logger.Logger) error {
	var (
		created    atomic.Int64
		duplicates atomic.Int64
		rejected   atomic.Int64
		failed     atomic.Int64
	)

	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(payloads) {
		workers = len(payloads)
	}

	jobs := make(chan map[string]any)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for payload := range jobs {
				result, err := c.postSubmission(ctx, config.FormUID, payload)
				switch result {
				case postCreated:
					created.Add(1)
				case postDuplicate:
					duplicates.Add(1)
				case postRejected:
					rejected.Add(1)
					if config.Verbose {
						log.Warn(ctx, "submission rejected", logger.Error(err))
					}
				case postFailed:
					failed.Add(1)
					if config.Verbose {
						log.Warn(ctx, "submission failed", logger.Error(err))
					}
				}
			}
		}()
	}

	for _, payload := range payloads {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return fmt.Errorf("context cancelled during posting: %w", ctx.Err())
		case jobs <- payload:
		}
	}
	close(jobs)
	wg.Wait()

	stats.Posted = len(payloads)
	stats.Created = int(created.Load())
	stats.Duplicates = int(duplicates.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats, log logger.Logger) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Posted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("posted", stats.Posted),
		logger.Int("created", stats.Created),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("queuedForSync", stats.Queued),
		logger.String("duration", stats.Duration.String()),
		logger.Any("submissionsPerSecond", perSecond),
	)
}
