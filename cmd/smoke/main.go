package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/irakobi/wildlife-conservation-backend/internal/smoketest"
	"github.com/irakobi/wildlife-conservation-backend/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumSubmissions = 100
	defaultWorkers        = 4
	defaultTimeout        = 30 * time.Second
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8000", "Base URL of the service")
		formUID = flag.String("form", "", "Form UID to submit against (required)")
		count   = flag.Int("submissions", defaultNumSubmissions, "Number of submissions to generate and post")
		workers = flag.Int("workers", defaultWorkers, "Number of concurrent workers")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		sync    = flag.Bool("sync", false, "Trigger a provider sync pass after posting")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	if *formUID == "" {
		os.Stderr.WriteString("missing required -form flag\n")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &smoketest.Config{
		BaseURL:        *baseURL,
		FormUID:        *formUID,
		NumSubmissions: *count,
		Workers:        *workers,
		Timeout:        *timeout,
		Sync:           *sync,
		Verbose:        *verbose,
	}

	if err := smoketest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("smoke test failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
