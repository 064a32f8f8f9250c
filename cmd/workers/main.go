// Command workers hosts the scheduled sweeps outside the API process.
// With -run it executes one job immediately and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/app"
	"gatherhub/collab-portal/collab-portal-backend/internal/config"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	runOnce := flag.String("run", "", "run the named job once and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Logging.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	portal, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize portal", zap.Error(err))
	}
	defer portal.Close()

	if *runOnce != "" {
		report, err := portal.Runner.Run(ctx, *runOnce)
		if err != nil {
			logger.Error("Job failed", zap.String("job", *runOnce), zap.Error(err))
			portal.Close()
			os.Exit(1)
		}
		logger.Info("Job finished",
			zap.String("job", report.Job),
			zap.Int("candidates", report.Candidates),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
		)
		return
	}

	if err := portal.Runner.Start(ctx); err != nil {
		logger.Fatal("Failed to start job runner", zap.Error(err))
	}
	for _, job := range portal.Runner.Jobs() {
		logger.Info("Job scheduled",
			zap.String("job", job.Name),
			zap.String("schedule", job.Schedule),
			zap.Time("next_run", job.NextRun),
		)
	}

	logger.Info("Workers started")
	<-ctx.Done()

	portal.Runner.StopAll()
	logger.Info("Workers stopped")
}
