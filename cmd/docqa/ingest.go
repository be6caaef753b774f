package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/poiesic/docqa"
	"github.com/poiesic/docqa/ingestion"
	"github.com/poiesic/docqa/logging"
	"github.com/poiesic/docqa/progress"
	"github.com/poiesic/docqa/retry"
	"github.com/poiesic/docqa/splitter"
	"github.com/urfave/cli/v2"
)

// ingestCommand rebuilds the index. Stdout carries only progress lines;
// logs go to stderr and the indexing log.
func ingestCommand(c *cli.Context) error {
	encoder := progress.NewEncoder(os.Stdout)

	cfg, err := loadConfig(c)
	if err != nil {
		encoder.Report(progress.Failure(err.Error()))
		return err
	}
	if c.Args().Present() {
		cfg.SourceDir = c.Args().First()
	}

	logger, closeLog, err := openLog(cfg, logging.IndexingLog, os.Stderr)
	if err != nil {
		encoder.Report(progress.Failure(err.Error()))
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ts, err := splitter.New(cfg.Ingest.Splitter, cfg.Ingest.ChunkSize, cfg.Ingest.Overlap)
	if err != nil {
		encoder.Report(progress.Failure(err.Error()))
		return fmt.Errorf("invalid splitter configuration: %w", err)
	}

	idx, err := docqa.Open(cfg.StoreDir, docqa.WithAIConfig(cfg.AIConfig()), docqa.WithLogger(logger))
	if err != nil {
		encoder.Report(progress.Failure(err.Error()))
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	pipeline, err := idx.NewPipeline(
		ingestion.WithLogger(logger),
		ingestion.WithReporter(encoder),
		ingestion.WithSplitter(ts, cfg.Ingest.ChunkSize),
		ingestion.WithPattern(cfg.Ingest.Pattern),
		ingestion.WithBatchSize(cfg.Ingest.BatchSize),
		ingestion.WithPoolSize(cfg.Ingest.Workers),
		ingestion.WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.Ingest.MaxRetries,
			BaseDelay:   cfg.Ingest.RetryDelay,
		}),
	)
	if err != nil {
		encoder.Report(progress.Failure(err.Error()))
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	fmt.Fprintf(os.Stderr, "Source: %s\n", cfg.SourceDir)
	fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.StoreDir)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	result, err := pipeline.Run(ctx, cfg.SourceDir)
	for _, stage := range result.Stages() {
		logger.Info("stage finished", "stage", stage.Stage, "result", stage.String())
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintln(os.Stderr, result.Summary())
	return encoder.Err()
}
