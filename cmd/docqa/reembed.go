package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/poiesic/docqa"
	"github.com/poiesic/docqa/logging"
	"github.com/poiesic/docqa/progress"
	"github.com/poiesic/docqa/reembed"
	"github.com/urfave/cli/v2"
)

func reembedCommand(c *cli.Context) error {
	// Create reembedding config
	reembedConfig := &reembed.Config{
		BatchSize:  c.Int("batch-size"),
		MaxRetries: c.Int("max-retries"),
		RetryDelay: c.Duration("retry-delay"),
	}

	// Validate config
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLog(cfg, logging.IndexingLog, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx, err := docqa.Open(cfg.StoreDir, docqa.WithAIConfig(cfg.AIConfig()), docqa.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	encoder := progress.NewEncoder(os.Stdout)
	reembedder := idx.NewReembedder(reembedConfig, encoder)

	// Run reembedding
	fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.StoreDir)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.AIConfig().EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	result, err := reembedder.Run(ctx)
	if err != nil {
		encoder.Report(progress.Failure(err.Error()))
		return fmt.Errorf("reembedding failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Reembedded %d chunks with %s in %s\n", result.Chunks, result.Model, result.Elapsed)
	return encoder.Err()
}
