package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/poiesic/docqa"
	"github.com/poiesic/docqa/config"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/logging"
	"github.com/poiesic/docqa/qa"
	"github.com/poiesic/docqa/storage"
	"github.com/poiesic/docqa/storage/badger"
	"github.com/poiesic/docqa/task"
	"github.com/poiesic/docqa/tui"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

// shellCommand runs the TUI. It owns the terminal, so it logs only to the
// shell log, and runs ingestion and tracking as children of this binary.
func shellCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLog(cfg, logging.ShellLog, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	trackDir := cfg.WatchDir
	if c.IsSet("track") {
		trackDir = c.String("track")
	}

	model := tui.New(context.Background(), tui.Config{
		StartIngest: func(ctx context.Context) (*task.Handle, error) {
			return task.Start(ctx, "ingest", exe, childArgs(c, cfg, "ingest", ingestArgs(cfg)...),
				task.WithLogger(logger))
		},
		StartWatch: func(ctx context.Context, dir string) (*task.Handle, error) {
			return task.Start(ctx, "watch", exe, childArgs(c, cfg, "watch", dir),
				task.WithLogger(logger))
		},
		Ask: func(ctx context.Context, query string) (*qa.Answer, *core.Manifest, error) {
			return docqa.Ask(ctx, cfg.StoreDir, query,
				[]docqa.Option{docqa.WithAIConfig(cfg.AIConfig()), docqa.WithLogger(logger)},
				qa.WithLogger(logger),
				qa.WithTopK(cfg.TopK),
				qa.WithPromptTemplate(cfg.Prompt),
				qa.WithMonitor(qa.NewLogMonitor(logger)),
			)
		},
		TrackDir:       trackDir,
		BuildTimestamp: lastBuild(cfg.StoreDir, logger),
		Logger:         logger,
	})

	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if m, ok := final.(tui.Model); ok {
		m.Shutdown(shutdownTimeout)
	}
	if err != nil {
		return fmt.Errorf("shell failed: %w", err)
	}
	return nil
}

// childArgs builds the argument list for a child invocation, forwarding the
// global flags that shape its configuration.
func childArgs(c *cli.Context, cfg *config.Config, command string, args ...string) []string {
	out := []string{"--log-level", cfg.LogLevel, "--log-dir", cfg.LogDir, "--env-file", c.String("env-file")}
	if c.IsSet("config") {
		out = append(out, "--config", c.String("config"))
	}
	out = append(out, command)
	return append(out, args...)
}

func ingestArgs(cfg *config.Config) []string {
	args := []string{"--source", cfg.SourceDir, "--db", cfg.StoreDir}
	if cfg.AI.Host != "" {
		args = append(args, "--host", cfg.AI.Host)
	}
	if cfg.AI.EmbeddingModel != "" {
		args = append(args, "--embedding-model", cfg.AI.EmbeddingModel)
	}
	return args
}

// lastBuild reads the build timestamp of an existing index without
// contacting the AI services.
func lastBuild(dir string, logger *slog.Logger) string {
	backend, err := badger.OpenReadOnlyBackend(dir)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("could not read index manifest", "db", dir, "err", err)
		}
		return ""
	}
	defer backend.Close()

	manifest, err := badger.NewManifestRepository(backend).LoadManifest(context.Background())
	if err != nil {
		logger.Warn("could not read index manifest", "db", dir, "err", err)
		return ""
	}
	return manifest.BuildTimestamp()
}
