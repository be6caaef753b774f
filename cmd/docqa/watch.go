package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/poiesic/docqa/logging"
	"github.com/poiesic/docqa/watcher"
	"github.com/urfave/cli/v2"
)

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	dir := cfg.WatchDir
	if c.Args().Present() {
		dir = c.Args().First()
	}

	logger, closeLog, err := openLog(cfg, logging.TrackingLog, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(watcher.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Watch(ctx, dir); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
