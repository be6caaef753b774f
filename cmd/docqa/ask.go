package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/docqa"
	"github.com/poiesic/docqa/qa"
	"github.com/urfave/cli/v2"
)

func askCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a question is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger := slog.Default()
	qaOpts := []qa.Option{
		qa.WithLogger(logger),
		qa.WithTopK(cfg.TopK),
		qa.WithPromptTemplate(cfg.Prompt),
	}
	if c.Bool("verbose") {
		qaOpts = append(qaOpts, qa.WithMonitor(qa.NewLogMonitor(logger)))
	}

	answer, manifest, err := docqa.Ask(c.Context, cfg.StoreDir, query,
		[]docqa.Option{docqa.WithAIConfig(cfg.AIConfig()), docqa.WithLogger(logger)}, qaOpts...)
	if err != nil {
		if errors.Is(err, qa.ErrIndexEmpty) {
			return fmt.Errorf("%w (docqa ingest)", err)
		}
		return fmt.Errorf("query failed: %w", err)
	}

	if ts := manifest.BuildTimestamp(); ts != "" {
		fmt.Fprintf(os.Stderr, "Index build timestamp: %s\n\n", ts)
	}

	fmt.Println("Result:")
	fmt.Println(strings.TrimSpace(answer.Result))
	fmt.Println()
	fmt.Println("Sources:")
	for _, source := range answer.Sources {
		fmt.Println(source)
	}
	return nil
}
