// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/docqa/config"
	"github.com/poiesic/docqa/logging"
	"github.com/poiesic/docqa/splitter"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docqa",
		Usage: "Index a directory of text documents and answer questions about them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   config.DefaultFile,
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to dotenv file with API credentials",
				Value: config.DefaultEnvFile,
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Usage: "Directory for rotating log files",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Build the vector index from a directory of .txt files",
				ArgsUsage: "[source-dir]",
				Action:    ingestCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   "Directory containing the documents to index",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum chunk length in characters",
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters shared by consecutive chunks",
					},
					&cli.StringFlag{
						Name:  "splitter",
						Usage: "Splitting strategy (window, recursive)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks embedded per request",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent embedding requests",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per embedding request",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
					},
				),
			},
			{
				Name:      "watch",
				Usage:     "Log filesystem changes below a directory until interrupted",
				ArgsUsage: "[dir]",
				Action:    watchCommand,
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the index",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: append(storeFlags(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of chunks retrieved as context",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Log retrieved chunks and timings",
					},
				),
			},
			{
				Name:   "shell",
				Usage:  "Start the interactive shell",
				Action: shellCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   "Directory containing the documents to index",
					},
					&cli.StringFlag{
						Name:  "track",
						Usage: "Directory pre-filled for tracking",
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored chunks with a new embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to BadgerDB database directory",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

// storeFlags are shared by commands that open the index.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible API base URL for embeddings and completions",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
		},
		&cli.StringFlag{
			Name:  "completion-model",
			Usage: "Completion model name",
		},
	}
}

// loadConfig loads the dotenv file and the YAML configuration, then applies
// any flags set on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadEnv(c.String("env-file")); err != nil {
		return nil, err
	}

	path := c.String("config")
	cfg, err := config.Load(path, c.IsSet("config"))
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = c.String("log-level")
	if c.IsSet("log-dir") {
		cfg.LogDir = c.String("log-dir")
	}
	if c.IsSet("db") {
		cfg.StoreDir = c.String("db")
	}
	if c.IsSet("source") {
		cfg.SourceDir = c.String("source")
	}
	if c.IsSet("host") {
		cfg.AI.Host = c.String("host")
	}
	if c.IsSet("embedding-host") {
		cfg.AI.EmbeddingHost = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.AI.EmbeddingModel = c.String("embedding-model")
	}
	if c.IsSet("completion-model") {
		cfg.AI.CompletionModel = c.String("completion-model")
	}
	if c.IsSet("top-k") {
		cfg.TopK = c.Int("top-k")
	}
	if c.IsSet("chunk-size") {
		cfg.Ingest.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("chunk-overlap") {
		cfg.Ingest.Overlap = c.Int("chunk-overlap")
	}
	if c.IsSet("splitter") {
		cfg.Ingest.Splitter = splitter.Mode(c.String("splitter"))
	}
	if c.IsSet("batch-size") {
		cfg.Ingest.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("workers") {
		cfg.Ingest.Workers = c.Int("workers")
	}
	if c.IsSet("max-retries") {
		cfg.Ingest.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		cfg.Ingest.RetryDelay = c.Duration("retry-delay")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openLog opens the rotating log file for a command. console, when non-nil,
// receives a copy of every line.
func openLog(cfg *config.Config, file string, console *os.File) (*slog.Logger, func(), error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	lc := logging.Config{Dir: cfg.LogDir, File: file, Level: level}
	if console != nil {
		lc.Console = console
	}
	logger, closer, err := logging.Open(lc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log: %w", err)
	}
	slog.SetDefault(logger)
	return logger, func() { closer.Close() }, nil
}

func setupLogger(c *cli.Context) error {
	level, err := logging.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}

	// Configure slog with the specified level
	slog.SetDefault(logging.Console(os.Stderr, level))

	return nil
}
