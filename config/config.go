// Package config loads docqa settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/splitter"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "docqa.yaml"

// DefaultEnvFile holds credentials loaded at process start.
const DefaultEnvFile = ".env"

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// AI configures the remote embedding and completion services.
type AI struct {
	Host            string        `yaml:"host"`
	EmbeddingHost   string        `yaml:"embedding_host"`
	CompletionHost  string        `yaml:"completion_host"`
	EmbeddingModel  string        `yaml:"embedding_model"`
	CompletionModel string        `yaml:"completion_model"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Ingest configures index builds.
type Ingest struct {
	Pattern    string        `yaml:"pattern"`
	ChunkSize  int           `yaml:"chunk_size"`
	Overlap    int           `yaml:"chunk_overlap"`
	Splitter   splitter.Mode `yaml:"splitter"`
	BatchSize  int           `yaml:"batch_size"`
	Workers    int           `yaml:"workers"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// Config is the full docqa configuration.
type Config struct {
	SourceDir string `yaml:"source_dir"`
	WatchDir  string `yaml:"watch_dir"`
	StoreDir  string `yaml:"store_dir"`
	LogDir    string `yaml:"log_dir"`
	LogLevel  string `yaml:"log_level"`
	TopK      int    `yaml:"top_k"`
	Prompt    string `yaml:"prompt"`

	AI     AI     `yaml:"ai"`
	Ingest Ingest `yaml:"ingest"`
}

// Default returns the built-in configuration.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		SourceDir: "new_articles",
		WatchDir:  ".",
		StoreDir:  "db",
		LogDir:    "log",
		LogLevel:  "info",
		TopK:      2,
		AI: AI{
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			CompletionModel: aiDefaults.CompletionModel,
		},
		Ingest: Ingest{
			Pattern:    "*.txt",
			ChunkSize:  splitter.DefaultChunkSize,
			Overlap:    splitter.DefaultChunkOverlap,
			Splitter:   splitter.ModeWindow,
			BatchSize:  16,
			Workers:    4,
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults
// unless required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv loads key=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is
// not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env %s: %w", path, err)
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	var errs []error
	if c.SourceDir == "" {
		errs = append(errs, errors.New("source_dir is required"))
	}
	if c.StoreDir == "" {
		errs = append(errs, errors.New("store_dir is required"))
	}
	if c.TopK < 1 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", c.TopK))
	}
	if err := core.ValidateChunkPolicy(c.Ingest.ChunkSize, c.Ingest.Overlap); err != nil {
		errs = append(errs, err)
	}
	switch c.Ingest.Splitter {
	case "", splitter.ModeWindow, splitter.ModeRecursive:
	default:
		errs = append(errs, fmt.Errorf("unknown splitter %q", c.Ingest.Splitter))
	}
	if c.Ingest.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.Ingest.BatchSize))
	}
	if c.Ingest.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Ingest.Workers))
	}
	if c.Ingest.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("max_retries must be positive, got %d", c.Ingest.MaxRetries))
	}
	if c.AI.Timeout < 0 {
		errs = append(errs, errors.New("ai.timeout cannot be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// AIConfig converts the AI section into an ai.Config.
// Specific hosts take precedence over Host.
func (c *Config) AIConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithTimeout(c.AI.Timeout),
	}
	if c.AI.Host != "" {
		opts = append(opts, ai.WithHost(c.AI.Host))
	}
	if c.AI.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(c.AI.EmbeddingHost))
	}
	if c.AI.CompletionHost != "" {
		opts = append(opts, ai.WithCompletionHost(c.AI.CompletionHost))
	}
	if c.AI.EmbeddingModel != "" {
		opts = append(opts, ai.WithEmbeddingModel(c.AI.EmbeddingModel))
	}
	if c.AI.CompletionModel != "" {
		opts = append(opts, ai.WithCompletionModel(c.AI.CompletionModel))
	}
	return ai.NewConfig(opts...)
}
