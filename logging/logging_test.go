package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"Warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_WritesToRotatingFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	var console bytes.Buffer

	logger, closer, err := Open(Config{Dir: dir, File: IndexingLog, Level: slog.LevelInfo, Console: &console})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("index built", "chunks", 3)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, IndexingLog))
	require.NoError(t, err)
	assert.Contains(t, string(data), "index built")
	assert.Contains(t, string(data), "chunks=3")
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, console.String(), "index built")
}

func TestOpen_RequiresFile(t *testing.T) {
	_, _, err := Open(Config{Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	Console(&buf, slog.LevelWarn).Info("skipped")
	Console(&buf, slog.LevelWarn).Warn("kept")
	assert.NotContains(t, buf.String(), "skipped")
	assert.Contains(t, buf.String(), "kept")
}
