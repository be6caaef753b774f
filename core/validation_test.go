package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{name: "nil document", doc: nil, wantErr: ErrInvalidDocument},
		{name: "missing source", doc: &Document{Contents: "x"}, wantErr: ErrEmptySource},
		{name: "empty contents is valid", doc: &Document{Source: "a.txt"}},
		{name: "valid", doc: &Document{Source: "a.txt", Contents: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		maxSize int
		wantErr error
	}{
		{name: "nil chunk", chunk: nil, wantErr: ErrInvalidChunk},
		{name: "missing source", chunk: &Chunk{Text: "x"}, wantErr: ErrEmptySource},
		{name: "empty text", chunk: &Chunk{Source: "a.txt"}, wantErr: ErrEmptyContent},
		{name: "too long", chunk: &Chunk{Source: "a.txt", Text: strings.Repeat("x", 11)}, maxSize: 10, wantErr: ErrInvalidChunk},
		{name: "multibyte counted as runes", chunk: &Chunk{Source: "a.txt", Text: strings.Repeat("é", 10)}, maxSize: 10},
		{name: "no limit", chunk: &Chunk{Source: "a.txt", Text: strings.Repeat("x", 5000)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk, tt.maxSize)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateChunkPolicy(t *testing.T) {
	assert.NoError(t, ValidateChunkPolicy(1000, 200))
	assert.NoError(t, ValidateChunkPolicy(10, 0))
	assert.ErrorIs(t, ValidateChunkPolicy(0, 0), ErrInvalidChunkSize)
	assert.ErrorIs(t, ValidateChunkPolicy(100, 100), ErrInvalidChunkOverlap)
	assert.ErrorIs(t, ValidateChunkPolicy(100, -1), ErrInvalidChunkOverlap)
}
