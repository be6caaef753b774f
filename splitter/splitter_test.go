package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/docqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("default mode is window", func(t *testing.T) {
		s, err := New("", 1000, 200)
		require.NoError(t, err)
		assert.Equal(t, Window{Size: 1000, Overlap: 200}, s)
	})

	t.Run("recursive mode respects size", func(t *testing.T) {
		s, err := New(ModeRecursive, 100, 20)
		require.NoError(t, err)

		text := strings.Repeat("The quick brown fox jumps over the lazy dog.\n", 40)
		chunks, err := s.SplitText(text)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := New("sentences", 1000, 200)
		assert.ErrorIs(t, err, ErrUnknownMode)
	})

	t.Run("invalid policy", func(t *testing.T) {
		_, err := New(ModeWindow, 100, 200)
		assert.ErrorIs(t, err, core.ErrInvalidChunkOverlap)
	})
}
