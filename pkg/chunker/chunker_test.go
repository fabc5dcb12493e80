package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newsrag/veritas/pkg/chunker"
)

func TestSplitShortText(t *testing.T) {
	c := chunker.New()

	chunks := c.Split("A short sentence. Another one.")

	assert.Len(t, chunks, 1)
	assert.Equal(t, "A short sentence. Another one.", chunks[0])
}

func TestSplitRespectsChunkChars(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkChars: 60})

	text := "The first sentence is here. The second sentence follows it. The third sentence closes the text."
	chunks := c.Split(text)

	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		// Sentences are never split, so a single long sentence may exceed
		// the budget, but accumulated chunks must stay within it.
		sentences := strings.Count(chunk, ".")
		if sentences > 1 {
			assert.LessOrEqual(t, len(chunk), 60+sentences)
		}
	}
}

func TestSplitKeepsSentencesIntact(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkChars: 40})

	chunks := c.Split("One two three four five six. Seven eight nine ten eleven twelve.")

	assert.Len(t, chunks, 2)
	assert.Equal(t, "One two three four five six.", chunks[0])
	assert.Equal(t, "Seven eight nine ten eleven twelve.", chunks[1])
}

func TestSplitDropsEmptySentences(t *testing.T) {
	c := chunker.New()

	chunks := c.Split("   \n\n  ")

	assert.Empty(t, chunks)
}

func TestSplitEmptyText(t *testing.T) {
	c := chunker.New()

	assert.Empty(t, c.Split(""))
}
