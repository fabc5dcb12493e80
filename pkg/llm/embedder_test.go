package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsrag/veritas/pkg/llm"
)

func TestNewEmbedderWithConfig(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		APIKey: "test-key",
	})
	require.NoError(t, err)
	assert.NotNil(t, emb)
}

func TestFlattenEmbeddings(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{APIKey: "test-key"})
	require.NoError(t, err)

	flattened := emb.FlattenEmbeddings([][]float32{
		{0.1, 0.2},
		{0.3},
	})

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, flattened)
}

func TestFlattenEmbeddingsEmpty(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{APIKey: "test-key"})
	require.NoError(t, err)

	assert.Nil(t, emb.FlattenEmbeddings(nil))
}
