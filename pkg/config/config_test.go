package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  api_key: "test-key"
  model: "gpt-4o"
  embedding_model: "text-embedding-3-small"
  max_tokens: 1000
  temperature: 0.5

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_rag"
  vector_dim: 768

feeds:
  urls:
    - "https://feeds.nbcnews.com/nbcnews/public/news"
  rate_limit: 0.5

loader:
  rate_limit: 1.5
  min_content_length: 100

chunker:
  chunk_chars: 800

verifier:
  search_limit: 10
  max_distance: 0.6
  max_rounds: 5

server:
  addr: ":9090"
  streaming: true
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", config.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", config.LLM.EmbeddingModel)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "test_rag", config.Database.TableName)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Len(t, config.Feeds.URLs, 1)
	assert.Equal(t, 800, config.Chunker.ChunkChars)
	assert.Equal(t, 10, config.Verifier.SearchLimit)
	assert.Equal(t, float32(0.6), config.Verifier.MaxDistance)
	assert.Equal(t, ":9090", config.Server.Addr)
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("llm:\n  api_key: k\n"), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", config.LLM.Model)
	assert.Equal(t, "text-embedding-ada-002", config.LLM.EmbeddingModel)
	assert.Equal(t, "rag_data", config.Database.TableName)
	assert.Equal(t, 1536, config.Database.VectorDim)
	assert.Equal(t, 1500, config.Chunker.ChunkChars)
	assert.Equal(t, 5, config.Verifier.SearchLimit)
	assert.Equal(t, float32(0.8), config.Verifier.MaxDistance)
	assert.Equal(t, 60, config.Verifier.RRFConstant)
	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, 4, config.Indexer.Workers)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		c := Config{}
		applyDefaults(&c)
		c.LLM.APIKey = "test-key"
		return c
	}

	tests := []struct {
		name         string
		mutate       func(*Config)
		expectedErrs int
		contains     string
	}{
		{
			name:         "valid config",
			mutate:       func(c *Config) {},
			expectedErrs: 0,
		},
		{
			name: "missing api key",
			mutate: func(c *Config) {
				c.LLM.APIKey = ""
			},
			expectedErrs: 1,
			contains:     "llm.api_key",
		},
		{
			name: "bad temperature and max tokens",
			mutate: func(c *Config) {
				c.LLM.Temperature = 3.0
				c.LLM.MaxTokens = 50000
			},
			expectedErrs: 2,
			contains:     "llm.max_tokens",
		},
		{
			name: "bad feed url",
			mutate: func(c *Config) {
				c.Feeds.URLs = []string{"not a url"}
			},
			expectedErrs: 1,
			contains:     "feeds.urls",
		},
		{
			name: "bad chunk chars",
			mutate: func(c *Config) {
				c.Chunker.ChunkChars = -1
			},
			expectedErrs: 1,
			contains:     "chunker.chunk_chars",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)

			errors := config.Validate()
			assert.Len(t, errors, tt.expectedErrs)

			if tt.contains != "" {
				found := false
				for _, e := range errors {
					if e.Field == tt.contains {
						found = true
					}
				}
				assert.True(t, found, "expected error on field %s", tt.contains)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_BASE_URL", "http://env-openai:8000/v1")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, config)

	config, err = getDefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, "env-key", config.LLM.APIKey)
	assert.Equal(t, "http://env-openai:8000/v1", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
}
