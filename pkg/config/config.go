package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"api_key"`
		Model          string  `yaml:"model"`
		EmbeddingModel string  `yaml:"embedding_model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	Feeds struct {
		URLs      []string `yaml:"urls"`
		RateLimit float64  `yaml:"rate_limit"`
		TimeoutS  int      `yaml:"timeout_seconds"`
	} `yaml:"feeds"`

	Loader struct {
		RateLimit        float64 `yaml:"rate_limit"`
		TimeoutS         int     `yaml:"timeout_seconds"`
		MinContentLength int     `yaml:"min_content_length"`
	} `yaml:"loader"`

	Chunker struct {
		ChunkChars int `yaml:"chunk_chars"`
	} `yaml:"chunker"`

	Verifier struct {
		SearchLimit int     `yaml:"search_limit"`
		MaxDistance float32 `yaml:"max_distance"`
		MaxRounds   int     `yaml:"max_rounds"`
		RRFConstant int     `yaml:"rrf_constant"`
	} `yaml:"verifier"`

	Server struct {
		Addr      string `yaml:"addr"`
		Streaming bool   `yaml:"streaming"`
	} `yaml:"server"`

	Indexer struct {
		Workers int `yaml:"workers"`
	} `yaml:"indexer"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/veritas/config.yaml"),
			"/etc/veritas/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-4o-mini"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "text-embedding-ada-002"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.8
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "rag_data"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}

	if config.Feeds.RateLimit == 0 {
		config.Feeds.RateLimit = 1.0
	}
	if config.Feeds.TimeoutS == 0 {
		config.Feeds.TimeoutS = 30
	}

	if config.Loader.RateLimit == 0 {
		config.Loader.RateLimit = 2.0
	}
	if config.Loader.TimeoutS == 0 {
		config.Loader.TimeoutS = 30
	}
	if config.Loader.MinContentLength == 0 {
		config.Loader.MinContentLength = 200
	}

	if config.Chunker.ChunkChars == 0 {
		config.Chunker.ChunkChars = 1500
	}

	if config.Verifier.SearchLimit == 0 {
		config.Verifier.SearchLimit = 5
	}
	if config.Verifier.MaxDistance == 0 {
		config.Verifier.MaxDistance = 0.8
	}
	if config.Verifier.MaxRounds == 0 {
		config.Verifier.MaxRounds = 10
	}
	if config.Verifier.RRFConstant == 0 {
		config.Verifier.RRFConstant = 60
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}

	if config.Indexer.Workers == 0 {
		config.Indexer.Workers = 4
	}
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
