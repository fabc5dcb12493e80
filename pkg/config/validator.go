package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: "OpenAI API key is required",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 16384 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 16384",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.BaseURL != "" {
		if _, err := url.Parse(c.LLM.BaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "invalid base URL",
			})
		}
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate Feeds config
	for _, feed := range c.Feeds.URLs {
		u, err := url.Parse(feed)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "feeds.urls",
				Message: fmt.Sprintf("invalid feed URL: %s", feed),
			})
		}
	}

	if c.Feeds.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "feeds.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate Loader config
	if c.Loader.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "loader.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate Chunker config
	if c.Chunker.ChunkChars < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunker.chunk_chars",
			Message: "chunk_chars must be positive",
		})
	}

	// Validate Verifier config
	if c.Verifier.SearchLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "verifier.search_limit",
			Message: "search_limit must be positive",
		})
	}

	if c.Verifier.MaxDistance <= 0 || c.Verifier.MaxDistance > 2 {
		errors = append(errors, ValidationError{
			Field:   "verifier.max_distance",
			Message: "max_distance must be between 0 and 2",
		})
	}

	if c.Verifier.MaxRounds < 1 {
		errors = append(errors, ValidationError{
			Field:   "verifier.max_rounds",
			Message: "max_rounds must be positive",
		})
	}

	return errors
}
