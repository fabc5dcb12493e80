package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/newsrag/veritas/internal/models"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	SystemTemplate string
	APIKey         string
	BaseURL        string
}

// ChatEngine is an engine that uses an LLM to generate chat responses.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config, err := validateConfig(config)
	if err != nil {
		return nil, err
	}

	opts := []openai.Option{
		openai.WithModel(config.Model),
	}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// NewWithModel creates a ChatEngine backed by an already constructed model.
func NewWithModel(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}

	config, err := validateConfig(config)
	if err != nil {
		return nil, err
	}

	return &ChatEngine{
		config: config,
		llm:    model,
	}, nil
}

func validateConfig(config ChatConfig) (ChatConfig, error) {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Temperature <= 0 || config.Temperature > 2 {
		return config, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a helpful assistant with access to retrieved news sources. Answer questions based on this context."
	}
	return config, nil
}

// Generate runs one completion over the full message history. Call options
// for temperature and max tokens are applied from the engine config; extra
// options (tools, streaming) are appended.
func (ce *ChatEngine) Generate(ctx context.Context, messages []llms.MessageContent, extra ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := []llms.CallOption{
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	}
	opts = append(opts, extra...)

	response, err := ce.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("chat error: %w", err)
	}
	return response, nil
}

// Chat generates a response based on the query and retrieved sources.
func (ce *ChatEngine) Chat(ctx context.Context, query string, results []models.SearchResult) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(llms.ChatMessageTypeHuman, formatContext(results)),
		llms.TextParts(llms.ChatMessageTypeHuman, query),
	}

	response, err := ce.Generate(ctx, content)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return response.Choices[0].Content, nil
}

// ChatStream is like Chat but delivers the answer incrementally through fn.
func (ce *ChatEngine) ChatStream(ctx context.Context, query string, results []models.SearchResult, fn func(chunk string)) error {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(llms.ChatMessageTypeHuman, formatContext(results)),
		llms.TextParts(llms.ChatMessageTypeHuman, query),
	}

	_, err := ce.Generate(ctx, content, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		fn(string(chunk))
		return nil
	}))
	return err
}

func formatContext(results []models.SearchResult) string {
	var contextBuilder strings.Builder
	for _, res := range results {
		contextBuilder.WriteString(fmt.Sprintf("Source: %s\n%s\n\n", res.URL(), res.Content))
	}
	return contextBuilder.String()
}

// FormatSources formats the distinct source URLs for citation.
func FormatSources(results []models.SearchResult) []string {
	var sources []string
	seen := make(map[string]bool)

	for _, res := range results {
		u := res.URL()
		if u != "" && !seen[u] {
			sources = append(sources, u)
			seen[u] = true
		}
	}

	return sources
}
