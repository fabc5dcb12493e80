package llm_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/newsrag/veritas/internal/models"
	"github.com/newsrag/veritas/pkg/llm"
)

// echoModel answers with the concatenated prompt so tests can see what the
// engine sent.
type echoModel struct{}

func (echoModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var sb strings.Builder
	for _, m := range messages {
		for _, part := range m.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				sb.WriteString(tc.Text)
			}
		}
	}

	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.StreamingFunc != nil {
		if err := opts.StreamingFunc(ctx, []byte(sb.String())); err != nil {
			return nil, err
		}
	}

	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: sb.String()}}}, nil
}

func (echoModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func TestNewWithConfig(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{
		Temperature: 0.7,
		APIKey:      "test-key",
	})
	require.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewWithConfigBadTemperature(t *testing.T) {
	tests := []struct {
		name        string
		temperature float64
	}{
		{"zero", 0},
		{"negative", -0.5},
		{"too high", 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := llm.NewWithConfig(llm.ChatConfig{
				Temperature: tt.temperature,
				APIKey:      "test-key",
			})
			assert.Error(t, err)
		})
	}
}

func TestNewWithConfigNegativeMaxTokens(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{
		Temperature: 0.7,
		MaxTokens:   -1,
		APIKey:      "test-key",
	})
	assert.Error(t, err)
}

func TestNewWithModelRequiresModel(t *testing.T) {
	_, err := llm.NewWithModel(llm.ChatConfig{Temperature: 0.7}, nil)
	assert.Error(t, err)
}

func TestChatIncludesSources(t *testing.T) {
	engine, err := llm.NewWithModel(llm.ChatConfig{Temperature: 0.7}, echoModel{})
	require.NoError(t, err)

	results := []models.SearchResult{
		{ID: "1", Content: "the sky is blue", Metadata: map[string]interface{}{"url": "https://example.com/sky"}},
	}

	answer, err := engine.Chat(context.Background(), "what color is the sky?", results)
	require.NoError(t, err)

	assert.Contains(t, answer, "https://example.com/sky")
	assert.Contains(t, answer, "the sky is blue")
	assert.Contains(t, answer, "what color is the sky?")
}

func TestChatStream(t *testing.T) {
	engine, err := llm.NewWithModel(llm.ChatConfig{Temperature: 0.7}, echoModel{})
	require.NoError(t, err)

	var streamed strings.Builder
	err = engine.ChatStream(context.Background(), "question", nil, func(chunk string) {
		streamed.WriteString(chunk)
	})
	require.NoError(t, err)

	assert.Contains(t, streamed.String(), "question")
}

func TestFormatSources(t *testing.T) {
	results := []models.SearchResult{
		{ID: "1", Content: "a", Metadata: map[string]interface{}{"url": "https://example.com/a"}},
		{ID: "2", Content: "b", Metadata: map[string]interface{}{"url": "https://example.com/b"}},
		{ID: "3", Content: "c", Metadata: map[string]interface{}{"url": "https://example.com/a"}},
		{ID: "4", Content: "d", Metadata: map[string]interface{}{}},
	}

	sources := llm.FormatSources(results)

	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, sources)
}
