package types

import (
	"context"
	"time"

	"github.com/newsrag/veritas/internal/models"
)

// Core interfaces
type Loader interface {
	Load(ctx context.Context, url string) ([]models.Article, error)
}

type FeedReader interface {
	Entries(ctx context.Context, feedURL string) ([]Entry, error)
}

// Entry is one item of an RSS or Atom feed.
type Entry struct {
	URL       string
	Title     string
	Published time.Time
}

type Chunker interface {
	Split(text string) []string
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type Store interface {
	SaveText(ctx context.Context, text string, metadata map[string]interface{}) error
	Query(ctx context.Context, text string) ([]models.SearchResult, error)
	Get(ctx context.Context, attributes map[string]string) ([]models.SearchResult, error)
	Reset(ctx context.Context) error
	Close()
}
