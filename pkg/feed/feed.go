package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/newsrag/veritas/internal/types"
)

type ReaderConfig struct {
	RateLimit float64 // feed fetches per second
	Timeout   time.Duration
	UserAgent string
}

// Reader lists article URLs from RSS and Atom feeds.
type Reader struct {
	config  ReaderConfig
	parser  *gofeed.Parser
	limiter *rate.Limiter
}

func NewWithConfig(config ReaderConfig) *Reader {
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "veritas/1.0"
	}

	parser := gofeed.NewParser()
	parser.UserAgent = config.UserAgent

	return &Reader{
		config:  config,
		parser:  parser,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func New() *Reader {
	return NewWithConfig(ReaderConfig{})
}

// Entries fetches the feed and returns one entry per item that carries a link.
func (r *Reader) Entries(ctx context.Context, feedURL string) ([]types.Entry, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	entries := make([]types.Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}

		entry := types.Entry{
			URL:   item.Link,
			Title: item.Title,
		}
		if item.PublishedParsed != nil {
			entry.Published = *item.PublishedParsed
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
