package indexer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newsrag/veritas/internal/models"
	"github.com/newsrag/veritas/internal/types"
)

type IndexerConfig struct {
	// Workers bounds how many articles are loaded and embedded at once.
	Workers int
	// OnProgress is called once per URL with its final status.
	OnProgress func(url string, status Status)
}

// Status reports what happened to a URL during an indexing run.
type Status string

const (
	StatusIndexed        Status = "indexed"
	StatusAlreadyIndexed Status = "already_indexed"
	StatusSkipped        Status = "skipped"
	StatusFailed         Status = "failed"
)

// Indexer runs the feed-to-store pipeline: list feed entries, load each
// article, split it into chunks and save every chunk with its embedding.
type Indexer struct {
	config  IndexerConfig
	feeds   types.FeedReader
	loader  types.Loader
	chunker types.Chunker
	store   types.Store
	logger  *zap.Logger
}

func NewWithConfig(config IndexerConfig, feeds types.FeedReader, loader types.Loader, chunker types.Chunker, store types.Store, logger *zap.Logger) (*Indexer, error) {
	if config.Workers == 0 {
		config.Workers = 4
	}
	if feeds == nil || loader == nil || chunker == nil || store == nil {
		return nil, fmt.Errorf("feeds, loader, chunker and store are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Indexer{
		config:  config,
		feeds:   feeds,
		loader:  loader,
		chunker: chunker,
		store:   store,
		logger:  logger,
	}, nil
}

// Summary is the outcome of an indexing run.
type Summary struct {
	Indexed        int
	AlreadyIndexed int
	Skipped        int
	Failed         int
}

// IndexFeeds lists every entry of every feed and indexes the ones not yet in
// the store. Per-URL failures are logged and counted, not fatal.
func (ix *Indexer) IndexFeeds(ctx context.Context, feedURLs []string) (*Summary, error) {
	var urls []string
	seen := make(map[string]bool)

	for _, feedURL := range feedURLs {
		entries, err := ix.feeds.Entries(ctx, feedURL)
		if err != nil {
			return nil, fmt.Errorf("failed to read feed %s: %w", feedURL, err)
		}
		ix.logger.Info("feed listed",
			zap.String("feed", feedURL),
			zap.Int("entries", len(entries)))

		for _, entry := range entries {
			if !seen[entry.URL] {
				seen[entry.URL] = true
				urls = append(urls, entry.URL)
			}
		}
	}

	summary := &Summary{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.config.Workers)

	results := make([]Status, len(urls))
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			status := ix.indexURL(ctx, u)
			results[i] = status
			if ix.config.OnProgress != nil {
				ix.config.OnProgress(u, status)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, status := range results {
		switch status {
		case StatusIndexed:
			summary.Indexed++
		case StatusAlreadyIndexed:
			summary.AlreadyIndexed++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
	}

	return summary, nil
}

// IndexURL indexes a single article URL, skipping it when already stored.
func (ix *Indexer) IndexURL(ctx context.Context, url string) (Status, error) {
	status := ix.indexURL(ctx, url)
	if status == StatusFailed {
		return status, fmt.Errorf("failed to index %s", url)
	}
	return status, nil
}

func (ix *Indexer) indexURL(ctx context.Context, url string) Status {
	existing, err := ix.store.Get(ctx, map[string]string{"url": url})
	if err != nil {
		ix.logger.Error("already-indexed check failed", zap.String("url", url), zap.Error(err))
		return StatusFailed
	}
	if len(existing) > 0 {
		ix.logger.Debug("already indexed", zap.String("url", url))
		return StatusAlreadyIndexed
	}

	articles, err := ix.loader.Load(ctx, url)
	if err != nil {
		ix.logger.Warn("load failed", zap.String("url", url), zap.Error(err))
		return StatusFailed
	}
	if len(articles) == 0 {
		ix.logger.Debug("no extractable content", zap.String("url", url))
		return StatusSkipped
	}

	for _, article := range articles {
		if err := ix.indexArticle(ctx, article); err != nil {
			ix.logger.Warn("index failed", zap.String("url", url), zap.Error(err))
			return StatusFailed
		}
	}

	ix.logger.Info("indexed", zap.String("url", url))
	return StatusIndexed
}

func (ix *Indexer) indexArticle(ctx context.Context, article models.Article) error {
	for i, text := range ix.chunker.Split(article.Content) {
		chunk := models.Chunk{
			ID:      uuid.NewString(),
			Content: text,
			Index:   i,
			Metadata: map[string]interface{}{},
		}
		chunk.Metadata["id"] = chunk.ID
		chunk.Metadata["chunk_index"] = chunk.Index
		for k, v := range article.Metadata {
			chunk.Metadata[k] = v
		}

		if err := ix.store.SaveText(ctx, chunk.Content, chunk.Metadata); err != nil {
			return fmt.Errorf("failed to save chunk %d: %w", chunk.Index, err)
		}
	}

	return nil
}
