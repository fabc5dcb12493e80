package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/newsrag/veritas/internal/models"
	"github.com/newsrag/veritas/pkg/chunker"
	cfgPkg "github.com/newsrag/veritas/pkg/config"
	"github.com/newsrag/veritas/pkg/feed"
	"github.com/newsrag/veritas/pkg/indexer"
	"github.com/newsrag/veritas/pkg/llm"
	"github.com/newsrag/veritas/pkg/loader"
	"github.com/newsrag/veritas/pkg/store"
	"github.com/newsrag/veritas/pkg/verifier"
	"github.com/newsrag/veritas/server"
)

type Flags struct {
	ConfigPath string
	Index      bool
	Serve      bool
	Reset      bool
	URL        string
	Feeds      string
	Addr       string
	DBUrl      string
	Model      string
}

func main() {
	flags := parseFlags()

	if err := run(flags); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.BoolVar(&flags.Index, "index", false, "Index the configured RSS feeds and exit")
	flag.BoolVar(&flags.Serve, "serve", false, "Start the HTTP/WebSocket server")
	flag.BoolVar(&flags.Reset, "reset", false, "Drop and recreate the RAG store before anything else")
	flag.StringVar(&flags.URL, "url", "", "Index a single article URL and exit")
	flag.StringVar(&flags.Feeds, "feeds", "", "Comma-separated feed URLs (overrides config)")
	flag.StringVar(&flags.Addr, "addr", "", "Server listen address")
	flag.StringVar(&flags.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&flags.Model, "model", "", "LLM model to use")
	flag.Parse()

	return flags
}

func run(flags Flags) error {
	cfg, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Command line flags win over the config file
	if flags.DBUrl != "" {
		cfg.Database.URL = flags.DBUrl
	}
	if flags.Model != "" {
		cfg.LLM.Model = flags.Model
	}
	if flags.Addr != "" {
		cfg.Server.Addr = flags.Addr
	}
	if flags.Feeds != "" {
		cfg.Feeds.URLs = strings.Split(flags.Feeds, ",")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbeddingModel,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString:  cfg.Database.URL,
		TableName:   cfg.Database.TableName,
		VectorDim:   cfg.Database.VectorDim,
		SearchLimit: cfg.Verifier.SearchLimit,
		MaxDistance: cfg.Verifier.MaxDistance,
		RRFConstant: cfg.Verifier.RRFConstant,
	}, embedder)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	ctx := context.Background()

	if flags.Reset {
		if err := vectorStore.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset store: %v", err)
		}
		color.Yellow("✓ Store reset")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	chunk := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkChars: cfg.Chunker.ChunkChars,
	})

	articleLoader := loader.NewWithConfig(loader.LoaderConfig{
		RateLimit:        cfg.Loader.RateLimit,
		Timeout:          time.Duration(cfg.Loader.TimeoutS) * time.Second,
		MinContentLength: cfg.Loader.MinContentLength,
	})

	feedReader := feed.NewWithConfig(feed.ReaderConfig{
		RateLimit: cfg.Feeds.RateLimit,
		Timeout:   time.Duration(cfg.Feeds.TimeoutS) * time.Second,
	})

	var indexedCount int32
	ix, err := indexer.NewWithConfig(indexer.IndexerConfig{
		Workers: cfg.Indexer.Workers,
		OnProgress: func(url string, status indexer.Status) {
			atomic.AddInt32(&indexedCount, 1)
		},
	}, feedReader, articleLoader, &chunk, vectorStore, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize indexer: %v", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	reviewer, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize reviewer: %v", err)
	}

	vf, err := verifier.NewWithConfig(verifier.VerifierConfig{
		MaxRounds:   cfg.Verifier.MaxRounds,
		RRFConstant: cfg.Verifier.RRFConstant,
	}, chatEngine, reviewer, vectorStore, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize verifier: %v", err)
	}

	switch {
	case flags.URL != "":
		return indexOne(ctx, ix, flags.URL)
	case flags.Index:
		return indexFeeds(ctx, ix, cfg.Feeds.URLs, &indexedCount)
	case flags.Serve:
		return serve(cfg, vf, ix, chatEngine, vectorStore, logger)
	default:
		return chatLoop(ctx, vf)
	}
}

func indexOne(ctx context.Context, ix *indexer.Indexer, url string) error {
	spinner := getSpinner(color.CyanString("Indexing %s...", url))
	status, err := ix.IndexURL(ctx, url)
	spinner.Finish()
	if err != nil {
		return err
	}
	color.Green("\n✓ %s: %s\n", url, status)
	return nil
}

func indexFeeds(ctx context.Context, ix *indexer.Indexer, feeds []string, count *int32) error {
	if len(feeds) == 0 {
		return fmt.Errorf("no feeds configured")
	}

	color.Blue("\nIndexing %d feeds\n", len(feeds))
	bar := getProgressBar(-1, "Indexing articles...")

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				bar.Set(int(atomic.LoadInt32(count)))
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()

	summary, err := ix.IndexFeeds(ctx, feeds)
	close(done)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("failed to index feeds: %v", err)
	}

	color.Green("\n✓ Indexed %d articles (%d already indexed, %d skipped, %d failed)\n",
		summary.Indexed, summary.AlreadyIndexed, summary.Skipped, summary.Failed)
	return nil
}

func serve(cfg *cfgPkg.Config, vf *verifier.Verifier, ix *indexer.Indexer, chat *llm.ChatEngine, vectorStore *store.VectorStore, logger *zap.Logger) error {
	srv := server.NewServer(server.Config{
		Addr:      cfg.Server.Addr,
		FeedURLs:  cfg.Feeds.URLs,
		Streaming: cfg.Server.Streaming,
	}, vf, ix, chat, vectorStore, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	}
}

func chatLoop(ctx context.Context, vf *verifier.Verifier) error {
	color.Cyan("\nPaste a piece of news to verify it (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	var history []models.Message

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		affirmation := scanner.Text()
		if strings.ToLower(affirmation) == "exit" {
			break
		}
		if strings.TrimSpace(affirmation) == "" {
			continue
		}

		spinner := getSpinner(color.CyanString(" Verifying..."))
		verdict, err := vf.Verify(ctx, history, affirmation)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		assistantPrompt("\nAssistant: %s\n", verdict.Answer)
		if verdict.Truthness >= 0 {
			color.Yellow("TRUTHNESS: %d/10\n", verdict.Truthness)
		}

		history = append(history,
			models.Message{Role: "user", Content: affirmation},
			models.Message{Role: "assistant", Content: verdict.Answer},
		)
	}

	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
