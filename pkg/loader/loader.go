package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"

	"github.com/newsrag/veritas/internal/models"
)

type LoaderConfig struct {
	RateLimit        float64 // requests per second
	Timeout          time.Duration
	MinContentLength int
	UserAgent        string
	OnProgress       func(url string)
}

// Loader fetches a page and extracts its readable article content.
type Loader struct {
	config  LoaderConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config LoaderConfig) *Loader {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.MinContentLength == 0 {
		config.MinContentLength = 200
	}
	if config.UserAgent == "" {
		config.UserAgent = "veritas/1.0"
	}

	return &Loader{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func New() *Loader {
	return NewWithConfig(LoaderConfig{})
}

// Load fetches the URL and returns the extracted article. Pages whose main
// content cannot be extracted, or is shorter than MinContentLength, yield an
// empty slice rather than an error.
func (l *Loader) Load(ctx context.Context, urlStr string) ([]models.Article, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", urlStr, err)
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if l.config.OnProgress != nil {
		l.config.OnProgress(urlStr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", l.config.UserAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	title, siteName, content := l.extract(body, parsedURL)
	if len(content) < l.config.MinContentLength {
		return nil, nil
	}

	article := models.Article{
		URL:       urlStr,
		Title:     title,
		Content:   content,
		SiteName:  siteName,
		FetchedAt: time.Now(),
		Metadata: map[string]interface{}{
			"url":          urlStr,
			"title":        title,
			"retrieved_at": time.Now().Format(time.RFC3339),
			"content_type": resp.Header.Get("Content-Type"),
		},
	}
	if siteName != "" {
		article.Metadata["site_name"] = siteName
	}

	return []models.Article{article}, nil
}

// extract runs readability first and falls back to a selector walk when the
// page defeats it.
func (l *Loader) extract(body []byte, pageURL *url.URL) (title, siteName, content string) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.Title, article.SiteName, cleanContent(article.TextContent)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", ""
	}

	siteName, _ = doc.Find(`meta[property="og:site_name"]`).Attr("content")
	return doc.Find("title").Text(), siteName, extractMainContent(doc)
}

func extractMainContent(doc *goquery.Document) string {
	// Try to find main content area
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".article-body",
		"#article-body",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	// Fallback to body if no main content found
	if content == "" {
		content = doc.Find("body").Text()
	}

	return cleanContent(content)
}

func cleanContent(content string) string {
	// Remove extra whitespace
	content = strings.Join(strings.Fields(content), " ")

	// Remove common noise
	noisePatterns := []string{
		"Cookie Policy",
		"Accept Cookies",
		"Privacy Policy",
		"Terms of Service",
	}

	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.TrimSpace(content)
}
