package loader_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsrag/veritas/pkg/loader"
)

func articlePage() string {
	paragraph := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	return `<html>
		<head>
			<title>Fox News Story</title>
			<meta property="og:site_name" content="Example Gazette"/>
		</head>
		<body>
			<nav>Home | World | Politics</nav>
			<article>
				<h1>Foxes observed jumping</h1>
				<p>` + paragraph + `</p>
				<p>` + paragraph + `</p>
			</article>
			<footer>Copyright</footer>
		</body>
	</html>`
}

func TestLoad(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articlePage()))
	}))
	defer server.Close()

	l := loader.New()

	articles, err := l.Load(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, articles, 1)

	article := articles[0]
	assert.Equal(t, server.URL, article.URL)
	assert.Contains(t, article.Content, "quick brown fox")
	assert.NotContains(t, article.Content, "Home | World")
	assert.Equal(t, "Example Gazette", article.SiteName)
	assert.False(t, article.FetchedAt.IsZero())

	assert.Equal(t, server.URL, article.Metadata["url"])
	assert.Equal(t, "Example Gazette", article.Metadata["site_name"])
	assert.NotEmpty(t, article.Metadata["retrieved_at"])
}

func TestLoadThinPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><p>too short</p></body></html>"))
	}))
	defer server.Close()

	l := loader.NewWithConfig(loader.LoaderConfig{MinContentLength: 200})

	articles, err := l.Load(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestLoadNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	l := loader.New()

	_, err := l.Load(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestLoadProgressCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articlePage()))
	}))
	defer server.Close()

	var seen []string
	l := loader.NewWithConfig(loader.LoaderConfig{
		OnProgress: func(url string) {
			seen = append(seen, url)
		},
	})

	_, err := l.Load(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL}, seen)
}

func TestLoadInvalidURL(t *testing.T) {
	l := loader.New()

	_, err := l.Load(context.Background(), "://bad")
	assert.Error(t, err)
}
