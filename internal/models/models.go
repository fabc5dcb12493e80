package models

import "time"

// Article is a single piece of content pulled from a news site.
type Article struct {
	URL       string
	Title     string
	Content   string
	SiteName  string
	FetchedAt time.Time
	Metadata  map[string]interface{}
}

// Chunk is one indexable slice of an article.
type Chunk struct {
	ID       string
	Content  string
	Index    int
	Metadata map[string]interface{}
}

// SearchResult is a chunk returned from the RAG store.
type SearchResult struct {
	ID       string
	Content  string
	Distance float32
	Metadata map[string]interface{}
}

// URL returns the source url stored in the result metadata, if any.
func (r SearchResult) URL() string {
	if u, ok := r.Metadata["url"].(string); ok {
		return u
	}
	return ""
}

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Verdict is the outcome of verifying an affirmation.
type Verdict struct {
	Answer    string   `json:"answer"`
	Truthness int      `json:"truthness"`
	Sources   []string `json:"sources,omitempty"`
	Rounds    int      `json:"rounds"`
}
