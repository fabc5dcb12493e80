package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/newsrag/veritas/internal/models"
	"github.com/newsrag/veritas/internal/types"
)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	SearchLimit int
	MaxDistance float32
	RRFConstant int
}

// VectorStore keeps chunk text, embeddings and metadata in Postgres with the
// pgvector extension. Queries are hybrid: cosine similarity and full-text
// rankings are fused with reciprocal-rank fusion.
type VectorStore struct {
	config   VectorStoreConfig
	pool     *pgxpool.Pool
	embedder types.Embedder
}

func NewWithConfig(config VectorStoreConfig, embedder types.Embedder) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "rag_data"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // Default for OpenAI embeddings
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}
	if config.MaxDistance == 0 {
		config.MaxDistance = 0.8
	}
	if config.RRFConstant == 0 {
		config.RRFConstant = 60
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &VectorStore{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}

	if err := vs.initialize(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			data TEXT,
			embedding vector(%d),
			metadata JSONB
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createVectorIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createVectorIndex)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %v", err)
	}

	createFTSIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_fts_idx
		ON %s
		USING gin (to_tsvector('english', data))`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createFTSIndex)
	if err != nil {
		return fmt.Errorf("failed to create full-text index: %v", err)
	}

	return nil
}

// SaveText embeds the text and upserts it with its metadata. The row id comes
// from metadata["id"] when present, otherwise a fresh UUID is generated.
func (vs *VectorStore) SaveText(ctx context.Context, text string, metadata map[string]interface{}) error {
	cleanText := sanitizeUTF8(text)

	embedding, err := vs.embedder.EmbedText(ctx, cleanText)
	if err != nil {
		return fmt.Errorf("failed to create embedding: %v", err)
	}

	id, ok := metadata["id"].(string)
	if !ok || id == "" {
		id = uuid.NewString()
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, data, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.config.TableName)

	_, err = vs.pool.Exec(ctx, stmt,
		id,
		cleanText,
		pgvector.NewVector(embedding),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert row: %v", err)
	}

	return nil
}

// Query runs a hybrid search for the text. Vector and full-text candidates
// are each fetched at twice the search limit, then fused with reciprocal-rank
// fusion before the final limit is applied.
func (vs *VectorStore) Query(ctx context.Context, text string) ([]models.SearchResult, error) {
	embedding, err := vs.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %v", err)
	}

	query := fmt.Sprintf(`
		WITH vector_search AS (
			SELECT id, data, metadata,
			       rank() OVER (ORDER BY embedding <=> $1) AS rank
			FROM %[1]s
			WHERE (embedding <=> $1) <= $2
			ORDER BY embedding <=> $1
			LIMIT $3
		),
		fulltext_search AS (
			SELECT id, data, metadata,
			       rank() OVER (ORDER BY ts_rank_cd(to_tsvector('english', data), query) DESC) AS rank
			FROM %[1]s, plainto_tsquery('english', $4) query
			WHERE query @@ to_tsvector('english', data)
			ORDER BY ts_rank_cd(to_tsvector('english', data), query) DESC
			LIMIT $3
		)
		SELECT
			COALESCE(vector_search.id, fulltext_search.id) AS id,
			COALESCE(vector_search.data, fulltext_search.data) AS data,
			COALESCE(vector_search.metadata, fulltext_search.metadata) AS metadata
		FROM vector_search
		FULL OUTER JOIN fulltext_search ON vector_search.id = fulltext_search.id
		ORDER BY COALESCE(1.0 / ($5 + vector_search.rank), 0.0)
		       + COALESCE(1.0 / ($5 + fulltext_search.rank), 0.0) DESC
		LIMIT $6`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query,
		pgvector.NewVector(embedding),
		vs.config.MaxDistance,
		vs.config.SearchLimit*2,
		text,
		vs.config.RRFConstant,
		vs.config.SearchLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %v", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// Get returns rows whose metadata matches every given attribute. Used to
// check whether a URL is already indexed.
func (vs *VectorStore) Get(ctx context.Context, attributes map[string]string) ([]models.SearchResult, error) {
	filter := "TRUE"
	args := []interface{}{}

	i := 1
	for key, value := range attributes {
		if i == 1 {
			filter = ""
		} else {
			filter += " AND "
		}
		filter += fmt.Sprintf("metadata->>'%s' = $%d", key, i)
		args = append(args, value)
		i++
	}

	query := fmt.Sprintf("SELECT id, data, metadata FROM %s WHERE %s LIMIT $%d",
		vs.config.TableName, filter, i)
	args = append(args, vs.config.SearchLimit)

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %v", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// Reset drops the table and recreates it empty.
func (vs *VectorStore) Reset(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", vs.config.TableName))
	if err != nil {
		return fmt.Errorf("failed to drop table: %v", err)
	}
	return vs.initialize(ctx)
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanResults(rows pgxRows) ([]models.SearchResult, error) {
	var results []models.SearchResult
	for rows.Next() {
		var res models.SearchResult
		err := rows.Scan(&res.ID, &res.Content, &res.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		if res.Metadata == nil {
			res.Metadata = map[string]interface{}{}
		}
		res.Metadata["id"] = res.ID
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
