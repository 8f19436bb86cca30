package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/koopa0/helpdesk/internal/retrieval"
)

// VectorDimension is the embedding width of the documents table.
// text-embedding-004 produces 768-dimensional vectors; the pgvector schema
// in db/migrations must match.
const VectorDimension = 768

// ErrEmptyContent indicates a document with no content was submitted.
var ErrEmptyContent = errors.New("document content is empty")

// Document is a chunk of support content to index.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Querier is the subset of pgxpool.Pool the store needs.
// Defined here, by the consumer, so tests can substitute a fake.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store manages documents with vector search.
// Safe for concurrent use.
type Store struct {
	db       Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store. logger may be nil.
func New(db Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, embedder: embedder, logger: logger}
}

// Add embeds and upserts a single document.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if doc.Content == "" {
		return ErrEmptyContent
	}

	vec, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %q: %w", doc.ID, err)
	}

	const query = `
		INSERT INTO documents (id, content, metadata, embedding, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
		    metadata = EXCLUDED.metadata,
		    embedding = EXCLUDED.embedding`

	if _, err := s.db.Exec(ctx, query, doc.ID, doc.Content, metadataJSON, pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("document indexed", "id", doc.ID, "content_len", len(doc.Content))
	return nil
}

// AddBatch indexes documents sequentially, returning the count indexed and
// the first error encountered.
func (s *Store) AddBatch(ctx context.Context, docs []Document) (int, error) {
	for i, doc := range docs {
		if err := s.Add(ctx, doc); err != nil {
			return i, fmt.Errorf("indexing document %d/%d: %w", i+1, len(docs), err)
		}
	}
	return len(docs), nil
}

// Search implements retrieval.Retriever: embed the query and return the k
// nearest documents by cosine similarity, optionally restricted by metadata
// equality. Hits come back in descending similarity order.
func (s *Store) Search(ctx context.Context, query string, k int, filter map[string]string) ([]retrieval.Hit, error) {
	if k <= 0 {
		k = 5
	}

	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var rows pgx.Rows
	if len(filter) > 0 {
		filterJSON, merr := json.Marshal(filter)
		if merr != nil {
			return nil, fmt.Errorf("marshaling filter: %w", merr)
		}
		const filtered = `
			SELECT content, metadata, 1 - (embedding <=> $1) AS similarity
			FROM documents
			WHERE metadata @> $2::jsonb
			ORDER BY embedding <=> $1
			LIMIT $3`
		rows, err = s.db.Query(ctx, filtered, pgvector.NewVector(vec), filterJSON, k)
	} else {
		const unfiltered = `
			SELECT content, metadata, 1 - (embedding <=> $1) AS similarity
			FROM documents
			ORDER BY embedding <=> $1
			LIMIT $2`
		rows, err = s.db.Query(ctx, unfiltered, pgvector.NewVector(vec), k)
	}
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var hits []retrieval.Hit
	for rows.Next() {
		var (
			content      string
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}

		metadata := make(map[string]string)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}

		hits = append(hits, retrieval.Hit{
			Content:  content,
			Metadata: metadata,
			Score:    similarity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}

	return hits, nil
}

// Count returns the number of indexed documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	rows, err := s.db.Query(ctx, `SELECT count(*) FROM documents`)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("scanning count: %w", err)
		}
	}
	return n, rows.Err()
}

// embed generates an embedding for text.
func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("embedder returned no embedding")
	}
	return resp.Embeddings[0].Embedding, nil
}
