// Package retrieval defines the search contract consumed by the response
// pipeline and the pure helpers that turn ranked search hits into a bounded
// prompt context, a deduplicated source list, and a confidence value.
package retrieval

import "context"

// Hit is a single knowledge-base search result.
// Hits are owned by the retriever; the pipeline copies what it needs.
type Hit struct {
	Content  string
	Metadata map[string]string
	// Score is the retrieval similarity in the provider's native range,
	// typically [0, 0.5] for cosine similarity over support content.
	Score float64
}

// Source is a deduplicated citation surfaced alongside an answer.
type Source struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Product     string  `json:"product"`
	ContentType string  `json:"content_type"`
	Score       float64 `json:"relevance_score"`
}

// Retriever is the semantic-search collaborator over the knowledge corpus.
// Implementations are expected to return hits in descending relevance order.
type Retriever interface {
	// Search returns up to k hits for query. filter restricts results by
	// metadata equality; nil means unfiltered.
	Search(ctx context.Context, query string, k int, filter map[string]string) ([]Hit, error)
}

// Metadata keys recognized by the pipeline.
const (
	MetaTitle       = "title"
	MetaURL         = "url"
	MetaProduct     = "product"
	MetaContentType = "content_type"
)
