// Package knowledge stores and searches support-article content.
//
// Documents are chunked support pages with metadata (title, url, product,
// content_type). Content is embedded via the configured Genkit embedder and
// persisted in PostgreSQL with pgvector; search is cosine-similarity with an
// optional metadata filter. Store implements the retrieval.Retriever
// contract consumed by the response pipeline.
package knowledge
