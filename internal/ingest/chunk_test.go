package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, Chunk(""))
		assert.Nil(t, Chunk("   \n  "))
	})

	t.Run("short text is a single chunk", func(t *testing.T) {
		t.Parallel()
		chunks := Chunk("short support article")
		require.Len(t, chunks, 1)
		assert.Equal(t, "short support article", chunks[0])
	})

	t.Run("long text splits with bounded chunks", func(t *testing.T) {
		t.Parallel()

		sentence := "The quick brown fox jumps over the lazy dog. "
		text := strings.Repeat(sentence, 100) // ~4500 chars

		chunks := Chunk(text)

		require.Greater(t, len(chunks), 1)
		for i, chunk := range chunks {
			assert.LessOrEqual(t, len([]rune(chunk)), ChunkSize, "chunk %d too long", i)
			assert.NotEmpty(t, chunk)
		}
	})

	t.Run("consecutive chunks overlap", func(t *testing.T) {
		t.Parallel()

		sentence := "Restart the device and check the battery level before contacting support. "
		chunks := Chunk(strings.Repeat(sentence, 60))
		require.Greater(t, len(chunks), 1)

		// The tail of chunk 0 reappears at the head of chunk 1.
		tail := chunks[0][len(chunks[0])-50:]
		assert.Contains(t, chunks[1], strings.TrimSpace(tail[:20]))
	})

	t.Run("prefers sentence boundaries", func(t *testing.T) {
		t.Parallel()

		sentence := "This is a complete sentence about troubleshooting. "
		chunks := Chunk(strings.Repeat(sentence, 50))
		require.Greater(t, len(chunks), 1)
		assert.True(t, strings.HasSuffix(chunks[0], "."), "chunk should end at a sentence boundary, got %q", chunks[0][len(chunks[0])-20:])
	})
}

func TestDocuments(t *testing.T) {
	t.Parallel()

	t.Run("thin content contributes only faqs", func(t *testing.T) {
		t.Parallel()

		page := Page{
			URL:     "https://support.example.com/thin",
			Title:   "Thin page",
			Content: "too short",
			FAQs:    []FAQ{{Question: "How do I reset?", Answer: "Hold the button."}},
		}

		docs := Documents(page)

		require.Len(t, docs, 1)
		assert.Equal(t, "https://support.example.com/thin#faq-0", docs[0].ID)
		assert.Equal(t, "faq", docs[0].Metadata["content_type"])
		assert.Contains(t, docs[0].Content, "Question: How do I reset?")
		assert.Contains(t, docs[0].Content, "Answer: Hold the button.")
	})

	t.Run("substantial content is chunked with metadata", func(t *testing.T) {
		t.Parallel()

		page := Page{
			URL:     "https://support.example.com/battery",
			Title:   "Battery guide",
			Product: "laptop",
			Content: strings.Repeat("Charge the battery fully before first use. ", 60),
		}

		docs := Documents(page)

		require.Greater(t, len(docs), 1)
		seen := make(map[string]struct{})
		for _, doc := range docs {
			_, dup := seen[doc.ID]
			assert.False(t, dup, "duplicate id %s", doc.ID)
			seen[doc.ID] = struct{}{}

			assert.Equal(t, "Battery guide", doc.Metadata["title"])
			assert.Equal(t, "laptop", doc.Metadata["product"])
			assert.Equal(t, "main_content", doc.Metadata["content_type"])
		}
		assert.Equal(t, "0", docs[0].Metadata["chunk_id"])
	})

	t.Run("empty page produces nothing", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, Documents(Page{URL: "https://e.com"}))
	})
}
