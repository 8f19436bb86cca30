package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/koopa0/helpdesk/internal/knowledge"
	"github.com/koopa0/helpdesk/internal/retrieval"
)

const (
	// ChunkSize is the target chunk length in characters.
	ChunkSize = 1000

	// ChunkOverlap is how many characters consecutive chunks share, so
	// sentences spanning a boundary stay retrievable.
	ChunkOverlap = 200

	// minContentLength filters out pages with no substantial content.
	minContentLength = 100
)

// Chunk splits text into overlapping chunks of at most ChunkSize
// characters, preferring paragraph and sentence boundaries over hard cuts.
func Chunk(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= ChunkSize {
		return []string{string(runes)}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + ChunkSize
		if end >= len(runes) {
			if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
				chunks = append(chunks, tail)
			}
			break
		}

		cut := end
		window := string(runes[start:end])
		if i := strings.LastIndex(window, "\n\n"); i > ChunkSize/2 {
			cut = start + len([]rune(window[:i]))
		} else if i := strings.LastIndexAny(window, ".!?"); i > ChunkSize/2 {
			cut = start + len([]rune(window[:i+1]))
		}

		if chunk := strings.TrimSpace(string(runes[start:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = max(cut-ChunkOverlap, start+1)
	}
	return chunks
}

// Documents converts a scraped page into knowledge documents: chunked main
// content plus one document per FAQ pair. Pages with thin content still
// contribute their FAQs.
func Documents(page Page) []knowledge.Document {
	var docs []knowledge.Document

	if len(page.Content) > minContentLength {
		chunks := Chunk(page.Content)
		for i, chunk := range chunks {
			docs = append(docs, knowledge.Document{
				ID:      fmt.Sprintf("%s#chunk-%d", page.URL, i),
				Content: chunk,
				Metadata: map[string]string{
					retrieval.MetaTitle:       page.Title,
					retrieval.MetaURL:         page.URL,
					retrieval.MetaProduct:     page.Product,
					retrieval.MetaContentType: "main_content",
					"chunk_id":                strconv.Itoa(i),
					"total_chunks":            strconv.Itoa(len(chunks)),
				},
			})
		}
	}

	for i, faq := range page.FAQs {
		docs = append(docs, knowledge.Document{
			ID:      fmt.Sprintf("%s#faq-%d", page.URL, i),
			Content: fmt.Sprintf("Question: %s\nAnswer: %s", faq.Question, faq.Answer),
			Metadata: map[string]string{
				retrieval.MetaTitle:       page.Title,
				retrieval.MetaURL:         page.URL,
				retrieval.MetaProduct:     page.Product,
				retrieval.MetaContentType: "faq",
				"question":                faq.Question,
			},
		})
	}

	return docs
}
