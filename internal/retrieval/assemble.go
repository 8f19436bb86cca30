package retrieval

import (
	"fmt"
	"strings"
)

const (
	// MaxContextHits is the number of top hits included in the prompt context.
	MaxContextHits = 3

	// MaxSources is the number of citations surfaced with an answer.
	MaxSources = 3

	// NoContextSentinel is returned when retrieval produced nothing usable.
	NoContextSentinel = "No specific information found in the knowledge base."
)

// Assemble turns ranked hits into prompt context text and a deduplicated
// source list.
//
// Context uses the top MaxContextHits hits in the given order. Sources are
// deduplicated by URL across the full hit list before truncating to
// MaxSources, so a URL that appears once is never repeated even when it
// recurs at a lower rank; first-seen order is preserved.
func Assemble(hits []Hit) (string, []Source) {
	if len(hits) == 0 {
		return NoContextSentinel, nil
	}

	n := min(len(hits), MaxContextHits)

	parts := make([]string, 0, n)
	for i, hit := range hits[:n] {
		title := hit.Metadata[MetaTitle]
		if title == "" {
			title = "Untitled"
		}
		url := hit.Metadata[MetaURL]
		if url == "" {
			url = "No URL"
		}
		parts = append(parts, fmt.Sprintf("Source %d: %s (%s)\n%s\n", i+1, title, url, hit.Content))
	}

	return strings.Join(parts, "\n"), Sources(hits)
}

// Sources extracts up to MaxSources deduplicated citations from hits.
// Hits without a URL are skipped: they cannot be cited.
func Sources(hits []Hit) []Source {
	var sources []Source
	seen := make(map[string]struct{}, len(hits))

	for _, hit := range hits {
		url := hit.Metadata[MetaURL]
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}

		title := hit.Metadata[MetaTitle]
		if title == "" {
			title = "Support"
		}
		sources = append(sources, Source{
			Title:       title,
			URL:         url,
			Product:     hit.Metadata[MetaProduct],
			ContentType: hit.Metadata[MetaContentType],
			Score:       hit.Score,
		})
	}

	if len(sources) > MaxSources {
		sources = sources[:MaxSources]
	}
	return sources
}
