// Package ingest scrapes support articles and prepares them for indexing:
// fetch pages, extract readable content and FAQ pairs, chunk the text, and
// hand the resulting documents to the knowledge store.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/koopa0/helpdesk/internal/knowledge"
)

// defaultProducts are the product names recognized in URLs and titles when
// the config does not override them.
var defaultProducts = []string{"phone", "tablet", "laptop", "desktop", "watch", "earbuds", "tv"}

// FAQ is one question/answer pair extracted from a page.
type FAQ struct {
	Question string
	Answer   string
}

// Page is one scraped support article.
type Page struct {
	URL     string
	Title   string
	Product string
	Content string
	FAQs    []FAQ
}

// ScraperConfig controls the crawl.
type ScraperConfig struct {
	AllowedDomains []string
	Products       []string
	MaxDepth       int
	MaxPages       int
	UserAgent      string
	Delay          time.Duration
}

func (c *ScraperConfig) applyDefaults() {
	if c.MaxDepth <= 0 {
		c.MaxDepth = 2
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 100
	}
	if len(c.Products) == 0 {
		c.Products = defaultProducts
	}
}

// Scraper crawls support pages and extracts their content.
type Scraper struct {
	cfg    ScraperConfig
	logger *slog.Logger
}

// NewScraper creates a Scraper. logger may be nil.
func NewScraper(cfg ScraperConfig, logger *slog.Logger) *Scraper {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{cfg: cfg, logger: logger}
}

// Scrape crawls from startURL, staying on the allowed domains, and returns
// the extracted pages. The crawl stops early when ctx is canceled or the
// page budget is exhausted.
func (s *Scraper) Scrape(ctx context.Context, startURL string) ([]Page, error) {
	opts := []colly.CollectorOption{
		colly.MaxDepth(s.cfg.MaxDepth),
	}
	if len(s.cfg.AllowedDomains) > 0 {
		opts = append(opts, colly.AllowedDomains(s.cfg.AllowedDomains...))
	}
	if s.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(s.cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)

	if s.cfg.Delay > 0 {
		if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: s.cfg.Delay}); err != nil {
			return nil, fmt.Errorf("configuring crawl rate: %w", err)
		}
	}

	var (
		mu      sync.Mutex
		pages   []Page
		visited int
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if visited >= s.cfg.MaxPages {
			r.Abort()
			return
		}
		visited++
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		page, err := s.extractPage(e)
		if err != nil {
			s.logger.Warn("extracting page failed", "url", e.Request.URL.String(), "error", err)
			return
		}
		if page.Content == "" && len(page.FAQs) == 0 {
			return
		}
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()
		s.logger.Debug("page scraped", "url", page.URL, "title", page.Title, "faqs", len(page.FAQs))
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		_ = e.Request.Visit(e.Attr("href"))
	})

	c.OnError(func(r *colly.Response, err error) {
		s.logger.Warn("request failed", "url", r.Request.URL.String(), "error", err)
	})

	if err := c.Visit(startURL); err != nil {
		return nil, fmt.Errorf("starting crawl at %q: %w", startURL, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return pages, err
	}
	return pages, nil
}

// extractPage pulls readable article text via readability and FAQ pairs via
// the DOM.
func (s *Scraper) extractPage(e *colly.HTMLElement) (Page, error) {
	pageURL := e.Request.URL

	article, err := readability.FromReader(bytes.NewReader(e.Response.Body), pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("extracting readable content: %w", err)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = strings.TrimSpace(e.DOM.Find("title").First().Text())
	}

	return Page{
		URL:     pageURL.String(),
		Title:   title,
		Product: s.extractProduct(pageURL, title),
		Content: strings.TrimSpace(article.TextContent),
		FAQs:    extractFAQs(e.DOM),
	}, nil
}

// extractProduct matches the configured product names against the URL and
// title, case-insensitively.
func (s *Scraper) extractProduct(u *url.URL, title string) string {
	haystack := strings.ToLower(u.Path + " " + title)
	for _, product := range s.cfg.Products {
		if strings.Contains(haystack, strings.ToLower(product)) {
			return product
		}
	}
	return ""
}

// extractFAQs treats headings ending in a question mark as questions, with
// the following paragraph as the answer.
func extractFAQs(doc *goquery.Selection) []FAQ {
	var faqs []FAQ
	doc.Find("h2, h3").Each(func(_ int, sel *goquery.Selection) {
		question := strings.TrimSpace(sel.Text())
		if !strings.HasSuffix(question, "?") {
			return
		}
		answer := strings.TrimSpace(sel.NextFiltered("p").Text())
		if answer == "" {
			return
		}
		faqs = append(faqs, FAQ{Question: question, Answer: answer})
	})
	return faqs
}

// DocumentStore is the slice of the knowledge store the indexer needs.
type DocumentStore interface {
	AddBatch(ctx context.Context, docs []knowledge.Document) (int, error)
}

// Indexer chunks scraped pages and writes them to a document store.
type Indexer struct {
	store  DocumentStore
	logger *slog.Logger
}

// NewIndexer creates an Indexer. logger may be nil.
func NewIndexer(store DocumentStore, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: store, logger: logger}
}

// Index converts pages into documents and stores them, returning the number
// of documents indexed.
func (ix *Indexer) Index(ctx context.Context, pages []Page) (int, error) {
	var docs []knowledge.Document
	for _, page := range pages {
		docs = append(docs, Documents(page)...)
	}

	n, err := ix.store.AddBatch(ctx, docs)
	if err != nil {
		return n, fmt.Errorf("indexing %d documents: %w", len(docs), err)
	}

	ix.logger.Info("pages indexed", "pages", len(pages), "documents", n)
	return n, nil
}
